// Package app hosts the application core: account management and the
// structured chat flow that generates and edits recruiting sequences.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"helixrecruit/internal/sequence"
	"helixrecruit/internal/util"
	"helixrecruit/pkg/ai"
	"helixrecruit/pkg/auth"
	"helixrecruit/pkg/broadcast"
	"helixrecruit/pkg/domain"
	"helixrecruit/pkg/store"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const defaultHistoryLimit = 50

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	JWTSecret     string
	TokenTTL      time.Duration
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	HistoryLimit  int

	// Overrides used by tests and by main when wiring shared instances.
	Store     store.Store
	Generator ai.TextGenerator
	Broker    broadcast.Broker
	Tokens    *auth.TokenIssuer
}

// App wires storage, the completion client, token issuing, and the sequence
// fan-out together.
type App struct {
	store        store.Store
	generator    ai.TextGenerator
	broker       broadcast.Broker
	tokens       *auth.TokenIssuer
	historyLimit int
}

// New constructs the application. Omitted dependencies are built from the
// scalar config values.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	generator := cfg.Generator
	if generator == nil {
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("completion api key required")
		}
		generator = ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	broker := cfg.Broker
	if broker == nil {
		broker = broadcast.NewMemoryBroker()
	}

	tokens := cfg.Tokens
	if tokens == nil {
		var err error
		tokens, err = auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("init token issuer: %w", err)
		}
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &App{
		store:        dataStore,
		generator:    generator,
		broker:       broker,
		tokens:       tokens,
		historyLimit: historyLimit,
	}, nil
}

// VerifyToken resolves session-token claims, failing on bad signature or
// expiry.
func (a *App) VerifyToken(token string) (auth.Claims, error) {
	return a.tokens.Verify(token)
}

// SignupRequest is the payload accepted by SignUp.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	CompanySize string `json:"company_size"`
	Industry    string `json:"industry"`
}

// SignUp registers a new user and issues a session token. Validation
// failures come back as a ValidationError with a field-keyed map.
func (a *App) SignUp(req SignupRequest) (domain.User, string, error) {
	fields := map[string]string{}
	email := strings.TrimSpace(req.Email)
	if !emailRe.MatchString(email) {
		fields["email"] = "Please provide a valid email address"
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		fields["password"] = err.Error()
	}
	if strings.TrimSpace(req.FirstName) == "" {
		fields["firstName"] = "First name is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		fields["lastName"] = "Last name is required"
	}
	if strings.TrimSpace(req.Company) == "" {
		fields["company"] = "Company is required"
	}
	if strings.TrimSpace(req.Position) == "" {
		fields["position"] = "Job title is required"
	}
	if strings.TrimSpace(req.Industry) == "" {
		fields["industry"] = "Industry is required"
	}
	if strings.TrimSpace(req.CompanySize) == "" {
		fields["companySize"] = "Company size is required"
	}
	if len(fields) > 0 {
		return domain.User{}, "", &ValidationError{Message: "Validation failed", Fields: fields}
	}

	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", &ValidationError{
			Message: "User with this email already exists",
			Fields:  map[string]string{"email": "User with this email already exists"},
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Username:     usernameFromEmail(email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: passwordHash,
		Company:      strings.TrimSpace(req.Company),
		Position:     strings.TrimSpace(req.Position),
		CompanySize:  strings.TrimSpace(req.CompanySize),
		Industry:     strings.TrimSpace(req.Industry),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token. Either failure
// mode yields the same ErrInvalidCredentials.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Profile returns the user behind a session.
func (a *App) Profile(userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfileRequest carries a partial profile update. Nil fields are left
// unchanged. A current/new password pair triggers a password change that
// independently re-verifies the current password.
type UpdateProfileRequest struct {
	FirstName           *string `json:"first_name"`
	LastName            *string `json:"last_name"`
	Email               *string `json:"email"`
	Company             *string `json:"company"`
	Position            *string `json:"position"`
	CompanySize         *string `json:"company_size"`
	Industry            *string `json:"industry"`
	CompanyDescription  *string `json:"company_description"`
	TargetRoles         *string `json:"target_roles"`
	RecruitingGoals     *string `json:"recruiting_goals"`
	OutreachPreferences *string `json:"outreach_preferences"`
	CurrentPassword     string  `json:"current_password"`
	NewPassword         string  `json:"new_password"`
}

// UpdateProfile applies a partial update to the user.
func (a *App) UpdateProfile(userID string, req UpdateProfileRequest) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}

	if req.NewPassword != "" && req.CurrentPassword != "" {
		if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
			return domain.User{}, ErrCurrentPasswordIncorrect
		}
		if err := auth.ValidatePassword(req.NewPassword); err != nil {
			return domain.User{}, &ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"password": err.Error()},
			}
		}
		passwordHash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = passwordHash
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !emailRe.MatchString(email) {
			return domain.User{}, &ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"email": "Please provide a valid email address"},
			}
		}
		if email != user.Email {
			existing, ok, err := a.store.GetUserByEmail(email)
			if err != nil {
				return domain.User{}, fmt.Errorf("check email: %w", err)
			}
			if ok && existing.ID != user.ID {
				return domain.User{}, &ValidationError{
					Message: "User with this email already exists",
					Fields:  map[string]string{"email": "User with this email already exists"},
				}
			}
			user.Email = email
		}
	}
	applyIfSet(&user.FirstName, req.FirstName)
	applyIfSet(&user.LastName, req.LastName)
	applyIfSet(&user.Company, req.Company)
	applyIfSet(&user.Position, req.Position)
	applyIfSet(&user.CompanySize, req.CompanySize)
	applyIfSet(&user.Industry, req.Industry)
	applyIfSet(&user.CompanyDescription, req.CompanyDescription)
	applyIfSet(&user.TargetRoles, req.TargetRoles)
	applyIfSet(&user.RecruitingGoals, req.RecruitingGoals)
	applyIfSet(&user.OutreachPreferences, req.OutreachPreferences)

	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func applyIfSet(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// ChatResult is what a chat turn produces: a textual reply and, for
// structured operations, the resulting sequence.
type ChatResult struct {
	Response   string           `json:"response"`
	IsSequence bool             `json:"isSequence"`
	Sequence   *domain.Sequence `json:"sequence,omitempty"`
}

// Chat runs one chat turn: classify the message, build prompts, call the
// model, merge the reply into the sequence, and broadcast the result.
// userID may be empty for anonymous chats; history is only recorded for
// authenticated ones.
func (a *App) Chat(ctx context.Context, userID, message string, current *domain.Sequence) (ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, ErrMessageRequired
	}

	classification, err := sequence.Classify(message, current)
	if err != nil {
		// Classification failures are user guidance, not server errors;
		// the model is never called for them.
		return ChatResult{Response: err.Error(), IsSequence: false}, nil
	}

	systemPrompt, userPrompt := sequence.BuildPrompts(classification, message, current)
	raw, err := a.generator.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return ChatResult{}, fmt.Errorf("generate completion: %w", err)
	}

	result := a.resolveChat(ctx, classification, raw, current)
	a.recordExchange(userID, message, result)
	return result, nil
}

func (a *App) resolveChat(ctx context.Context, c sequence.Classification, raw string, current *domain.Sequence) ChatResult {
	if c.Intent == sequence.IntentChat {
		return ChatResult{Response: raw, IsSequence: false}
	}

	next, err := sequence.Reconcile(c, raw, current)
	if err != nil {
		// Surface the model's literal output as a diagnostic instead of
		// swallowing it.
		return ChatResult{
			Response:   "I tried to process the sequence modification but encountered an error. The response format wasn't as expected. Here's what I got: " + raw,
			IsSequence: false,
		}
	}

	a.publish(ctx, next)
	return ChatResult{
		Response:   chatResponseMessage(c, current),
		IsSequence: true,
		Sequence:   &next,
	}
}

func chatResponseMessage(c sequence.Classification, current *domain.Sequence) string {
	switch {
	case c.Intent == sequence.IntentEdit:
		return fmt.Sprintf("I've updated step %s of your sequence.", c.StepID)
	case c.Intent == sequence.IntentAdd && current != nil:
		return "I've added the new step to your sequence."
	default:
		return "I've created a sequence based on your request. You can view it in the sequence section."
	}
}

// GenerateSequence drives the dedicated generation endpoint. The result is
// always treated as a brand-new sequence and renumbered "1".."n".
func (a *App) GenerateSequence(ctx context.Context, prompt string) (domain.Sequence, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Create a recruiting sequence"
	}
	raw, err := a.generator.GenerateText(ctx, sequence.GenerateSystemPrompt, prompt)
	if err != nil {
		return domain.Sequence{}, fmt.Errorf("generate completion: %w", err)
	}
	next, err := sequence.Reconcile(sequence.Classification{Intent: sequence.IntentNew}, raw, nil)
	if err != nil {
		return domain.Sequence{}, fmt.Errorf("parse generated sequence: %w", err)
	}
	a.publish(ctx, next)
	return next, nil
}

// UpdateSequence accepts a manually edited sequence, broadcasts it, and
// echoes it back. There is no persistence keyed by sequence id.
func (a *App) UpdateSequence(ctx context.Context, seq domain.Sequence) domain.Sequence {
	a.publish(ctx, seq)
	return seq
}

// History returns the caller's recent chat exchanges in chronological order.
func (a *App) History(userID string) ([]domain.ChatMessage, error) {
	messages, err := a.store.ListMessagesByUser(userID, a.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// publish is fire-and-forget: fan-out failure never fails the operation.
func (a *App) publish(ctx context.Context, seq domain.Sequence) {
	if err := a.broker.Publish(ctx, seq); err != nil {
		slog.Warn("sequence broadcast failed", "err", err)
	}
}

// recordExchange persists both halves of an authenticated chat turn.
// History is best-effort; a storage failure does not fail the chat.
func (a *App) recordExchange(userID, message string, result ChatResult) {
	if strings.TrimSpace(userID) == "" {
		return
	}
	now := time.Now().UTC()
	if err := a.store.AppendMessage(domain.ChatMessage{
		ID:        util.NewID(),
		UserID:    userID,
		Role:      "user",
		Content:   message,
		CreatedAt: now,
	}); err != nil {
		slog.Warn("record user message failed", "err", err)
		return
	}
	assistant := domain.ChatMessage{
		ID:        util.NewID(),
		UserID:    userID,
		Role:      "assistant",
		Content:   result.Response,
		CreatedAt: time.Now().UTC(),
	}
	if result.IsSequence {
		assistant.Sequence = result.Sequence
	}
	if err := a.store.AppendMessage(assistant); err != nil {
		slog.Warn("record assistant message failed", "err", err)
	}
}
