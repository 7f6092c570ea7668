package domain

import "time"

// Step is one addressable unit of a Sequence. IDs are numeric-looking strings
// and are always compared as strings.
type Step struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Done is UI-local progress state and is never sent to the model.
	Done bool `json:"done,omitempty"`
}

// Sequence is a titled, ordered recruiting outreach plan. Every step id is
// unique within its owning sequence.
type Sequence struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// User is a recruiter account. JSON field names follow the public API
// contract (snake_case).
type User struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username,omitempty"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	Company             string    `json:"company"`
	Position            string    `json:"position"`
	CompanySize         string    `json:"company_size"`
	Industry            string    `json:"industry"`
	CompanyDescription  string    `json:"company_description,omitempty"`
	TargetRoles         string    `json:"target_roles,omitempty"`
	RecruitingGoals     string    `json:"recruiting_goals,omitempty"`
	OutreachPreferences string    `json:"outreach_preferences,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ChatMessage is one half of a recorded chat exchange. Sequence is set on
// assistant messages that produced a structured sequence.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sequence  *Sequence `json:"sequence,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
