package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
// The provider is treated as best-effort: it may be slow, fail, or ignore the
// requested output format. Callers do not retry.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
