package sequence

import (
	"fmt"
	"strings"

	"helixrecruit/pkg/domain"
)

// ChatSystemPrompt is the persona used for plain chat messages.
const ChatSystemPrompt = "You are Helix, an AI recruiting assistant. You help with recruiting tasks and provide detailed responses."

// GenerateSystemPrompt drives the dedicated sequence-generation endpoint.
const GenerateSystemPrompt = "You are Helix, an AI recruiting assistant. Generate a detailed recruiting sequence in JSON format. Include a title, description, and an array of steps. Each step should have an id, title, and description."

// BuildPrompts renders the system/user prompt pair for a classified message.
// Output is deterministic given identical inputs; the JSON shape the model
// must return is spelled out in the system prompt.
func BuildPrompts(c Classification, message string, seq *domain.Sequence) (systemPrompt, userPrompt string) {
	switch c.Intent {
	case IntentEdit:
		return buildEditPrompts(c.StepID, message, seq)
	case IntentAdd:
		return buildAddPrompts(c.StepID, message, seq)
	case IntentNew:
		return buildNewPrompts(message)
	default:
		return ChatSystemPrompt, message
	}
}

func buildEditPrompts(stepID, message string, seq *domain.Sequence) (string, string) {
	step := FindStep(seq, stepID)
	systemPrompt := fmt.Sprintf(`You are Helix, an AI recruiting assistant. EDIT an existing step in a recruiting sequence.
The edited step should be returned as JSON in the following format:
{
  "steps": [
    {
      "id": %q,
      "title": "Updated Step Title Here",
      "description": "Updated detailed step description here (2-3 sentences)"
    }
  ]
}
Current step to edit:
Step %s: %s
Description: %s
ONLY return the JSON for the edited step, nothing else.`, stepID, stepID, step.Title, step.Description)
	userPrompt := fmt.Sprintf("Edit step %s based on this request: %s. Make sure to incorporate the changes requested while preserving the overall purpose of the step.", stepID, message)
	return systemPrompt, userPrompt
}

func buildAddPrompts(stepID, message string, seq *domain.Sequence) (string, string) {
	systemPrompt := fmt.Sprintf(`You are Helix, an AI recruiting assistant. Create a NEW STEP for an existing recruiting sequence.
The step should be formatted as follows:
{
  "steps": [
    {
      "id": %q,
      "title": "Step Title Here",
      "description": "Detailed step description here (2-3 sentences)"
    }
  ]
}
Current sequence steps:
%s
ONLY return the JSON for the new step, nothing else.`, stepID, stepSummary(seq))
	userPrompt := fmt.Sprintf("Create a new step (step %s) for the sequence based on this request: %s. Be detailed and specific.", stepID, message)
	return systemPrompt, userPrompt
}

func buildNewPrompts(message string) (string, string) {
	systemPrompt := `You are Helix, an AI recruiting assistant. Generate a detailed recruiting sequence in JSON format following this exact structure:
{
  "title": "Recruiting Sequence Title",
  "description": "A detailed description of the overall recruiting process",
  "steps": [
    {
      "id": "1",
      "title": "Step Title",
      "description": "Detailed description of what needs to be done in this step (2-3 sentences)"
    }
  ]
}
Make the content detailed and specific to the requested role. Include at least 5-7 steps covering the entire recruitment process from job posting to offer letter.`
	userPrompt := fmt.Sprintf("Create a detailed recruiting sequence for: %s. Ensure the steps include specific requirements, interview questions, and evaluation criteria.", message)
	return systemPrompt, userPrompt
}

func stepSummary(seq *domain.Sequence) string {
	if seq == nil || len(seq.Steps) == 0 {
		return "No existing steps"
	}
	lines := make([]string, 0, len(seq.Steps))
	for _, s := range seq.Steps {
		lines = append(lines, fmt.Sprintf("%s. %s", s.ID, s.Title))
	}
	return strings.Join(lines, "\n")
}
