// Package sequence implements the structured-chat core: classifying what a
// message asks for, building the model prompts, and merging the model's
// reply back into the recruiting sequence.
package sequence

import (
	"fmt"
	"regexp"
	"strings"

	"helixrecruit/pkg/domain"
)

// Intent is the classified operation a chat message requests.
type Intent string

const (
	IntentEdit Intent = "edit"
	IntentAdd  Intent = "add"
	IntentNew  Intent = "new"
	IntentChat Intent = "chat"
)

// Classification is the outcome of running the intent rules over a message.
type Classification struct {
	Intent Intent
	// StepID is the target step for edit, or the id assigned to the next
	// step for add. Empty for new and chat.
	StepID string
}

// ClassifyError is a user-facing classification failure. Callers surface
// Message as a chat reply and must not invoke the model.
type ClassifyError struct {
	Message string
}

func (e *ClassifyError) Error() string { return e.Message }

var (
	editStepRe = regexp.MustCompile(`(?i)(?:edit|change) step (\d+)`)
	addStepRe  = regexp.MustCompile(`(?i)add step (\d+)`)
)

// rule pairs a predicate with its classifier. Rules run in order and the
// first match wins; the ordering is a deliberate tie-break, with "edit step"
// outranking "add step" outranking the generic sequence phrases.
type rule struct {
	match    func(lower string, seq *domain.Sequence) bool
	classify func(message string, seq *domain.Sequence) (Classification, error)
}

var rules = []rule{
	{
		match: func(lower string, _ *domain.Sequence) bool {
			return strings.Contains(lower, "edit step") || strings.Contains(lower, "change step")
		},
		classify: classifyEdit,
	},
	{
		match: func(lower string, _ *domain.Sequence) bool {
			return strings.Contains(lower, "add step")
		},
		classify: classifyAdd,
	},
	{
		match: func(lower string, seq *domain.Sequence) bool {
			if seq == nil {
				return false
			}
			return strings.Contains(lower, "update sequence") ||
				strings.Contains(lower, "modify sequence") ||
				strings.Contains(lower, "add to sequence")
		},
		classify: func(_ string, seq *domain.Sequence) (Classification, error) {
			return Classification{Intent: IntentAdd, StepID: NextStepID(seq)}, nil
		},
	},
	{
		match: func(lower string, _ *domain.Sequence) bool {
			return strings.Contains(lower, "sequence") ||
				strings.Contains(lower, "recruiting steps") ||
				strings.Contains(lower, "recruitment process")
		},
		classify: func(string, *domain.Sequence) (Classification, error) {
			return Classification{Intent: IntentNew}, nil
		},
	},
}

// Classify inspects a chat message and the currently open sequence and
// decides which operation is intended. Pure function of its inputs.
func Classify(message string, seq *domain.Sequence) (Classification, error) {
	lower := strings.ToLower(message)
	for _, r := range rules {
		if r.match(lower, seq) {
			return r.classify(message, seq)
		}
	}
	return Classification{Intent: IntentChat}, nil
}

func classifyEdit(message string, seq *domain.Sequence) (Classification, error) {
	m := editStepRe.FindStringSubmatch(message)
	if m == nil {
		return Classification{}, &ClassifyError{Message: "Please specify the step number to edit in your request."}
	}
	stepID := m[1]
	if seq == nil {
		return Classification{}, &ClassifyError{Message: "No existing sequence to edit."}
	}
	if FindStep(seq, stepID) == nil {
		return Classification{}, &ClassifyError{
			Message: fmt.Sprintf("I couldn't find step %s in your sequence. Please check the step number.", stepID),
		}
	}
	return Classification{Intent: IntentEdit, StepID: stepID}, nil
}

func classifyAdd(message string, seq *domain.Sequence) (Classification, error) {
	if m := addStepRe.FindStringSubmatch(message); m != nil {
		return Classification{Intent: IntentAdd, StepID: m[1]}, nil
	}
	return Classification{Intent: IntentAdd, StepID: NextStepID(seq)}, nil
}
