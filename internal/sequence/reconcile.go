package sequence

import (
	"fmt"
	"strconv"
	"strings"

	"helixrecruit/internal/jsonx"
	"helixrecruit/pkg/domain"
)

// stepsPayload is the JSON shape requested from the model for edit and add.
type stepsPayload struct {
	Steps []domain.Step `json:"steps"`
}

// NextStepID computes max(existing numeric ids)+1 as a string, or "1" when
// no sequence or no steps exist. Non-numeric ids are ignored.
func NextStepID(seq *domain.Sequence) string {
	if seq == nil || len(seq.Steps) == 0 {
		return "1"
	}
	max := 0
	for _, s := range seq.Steps {
		if n, err := strconv.Atoi(strings.TrimSpace(s.ID)); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

// FindStep returns the step with the given id, or nil. Ids are compared as
// strings.
func FindStep(seq *domain.Sequence, id string) *domain.Step {
	if seq == nil {
		return nil
	}
	for i := range seq.Steps {
		if seq.Steps[i].ID == id {
			return &seq.Steps[i]
		}
	}
	return nil
}

// Reconcile merges the model's raw reply into the prior sequence according
// to the classified operation and returns the next sequence. A parse failure
// is returned as an error wrapping the extraction problem; callers surface
// the raw text to the user rather than discarding it.
func Reconcile(c Classification, raw string, current *domain.Sequence) (domain.Sequence, error) {
	switch c.Intent {
	case IntentEdit:
		return applyEdit(c.StepID, raw, current)
	case IntentAdd:
		// An add with no open sequence falls through to new-sequence
		// handling, so the single produced step ends up with id "1".
		if current == nil {
			return applyNew(raw)
		}
		return applyAdd(c.StepID, raw, current)
	case IntentNew:
		return applyNew(raw)
	default:
		return domain.Sequence{}, fmt.Errorf("intent %q produces no sequence", c.Intent)
	}
}

// applyEdit replaces the addressed step in place. The parsed step's id is
// forced back to the requested id regardless of what the model returned;
// all other steps and their order are untouched.
func applyEdit(stepID, raw string, current *domain.Sequence) (domain.Sequence, error) {
	var payload stepsPayload
	if err := jsonx.ExtractObject(raw, &payload); err != nil {
		return domain.Sequence{}, err
	}
	if len(payload.Steps) == 0 {
		return domain.Sequence{}, fmt.Errorf("edit reply contained no steps")
	}
	edited := payload.Steps[0]
	edited.ID = stepID
	next := domain.Sequence{
		Title:       current.Title,
		Description: current.Description,
		Steps:       make([]domain.Step, len(current.Steps)),
	}
	for i, s := range current.Steps {
		if s.ID == stepID {
			next.Steps[i] = edited
		} else {
			next.Steps[i] = s
		}
	}
	return next, nil
}

// applyAdd appends every parsed step to the end of the existing list, keeping
// order. Steps the model returned without an id get the precomputed next id.
func applyAdd(stepID, raw string, current *domain.Sequence) (domain.Sequence, error) {
	var payload stepsPayload
	if err := jsonx.ExtractObject(raw, &payload); err != nil {
		return domain.Sequence{}, err
	}
	if len(payload.Steps) == 0 {
		return domain.Sequence{}, fmt.Errorf("add reply contained no steps")
	}
	next := domain.Sequence{
		Title:       current.Title,
		Description: current.Description,
		Steps:       make([]domain.Step, 0, len(current.Steps)+len(payload.Steps)),
	}
	next.Steps = append(next.Steps, current.Steps...)
	for _, s := range payload.Steps {
		if strings.TrimSpace(s.ID) == "" {
			s.ID = stepID
		}
		next.Steps = append(next.Steps, s)
	}
	return next, nil
}

// applyNew discards any prior sequence and renumbers every returned step
// "1".."n" in output order, overwriting model-supplied ids.
func applyNew(raw string) (domain.Sequence, error) {
	var next domain.Sequence
	if err := jsonx.ExtractObject(raw, &next); err != nil {
		return domain.Sequence{}, err
	}
	for i := range next.Steps {
		next.Steps[i].ID = strconv.Itoa(i + 1)
	}
	return next, nil
}
