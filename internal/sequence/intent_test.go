package sequence

import (
	"errors"
	"testing"

	"helixrecruit/pkg/domain"
)

func seqWithSteps(ids ...string) *domain.Sequence {
	seq := &domain.Sequence{Title: "Outreach"}
	for _, id := range ids {
		seq.Steps = append(seq.Steps, domain.Step{ID: id, Title: "Step " + id})
	}
	return seq
}

func TestClassifyEditStep(t *testing.T) {
	c, err := Classify("Please edit step 2 to mention the referral bonus", seqWithSteps("1", "2", "3"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentEdit || c.StepID != "2" {
		t.Fatalf("expected edit step 2, got %s step %q", c.Intent, c.StepID)
	}
}

func TestClassifyChangeStep(t *testing.T) {
	c, err := Classify("change step 1 to be more formal", seqWithSteps("1"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentEdit || c.StepID != "1" {
		t.Fatalf("expected edit step 1, got %s step %q", c.Intent, c.StepID)
	}
}

func TestClassifyEditWithoutStepNumber(t *testing.T) {
	_, err := Classify("edit step please", seqWithSteps("1"))
	var ce *ClassifyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClassifyError, got %v", err)
	}
	if ce.Message != "Please specify the step number to edit in your request." {
		t.Fatalf("unexpected message %q", ce.Message)
	}
}

func TestClassifyEditWithoutSequence(t *testing.T) {
	_, err := Classify("edit step 3", nil)
	var ce *ClassifyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClassifyError, got %v", err)
	}
	if ce.Message != "No existing sequence to edit." {
		t.Fatalf("unexpected message %q", ce.Message)
	}
}

func TestClassifyEditUnknownStep(t *testing.T) {
	_, err := Classify("edit step 9", seqWithSteps("1", "2"))
	var ce *ClassifyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClassifyError, got %v", err)
	}
	if ce.Message != "I couldn't find step 9 in your sequence. Please check the step number." {
		t.Fatalf("unexpected message %q", ce.Message)
	}
}

func TestClassifyEditOutranksAdd(t *testing.T) {
	// A message matching both phrases resolves to edit.
	c, err := Classify("edit step 1 then add step 2", seqWithSteps("1"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentEdit || c.StepID != "1" {
		t.Fatalf("expected edit step 1, got %s step %q", c.Intent, c.StepID)
	}
}

func TestClassifyAddStepExplicitNumber(t *testing.T) {
	c, err := Classify("add step 5 about scheduling the onsite", seqWithSteps("1", "2"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentAdd || c.StepID != "5" {
		t.Fatalf("expected add step 5, got %s step %q", c.Intent, c.StepID)
	}
}

func TestClassifyAddStepWithoutNumber(t *testing.T) {
	c, err := Classify("add step for the follow-up email", seqWithSteps("1", "2", "5"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentAdd || c.StepID != "6" {
		t.Fatalf("expected add with next id 6, got %s step %q", c.Intent, c.StepID)
	}
}

func TestClassifyUpdateSequenceRequiresExisting(t *testing.T) {
	// "update sequence" without an open sequence falls through to the
	// generic sequence phrase and starts a new one.
	c, err := Classify("update sequence with a phone screen", nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentNew {
		t.Fatalf("expected new, got %s", c.Intent)
	}

	c, err = Classify("update sequence with a phone screen", seqWithSteps("1"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentAdd || c.StepID != "2" {
		t.Fatalf("expected add step 2, got %s step %q", c.Intent, c.StepID)
	}
}

func TestClassifyNewSequencePhrases(t *testing.T) {
	for _, msg := range []string{
		"Create a sequence for senior engineers",
		"what are good recruiting steps for a designer?",
		"walk me through the recruitment process",
	} {
		c, err := Classify(msg, nil)
		if err != nil {
			t.Fatalf("classify %q: %v", msg, err)
		}
		if c.Intent != IntentNew {
			t.Fatalf("message %q expected new, got %s", msg, c.Intent)
		}
	}
}

func TestClassifyPlainChat(t *testing.T) {
	c, err := Classify("How should I pitch our equity package?", seqWithSteps("1"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Intent != IntentChat {
		t.Fatalf("expected chat, got %s", c.Intent)
	}
}
