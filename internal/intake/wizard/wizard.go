// Package wizard tracks where a booking's intake is: which stage, which step of
// the form, and whether the booker has confirmed their email.
package wizard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	StageSubmitDetails = "Submit Details"
	StageVerifyDetails = "Verify Details"

	DefaultTotalSteps = 2
)

// Stages is the ordered stage path.
var Stages = []string{StageSubmitDetails, StageVerifyDetails}

type Phase string

const (
	PhaseWelcome Phase = "welcome"
	PhaseForm    Phase = "form"
	PhasePreview Phase = "preview"
	PhaseThanks  Phase = "thanks"
)

type StageStatus string

const (
	StatusCurrent   StageStatus = "current"
	StatusCompleted StageStatus = "completed"
	StatusPending   StageStatus = "pending"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// State is the wizard position. Methods return a new State.
type State struct {
	CurrentStage    string   `json:"currentStage"`
	CompletedStages []string `json:"completedStages"`
	CurrentStep     int      `json:"currentStep"`
	TotalSteps      int      `json:"totalSteps"`
	VerifyError     bool     `json:"verifyError"`
	Verified        bool     `json:"verified"`
	Phase           Phase    `json:"phase"`
}

// RenderedStage is the derived progress view of one stage.
type RenderedStage struct {
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Selected bool        `json:"selected"`
	TabIndex int         `json:"tabIndex"`
}

// StepValidator decides whether the form may move past step.
type StepValidator func(step int) bool

func New() State {
	return State{
		CurrentStage:    StageSubmitDetails,
		CompletedStages: []string{},
		CurrentStep:     1,
		TotalSteps:      DefaultTotalSteps,
		Phase:           PhaseWelcome,
	}
}

// StageAt returns the stage name at index i and panics when i is outside the
// stage path.
func StageAt(i int) string {
	if i < 0 || i >= len(Stages) {
		panic(fmt.Sprintf("wizard: stage index %d out of range", i))
	}
	return Stages[i]
}

func (s State) stageIndex() int {
	for i, name := range Stages {
		if name == s.CurrentStage {
			return i
		}
	}
	panic(fmt.Sprintf("wizard: unknown stage %q", s.CurrentStage))
}

func (s State) clone() State {
	out := s
	out.CompletedStages = append([]string{}, s.CompletedStages...)
	return out
}

// IsCompleted reports whether stage has been passed through.
func (s State) IsCompleted(stage string) bool {
	for _, c := range s.CompletedStages {
		if c == stage {
			return true
		}
	}
	return false
}

func (s State) markCompleted(stage string) State {
	if s.IsCompleted(stage) {
		return s
	}
	out := s.clone()
	out.CompletedStages = append(out.CompletedStages, stage)
	return out
}

// AdvanceStage marks the current stage completed and moves to the next one.
// At the last stage it does nothing.
func (s State) AdvanceStage() State {
	idx := s.stageIndex()
	if idx == len(Stages)-1 {
		return s
	}
	out := s.markCompleted(s.CurrentStage)
	out.CurrentStage = StageAt(idx + 1)
	return out
}

// Back retreats one stage and returns to the editable form.
func (s State) Back() State {
	idx := s.stageIndex()
	if idx == 0 {
		return s
	}
	out := s.clone()
	out.CurrentStage = StageAt(idx - 1)
	out.Phase = PhaseForm
	return out
}

// VerifyGate compares the typed email against the booking email. All
// whitespace is stripped from input first. A match opens the form on the first
// stage; a mismatch only raises the error flag. Repeating a call with the same
// arguments yields the same state.
func (s State) VerifyGate(input, expected string) State {
	out := s.clone()
	if !EmailMatches(input, expected) {
		out.VerifyError = true
		return out
	}
	out.VerifyError = false
	out.Verified = true
	out.Phase = PhaseForm
	out.CurrentStage = StageSubmitDetails
	return out
}

// EmailMatches reports whether input, with whitespace removed, equals
// expected. The comparison is case sensitive and an empty booking email never
// matches. An exact match of the stored email verifies even when that email
// misses the usual shape.
func EmailMatches(input, expected string) bool {
	if expected == "" {
		return false
	}
	return StripWhitespace(input) == expected
}

// ValidEmail checks the minimal email shape.
func ValidEmail(email string) bool {
	return validation.Validate(email, validation.Required, validation.Match(emailShape)) == nil
}

func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NextStep moves forward one step when validate accepts the current step.
// The second result reports whether the step changed.
func (s State) NextStep(validate StepValidator) (State, bool) {
	if s.CurrentStep >= s.totalSteps() {
		return s, false
	}
	if validate != nil && !validate(s.CurrentStep) {
		return s, false
	}
	out := s.clone()
	out.CurrentStep++
	return out, true
}

// PreviousStep moves back one step, never below the first.
func (s State) PreviousStep() State {
	if s.CurrentStep <= 1 {
		return s
	}
	out := s.clone()
	out.CurrentStep--
	return out
}

func (s State) totalSteps() int {
	if s.TotalSteps <= 0 {
		return DefaultTotalSteps
	}
	return s.TotalSteps
}

// EnterPreview is the transition after a successful save: the details stage is
// completed and the verify stage shows the stored roster.
func (s State) EnterPreview() State {
	out := s.clone()
	if out.stageIndex() == 0 {
		out = out.AdvanceStage()
	}
	out.Phase = PhasePreview
	return out
}

// Complete marks every stage completed and shows the thank-you phase.
func (s State) Complete() State {
	out := s.clone()
	for _, stage := range Stages {
		out = out.markCompleted(stage)
	}
	out.Phase = PhaseThanks
	return out
}

// RenderedStages derives the progress path from the state.
func (s State) RenderedStages() []RenderedStage {
	out := make([]RenderedStage, 0, len(Stages))
	for _, name := range Stages {
		rs := RenderedStage{Name: name, Status: StatusPending, TabIndex: -1}
		switch {
		case name == s.CurrentStage:
			rs.Status = StatusCurrent
			rs.Selected = true
			rs.TabIndex = 0
		case s.IsCompleted(name):
			rs.Status = StatusCompleted
		}
		out = append(out, rs)
	}
	return out
}
