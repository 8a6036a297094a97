package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	s := New()
	assert.Equal(t, StageSubmitDetails, s.CurrentStage)
	assert.Equal(t, 1, s.CurrentStep)
	assert.Equal(t, PhaseWelcome, s.Phase)
	assert.Empty(t, s.CompletedStages)
}

func TestAdvanceStage(t *testing.T) {
	s := New().AdvanceStage()
	assert.Equal(t, StageVerifyDetails, s.CurrentStage)
	assert.Equal(t, []string{StageSubmitDetails}, s.CompletedStages)

	// last stage: no-op
	again := s.AdvanceStage()
	assert.Equal(t, s, again)
}

func TestBack(t *testing.T) {
	s := New().EnterPreview()
	assert.Equal(t, PhasePreview, s.Phase)
	assert.Equal(t, StageVerifyDetails, s.CurrentStage)

	s = s.Back()
	assert.Equal(t, StageSubmitDetails, s.CurrentStage)
	assert.Equal(t, PhaseForm, s.Phase)
	assert.True(t, s.IsCompleted(StageSubmitDetails))

	assert.Equal(t, s, s.Back())
}

func TestVerifyGate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantOK   bool
	}{
		{"exact", "owner@example.com", "owner@example.com", true},
		{"whitespace stripped", "  owner@exa mple.com\t", "owner@example.com", true},
		{"case sensitive", "Owner@example.com", "owner@example.com", false},
		{"different", "someone@example.com", "owner@example.com", false},
		{"stored email without the usual shape", "owner@example", "owner@example", true},
		{"short stored email typed exactly", " a@b ", "a@b", true},
		{"bad shape typed", "owner@example", "owner@example.com", false},
		{"empty expected", "", "", false},
		{"empty expected with input", "owner@example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New().VerifyGate(tt.input, tt.expected)
			again := s.VerifyGate(tt.input, tt.expected)
			assert.Equal(t, s, again, "gate must be idempotent")

			assert.Equal(t, StageSubmitDetails, s.CurrentStage)
			if tt.wantOK {
				assert.False(t, s.VerifyError)
				assert.True(t, s.Verified)
				assert.Equal(t, PhaseForm, s.Phase)
			} else {
				assert.True(t, s.VerifyError)
				assert.False(t, s.Verified)
				assert.Equal(t, PhaseWelcome, s.Phase)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"owner@example.com", true},
		{"a@b", false},
		{"owner@@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}

func TestVerifyGate_ClearsPreviousError(t *testing.T) {
	s := New().VerifyGate("x@y.z", "owner@example.com")
	assert.True(t, s.VerifyError)

	s = s.VerifyGate("owner@example.com", "owner@example.com")
	assert.False(t, s.VerifyError)
	assert.True(t, s.Verified)
}

func TestSteps(t *testing.T) {
	s := New()

	blocked, moved := s.NextStep(func(int) bool { return false })
	assert.False(t, moved)
	assert.Equal(t, 1, blocked.CurrentStep)

	s, moved = s.NextStep(func(step int) bool { return step == 1 })
	assert.True(t, moved)
	assert.Equal(t, 2, s.CurrentStep)

	_, moved = s.NextStep(nil)
	assert.False(t, moved, "cannot pass the last step")

	s = s.PreviousStep()
	assert.Equal(t, 1, s.CurrentStep)
	s = s.PreviousStep()
	assert.Equal(t, 1, s.CurrentStep)
}

func TestRenderedStages(t *testing.T) {
	got := New().RenderedStages()
	assert.Equal(t, []RenderedStage{
		{Name: StageSubmitDetails, Status: StatusCurrent, Selected: true, TabIndex: 0},
		{Name: StageVerifyDetails, Status: StatusPending, TabIndex: -1},
	}, got)

	got = New().AdvanceStage().RenderedStages()
	assert.Equal(t, StatusCompleted, got[0].Status)
	assert.Equal(t, StatusCurrent, got[1].Status)
}

func TestComplete(t *testing.T) {
	s := New().EnterPreview().Complete()
	assert.Equal(t, PhaseThanks, s.Phase)
	assert.True(t, s.IsCompleted(StageSubmitDetails))
	assert.True(t, s.IsCompleted(StageVerifyDetails))
}

func TestUnknownStagePanics(t *testing.T) {
	s := State{CurrentStage: "Pay Deposit"}
	assert.Panics(t, func() { s.AdvanceStage() })
	assert.Panics(t, func() { StageAt(2) })
}
