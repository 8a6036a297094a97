package api

import (
	"time"

	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/intake/wizard"
	"applicant-intake/internal/models"
)

// sessionView is the session as the edge returns it. The booking email is
// never echoed back.
type sessionView struct {
	BookingID       string                 `json:"bookingId"`
	Roster          roster.Roster          `json:"roster"`
	Address         address.Model          `json:"address"`
	Wizard          wizard.State           `json:"wizard"`
	Stages          []wizard.RenderedStage `json:"stages"`
	Files           models.FileBuckets     `json:"files"`
	SelectedDocType string                 `json:"selectedDocType"`
	PersistedIDs    map[string]string      `json:"persistedIds,omitempty"`
	LastSave        *persist.Report        `json:"lastSave,omitempty"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func newSessionView(s session.Session) sessionView {
	return sessionView{
		BookingID:       s.BookingID,
		Roster:          s.Roster,
		Address:         s.Address,
		Wizard:          s.Wizard,
		Stages:          s.Wizard.RenderedStages(),
		Files:           s.Files,
		SelectedDocType: s.SelectedDocType,
		PersistedIDs:    s.PersistedIDs,
		LastSave:        s.LastSave,
		UpdatedAt:       s.UpdatedAt,
	}
}
