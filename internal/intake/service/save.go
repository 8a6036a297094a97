package service

import (
	"context"
	"errors"

	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
)

// SaveResult is the session after a save together with the save report.
type SaveResult struct {
	Session session.Session `json:"session"`
	Report  persist.Report  `json:"report"`
}

// SaveAndPreview persists the roster. The report is written to the session
// whatever the outcome, saved applicants keep their record ids and their
// pending uploads are cleared. When the whole run succeeds the roster is
// reloaded from the record store and the wizard moves to the preview.
//
// With retryFailed only applicants that have no record id yet are created.
func (s *Service) SaveAndPreview(ctx context.Context, bookingID string, retryFailed bool) (SaveResult, error) {
	sess, err := s.sessions.Get(ctx, bookingID)
	if err != nil {
		return SaveResult{}, err
	}
	if !sess.Wizard.Verified {
		return SaveResult{Session: sess}, ErrNotVerified
	}

	req := persist.Request{
		BookingID:       bookingID,
		Roster:          sess.Roster,
		Address:         sess.Address,
		Files:           sess.Files,
		SelectedDocType: sess.SelectedDocType,
	}
	if retryFailed {
		req.Only = unsaved(sess)
		if len(req.Only) == 0 {
			return SaveResult{Session: sess}, ErrNothingToRetry
		}
	}

	report, saveErr := s.saver.Save(ctx, req)
	if errors.Is(saveErr, persist.ErrSaveInProgress) {
		return SaveResult{Session: sess, Report: report}, saveErr
	}

	saved := report.Saved()
	sess, err = s.update(ctx, bookingID, func(sess *session.Session) error {
		rep := report
		sess.LastSave = &rep
		if sess.PersistedIDs == nil {
			sess.PersistedIDs = map[string]string{}
		}
		for id, persistedID := range saved {
			sess.PersistedIDs[id] = persistedID
			sess.Files = sess.Files.Without(id)
		}
		if report.FocusApplicantID != "" {
			if opened, err := sess.Roster.SetOpen(report.FocusApplicantID); err == nil {
				sess.Roster = opened
			}
		}
		return nil
	})
	if err != nil {
		return SaveResult{Report: report}, err
	}
	if saveErr != nil {
		return SaveResult{Session: sess, Report: report}, saveErr
	}

	log := s.log.WithFields(map[string]interface{}{"bookingId": bookingID})
	rows, fetchErr := s.records.FetchApplicants(ctx, bookingID)
	if fetchErr != nil {
		log.Warn("reload after save failed, previewing the local roster", map[string]interface{}{"error": fetchErr.Error()})
	}

	sess, err = s.update(ctx, bookingID, func(sess *session.Session) error {
		if fetchErr == nil && len(rows) > 0 {
			h := session.Hydrate(rows)
			sess.Roster = h.Roster
			sess.Address = h.Address
			sess.PersistedIDs = h.PersistedIDs
			sess.Files = models.FileBuckets{}
		}
		sess.Wizard = sess.Wizard.EnterPreview()
		return nil
	})
	if err != nil {
		return SaveResult{Report: report}, err
	}

	log.Info("roster saved", map[string]interface{}{"saved": report.SavedCount})
	return SaveResult{Session: sess, Report: report}, nil
}

func unsaved(sess session.Session) []string {
	var ids []string
	for _, a := range sess.Roster.Applicants() {
		if _, ok := sess.PersistedIDs[a.ID]; !ok {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
