package service

import (
	"context"
	"fmt"

	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/intake/wizard"
)

// StepResult is the outcome of a forward step. Messages explain a refused
// step and belong to the applicant that was opened for correction.
type StepResult struct {
	Session  session.Session `json:"session"`
	Moved    bool            `json:"moved"`
	Messages []string        `json:"messages,omitempty"`
}

// VerifyEmail checks input against the booking email from the record store.
// A mismatch is not an error; it raises the wizard's error flag.
func (s *Service) VerifyEmail(ctx context.Context, bookingID, input string) (session.Session, error) {
	if bookingID == "" {
		return session.Session{}, ErrMissingBookingID
	}
	expected, err := s.bookingEmail(ctx, bookingID)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", ErrEmailUnavailable, err)
	}

	sess, err := s.updateOrCreate(ctx, bookingID, session.New, func(sess *session.Session) error {
		sess.BookingEmail = expected
		sess.Wizard = sess.Wizard.VerifyGate(input, expected)
		return nil
	})
	if err != nil {
		return session.Session{}, err
	}
	if !sess.Wizard.Verified {
		s.log.Info("booking email mismatch", map[string]interface{}{
			"bookingId":  bookingID,
			"wellFormed": wizard.ValidEmail(wizard.StripWhitespace(input)),
		})
	}
	return sess, nil
}

func (s *Service) bookingEmail(ctx context.Context, bookingID string) (string, error) {
	fetch := func(ctx context.Context) (string, error) {
		return s.records.FetchBookingEmail(ctx, bookingID)
	}
	if s.emails == nil {
		return fetch(ctx)
	}
	return s.emails.Get(ctx, bookingID, fetch)
}

// NextStep moves the form forward. The applicant step only passes when every
// applicant has a first and last name; otherwise the first invalid applicant
// is opened and its messages are returned.
func (s *Service) NextStep(ctx context.Context, bookingID string) (StepResult, error) {
	var res StepResult
	sess, err := s.update(ctx, bookingID, func(sess *session.Session) error {
		if !sess.Wizard.Verified {
			return ErrNotVerified
		}
		res.Messages = nil

		validate := func(step int) bool {
			if step != 1 {
				return true
			}
			for _, a := range sess.Roster.Applicants() {
				if msgs := persist.ValidateApplicant(a); len(msgs) > 0 {
					res.Messages = msgs
					if opened, err := sess.Roster.SetOpen(a.ID); err == nil {
						sess.Roster = opened
					}
					return false
				}
			}
			return true
		}

		sess.Wizard, res.Moved = sess.Wizard.NextStep(validate)
		return nil
	})
	if err != nil {
		return StepResult{}, err
	}
	res.Session = sess
	return res, nil
}

// PreviousStep moves the form back one step. It is never refused.
func (s *Service) PreviousStep(ctx context.Context, bookingID string) (session.Session, error) {
	return s.update(ctx, bookingID, func(sess *session.Session) error {
		sess.Wizard = sess.Wizard.PreviousStep()
		return nil
	})
}

// BackToDetails returns from the preview to the editable details stage.
func (s *Service) BackToDetails(ctx context.Context, bookingID string) (session.Session, error) {
	return s.update(ctx, bookingID, func(sess *session.Session) error {
		sess.Wizard = sess.Wizard.Back()
		return nil
	})
}

// SubmittedMessage is published, correlated by booking id, when an intake is
// submitted.
const SubmittedMessage = "intake-submitted"

// Submit finishes the intake. Only a saved roster on the preview can be
// submitted. The first submit publishes SubmittedMessage; a failed publish is
// logged and does not undo the submit.
func (s *Service) Submit(ctx context.Context, bookingID string) (session.Session, error) {
	var completed bool
	sess, err := s.update(ctx, bookingID, func(sess *session.Session) error {
		completed = false
		if sess.Wizard.Phase == wizard.PhaseThanks {
			return nil
		}
		if sess.Wizard.Phase != wizard.PhasePreview {
			return fmt.Errorf("%w: phase %s", ErrNotSaved, sess.Wizard.Phase)
		}
		sess.Wizard = sess.Wizard.Complete()
		completed = true
		return nil
	})
	if err != nil || !completed || s.events == nil {
		return sess, err
	}

	vars := map[string]interface{}{
		"bookingId":      bookingID,
		"applicantCount": sess.Roster.Len(),
	}
	if perr := s.events.PublishMessage(ctx, SubmittedMessage, bookingID, vars); perr != nil {
		s.log.Error("publish submitted message failed", map[string]interface{}{
			"bookingId": bookingID,
			"error":     perr.Error(),
		})
	}
	return sess, nil
}
