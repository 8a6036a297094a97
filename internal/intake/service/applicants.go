package service

import (
	"context"
	"fmt"
	"sort"

	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
)

// AddApplicant appends a co-applicant, opens it and returns its id.
func (s *Service) AddApplicant(ctx context.Context, bookingID string) (session.Session, string, error) {
	var id string
	sess, err := s.update(ctx, bookingID, func(sess *session.Session) error {
		next, newID, err := sess.Roster.AddApplicant(false)
		if err != nil {
			return err
		}
		sess.Roster = next
		id = newID
		return nil
	})
	return sess, id, err
}

// RemoveApplicant drops a co-applicant together with its pending uploads.
// The primary applicant cannot be removed.
func (s *Service) RemoveApplicant(ctx context.Context, bookingID, applicantID string) (session.Session, error) {
	return s.update(ctx, bookingID, func(sess *session.Session) error {
		next, err := sess.Roster.RemoveApplicant(applicantID)
		if err != nil {
			return err
		}
		sess.Roster = next
		sess.Files = sess.Files.Without(applicantID)
		delete(sess.PersistedIDs, applicantID)
		return nil
	})
}

// OpenApplicant makes applicantID the open roster entry.
func (s *Service) OpenApplicant(ctx context.Context, bookingID, applicantID string) (session.Session, error) {
	return s.update(ctx, bookingID, func(sess *session.Session) error {
		next, err := sess.Roster.SetOpen(applicantID)
		if err != nil {
			return err
		}
		sess.Roster = next
		return nil
	})
}

// UpdateApplicant applies field edits to one applicant in the form's field
// order. Either every edit applies or none does.
func (s *Service) UpdateApplicant(ctx context.Context, bookingID, applicantID string, fields map[string]string) (session.Session, error) {
	return s.update(ctx, bookingID, func(sess *session.Session) error {
		if _, ok := sess.Roster.Find(applicantID); !ok {
			return fmt.Errorf("%w: %s", roster.ErrApplicantNotFound, applicantID)
		}
		next := sess.Roster
		for _, field := range orderedKeys(fields, models.EditableFields()) {
			var err error
			if next, err = next.UpdateField(applicantID, field, fields[field]); err != nil {
				return err
			}
		}
		sess.Roster = next
		return nil
	})
}

// UpdateAddress applies address edits in form order, so a sameAsPermanent
// toggle sees the correspondence edits made in the same call.
func (s *Service) UpdateAddress(ctx context.Context, bookingID string, fields map[string]string) (session.Session, error) {
	return s.update(ctx, bookingID, func(sess *session.Session) error {
		next := sess.Address
		for _, field := range orderedKeys(fields, address.FieldNames) {
			var err error
			if next, err = next.Set(field, fields[field]); err != nil {
				return err
			}
		}
		sess.Address = next
		return nil
	})
}

// orderedKeys returns the keys of fields in the order of known, followed by
// any unknown keys so the edit that uses them fails.
func orderedKeys(fields map[string]string, known []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, k := range known {
		if _, ok := fields[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var unknown []string
	for k := range fields {
		if !seen[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return append(out, unknown...)
}
