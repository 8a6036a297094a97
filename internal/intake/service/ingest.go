package service

import (
	"context"

	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/session"
)

// IngestResult says whether an assistant message was used and what it
// changed. Rejections carry only the reason.
type IngestResult struct {
	Accepted  bool                `json:"accepted"`
	Reason    string              `json:"reason,omitempty"`
	BookingID string              `json:"bookingId,omitempty"`
	MessageID string              `json:"messageId,omitempty"`
	Merge     *ingest.MergeResult `json:"merge,omitempty"`
}

// IngestEnvelope admits one assistant message and merges its applicant batch
// into the booking's session. If the assistant got there first the session is
// created unseeded, so every payload applicant becomes a co-applicant until
// Load gives the roster its primary. A rejected message is not an error: the
// channel has already logged and counted it, and the sender is never told.
func (s *Service) IngestEnvelope(ctx context.Context, msg ingest.Message) (IngestResult, error) {
	env, err := s.channel.Receive(ctx, msg)
	if err != nil {
		if reason := ingest.RejectionReason(err); reason != "" {
			return IngestResult{Reason: reason}, nil
		}
		return IngestResult{}, err
	}
	return s.MergeEnvelope(ctx, env)
}

// MergeEnvelope merges an envelope that has already been admitted.
func (s *Service) MergeEnvelope(ctx context.Context, env ingest.Envelope) (IngestResult, error) {
	var res ingest.MergeResult
	_, err := s.updateOrCreate(ctx, env.BookingID, session.NewUnseeded, func(sess *session.Session) error {
		res = s.merger.MergeAssistant(sess.Roster, sess.Address, env.Data)
		sess.Roster = res.Roster
		sess.Address = res.Address
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}

	s.log.Info("assistant data merged", map[string]interface{}{
		"bookingId": env.BookingID,
		"messageId": env.MessageID,
		"appended":  len(res.Appended),
		"applied":   res.Applied,
		"dropped":   len(res.Dropped),
	})
	return IngestResult{Accepted: true, BookingID: env.BookingID, MessageID: env.MessageID, Merge: &res}, nil
}
