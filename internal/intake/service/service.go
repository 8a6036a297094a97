// Package service is the intake use-case layer. Workers and the HTTP edge
// both go through it; it loads a booking's session, applies one change and
// writes it back.
package service

import (
	"context"
	"errors"
	"fmt"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/ocr"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
)

var (
	ErrEmailUnavailable  = errors.New("BOOKING_EMAIL_UNAVAILABLE")
	ErrExtractionFailed  = errors.New("OCR_EXTRACTION_FAILED")
	ErrNotVerified       = errors.New("EMAIL_NOT_VERIFIED")
	ErrNotSaved          = errors.New("ROSTER_NOT_SAVED")
	ErrNothingToRetry    = errors.New("NOTHING_TO_RETRY")
	ErrMissingBookingID  = errors.New("MISSING_BOOKING_ID")
	ErrUnsupportedUpload = errors.New("UNSUPPORTED_DOCUMENT_CATEGORY")
)

// RecordReader is the read side of the record store.
type RecordReader interface {
	FetchApplicants(ctx context.Context, bookingID string) ([]models.StoredApplicant, error)
	FetchBookingEmail(ctx context.Context, bookingID string) (string, error)
}

// Extractor scans one document.
type Extractor interface {
	Extract(ctx context.Context, doc ocr.Document) (ingest.OCRFields, error)
}

// Saver runs a persistence pass. *persist.Orchestrator implements it.
type Saver interface {
	Save(ctx context.Context, req persist.Request) (persist.Report, error)
}

// EventPublisher publishes workflow messages. *camunda.Client implements it.
type EventPublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, vars map[string]interface{}) error
}

// Receiver admits assistant messages. *ingest.Channel implements it.
type Receiver interface {
	Receive(ctx context.Context, msg ingest.Message) (ingest.Envelope, error)
}

type Deps struct {
	Sessions *session.Store
	Records  RecordReader
	OCR      Extractor
	Saver    Saver
	Channel  Receiver
	Merger   *ingest.Merger
	Emails   *EmailCache
	Events   EventPublisher
	Logger   logger.Logger
}

type Service struct {
	sessions *session.Store
	records  RecordReader
	ocr      Extractor
	saver    Saver
	channel  Receiver
	merger   *ingest.Merger
	emails   *EmailCache
	events   EventPublisher
	log      logger.Logger
}

func New(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	merger := d.Merger
	if merger == nil {
		merger = ingest.NewMerger(log)
	}
	return &Service{
		sessions: d.Sessions,
		records:  d.Records,
		ocr:      d.OCR,
		saver:    d.Saver,
		channel:  d.Channel,
		merger:   merger,
		emails:   d.Emails,
		events:   d.Events,
		log:      log.WithFields(map[string]interface{}{"component": "intake-service"}),
	}
}

// Load hydrates the booking's roster and address from the record store and
// stores them in the session, creating the session when there is none. A
// failed fetch falls back to a seeded roster. Applicants the assistant sent
// before the first load are kept. Pending file buckets are cleared because
// hydration re-derives the local applicant ids.
func (s *Service) Load(ctx context.Context, bookingID string) (session.Session, error) {
	if bookingID == "" {
		return session.Session{}, ErrMissingBookingID
	}
	log := s.log.WithFields(map[string]interface{}{"bookingId": bookingID})

	rows, err := s.records.FetchApplicants(ctx, bookingID)
	if err != nil {
		log.Warn("fetch applicants failed, starting from a seeded roster", map[string]interface{}{"error": err.Error()})
		rows = nil
	}
	hydrated := session.Hydrate(rows)

	apply := func(sess *session.Session) error {
		h := hydrated
		if !sess.Roster.Seeded() {
			h = session.Adopt(hydrated, sess.Roster, sess.Address, len(rows) > 0)
		}
		sess.Roster = h.Roster
		sess.Address = h.Address
		sess.PersistedIDs = h.PersistedIDs
		sess.Files = models.FileBuckets{}
		return nil
	}

	sess, err := s.sessions.Update(ctx, bookingID, apply)
	if errors.Is(err, session.ErrSessionNotFound) {
		fresh := session.New(bookingID)
		_ = apply(&fresh)
		sess, err = s.sessions.Put(ctx, fresh)
	}
	if err != nil {
		return session.Session{}, err
	}

	log.Info("booking loaded", map[string]interface{}{
		"applicants": sess.Roster.Len(),
		"persisted":  len(sess.PersistedIDs),
	})
	return sess, nil
}

// Get returns the stored session.
func (s *Service) Get(ctx context.Context, bookingID string) (session.Session, error) {
	return s.sessions.Get(ctx, bookingID)
}

// update is the common read-modify-write path for session edits.
func (s *Service) update(ctx context.Context, bookingID string, fn func(*session.Session) error) (session.Session, error) {
	if bookingID == "" {
		return session.Session{}, ErrMissingBookingID
	}
	return s.sessions.Update(ctx, bookingID, fn)
}

// updateOrCreate behaves like update but starts from newSession when none is
// stored yet.
func (s *Service) updateOrCreate(ctx context.Context, bookingID string, newSession func(string) session.Session, fn func(*session.Session) error) (session.Session, error) {
	sess, err := s.update(ctx, bookingID, fn)
	if !errors.Is(err, session.ErrSessionNotFound) {
		return sess, err
	}
	fresh := newSession(bookingID)
	if err := fn(&fresh); err != nil {
		return session.Session{}, err
	}
	return s.sessions.Put(ctx, fresh)
}

func wrapExtraction(err error) error {
	return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
}
