package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/metrics"
	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordStore is the remote side of a save.
type RecordStore interface {
	CreateApplicant(ctx context.Context, bookingID string, payload map[string]interface{}) (string, error)
	AttachDocuments(ctx context.Context, bookingID, applicantID string, documentIDs []string, tag string) error
}

type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

const SuccessMessageFmt = "%d applicant(s) saved successfully!"

type AttachFailure struct {
	Category models.DocumentCategory `json:"category"`
	Reason   string                  `json:"reason"`
}

// Result is the outcome for one applicant.
type Result struct {
	ApplicantID    string          `json:"applicantId"`
	Label          string          `json:"label"`
	PersistedID    string          `json:"persistedId,omitempty"`
	Outcome        Outcome         `json:"outcome"`
	Reason         string          `json:"reason,omitempty"`
	AttachFailures []AttachFailure `json:"attachFailures,omitempty"`
}

// Report summarizes one save attempt.
type Report struct {
	BookingID        string    `json:"bookingId"`
	Results          []Result  `json:"results"`
	SavedCount       int       `json:"savedCount"`
	Message          string    `json:"message"`
	ValidationErrors []string  `json:"validationErrors,omitempty"`
	FocusApplicantID string    `json:"focusApplicantId,omitempty"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
}

// Failed returns the applicants that were not saved, in roster order.
func (r Report) Failed() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Outcome != OutcomeSaved {
			ids = append(ids, res.ApplicantID)
		}
	}
	return ids
}

// Saved returns applicant id -> persisted id for the saved applicants.
func (r Report) Saved() map[string]string {
	out := map[string]string{}
	for _, res := range r.Results {
		if res.Outcome == OutcomeSaved {
			out[res.ApplicantID] = res.PersistedID
		}
	}
	return out
}

// Succeeded reports whether every applicant in the report was saved.
func (r Report) Succeeded() bool {
	return len(r.Results) > 0 && len(r.Failed()) == 0
}

// Request is what a save works on. Only, when set, limits the creates to the
// listed applicants; the rest are reported skipped.
type Request struct {
	BookingID       string
	Roster          roster.Roster
	Address         address.Model
	Files           models.FileBuckets
	SelectedDocType string
	Only            []string
}

type Orchestrator struct {
	store  RecordStore
	guard  Guard
	log    logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewOrchestrator(store RecordStore, guard Guard, log logger.Logger) *Orchestrator {
	if guard == nil {
		guard = NewLocalGuard()
	}
	return &Orchestrator{
		store:  store,
		guard:  guard,
		log:    log.WithFields(map[string]interface{}{"component": "persist"}),
		tracer: otel.Tracer("applicant-intake/persist"),
		now:    time.Now,
	}
}

// Save validates every applicant, then creates them one at a time in roster
// order, attaching each one's documents right after its create. The first
// create failure stops the run; applicants already created stay created.
func (o *Orchestrator) Save(ctx context.Context, req Request) (report Report, err error) {
	report = Report{BookingID: req.BookingID, StartedAt: o.now().UTC()}
	log := o.log.WithFields(map[string]interface{}{"bookingId": req.BookingID})

	release, err := o.guard.Acquire(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, ErrSaveInProgress) {
			metrics.RosterSaves.WithLabelValues("in_progress").Inc()
			log.Warn("save rejected, another save is running", nil)
		}
		return report, err
	}
	defer func() {
		// release on a fresh context so a cancelled save still frees the lock
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := release(relCtx); rerr != nil {
			log.Warn("failed to release save lock", map[string]interface{}{"error": rerr.Error()})
		}
	}()

	ctx, span := o.tracer.Start(ctx, "persist.Save", trace.WithAttributes(
		attribute.String("booking.id", req.BookingID),
		attribute.Int("roster.size", req.Roster.Len()),
	))
	defer span.End()

	applicants := req.Roster.Applicants()
	if len(applicants) == 0 {
		report.FinishedAt = o.now().UTC()
		return report, ErrEmptyRoster
	}

	for _, a := range applicants {
		if msgs := ValidateApplicant(a); len(msgs) > 0 {
			report.ValidationErrors = msgs
			report.FocusApplicantID = a.ID
			report.Message = strings.Join(msgs, ", ")
			report.FinishedAt = o.now().UTC()
			metrics.RosterSaves.WithLabelValues("invalid").Inc()
			span.SetStatus(codes.Error, "validation failed")
			log.Info("save blocked by validation", map[string]interface{}{
				"applicantId": a.ID,
				"messages":    msgs,
			})
			return report, &ValidationError{ApplicantID: a.ID, Messages: msgs}
		}
	}

	addr := req.Address.Snapshot()
	files := req.Files.Clone()
	selected := selectedSet(req.Only)

	var createErr *CreateError
	for _, a := range applicants {
		res := Result{ApplicantID: a.ID, Label: a.Label}

		switch {
		case createErr != nil:
			res.Outcome = OutcomeSkipped
			res.Reason = "not attempted after an earlier failure"
		case selected != nil && !selected[a.ID]:
			res.Outcome = OutcomeSkipped
			res.Reason = "not selected for this save"
		default:
			persistedID, cerr := o.create(ctx, req.BookingID, a, addr)
			if cerr != nil {
				msg := ErrorMessage(cerr)
				res.Outcome = OutcomeFailed
				res.Reason = msg
				createErr = &CreateError{ApplicantID: a.ID, Message: msg, Err: cerr}
				log.Error("applicant create failed", map[string]interface{}{
					"applicantId": a.ID,
					"message":     msg,
					"error":       cerr.Error(),
				})
				break
			}
			res.Outcome = OutcomeSaved
			res.PersistedID = persistedID
			res.AttachFailures = o.AttachFiles(ctx, req.BookingID, persistedID, files.For(a.ID), req.SelectedDocType)
			report.SavedCount++
		}

		metrics.ApplicantsPersisted.WithLabelValues(string(res.Outcome)).Inc()
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = o.now().UTC()
	if createErr != nil {
		report.Message = createErr.Message
		metrics.RosterSaves.WithLabelValues("failed").Inc()
		span.RecordError(createErr)
		span.SetStatus(codes.Error, createErr.Message)
		return report, createErr
	}

	report.Message = fmt.Sprintf(SuccessMessageFmt, report.SavedCount)
	metrics.RosterSaves.WithLabelValues("saved").Inc()
	log.Info("roster saved", map[string]interface{}{"saved": report.SavedCount})
	return report, nil
}

func (o *Orchestrator) create(ctx context.Context, bookingID string, a models.Applicant, addr address.Model) (string, error) {
	ctx, span := o.tracer.Start(ctx, "persist.CreateApplicant", trace.WithAttributes(
		attribute.String("applicant.id", a.ID),
		attribute.Bool("applicant.primary", a.IsPrimary),
	))
	defer span.End()

	id, err := o.store.CreateApplicant(ctx, bookingID, BuildPayload(a, addr))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if id == "" {
		return "", errors.New("record store returned an empty id")
	}
	return id, nil
}

// AttachFiles attaches each non-empty category bucket with its tag. A failed
// bucket is logged and reported; the others still attach.
func (o *Orchestrator) AttachFiles(ctx context.Context, bookingID, persistedID string, bucket models.FileBucket, selectedDocType string) []AttachFailure {
	var failures []AttachFailure
	for _, category := range models.DocumentCategories {
		ids := bucket[category]
		if len(ids) == 0 {
			continue
		}
		if err := o.store.AttachDocuments(ctx, bookingID, persistedID, ids, category.Tag(selectedDocType)); err != nil {
			metrics.DocumentAttachFailures.WithLabelValues(string(category)).Inc()
			o.log.Warn("document attach failed", map[string]interface{}{
				"bookingId":   bookingID,
				"persistedId": persistedID,
				"category":    string(category),
				"documents":   len(ids),
				"error":       err.Error(),
			})
			failures = append(failures, AttachFailure{Category: category, Reason: ErrorMessage(err)})
		}
	}
	return failures
}

func selectedSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
