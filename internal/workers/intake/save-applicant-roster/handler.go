// internal/workers/intake/save-applicant-roster/handler.go
package saveapplicantroster

import (
	"context"
	"time"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
	"applicant-intake/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "save-applicant-roster"

type Saver interface {
	SaveAndPreview(ctx context.Context, bookingID string, retryFailed bool) (service.SaveResult, error)
}

type Auditor interface {
	Record(ctx context.Context, report persist.Report, retryFailed bool) (string, error)
}

// Indexer is satisfied by *search.Indexer.
type Indexer interface {
	Index(ctx context.Context, docs []models.IndexedApplicant) (int, error)
}

// Handler saves the roster. The audit trail and the search index are best
// effort: either may be nil, and their failures are logged, not returned.
type Handler struct {
	config    *Config
	service   Saver
	audit     Auditor
	index     Indexer
	validator workers.InputValidator
	logger    logger.Logger
}

func NewHandler(config *Config, svc Saver, audit Auditor, index Indexer, v workers.InputValidator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		service:   svc,
		audit:     audit,
		index:     index,
		validator: v,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := workers.Decode(job, TaskType, h.validator, &input); err != nil {
		workers.Fail(client, job, TaskType, err, h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		workers.Fail(client, job, TaskType, service.ToStandard(input.BookingID, err), h.logger)
		return
	}
	workers.Complete(client, job, TaskType, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.SaveAndPreview(ctx, input.BookingID, input.RetryFailed)
	report := res.Report

	auditLogged := false
	if len(report.Results) > 0 || report.Message != "" {
		auditLogged = h.recordAudit(ctx, report, input.RetryFailed)
	}
	if err != nil {
		return nil, err
	}

	return &Output{
		SavedCount:       report.SavedCount,
		Message:          report.Message,
		Results:          report.Results,
		Failed:           nonNil(report.Failed()),
		FocusApplicantID: report.FocusApplicantID,
		Phase:            string(res.Session.Wizard.Phase),
		AuditLogged:      auditLogged,
		Indexed:          h.indexSaved(ctx, res.Session, report),
	}, nil
}

func (h *Handler) recordAudit(ctx context.Context, report persist.Report, retry bool) bool {
	if h.audit == nil {
		return false
	}
	attemptID, err := h.audit.Record(ctx, report, retry)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"bookingId": report.BookingID,
			"error":     err.Error(),
		})
		return false
	}
	h.logger.Debug("save attempt recorded", map[string]interface{}{"attemptId": attemptID})
	return true
}

func (h *Handler) indexSaved(ctx context.Context, sess session.Session, report persist.Report) int {
	if h.index == nil {
		return 0
	}
	docs := IndexDocuments(sess, report, time.Now().UTC())
	if len(docs) == 0 {
		return 0
	}
	n, err := h.index.Index(ctx, docs)
	if err != nil {
		h.logger.Warn("search indexing failed", map[string]interface{}{
			"bookingId": sess.BookingID,
			"indexed":   n,
			"error":     err.Error(),
		})
	}
	return n
}

// IndexDocuments builds one search document for every applicant in the
// session whose record id was produced by this save. The session may have
// been reloaded after the save, so applicants are matched on record id.
func IndexDocuments(sess session.Session, report persist.Report, savedAt time.Time) []models.IndexedApplicant {
	saved := map[string]bool{}
	for _, persistedID := range report.Saved() {
		saved[persistedID] = true
	}

	var docs []models.IndexedApplicant
	for _, a := range sess.Roster.Applicants() {
		persistedID, ok := sess.PersistedIDs[a.ID]
		if !ok || !saved[persistedID] {
			continue
		}
		docs = append(docs, models.IndexedApplicant{
			BookingID:    sess.BookingID,
			PersistedID:  persistedID,
			ApplicantID:  a.ID,
			IsPrimary:    a.IsPrimary,
			FullName:     models.ComposeFullName(a.FirstName, a.MiddleName, a.LastName),
			Email:        a.Email,
			MobileNumber: a.MobileNumber,
			PAN:          a.PAN,
			City:         sess.Address.Correspondence.City,
			State:        sess.Address.Correspondence.State,
			SavedAt:      savedAt.Format(time.RFC3339),
		})
	}
	return docs
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
