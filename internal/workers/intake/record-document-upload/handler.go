// internal/workers/intake/record-document-upload/handler.go
package recorddocumentupload

import (
	"context"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
	"applicant-intake/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "record-document-upload"

type Recorder interface {
	RecordUpload(ctx context.Context, bookingID string, ev ingest.UploadEvent, docType string) (session.Session, models.DocumentCategory, error)
}

type Handler struct {
	config    *Config
	service   Recorder
	validator workers.InputValidator
	logger    logger.Logger
}

func NewHandler(config *Config, svc Recorder, v workers.InputValidator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		service:   svc,
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
	sess, category, err := h.service.RecordUpload(ctx, input.BookingID, ingest.UploadEvent{
		ApplicantID: input.ApplicantID,
		Category:    input.Category,
		DocumentID:  input.DocumentID,
	}, input.DocType)
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicantID:     input.ApplicantID,
		Category:        string(category),
		DocumentCount:   len(sess.Files.For(input.ApplicantID)[category]),
		SelectedDocType: sess.SelectedDocType,
	}, nil
}
