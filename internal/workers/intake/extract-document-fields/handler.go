// internal/workers/intake/extract-document-fields/handler.go
package extractdocumentfields

import (
	"context"
	"encoding/base64"
	"fmt"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "extract-document-fields"

type Extractor interface {
	ExtractDocument(ctx context.Context, bookingID string, req service.ExtractRequest) (service.ExtractResult, error)
}

type Handler struct {
	config    *Config
	service   Extractor
	validator workers.InputValidator
	logger    logger.Logger
}

func NewHandler(config *Config, svc Extractor, v workers.InputValidator, log logger.Logger) *Handler {
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
	content, err := base64.StdEncoding.DecodeString(input.File)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("file is not valid base64: %v", err))
	}
	if len(content) == 0 {
		return nil, apperrors.NewInvalidInputError("file is empty")
	}

	res, err := h.service.ExtractDocument(ctx, input.BookingID, service.ExtractRequest{
		ApplicantID: input.ApplicantID,
		Category:    input.Category,
		FileName:    input.FileName,
		Content:     content,
		DocumentID:  input.DocumentID,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("document fields merged", map[string]interface{}{
		"bookingId":   input.BookingID,
		"applicantId": input.ApplicantID,
		"category":    res.Category,
	})
	return &Output{
		ApplicantID: input.ApplicantID,
		Category:    res.Category,
		Fields:      res.Fields,
		Filed:       input.DocumentID != "",
	}, nil
}
