// internal/workers/intake/ingest-assistant-data/handler.go
package ingestassistantdata

import (
	"context"
	"encoding/json"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "ingest-assistant-data"

type Ingester interface {
	IngestEnvelope(ctx context.Context, msg ingest.Message) (service.IngestResult, error)
}

type Handler struct {
	config    *Config
	service   Ingester
	validator workers.InputValidator
	logger    logger.Logger
}

func NewHandler(config *Config, svc Ingester, v workers.InputValidator, log logger.Logger) *Handler {
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
		workers.Fail(client, job, TaskType, service.ToStandard(output.BookingID, err), h.logger)
		return
	}
	workers.Complete(client, job, TaskType, output, h.logger)
}

// execute never fails on a rejected message: rejections complete the job
// with accepted=false and the reason, the process decides what to do next.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.IngestEnvelope(ctx, ingest.Message{
		Origin:    input.Origin,
		MessageID: input.MessageID,
		Body:      envelopeBody(input.Envelope),
	})
	if err != nil {
		return &Output{BookingID: res.BookingID}, err
	}

	out := &Output{
		Accepted:  res.Accepted,
		Reason:    res.Reason,
		BookingID: res.BookingID,
		Appended:  []string{},
	}
	if res.Merge != nil {
		out.Appended = res.Merge.Appended
		out.Applied = res.Merge.Applied
		out.Dropped = res.Merge.Dropped
		out.Skipped = res.Merge.Skipped
	}
	if !out.Accepted {
		h.logger.Info("assistant message rejected", map[string]interface{}{
			"messageId": input.MessageID,
			"reason":    out.Reason,
		})
	}
	return out, nil
}

// envelopeBody unwraps an envelope that the process stored as a JSON string.
func envelopeBody(raw json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}
	return raw
}
