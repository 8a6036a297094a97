// internal/workers/intake/verify-booking-email/handler.go
package verifybookingemail

import (
	"context"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "verify-booking-email"

type Verifier interface {
	VerifyEmail(ctx context.Context, bookingID, input string) (session.Session, error)
}

type Handler struct {
	config    *Config
	service   Verifier
	validator workers.InputValidator
	logger    logger.Logger
}

func NewHandler(config *Config, svc Verifier, v workers.InputValidator, log logger.Logger) *Handler {
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
	sess, err := h.service.VerifyEmail(ctx, input.BookingID, input.Email)
	if err != nil {
		return nil, err
	}
	return &Output{
		Verified:     sess.Wizard.Verified,
		VerifyError:  sess.Wizard.VerifyError,
		Phase:        string(sess.Wizard.Phase),
		CurrentStage: sess.Wizard.CurrentStage,
	}, nil
}
