// internal/workers/intake/send-submission-notification/handler.go
package sendsubmissionnotification

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/intake/wizard"
	"applicant-intake/internal/models"
	"applicant-intake/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "send-submission-notification"

var errAllChannelsFailed = errors.New("every enabled channel failed")

type SessionReader interface {
	Get(ctx context.Context, bookingID string) (session.Session, error)
}

// Mailer is satisfied by *aws.Mailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) (string, error)
}

// Texter is satisfied by *aws.Texter.
type Texter interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config    *Config
	sessions  SessionReader
	mailer    Mailer
	texter    Texter
	validator workers.InputValidator
	logger    logger.Logger
}

func NewHandler(config *Config, sessions SessionReader, mailer Mailer, texter Texter, v workers.InputValidator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		sessions:  sessions,
		mailer:    mailer,
		texter:    texter,
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
	sess, err := h.sessions.Get(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if sess.Wizard.Phase != wizard.PhaseThanks {
		return nil, apperrors.NewBusinessRuleError("booking has not been submitted", input.BookingID)
	}

	vars := templateVars(sess)
	out := &Output{
		NotificationID: uuid.New().String(),
		EmailStatus:    StatusDisabled,
		SMSStatus:      StatusDisabled,
	}

	var errs []error
	if h.config.EmailEnabled && h.mailer != nil {
		out.EmailStatus, out.EmailID, err = h.sendEmail(ctx, sess.BookingEmail, vars)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if h.config.SMSEnabled && h.texter != nil {
		out.SMSStatus, out.SMSID, err = h.sendSMS(ctx, primaryPhone(sess), vars)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if out.EmailStatus != StatusSent && out.SMSStatus != StatusSent && len(errs) > 0 {
		return nil, apperrors.NewNotificationSendFailedError("email,sms", errors.Join(append(errs, errAllChannelsFailed)...))
	}

	out.SentAt = time.Now().UTC().Format(time.RFC3339)
	h.logger.Info("submission notification sent", map[string]interface{}{
		"bookingId":      input.BookingID,
		"notificationId": out.NotificationID,
		"email":          out.EmailStatus,
		"sms":            out.SMSStatus,
	})
	return out, nil
}

func (h *Handler) sendEmail(ctx context.Context, to string, vars map[string]string) (string, string, error) {
	if to == "" {
		return StatusSkipped, "", nil
	}
	id, err := h.mailer.Send(ctx, to,
		renderTemplate(h.config.Subject, vars),
		renderTemplate(h.config.TextBody, vars),
		renderTemplate(h.config.HTMLBody, vars),
	)
	if err != nil {
		h.logger.Warn("submission email failed", map[string]interface{}{"error": err.Error()})
		return StatusFailed, "", err
	}
	return StatusSent, id, nil
}

func (h *Handler) sendSMS(ctx context.Context, phone string, vars map[string]string) (string, string, error) {
	if phone == "" {
		return StatusSkipped, "", nil
	}
	id, err := h.texter.Send(ctx, phone, renderTemplate(h.config.SMSBody, vars))
	if err != nil {
		h.logger.Warn("submission sms failed", map[string]interface{}{"error": err.Error()})
		return StatusFailed, "", err
	}
	return StatusSent, id, nil
}

func templateVars(sess session.Session) map[string]string {
	name := "there"
	if p, ok := sess.Roster.Primary(); ok {
		if full := models.ComposeFullName(p.FirstName, p.LastName); full != "" {
			name = full
		}
	}
	return map[string]string{
		"bookingId": sess.BookingID,
		"name":      name,
		"count":     strconv.Itoa(sess.Roster.Len()),
	}
}

// primaryPhone returns the primary applicant's number in E.164 form, or ""
// when there is none.
func primaryPhone(sess session.Session) string {
	p, ok := sess.Roster.Primary()
	if !ok || p.MobileNumber == "" {
		return ""
	}
	code := p.MobileCountryCode
	if code == "" {
		code = models.DefaultMobileCode
	}
	return "+" + strings.TrimPrefix(code, "+") + p.MobileNumber
}

// renderTemplate replaces {{key}} placeholders. Unknown placeholders are left
// as they are.
func renderTemplate(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
