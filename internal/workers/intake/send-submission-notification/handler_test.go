// internal/workers/intake/send-submission-notification/handler_test.go
package sendsubmissionnotification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"applicant-intake/internal/common/config"
	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	sess session.Session
	err  error
}

func (f fakeSessions) Get(ctx context.Context, bookingID string) (session.Session, error) {
	return f.sess, f.err
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	args := m.Called(ctx, to, subject, text, html)
	return args.String(0), args.Error(1)
}

type mockTexter struct{ mock.Mock }

func (m *mockTexter) Send(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}

func submittedSession(t *testing.T) session.Session {
	t.Helper()
	sess := session.New("BK-1")
	sess.BookingEmail = "asha@example.com"
	r, err := sess.Roster.UpdateField("applicant-1", models.FieldFirstName, "Asha")
	require.NoError(t, err)
	r, err = r.UpdateField("applicant-1", models.FieldMobileNumber, "9876543210")
	require.NoError(t, err)
	sess.Roster = r
	sess.Wizard = sess.Wizard.VerifyGate("asha@example.com", "asha@example.com").EnterPreview().Complete()
	return sess
}

func testConfig() *Config {
	var n config.NotificationConfig
	n.Email.Enabled = true
	n.SMS.Enabled = true
	return NewConfig(config.WorkerConfig{Timeout: 1000}, n)
}

func TestExecute_BothChannels(t *testing.T) {
	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, "asha@example.com",
		"Applicant details received for booking BK-1",
		mock.MatchedBy(func(text string) bool { return strings.Contains(text, "Hello Asha,") }),
		mock.Anything,
	).Return("ses-1", nil)
	texter := new(mockTexter)
	texter.On("Send", mock.Anything, "+919876543210", "Booking BK-1: details of 1 applicant(s) received. Thank you.").
		Return("sns-1", nil)

	h := NewHandler(testConfig(), fakeSessions{sess: submittedSession(t)}, mailer, texter, nil, logger.NewTestLogger(t))
	out, err := h.execute(context.Background(), &Input{BookingID: "BK-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.EmailStatus)
	assert.Equal(t, "ses-1", out.EmailID)
	assert.Equal(t, StatusSent, out.SMSStatus)
	assert.NotEmpty(t, out.NotificationID)
	_, err = time.Parse(time.RFC3339, out.SentAt)
	assert.NoError(t, err)
	mailer.AssertExpectations(t)
	texter.AssertExpectations(t)
}

func TestExecute_OneChannelFailing(t *testing.T) {
	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("throttled"))
	texter := new(mockTexter)
	texter.On("Send", mock.Anything, mock.Anything, mock.Anything).Return("sns-1", nil)

	h := NewHandler(testConfig(), fakeSessions{sess: submittedSession(t)}, mailer, texter, nil, logger.NewTestLogger(t))
	out, err := h.execute(context.Background(), &Input{BookingID: "BK-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.EmailStatus)
	assert.Equal(t, StatusSent, out.SMSStatus)
}

func TestExecute_AllChannelsFailing(t *testing.T) {
	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("throttled"))
	cfg := testConfig()
	cfg.SMSEnabled = false

	h := NewHandler(cfg, fakeSessions{sess: submittedSession(t)}, mailer, nil, nil, logger.NewTestLogger(t))
	_, err := h.execute(context.Background(), &Input{BookingID: "BK-1"})
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
}

func TestExecute_Disabled(t *testing.T) {
	h := NewHandler(NewConfig(config.WorkerConfig{}, config.NotificationConfig{}),
		fakeSessions{sess: submittedSession(t)}, nil, nil, nil, logger.NewTestLogger(t))
	out, err := h.execute(context.Background(), &Input{BookingID: "BK-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.EmailStatus)
	assert.Equal(t, StatusDisabled, out.SMSStatus)
}

func TestExecute_NotSubmitted(t *testing.T) {
	h := NewHandler(testConfig(), fakeSessions{sess: session.New("BK-1")}, nil, nil, nil, logger.NewTestLogger(t))
	_, err := h.execute(context.Background(), &Input{BookingID: "BK-1"})
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.False(t, stdErr.Retryable)
}

func TestRenderTemplate(t *testing.T) {
	got := renderTemplate("Hi {{name}}, {{bookingId}} {{missing}}", map[string]string{"name": "Asha", "bookingId": "BK-1"})
	assert.Equal(t, "Hi Asha, BK-1 {{missing}}", got)
}
