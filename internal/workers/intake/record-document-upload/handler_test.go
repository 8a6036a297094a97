// internal/workers/intake/record-document-upload/handler_test.go
package recorddocumentupload

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordUpload(ctx context.Context, bookingID string, ev ingest.UploadEvent, docType string) (session.Session, models.DocumentCategory, error) {
	args := m.Called(ctx, bookingID, ev, docType)
	return args.Get(0).(session.Session), args.Get(1).(models.DocumentCategory), args.Error(2)
}

func TestExecute(t *testing.T) {
	sess := session.New("BK-1")
	sess.Files = sess.Files.
		With("a-1", models.CategoryOther, "d-1").
		With("a-1", models.CategoryOther, "d-2")
	sess.SelectedDocType = "Salary Slip"

	ev := ingest.UploadEvent{ApplicantID: "a-1", Category: "other", DocumentID: "d-2"}
	svc := new(mockRecorder)
	svc.On("RecordUpload", mock.Anything, "BK-1", ev, "Salary Slip").
		Return(sess, models.CategoryOther, nil)

	h := NewHandler(&Config{Timeout: time.Second}, svc, nil, logger.NewTestLogger(t))
	out, err := h.execute(context.Background(), &Input{
		BookingID:   "BK-1",
		ApplicantID: "a-1",
		Category:    "other",
		DocumentID:  "d-2",
		DocType:     "Salary Slip",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.DocumentCount)
	assert.Equal(t, "other", out.Category)
	assert.Equal(t, "Salary Slip", out.SelectedDocType)
}

func TestExecute_InvalidUpload(t *testing.T) {
	svc := new(mockRecorder)
	svc.On("RecordUpload", mock.Anything, "BK-1", mock.Anything, "").
		Return(session.Session{}, models.DocumentCategory(""), fmt.Errorf("%w: documentId is required", ingest.ErrInvalidUpload))

	h := NewHandler(&Config{Timeout: time.Second}, svc, nil, logger.NewTestLogger(t))
	_, err := h.execute(context.Background(), &Input{BookingID: "BK-1", ApplicantID: "a-1", Category: "pan"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, service.ToStandard("BK-1", err).Code)
}
