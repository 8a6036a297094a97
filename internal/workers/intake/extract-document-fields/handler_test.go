// internal/workers/intake/extract-document-fields/handler_test.go
package extractdocumentfields

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractDocument(ctx context.Context, bookingID string, req service.ExtractRequest) (service.ExtractResult, error) {
	args := m.Called(ctx, bookingID, req)
	return args.Get(0).(service.ExtractResult), args.Error(1)
}

func newHandler(t *testing.T, svc Extractor) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, svc, nil, logger.NewTestLogger(t))
}

func TestExecute(t *testing.T) {
	svc := new(mockExtractor)
	svc.On("ExtractDocument", mock.Anything, "BK-1", service.ExtractRequest{
		ApplicantID: "a-1",
		Category:    "frontAadhar",
		FileName:    "front.jpg",
		Content:     []byte("image-bytes"),
		DocumentID:  "doc-9",
	}).Return(service.ExtractResult{
		Category: "frontAadhar",
		Fields:   ingest.OCRFields{FirstName: "Asha", AadhaarNumber: "123412341234"},
	}, nil)

	out, err := newHandler(t, svc).execute(context.Background(), &Input{
		BookingID:   "BK-1",
		ApplicantID: "a-1",
		Category:    "frontAadhar",
		FileName:    "front.jpg",
		File:        base64.StdEncoding.EncodeToString([]byte("image-bytes")),
		DocumentID:  "doc-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", out.Fields.FirstName)
	assert.True(t, out.Filed)
	svc.AssertExpectations(t)
}

func TestExecute_BadFile(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockExtractor)
			_, err := newHandler(t, svc).execute(context.Background(), &Input{BookingID: "BK-1", File: tt.file})
			stdErr, ok := apperrors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
			svc.AssertNotCalled(t, "ExtractDocument", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExecute_OCRTimeoutMapsToRetryableCode(t *testing.T) {
	svc := new(mockExtractor)
	svc.On("ExtractDocument", mock.Anything, "BK-1", mock.Anything).
		Return(service.ExtractResult{}, fmt.Errorf("%w: %w", service.ErrExtractionFailed, context.DeadlineExceeded))

	_, err := newHandler(t, svc).execute(context.Background(), &Input{
		BookingID: "BK-1",
		File:      base64.StdEncoding.EncodeToString([]byte("x")),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeOCRTimeout, service.ToStandard("BK-1", err).Code)
}
