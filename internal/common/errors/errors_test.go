// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
		wantCode    string
	}{
		{"record store retryable", NewRecordStoreUnavailableError("createApplicant", errors.New("503")), 3, "RECORD_STORE_UNAVAILABLE"},
		{"ocr timeout", NewOCRTimeoutError(), 2, "OCR_TIMEOUT"},
		{"validation never retried", NewValidationFailedError([]string{"First Name is required"}), 0, "VALIDATION_FAILED"},
		{"create failure not retried", NewRecordCreateFailedError("Duplicate", nil), 0, "RECORD_CREATE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestStandardError_UnwrapAndMetadata(t *testing.T) {
	sentinel := errors.New("SESSION_STORE_DOWN")
	stdErr := NewSessionStoreError(fmt.Errorf("%w: dial tcp", sentinel)).WithMetadata("bookingId", "b-1")

	assert.True(t, errors.Is(stdErr, sentinel))
	assert.Equal(t, "b-1", ConvertToBPMNError(stdErr).ErrorVariables["bookingId"])

	wrapped := fmt.Errorf("load: %w", stdErr)
	got, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSessionStoreError, got.Code)
}

func TestNormalize_PlainError(t *testing.T) {
	stdErr := Normalize(errors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "boom", stdErr.Details)
	assert.False(t, stdErr.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "ROSTER", GetErrorCategory(ErrCodeApplicantNotFound))
	assert.Equal(t, "ROSTER", GetErrorCategory(ErrCodeInvalidField))
	assert.Equal(t, "PERSISTENCE", GetErrorCategory(ErrCodeSaveInProgress))
	assert.Equal(t, "OCR", GetErrorCategory(ErrCodeOCRTimeout))
	assert.Equal(t, "INGESTION", GetErrorCategory(ErrCodeEnvelopeRejected))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory("SOMETHING_ELSE"))
}
