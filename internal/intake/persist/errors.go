// Package persist saves a finished roster to the record store: one create per
// applicant in roster order, each followed by its document attachments.
package persist

import (
	"errors"
	"fmt"
	"strings"

	"applicant-intake/internal/models"
)

var (
	ErrSaveInProgress   = errors.New("SAVE_IN_PROGRESS")
	ErrValidationFailed = errors.New("VALIDATION_FAILED")
	ErrCreateFailed     = errors.New("RECORD_CREATE_FAILED")
	ErrEmptyRoster      = errors.New("EMPTY_ROSTER")
)

const UnknownErrorMessage = "Unknown error occurred"

// ValidationError lists what is wrong with the first invalid applicant.
type ValidationError struct {
	ApplicantID string
	Messages    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.ApplicantID, strings.Join(e.Messages, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// CreateError reports the applicant whose create call failed and the message
// extracted from the remote error.
type CreateError struct {
	ApplicantID string
	Message     string
	Err         error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCreateFailed, e.ApplicantID, e.Message)
}

func (e *CreateError) Unwrap() []error { return []error{ErrCreateFailed, e.Err} }

// ErrorMessage picks the most specific message from a failed remote call:
// the structured body message, then the first field-level error, then the
// error's own message, then a fixed fallback.
func ErrorMessage(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}

	var remote *models.RemoteError
	if errors.As(err, &remote) {
		if remote.Body != nil {
			if remote.Body.Message != "" {
				return remote.Body.Message
			}
			if len(remote.Body.PageErrors) > 0 && remote.Body.PageErrors[0].Message != "" {
				return remote.Body.PageErrors[0].Message
			}
		}
		if remote.Message != "" {
			return remote.Message
		}
		return UnknownErrorMessage
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
