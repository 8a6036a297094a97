package service

import (
	"context"
	"errors"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
)

// ToStandard maps a service error onto the shared error codes used to fail
// or throw Zeebe jobs.
func ToStandard(bookingID string, err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandard(err); ok {
		return stdErr
	}

	var (
		validation *persist.ValidationError
		create     *persist.CreateError
		remote     *models.RemoteError
	)

	switch {
	case errors.Is(err, ErrMissingBookingID):
		return apperrors.NewInvalidInputError("bookingId is required")
	case errors.Is(err, session.ErrSessionNotFound):
		return apperrors.NewSessionNotFoundError(bookingID)
	case errors.Is(err, session.ErrConflict):
		return apperrors.NewSessionStoreError(err)
	case errors.Is(err, roster.ErrApplicantNotFound):
		return apperrors.NewApplicantNotFoundError(err.Error())
	case errors.Is(err, roster.ErrPrimaryRemoval), errors.Is(err, roster.ErrPrimaryExists):
		return apperrors.NewRosterRuleError(err)
	case errors.Is(err, models.ErrUnknownField), errors.Is(err, address.ErrUnknownField):
		return apperrors.NewInvalidFieldError(err.Error(), err)
	case errors.As(err, &validation):
		return apperrors.NewValidationFailedError(validation.Messages).
			WithMetadata("focusApplicantId", validation.ApplicantID)
	case errors.Is(err, persist.ErrEmptyRoster):
		return apperrors.NewValidationFailedError([]string{"roster is empty"})
	case errors.Is(err, persist.ErrSaveInProgress):
		return apperrors.NewSaveInProgressError(bookingID)
	case errors.As(err, &create):
		return apperrors.NewRecordCreateFailedError(create.Message, err).
			WithMetadata("applicantId", create.ApplicantID)
	case errors.Is(err, ErrNotVerified), errors.Is(err, ErrNotSaved), errors.Is(err, ErrNothingToRetry):
		return apperrors.NewBusinessRuleError(err.Error(), bookingID)
	case errors.Is(err, ErrUnsupportedUpload), errors.Is(err, ingest.ErrInvalidUpload), errors.Is(err, ingest.ErrExtractionCategory):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrExtractionFailed):
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewOCRTimeoutError()
		}
		return apperrors.NewOCRExtractionFailedError(err)
	case errors.Is(err, ingest.ErrEnvelopeRejected):
		return apperrors.NewEnvelopeRejectedError(ingest.RejectionReason(err))
	case errors.As(err, &remote), errors.Is(err, ErrEmailUnavailable):
		return apperrors.NewRecordStoreUnavailableError("records", err)
	default:
		return apperrors.NewSessionStoreError(err)
	}
}
