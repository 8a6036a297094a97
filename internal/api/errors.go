package api

import (
	"encoding/json"
	"net/http"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/intake/service"
)

type errorBody struct {
	Code     apperrors.ErrorCode    `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeSessionNotFound, apperrors.ErrCodeApplicantNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidationFailed, apperrors.ErrCodeInvalidField:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeEnvelopeRejected:
		return http.StatusBadRequest
	case apperrors.ErrCodeSaveInProgress, apperrors.ErrCodeRosterRule, apperrors.ErrCodeBusinessRule:
		return http.StatusConflict
	case apperrors.ErrCodeRecordStoreUnavailable, apperrors.ErrCodeRecordCreateFailed,
		apperrors.ErrCodeOCRExtractionFailed, apperrors.ErrCodeOCRTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, bookingID string, err error) {
	stdErr := service.ToStandard(bookingID, err)
	status := statusFor(stdErr.Code)
	fields := map[string]interface{}{
		"bookingId": bookingID,
		"code":      string(stdErr.Code),
		"status":    status,
		"error":     err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request rejected", fields)
	}
	writeJSON(w, status, errorBody{
		Code:     stdErr.Code,
		Message:  stdErr.Message,
		Details:  stdErr.Details,
		Metadata: stdErr.Metadata,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidInputError("invalid request body: " + err.Error())
	}
	return nil
}
