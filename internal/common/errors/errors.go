// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionStoreError ErrorCode = "SESSION_STORE_ERROR"

	ErrCodeApplicantNotFound ErrorCode = "APPLICANT_NOT_FOUND"
	ErrCodeInvalidField      ErrorCode = "INVALID_FIELD"
	ErrCodeRosterRule        ErrorCode = "ROSTER_RULE_VIOLATION"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"

	ErrCodeSaveInProgress         ErrorCode = "SAVE_IN_PROGRESS"
	ErrCodeRecordCreateFailed     ErrorCode = "RECORD_CREATE_FAILED"
	ErrCodeRecordStoreUnavailable ErrorCode = "RECORD_STORE_UNAVAILABLE"

	ErrCodeOCRExtractionFailed ErrorCode = "OCR_EXTRACTION_FAILED"
	ErrCodeOCRTimeout          ErrorCode = "OCR_TIMEOUT"

	ErrCodeEnvelopeRejected ErrorCode = "ENVELOPE_REJECTED"

	ErrCodeDatabaseInsertFailed   ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeSearchIndexFailed      ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeBusinessRule ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on wrapped sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a metadata key and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewSessionNotFoundError creates a non-retryable missing-session error.
func NewSessionNotFoundError(bookingID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Intake session not found",
		fmt.Sprintf("bookingId: %s", bookingID), false, nil)
}

// NewSessionStoreError creates a retryable session store error.
func NewSessionStoreError(err error) *StandardError {
	return newError(ErrCodeSessionStoreError, "Intake session store error", err.Error(), true, err)
}

// NewApplicantNotFoundError creates a non-retryable unknown-applicant error.
func NewApplicantNotFoundError(applicantID string) *StandardError {
	return newError(ErrCodeApplicantNotFound, "Applicant not found in roster",
		fmt.Sprintf("applicantId: %s", applicantID), false, nil)
}

// NewInvalidFieldError creates a non-retryable unknown or read-only field error.
func NewInvalidFieldError(field string, err error) *StandardError {
	return newError(ErrCodeInvalidField, "Field cannot be updated",
		fmt.Sprintf("field: %s", field), false, err)
}

// NewRosterRuleError creates a non-retryable roster invariant error.
func NewRosterRuleError(err error) *StandardError {
	return newError(ErrCodeRosterRule, "Roster rule violated", err.Error(), false, err)
}

// NewValidationFailedError creates a non-retryable applicant validation error.
func NewValidationFailedError(messages []string) *StandardError {
	return newError(ErrCodeValidationFailed, "Applicant validation failed",
		strings.Join(messages, ", "), false, nil)
}

// NewSaveInProgressError creates a non-retryable reentrancy error.
func NewSaveInProgressError(bookingID string) *StandardError {
	return newError(ErrCodeSaveInProgress, "A save is already in progress for this booking",
		fmt.Sprintf("bookingId: %s", bookingID), false, nil)
}

// NewRecordCreateFailedError creates a non-retryable create error carrying the remote message.
// The save is not retried by the engine because earlier applicants stay persisted.
func NewRecordCreateFailedError(message string, err error) *StandardError {
	return newError(ErrCodeRecordCreateFailed, message, errString(err), false, err)
}

// NewRecordStoreUnavailableError creates a retryable record store error.
func NewRecordStoreUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeRecordStoreUnavailable, "Record store unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, errString(err)), true, err)
}

// NewOCRExtractionFailedError creates a retryable OCR error.
func NewOCRExtractionFailedError(err error) *StandardError {
	return newError(ErrCodeOCRExtractionFailed, "Document field extraction failed", errString(err), true, err)
}

// NewOCRTimeoutError creates a retryable OCR timeout error.
func NewOCRTimeoutError() *StandardError {
	return newError(ErrCodeOCRTimeout, "Document field extraction timeout",
		"OCR call exceeded timeout threshold", true, nil)
}

// NewEnvelopeRejectedError creates a non-retryable envelope rejection.
func NewEnvelopeRejectedError(reason string) *StandardError {
	return newError(ErrCodeEnvelopeRejected, "Assistant envelope rejected", reason, false, nil)
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", errString(err), true, err)
}

// NewSearchIndexFailedError creates a retryable search indexing error.
func NewSearchIndexFailedError(err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Applicant search indexing failed", errString(err), true, err)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errString(err)), true, err)
}

// NewInvalidInputError creates a non-retryable job input error.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), errString(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), errString(err), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false, nil)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionStoreError,
		ErrCodeRecordStoreUnavailable,
		ErrCodeOCRExtractionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeNotificationSendFailed,
		"EXTERNAL_SERVICE_ERROR":
		return 3

	case ErrCodeOCRTimeout, "TIMEOUT_ERROR":
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns the StandardError in err's chain, if any.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "APPLICANT") || strings.Contains(codeStr, "ROSTER") || strings.Contains(codeStr, "FIELD"):
		return "ROSTER"
	case strings.Contains(codeStr, "RECORD") || strings.Contains(codeStr, "SAVE"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "OCR"):
		return "OCR"
	case strings.Contains(codeStr, "ENVELOPE"):
		return "INGESTION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "SEARCH"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
