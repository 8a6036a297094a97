// internal/workers/intake/save-applicant-roster/models.go
package saveapplicantroster

import "applicant-intake/internal/intake/persist"

type Input struct {
	BookingID   string `json:"bookingId"`
	RetryFailed bool   `json:"retryFailed"`
}

type Output struct {
	SavedCount       int              `json:"savedCount"`
	Message          string           `json:"message"`
	Results          []persist.Result `json:"results"`
	Failed           []string         `json:"failed"`
	FocusApplicantID string           `json:"focusApplicantId,omitempty"`
	Phase            string           `json:"phase"`
	AuditLogged      bool             `json:"auditLogged"`
	Indexed          int              `json:"indexed"`
}
