// internal/workers/intake/load-booking-applicants/models.go
package loadbookingapplicants

type Input struct {
	BookingID string `json:"bookingId"`
}

type Output struct {
	BookingID          string `json:"bookingId"`
	ApplicantCount     int    `json:"applicantCount"`
	PrimaryApplicantID string `json:"primaryApplicantId"`
	PersistedCount     int    `json:"persistedCount"`
	Hydrated           bool   `json:"hydrated"`
	CurrentStage       string `json:"currentStage"`
	Phase              string `json:"phase"`
}
