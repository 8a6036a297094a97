// internal/workers/intake/verify-booking-email/models.go
package verifybookingemail

type Input struct {
	BookingID string `json:"bookingId"`
	Email     string `json:"email"`
}

// Output reports the gate result. A mismatch completes the job with
// verified=false so the process can ask again.
type Output struct {
	Verified     bool   `json:"verified"`
	VerifyError  bool   `json:"verifyError"`
	Phase        string `json:"phase"`
	CurrentStage string `json:"currentStage"`
}
