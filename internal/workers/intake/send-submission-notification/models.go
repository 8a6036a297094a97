// internal/workers/intake/send-submission-notification/models.go
package sendsubmissionnotification

type Input struct {
	BookingID string `json:"bookingId"`
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

// Output reports each channel separately. A failed channel does not fail
// the job unless every enabled channel failed.
type Output struct {
	NotificationID string `json:"notificationId"`
	EmailStatus    string `json:"emailStatus"`
	EmailID        string `json:"emailId,omitempty"`
	SMSStatus      string `json:"smsStatus"`
	SMSID          string `json:"smsId,omitempty"`
	SentAt         string `json:"sentAt"`
}
