// internal/workers/intake/send-submission-notification/config.go
package sendsubmissionnotification

import (
	"time"

	"applicant-intake/internal/common/config"
)

const (
	defaultSubject = "Applicant details received for booking {{bookingId}}"
	defaultText    = "Hello {{name}},\n\nWe have received the details of {{count}} applicant(s) for booking {{bookingId}}. Our team will be in touch shortly.\n"
	defaultHTML    = "<p>Hello {{name}},</p><p>We have received the details of {{count}} applicant(s) for booking <strong>{{bookingId}}</strong>. Our team will be in touch shortly.</p>"
	defaultSMS     = "Booking {{bookingId}}: details of {{count}} applicant(s) received. Thank you."
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	SMSEnabled   bool
	Subject      string
	TextBody     string
	HTMLBody     string
	SMSBody      string
}

func NewConfig(wcfg config.WorkerConfig, ncfg config.NotificationConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Config{
		Timeout:      timeout,
		EmailEnabled: ncfg.Email.Enabled,
		SMSEnabled:   ncfg.SMS.Enabled,
		Subject:      defaultSubject,
		TextBody:     defaultText,
		HTMLBody:     defaultHTML,
		SMSBody:      defaultSMS,
	}
}
