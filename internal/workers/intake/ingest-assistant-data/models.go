// internal/workers/intake/ingest-assistant-data/models.go
package ingestassistantdata

import (
	"encoding/json"

	"applicant-intake/internal/intake/ingest"
)

// Input is one message relayed from the assistant. Envelope is the raw body
// as it arrived so the channel can check it byte for byte.
type Input struct {
	Origin    string          `json:"origin"`
	MessageID string          `json:"messageId"`
	Envelope  json.RawMessage `json:"envelope"`
}

type Output struct {
	Accepted  bool                  `json:"accepted"`
	Reason    string                `json:"reason,omitempty"`
	BookingID string                `json:"bookingId,omitempty"`
	Appended  []string              `json:"appended"`
	Applied   int                   `json:"applied"`
	Dropped   []ingest.DroppedField `json:"dropped,omitempty"`
	Skipped   string                `json:"skipped,omitempty"`
}
