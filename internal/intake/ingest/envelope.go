// Package ingest merges data pushed from outside the form (the conversational
// assistant and OCR extraction) into a booking's roster and address.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	SourceAssistant   = "CHATBOT_LWC"
	TypeApplicantData = "APPLICANT_DATA"
	ValidDataTrue     = "true"
)

var ErrEnvelopeRejected = errors.New("ENVELOPE_REJECTED")

// Rejection reasons, also used as metric labels.
const (
	ReasonMalformed = "malformed"
	ReasonSchema    = "schema"
	ReasonSource    = "source"
	ReasonType      = "type"
	ReasonValidData = "validData"
	ReasonBooking   = "bookingId"
	ReasonOrigin    = "origin"
	ReasonDuplicate = "duplicate"
)

// Envelope is the message shape exchanged with the assistant.
type Envelope struct {
	Source    string          `json:"source"`
	Type      string          `json:"type"`
	ValidData string          `json:"validData"`
	BookingID string          `json:"bookingId,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RejectionError carries why an envelope was dropped.
type RejectionError struct {
	Reason string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrEnvelopeRejected, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrEnvelopeRejected, e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error { return ErrEnvelopeRejected }

func reject(reason, detail string) error {
	return &RejectionError{Reason: reason, Detail: detail}
}

// RejectionReason extracts the reason from a rejection, or "" for other errors.
func RejectionReason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

const envelopeSchema = `{
  "type": "object",
  "required": ["source", "type", "validData"],
  "properties": {
    "source":    {"type": "string", "maxLength": 64},
    "type":      {"type": "string", "maxLength": 64},
    "validData": {"type": "string", "maxLength": 8},
    "bookingId": {"type": "string", "maxLength": 64},
    "messageId": {"type": "string", "maxLength": 128},
    "data":      {"type": ["array", "object", "null"]}
  }
}`

var envelopeSchemaLoader = gojsonschema.NewStringLoader(envelopeSchema)

// DecodeEnvelope validates raw against the envelope schema and the fixed
// source, type and validity tags. Every failure is a *RejectionError.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	if !json.Valid(raw) {
		return Envelope{}, reject(ReasonMalformed, "body is not JSON")
	}

	result, err := gojsonschema.Validate(envelopeSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Envelope{}, reject(ReasonMalformed, err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Envelope{}, reject(ReasonSchema, strings.Join(msgs, "; "))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, reject(ReasonMalformed, err.Error())
	}

	switch {
	case env.Source != SourceAssistant:
		return Envelope{}, reject(ReasonSource, env.Source)
	case env.Type != TypeApplicantData:
		return Envelope{}, reject(ReasonType, env.Type)
	case env.ValidData != ValidDataTrue:
		return Envelope{}, reject(ReasonValidData, env.ValidData)
	}
	return env, nil
}

// BuildEnvelope wraps assistant data in an outbound envelope.
func BuildEnvelope(bookingID, messageID string, data json.RawMessage) Envelope {
	return Envelope{
		Source:    SourceAssistant,
		Type:      TypeApplicantData,
		ValidData: ValidDataTrue,
		BookingID: bookingID,
		MessageID: messageID,
		Data:      data,
	}
}
