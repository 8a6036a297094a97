package ingest

import (
	"encoding/json"
	"strings"
)

const (
	fenceOpen          = "```json"
	fence              = "```"
	AssistantSenderBot = "Chatbot"
)

// ExtractFencedJSON pulls the JSON body out of an assistant reply wrapped in a
// ```json fence. It returns nil when the text holds no fence or the body does
// not parse.
func ExtractFencedJSON(text string) json.RawMessage {
	if !strings.Contains(text, fenceOpen) {
		return nil
	}
	body := strings.ReplaceAll(text, fenceOpen, "")
	body = strings.TrimSpace(strings.ReplaceAll(body, fence, ""))
	if !json.Valid([]byte(body)) {
		return nil
	}
	return json.RawMessage(body)
}

// FromTranscript builds the envelope the assistant publishes for one reply.
// Only bot replies carrying a JSON fence produce an envelope; a fence whose
// body does not parse still publishes an empty object.
func FromTranscript(sender, text, bookingID, messageID string) (Envelope, bool) {
	if sender != AssistantSenderBot || !strings.Contains(text, fenceOpen) {
		return Envelope{}, false
	}
	data := ExtractFencedJSON(text)
	if data == nil {
		data = json.RawMessage("{}")
	}
	return BuildEnvelope(bookingID, messageID, data), true
}

// ParseKeyValuePairs reads "k1=v1,k2=v2". Keys and values are trimmed; a pair
// without both a key and a value is skipped. Text after a second '=' is ignored.
func ParseKeyValuePairs(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.Split(pair, "=")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out
}
