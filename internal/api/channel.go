package api

import (
	"errors"
	"io"
	"net/http"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/intake/ingest"

	"github.com/google/uuid"
)

const messageIDHeader = "X-Message-Id"

// handleChannelMessage relays an assistant message into the intake. Only a
// foreign origin is refused outright; every other rejection is answered the
// same as an accepted message so the sender learns nothing from it.
func (h *Handler) handleChannelMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	body, err := readAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, nil)
			return
		}
		h.writeError(w, r, "", invalidInput("read body: "+err.Error()))
		return
	}

	// an absent header leaves dedupe to the envelope's own messageId
	messageID := r.Header.Get(messageIDHeader)
	res, err := h.svc.IngestEnvelope(r.Context(), ingest.Message{
		Origin:    r.Header.Get("Origin"),
		MessageID: messageID,
		Body:      body,
	})
	if err != nil {
		h.writeError(w, r, res.BookingID, err)
		return
	}
	if res.Reason == ingest.ReasonOrigin {
		writeJSON(w, http.StatusForbidden, nil)
		return
	}
	if res.MessageID != "" {
		messageID = res.MessageID
	}
	if messageID == "" {
		messageID = uuid.New().String()
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"messageId": messageID})
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

func invalidInput(details string) error {
	return apperrors.NewInvalidInputError(details)
}
