package api

import (
	"net/http"

	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"

	"github.com/go-chi/chi/v5"
)

type verifyRequest struct {
	Email string `json:"email"`
}

type fieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

type uploadRequest struct {
	ApplicantID string `json:"applicantId"`
	Category    string `json:"category"`
	DocumentID  string `json:"documentId"`
	DocType     string `json:"docType,omitempty"`
}

type saveRequest struct {
	RetryFailed bool `json:"retryFailed"`
}

func bookingID(r *http.Request) string { return chi.URLParam(r, "bookingID") }

func applicantID(r *http.Request) string { return chi.URLParam(r, "applicantID") }

// respond writes the session, or the error mapped to its status.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, sess session.Session, err error) {
	if err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), bookingID(r))
	h.respond(w, r, sess, err)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Load(r.Context(), bookingID(r))
	h.respond(w, r, sess, err)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	sess, err := h.svc.VerifyEmail(r.Context(), bookingID(r), req.Email)
	h.respond(w, r, sess, err)
}

func (h *Handler) handleAddApplicant(w http.ResponseWriter, r *http.Request) {
	sess, id, err := h.svc.AddApplicant(r.Context(), bookingID(r))
	if err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ApplicantID string      `json:"applicantId"`
		Session     sessionView `json:"session"`
	}{id, newSessionView(sess)})
}

func (h *Handler) handleRemoveApplicant(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.RemoveApplicant(r.Context(), bookingID(r), applicantID(r))
	h.respond(w, r, sess, err)
}

func (h *Handler) handleOpenApplicant(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.OpenApplicant(r.Context(), bookingID(r), applicantID(r))
	h.respond(w, r, sess, err)
}

func (h *Handler) handleUpdateApplicant(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	sess, err := h.svc.UpdateApplicant(r.Context(), bookingID(r), applicantID(r), req.Fields)
	h.respond(w, r, sess, err)
}

func (h *Handler) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	sess, err := h.svc.UpdateAddress(r.Context(), bookingID(r), req.Fields)
	h.respond(w, r, sess, err)
}

func (h *Handler) handleNextStep(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.NextStep(r.Context(), bookingID(r))
	if err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Moved    bool        `json:"moved"`
		Messages []string    `json:"messages,omitempty"`
		Session  sessionView `json:"session"`
	}{res.Moved, res.Messages, newSessionView(res.Session)})
}

func (h *Handler) handlePreviousStep(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.PreviousStep(r.Context(), bookingID(r))
	h.respond(w, r, sess, err)
}

func (h *Handler) handleBackToDetails(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.BackToDetails(r.Context(), bookingID(r))
	h.respond(w, r, sess, err)
}

func (h *Handler) handleRecordUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	sess, _, err := h.svc.RecordUpload(r.Context(), bookingID(r), ingest.UploadEvent{
		ApplicantID: req.ApplicantID,
		Category:    req.Category,
		DocumentID:  req.DocumentID,
	}, req.DocType)
	h.respond(w, r, sess, err)
}

// handleExtract takes a multipart upload with the file under "file" and the
// applicantId, category and optional documentId form values.
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxBodyBytes); err != nil {
		h.writeError(w, r, bookingID(r), invalidInput("invalid multipart body: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, bookingID(r), invalidInput("file is required"))
		return
	}
	defer file.Close()
	content, err := readAll(file)
	if err != nil {
		h.writeError(w, r, bookingID(r), invalidInput("read file: "+err.Error()))
		return
	}

	res, err := h.svc.ExtractDocument(r.Context(), bookingID(r), service.ExtractRequest{
		ApplicantID: r.FormValue("applicantId"),
		Category:    r.FormValue("category"),
		FileName:    header.Filename,
		Content:     content,
		DocumentID:  r.FormValue("documentId"),
	})
	if err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Category string      `json:"category"`
		Fields   interface{} `json:"fields"`
		Session  sessionView `json:"session"`
	}{res.Category, res.Fields, newSessionView(res.Session)})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, r, bookingID(r), err)
			return
		}
	}
	res, err := h.svc.SaveAndPreview(r.Context(), bookingID(r), req.RetryFailed)
	if err != nil {
		h.writeError(w, r, bookingID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Report  interface{} `json:"report"`
		Session sessionView `json:"session"`
	}{res.Report, newSessionView(res.Session)})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Submit(r.Context(), bookingID(r))
	h.respond(w, r, sess, err)
}
