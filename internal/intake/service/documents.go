package service

import (
	"context"
	"fmt"

	"applicant-intake/internal/common/ocr"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"
)

// RecordUpload files an uploaded document id under the applicant's bucket.
// A non-empty docType replaces the tag used for the "other" bucket.
func (s *Service) RecordUpload(ctx context.Context, bookingID string, ev ingest.UploadEvent, docType string) (session.Session, models.DocumentCategory, error) {
	var category models.DocumentCategory
	sess, err := s.update(ctx, bookingID, func(sess *session.Session) error {
		files, c, err := ingest.RecordUpload(sess.Roster, sess.Files, ev)
		if err != nil {
			return err
		}
		sess.Files = files
		category = c
		if docType != "" {
			sess.SelectedDocType = docType
		}
		return nil
	})
	return sess, category, err
}

// ExtractRequest is one document scan for an applicant. When DocumentID is
// set the upload is filed in the same session write as the merge.
type ExtractRequest struct {
	ApplicantID string
	Category    string
	FileName    string
	Content     []byte
	DocumentID  string
}

// ExtractResult reports what a scan changed.
type ExtractResult struct {
	Session  session.Session  `json:"session"`
	Fields   ingest.OCRFields `json:"fields"`
	Category string           `json:"category"`
}

// ExtractDocument sends a front Aadhaar or PAN scan to OCR and merges the
// result onto the applicant. The OCR call runs outside the session update so
// a slow scan does not hold the session.
func (s *Service) ExtractDocument(ctx context.Context, bookingID string, req ExtractRequest) (ExtractResult, error) {
	category, err := models.ParseDocumentCategory(req.Category)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("%w: %v", ErrUnsupportedUpload, err)
	}
	if !ingest.SupportsExtraction(category) {
		return ExtractResult{}, fmt.Errorf("%w: %s", ErrUnsupportedUpload, category)
	}

	current, err := s.sessions.Get(ctx, bookingID)
	if err != nil {
		return ExtractResult{}, err
	}
	if _, ok := current.Roster.Find(req.ApplicantID); !ok {
		return ExtractResult{}, fmt.Errorf("%w: %s", roster.ErrApplicantNotFound, req.ApplicantID)
	}

	fields, err := s.ocr.Extract(ctx, ocr.Document{
		BookingID: bookingID,
		Category:  category,
		FileName:  req.FileName,
		Content:   req.Content,
	})
	if err != nil {
		s.log.Warn("document extraction failed", map[string]interface{}{
			"bookingId":   bookingID,
			"applicantId": req.ApplicantID,
			"category":    string(category),
			"error":       err.Error(),
		})
		return ExtractResult{}, wrapExtraction(err)
	}

	sess, err := s.update(ctx, bookingID, func(sess *session.Session) error {
		next, err := s.merger.MergeOCR(sess.Roster, req.ApplicantID, category, fields)
		if err != nil {
			return err
		}
		sess.Roster = next
		if req.DocumentID != "" {
			sess.Files = sess.Files.With(req.ApplicantID, category, req.DocumentID)
		}
		return nil
	})
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{Session: sess, Fields: fields, Category: string(category)}, nil
}
