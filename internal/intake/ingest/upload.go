package ingest

import (
	"errors"
	"fmt"

	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/models"
)

var ErrInvalidUpload = errors.New("INVALID_UPLOAD")

// UploadEvent reports one completed file upload.
type UploadEvent struct {
	ApplicantID string `json:"applicantId"`
	Category    string `json:"category"`
	DocumentID  string `json:"documentId"`
}

// RecordUpload files the document id under the applicant's category bucket.
func RecordUpload(r roster.Roster, files models.FileBuckets, ev UploadEvent) (models.FileBuckets, models.DocumentCategory, error) {
	if ev.DocumentID == "" {
		return files, "", fmt.Errorf("%w: documentId is required", ErrInvalidUpload)
	}
	category, err := models.ParseDocumentCategory(ev.Category)
	if err != nil {
		return files, "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	if _, ok := r.Find(ev.ApplicantID); !ok {
		return files, "", fmt.Errorf("%w: %s", roster.ErrApplicantNotFound, ev.ApplicantID)
	}
	return files.With(ev.ApplicantID, category, ev.DocumentID), category, nil
}
