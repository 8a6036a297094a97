// internal/workers/intake/extract-document-fields/models.go
package extractdocumentfields

import "applicant-intake/internal/intake/ingest"

type Input struct {
	BookingID   string `json:"bookingId"`
	ApplicantID string `json:"applicantId"`
	Category    string `json:"category"`
	FileName    string `json:"fileName"`
	// File is the document content, base64 encoded.
	File       string `json:"file"`
	DocumentID string `json:"documentId,omitempty"`
}

type Output struct {
	ApplicantID string           `json:"applicantId"`
	Category    string           `json:"category"`
	Fields      ingest.OCRFields `json:"fields"`
	Filed       bool             `json:"filed"`
}
