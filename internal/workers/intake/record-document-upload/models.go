// internal/workers/intake/record-document-upload/models.go
package recorddocumentupload

type Input struct {
	BookingID   string `json:"bookingId"`
	ApplicantID string `json:"applicantId"`
	Category    string `json:"category"`
	DocumentID  string `json:"documentId"`
	DocType     string `json:"docType,omitempty"`
}

type Output struct {
	ApplicantID     string `json:"applicantId"`
	Category        string `json:"category"`
	DocumentCount   int    `json:"documentCount"`
	SelectedDocType string `json:"selectedDocType"`
}
