package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"applicant-intake/internal/common/metrics"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/models"
)

var (
	ErrMalformedDate      = errors.New("MALFORMED_DATE")
	ErrExtractionCategory = errors.New("EXTRACTION_NOT_SUPPORTED")
)

const (
	ocrDateLayout = "2/1/2006"
	isoDateLayout = "2006-01-02"
)

// OCRFields is the structured result of a document scan. Aadhaar front scans
// fill the name, birth date and number; PAN scans fill PANNumber.
type OCRFields struct {
	FirstName     string `json:"FirstName"`
	MiddleName    string `json:"MiddleName"`
	LastName      string `json:"LastName"`
	DateOfBirth   string `json:"DateOfBirth"`
	AadhaarNumber string `json:"AadhaarNumber"`
	PANNumber     string `json:"panNumber"`
}

// SupportsExtraction reports whether a category is sent to OCR.
func SupportsExtraction(c models.DocumentCategory) bool {
	return c == models.CategoryFrontAadhar || c == models.CategoryPAN
}

// ReformatDate turns D/M/YYYY (day and month optionally zero padded) into
// YYYY-MM-DD.
func ReformatDate(dmy string) (string, error) {
	t, err := time.Parse(ocrDateLayout, strings.TrimSpace(dmy))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedDate, dmy)
	}
	return t.Format(isoDateLayout), nil
}

// MergeOCR writes a scan result onto the applicant. A malformed birth date is
// skipped and logged; the other fields still apply.
func (m *Merger) MergeOCR(r roster.Roster, applicantID string, category models.DocumentCategory, f OCRFields) (roster.Roster, error) {
	if !SupportsExtraction(category) {
		return r, fmt.Errorf("%w: %s", ErrExtractionCategory, category)
	}

	return r.Update(applicantID, func(a *models.Applicant) error {
		if category == models.CategoryPAN {
			return a.Set(models.FieldPAN, f.PANNumber)
		}

		for _, kv := range [][2]string{
			{models.FieldFirstName, f.FirstName},
			{models.FieldMiddleName, f.MiddleName},
			{models.FieldLastName, f.LastName},
			{models.FieldAadhar, f.AadhaarNumber},
		} {
			if err := a.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}

		if f.DateOfBirth != "" {
			dob, err := ReformatDate(f.DateOfBirth)
			if err != nil {
				metrics.IngestedFieldsDropped.WithLabelValues("ocr", DropInvalidValue).Inc()
				m.log.Warn("ocr birth date skipped", map[string]interface{}{
					"applicantId": applicantID,
					"value":       f.DateOfBirth,
				})
				return nil
			}
			return a.Set(models.FieldDateOfBirth, dob)
		}
		return nil
	})
}
