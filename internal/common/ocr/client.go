// Package ocr is the client for the document text extraction API.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	httpclient "applicant-intake/internal/common/http"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/models"
)

var ErrUnreadableResult = errors.New("OCR_RESULT_UNREADABLE")

type Client struct {
	baseURL string
	http    *httpclient.Client
}

func NewClient(baseURL string, httpClient *http.Client, maxRetries int) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpclient.NewClient("ocr", httpClient, maxRetries),
	}
}

// Document is one file sent for extraction.
type Document struct {
	BookingID string
	Category  models.DocumentCategory
	FileName  string
	Content   []byte
}

type extractRequest struct {
	BookingID  string `json:"bookingId"`
	Category   string `json:"category"`
	FileName   string `json:"fileName"`
	Base64File string `json:"base64File"`
}

// The API answers with the extracted fields as a JSON document inside a
// string.
type extractResponse struct {
	Extracted string `json:"extracted"`
}

// Extract scans doc and returns the recognised fields. Only the categories
// ingest.SupportsExtraction accepts are sent.
func (c *Client) Extract(ctx context.Context, doc Document) (ingest.OCRFields, error) {
	if !ingest.SupportsExtraction(doc.Category) {
		return ingest.OCRFields{}, fmt.Errorf("%w: %s", ingest.ErrExtractionCategory, doc.Category)
	}

	var resp extractResponse
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "extract",
		Method:    http.MethodPost,
		URL:       c.baseURL + "/extract",
		Body: extractRequest{
			BookingID:  doc.BookingID,
			Category:   string(doc.Category),
			FileName:   doc.FileName,
			Base64File: base64.StdEncoding.EncodeToString(doc.Content),
		},
		Retry: true,
	}, &resp)
	if err != nil {
		return ingest.OCRFields{}, err
	}

	var fields ingest.OCRFields
	if err := json.Unmarshal([]byte(resp.Extracted), &fields); err != nil {
		return ingest.OCRFields{}, fmt.Errorf("%w: %v", ErrUnreadableResult, err)
	}
	return fields, nil
}
