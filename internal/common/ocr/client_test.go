package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, err := base64.StdEncoding.DecodeString(req.Base64File)
		require.NoError(t, err)
		assert.Equal(t, "scan-bytes", string(raw))
		assert.Equal(t, "frontAadhar", req.Category)

		inner, _ := json.Marshal(map[string]string{"FirstName": "Asha", "LastName": "Rao", "DateOfBirth": "3/2/1988"})
		_ = json.NewEncoder(w).Encode(extractResponse{Extracted: string(inner)})
	}))
	defer srv.Close()

	fields, err := NewClient(srv.URL, srv.Client(), 0).Extract(context.Background(), Document{
		BookingID: "BK-1",
		Category:  models.CategoryFrontAadhar,
		FileName:  "aadhaar.jpg",
		Content:   []byte("scan-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, ingest.OCRFields{FirstName: "Asha", LastName: "Rao", DateOfBirth: "3/2/1988"}, fields)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := NewClient("http://unused", nil, 0).Extract(context.Background(), Document{Category: models.CategoryBackAadhar})
	assert.ErrorIs(t, err, ingest.ErrExtractionCategory)
}

func TestExtract_Unreadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"extracted":"no json here"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client(), 0).Extract(context.Background(), Document{Category: models.CategoryPAN})
	assert.ErrorIs(t, err, ErrUnreadableResult)
}
