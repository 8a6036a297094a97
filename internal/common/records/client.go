// Package records is the client for the booking record store API.
package records

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	httpclient "applicant-intake/internal/common/http"
	"applicant-intake/internal/models"
)

const service = "records"

type Client struct {
	baseURL string
	http    *httpclient.Client
}

// NewClient builds a record store client. httpClient carries the auth; see
// auth.ClientCredentialsHTTPClient.
func NewClient(baseURL string, httpClient *http.Client, maxRetries int) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpclient.NewClient(service, httpClient, maxRetries),
	}
}

func (c *Client) bookingURL(bookingID string, parts ...string) string {
	u := c.baseURL + "/bookings/" + url.PathEscape(bookingID)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateApplicant creates one applicant linked to the booking and returns its
// record id. It is never retried so a slow success cannot create a duplicate.
func (c *Client) CreateApplicant(ctx context.Context, bookingID string, payload map[string]interface{}) (string, error) {
	var resp createResponse
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "createApplicant",
		Method:    http.MethodPost,
		URL:       c.bookingURL(bookingID, "applicants"),
		Body:      map[string]interface{}{"applicant": payload},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &models.RemoteError{Operation: "createApplicant", Message: "response carried no applicant id"}
	}
	return resp.ID, nil
}

type attachRequest struct {
	DocumentIDs []string `json:"documentIds"`
	DocType     string   `json:"docType"`
}

// AttachDocuments moves uploaded documents from the booking to the applicant
// record under tag. Moving an already moved document is a no-op remotely, so
// the call is retried.
func (c *Client) AttachDocuments(ctx context.Context, bookingID, applicantID string, documentIDs []string, tag string) error {
	return c.http.Do(ctx, httpclient.Request{
		Operation: "attachDocuments",
		Method:    http.MethodPost,
		URL:       c.bookingURL(bookingID, "applicants", applicantID, "documents"),
		Body:      attachRequest{DocumentIDs: documentIDs, DocType: tag},
		Retry:     true,
	}, nil)
}

type applicantsResponse struct {
	Data []models.StoredApplicant `json:"data"`
}

// FetchApplicants lists the applicants already linked to the booking.
func (c *Client) FetchApplicants(ctx context.Context, bookingID string) ([]models.StoredApplicant, error) {
	var resp applicantsResponse
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "fetchApplicants",
		Method:    http.MethodGet,
		URL:       c.bookingURL(bookingID, "applicants"),
		Retry:     true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type bookingResponse struct {
	Opportunity struct {
		Email string `json:"email"`
	} `json:"opportunity"`
}

// FetchBookingEmail returns the email on the booking's opportunity. It is
// the value the verification gate compares against.
func (c *Client) FetchBookingEmail(ctx context.Context, bookingID string) (string, error) {
	var resp bookingResponse
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "fetchBookingEmail",
		Method:    http.MethodGet,
		URL:       c.bookingURL(bookingID),
		Retry:     true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Opportunity.Email == "" {
		return "", fmt.Errorf("booking %s has no opportunity email", bookingID)
	}
	return resp.Opportunity.Email, nil
}
