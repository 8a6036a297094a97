// internal/common/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"applicant-intake/internal/common/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsHTTPClient returns an HTTP client that fetches and caches a
// client-credentials token for every request to the record store.
func ClientCredentialsHTTPClient(ctx context.Context, cfg config.RecordsConfig) (*http.Client, error) {
	if cfg.TokenURL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("records token_url and client_id are required")
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	// the token endpoint is called with the same timeout as the API
	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	client := cc.Client(ctx)
	client.Timeout = timeout
	return client, nil
}

// APIKeyTransport adds a static API key header to every request.
type APIKeyTransport struct {
	Header string
	Key    string
	Base   http.RoundTripper
}

func (t *APIKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	header := t.Header
	if header == "" {
		header = "X-API-Key"
	}
	clone.Header.Set(header, t.Key)
	return base.RoundTrip(clone)
}

// APIKeyHTTPClient returns a client that sends key on every request.
func APIKeyHTTPClient(key string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &APIKeyTransport{Key: key},
	}
}
