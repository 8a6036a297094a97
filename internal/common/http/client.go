// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"applicant-intake/internal/common/metrics"
	"applicant-intake/internal/models"
)

const maxErrorBody = 64 << 10

// Client is a JSON client for one remote service. Failed calls come back as
// *models.RemoteError.
type Client struct {
	service      string
	httpClient   *http.Client
	maxRetries   int
	initialDelay time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewClient wraps httpClient. maxRetries counts extra attempts after the first.
func NewClient(service string, httpClient *http.Client, maxRetries int) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		service:      service,
		httpClient:   httpClient,
		maxRetries:   maxRetries,
		initialDelay: 200 * time.Millisecond,
		sleep:        sleepCtx,
	}
}

// WithInitialDelay sets the first backoff delay; it doubles per retry.
func (c *Client) WithInitialDelay(d time.Duration) *Client {
	c.initialDelay = d
	return c
}

// Request describes one call. Retry must only be set for calls that are safe
// to repeat.
type Request struct {
	Operation string
	Method    string
	URL       string
	Body      interface{}
	Header    http.Header
	Retry     bool
}

// Do sends req and decodes a 2xx JSON response into out (when out is non-nil).
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", req.Operation, err)
		}
	}

	attempts := 1
	if req.Retry {
		attempts += c.maxRetries
	}

	delay := c.initialDelay
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = c.once(ctx, req, payload, out)
		if lastErr == nil {
			return nil
		}
		var remote *models.RemoteError
		if !errors.As(lastErr, &remote) || !remote.Retryable() || i == attempts-1 {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return lastErr
		}
		delay *= 2
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, req Request, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", req.Operation, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RemoteCallDuration.WithLabelValues(c.service, req.Operation, "error").Observe(time.Since(start).Seconds())
		return &models.RemoteError{Operation: req.Operation, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	metrics.RemoteCallDuration.WithLabelValues(c.service, req.Operation, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeRemoteError(req.Operation, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.Operation, err)
	}
	return nil
}

// decodeRemoteError keeps the structured body when there is one and the raw
// text otherwise.
func decodeRemoteError(operation string, status int, raw []byte) *models.RemoteError {
	remote := &models.RemoteError{
		Operation:  operation,
		StatusCode: status,
		Message:    http.StatusText(status),
	}

	var body models.RemoteErrorBody
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil && (body.Message != "" || len(body.PageErrors) > 0) {
		remote.Body = &body
		return remote
	}
	if text := string(bytes.TrimSpace(raw)); text != "" {
		remote.Message = text
	}
	return remote
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
