// Package api wraps HTTP access to the storefront backend. It owns request
// construction (JSON bodies, auth and guest-cart headers), response envelope
// decoding, and translation of backend error payloads into APIError values.
//
// Credentials are never stored on the client: every call takes an explicit
// RequestContext carrying the bearer token and guest cart key, so request
// construction stays deterministic and testable.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lumiere-shop/storefront/core"
)

// GuestKeyHeader identifies an unauthenticated shopper's cart on the server
const GuestKeyHeader = "x-guest-key"

// RequestContext carries the per-request identity: the bearer token of an
// authenticated session and/or the guest cart key. Empty fields omit the
// corresponding header entirely (never sent empty).
type RequestContext struct {
	Token    string
	GuestKey string
}

// Envelope is the backend's standard response shape. Mutating cart calls may
// return a fresh guest key that the caller must adopt and persist.
type Envelope struct {
	Data     json.RawMessage `json:"data"`
	GuestKey string          `json:"guestKey,omitempty"`
	Meta     *Meta           `json:"meta,omitempty"`
}

// Meta carries pagination info on list responses
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// APIError is a structured error returned by the backend. Message prefers
// the backend's "message" field, then "error", falling back to a generic
// transport description.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// errorPayload matches the backend's error body
type errorPayload struct {
	Message string `json:"message"`
	Err     string `json:"error"`
}

// Client is the single configured HTTP entry point to the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	telemetry  core.Telemetry
}

// Options configures the API client
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Logger    core.Logger        // Optional
	Telemetry core.Telemetry     // Optional
	Transport http.RoundTripper  // Optional, replaced in tests
}

// NewClient creates an API client. The transport is instrumented with
// otelhttp so every backend call shows up as a client span.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		logger:    logger,
		telemetry: telemetry,
	}
}

// Get performs a GET request and decodes the response into out
func (c *Client) Get(ctx context.Context, rctx RequestContext, path string, out interface{}) error {
	return c.do(ctx, rctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body and decodes the response into out
func (c *Client) Post(ctx context.Context, rctx RequestContext, path string, body, out interface{}) error {
	return c.do(ctx, rctx, http.MethodPost, path, body, out)
}

// Patch performs a PATCH request with a JSON body and decodes the response into out
func (c *Client) Patch(ctx context.Context, rctx RequestContext, path string, body, out interface{}) error {
	return c.do(ctx, rctx, http.MethodPatch, path, body, out)
}

// Delete performs a DELETE request and decodes the response into out
func (c *Client) Delete(ctx context.Context, rctx RequestContext, path string, out interface{}) error {
	return c.do(ctx, rctx, http.MethodDelete, path, nil, out)
}

// do executes a single round trip. No retry: failures propagate to the
// caller with the backend's structured message when one is present.
func (c *Client) do(ctx context.Context, rctx RequestContext, method, path string, body, out interface{}) error {
	ctx, span := c.telemetry.StartSpan(ctx, "api.request")
	defer span.End()
	span.SetAttribute("http.method", method)
	span.SetAttribute("http.path", path)

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if rctx.Token != "" {
		req.Header.Set("Authorization", "Bearer "+rctx.Token)
	}
	if rctx.GuestKey != "" {
		req.Header.Set(GuestKeyHeader, rctx.GuestKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Backend request failed", map[string]interface{}{
			"operation": "api_request_error",
			"method":    method,
			"path":      path,
			"error":     err.Error(),
		})
		span.RecordError(err)
		return fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	span.SetAttribute("http.status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload errorPayload
		if jsonErr := json.Unmarshal(respBody, &payload); jsonErr == nil {
			if payload.Message != "" {
				apiErr.Message = payload.Message
			} else if payload.Err != "" {
				apiErr.Message = payload.Err
			}
		}
		c.logger.Warn("Backend returned error status", map[string]interface{}{
			"operation":   "api_request_error",
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
			"message":     apiErr.Message,
		})
		span.RecordError(apiErr)
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	c.logger.Debug("Backend request completed", map[string]interface{}{
		"operation":   "api_request",
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
	})
	return nil
}

// ErrorMessage extracts a user-facing message from any error produced by
// this package, preferring the backend's structured message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
