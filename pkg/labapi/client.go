// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package labapi is a typed client for the FunglusLab laboratory REST API.
//
// Every method takes a context.Context and performs exactly one HTTP request;
// nothing is retried. Failures are *APIError values: use errors.As, or the
// IsNotFound/IsConflict helpers, to inspect them.
//
// # Example
//
//	client := labapi.NewClient("http://localhost:8000/api/v1")
//	cycles, err := client.ListCycles(ctx)
//	if err != nil {
//	    var apiErr *labapi.APIError
//	    if errors.As(err, &apiErr) {
//	        fmt.Println(apiErr.FullError())
//	    }
//	}
package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/jinterlante1206/FunglusLab/pkg/logging"
)

const (
	// DefaultBaseURL is where the FastAPI backend listens by default.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// DefaultCatalogLimit is the page size used for catalog listings.
	DefaultCatalogLimit = 1000

	// RequestIDHeader carries a per-request uuid.
	RequestIDHeader = "X-Request-ID"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client talks to the laboratory backend.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *logging.Logger
	catalogLimit int
	newRequestID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The caller owns its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCatalogLimit sets the ?limit= used by list calls.
func WithCatalogLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.catalogLimit = n
		}
	}
}

// WithRequestIDFunc overrides X-Request-ID generation. Tests use it for
// deterministic ids.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// NewClient creates a client for baseURL (trailing slash optional).
//
// The transport is wrapped with otelhttp so each request carries W3C trace
// context and produces a client span when tracing is enabled.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:       logging.Nop(),
		catalogLimit: DefaultCatalogLimit,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one request. route is the path template used as a metric
// label; path is the concrete path.
type call struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
	out    any
}

func (c *Client) listQuery() url.Values {
	return url.Values{
		"skip":  []string{"0"},
		"limit": []string{strconv.Itoa(c.catalogLimit)},
	}
}

func (c *Client) do(ctx context.Context, r call) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &APIError{
				Type:    ErrorCancelled,
				Method:  r.method,
				Path:    r.path,
				Message: "Request cancelled",
				Detail:  err.Error(),
				Err:     err,
			}
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return &APIError{
				Type:    ErrorValidation,
				Method:  r.method,
				Path:    r.path,
				Message: "Failed to encode request body",
				Detail:  err.Error(),
				Err:     err,
			}
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	requestID := c.newRequestID()
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return &APIError{
			Type:        ErrorConnection,
			Method:      r.method,
			Path:        r.path,
			Message:     "Failed to create request",
			Detail:      err.Error(),
			Remediation: "Check api.base_url in ~/.funglus/funglus.yaml",
			RequestID:   requestID,
			Err:         err,
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(r.method, r.route, "error", time.Since(start))
		if ctx.Err() != nil {
			return &APIError{
				Type:      ErrorCancelled,
				Method:    r.method,
				Path:      r.path,
				Message:   "Request cancelled",
				Detail:    ctx.Err().Error(),
				RequestID: requestID,
				Err:       ctx.Err(),
			}
		}
		return &APIError{
			Type:        ErrorConnection,
			Method:      r.method,
			Path:        r.path,
			Message:     "Cannot connect to the laboratory backend",
			Detail:      err.Error(),
			Remediation: fmt.Sprintf("Ensure the backend is running at %s (api.base_url or FUNGLUS_API_URL)", c.baseURL),
			RequestID:   requestID,
			Err:         err,
		}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	observeRequest(r.method, r.route, strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug("backend request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
	)

	if readErr != nil {
		return &APIError{
			Type:      ErrorConnection,
			Method:    r.method,
			Path:      r.path,
			Message:   "Failed to read response",
			Detail:    readErr.Error(),
			RequestID: requestID,
			Err:       readErr,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Type:        ErrorStatus,
			Method:      r.method,
			Path:        r.path,
			StatusCode:  resp.StatusCode,
			Detail:      parseDetail(data),
			Remediation: remediationFor(resp.StatusCode),
			RequestID:   requestID,
		}
	}

	if r.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return &APIError{
			Type:        ErrorDecode,
			Method:      r.method,
			Path:        r.path,
			Message:     "Failed to parse backend response",
			Detail:      err.Error(),
			Remediation: "The backend may be a different version than this client",
			RequestID:   requestID,
			Err:         err,
		}
	}
	return nil
}

const maxDetailRunes = 200

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// parseDetail extracts FastAPI's "detail": a string, or a list of
// validation problems {loc, msg}.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return truncate(strings.TrimSpace(string(body)), maxDetailRunes)
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var problems []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &problems); err == nil && len(problems) > 0 {
		parts := make([]string, 0, len(problems))
		for _, p := range problems {
			if len(p.Loc) > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", p.Loc[len(p.Loc)-1], p.Msg))
			} else {
				parts = append(parts, p.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return string(envelope.Detail)
}

func remediationFor(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "Check that the record or catalog entry still exists"
	case status == http.StatusConflict:
		return "An entry with the same keys already exists"
	case status == http.StatusUnprocessableEntity:
		return "The backend rejected the payload; check field types"
	case status >= 500:
		return "Check the backend logs"
	default:
		return ""
	}
}

// check runs struct validation and converts failures to ErrorValidation.
func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return NewValidationError("invalid request: %v", err)
	}
	return nil
}
