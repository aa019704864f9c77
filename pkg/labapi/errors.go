// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package labapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes backend call failures for programmatic handling.
type ErrorType int

const (
	// ErrorConnection indicates the backend was not reachable.
	ErrorConnection ErrorType = iota

	// ErrorStatus indicates a non-2xx HTTP response.
	ErrorStatus

	// ErrorValidation indicates a local check failed before any request.
	ErrorValidation

	// ErrorDecode indicates the backend returned unexpected data.
	ErrorDecode

	// ErrorCancelled indicates the caller's context ended first.
	ErrorCancelled
)

// String returns the error type as a string for logging.
func (t ErrorType) String() string {
	switch t {
	case ErrorConnection:
		return "CONNECTION_FAILED"
	case ErrorStatus:
		return "HTTP_STATUS"
	case ErrorValidation:
		return "VALIDATION"
	case ErrorDecode:
		return "INVALID_RESPONSE"
	case ErrorCancelled:
		return "CONTEXT_CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// APIError provides structured error information for backend calls.
type APIError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType

	// Method and Path identify the failed request.
	Method string
	Path   string

	// StatusCode is the HTTP status for ErrorStatus, 0 otherwise.
	StatusCode int

	// Message is a human-readable error description.
	Message string

	// Detail is the backend's "detail" text, or the underlying error.
	Detail string

	// Remediation suggests how to fix the issue.
	Remediation string

	// RequestID is the X-Request-ID sent with the request.
	RequestID string

	// Err is the underlying transport or decode error, if any.
	Err error
}

// Error returns the user-facing message: HTTP status plus the backend detail.
func (e *APIError) Error() string {
	switch {
	case e.Type == ErrorStatus && e.Detail != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
	case e.Type == ErrorStatus:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	case e.Detail != "" && e.Message != "":
		return e.Message + ": " + e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Detail
	}
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// FullError returns a detailed message including the request and remediation.
func (e *APIError) FullError() string {
	var buf bytes.Buffer
	buf.WriteString(e.Error())
	if e.Method != "" {
		fmt.Fprintf(&buf, " (%s %s)", e.Method, e.Path)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&buf, "\nRequest ID: %s", e.RequestID)
	}
	if e.Remediation != "" {
		buf.WriteString("\n\nTo fix:\n")
		buf.WriteString(e.Remediation)
	}
	return buf.String()
}

// NewValidationError reports a local input problem without contacting the
// backend.
func NewValidationError(format string, args ...any) *APIError {
	return &APIError{
		Type:    ErrorValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Type == ErrorStatus {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsConflict reports whether err is an HTTP 409 from the backend.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsType reports whether err is an APIError of type t.
func IsType(err error, t ErrorType) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == t
}
