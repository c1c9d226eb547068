package entsoe

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpstreamFetch is returned when the transparency platform cannot be reached or
	// rejects the request after the retry budget is spent.
	ErrUpstreamFetch = errors.New("entsoe: upstream fetch failed")
	// ErrUnknownArea is returned for a country or zone code without an EIC mapping.
	ErrUnknownArea = errors.New("entsoe: unknown area")
	// ErrMissingToken is returned when the client is built without a security token.
	ErrMissingToken = errors.New("entsoe: missing security token")
	// ErrMalformedDocument is returned when a response cannot be decoded.
	ErrMalformedDocument = errors.New("entsoe: malformed document")
)

// APIError describes a non-success answer from the transparency platform, either an
// HTTP status or an acknowledgement document.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code != "" {
		return fmt.Sprintf("entsoe: http %d: reason %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("entsoe: http %d: %s", e.StatusCode, e.Message)
}

// Unwrap places API errors under ErrUpstreamFetch.
func (e *APIError) Unwrap() error {
	return ErrUpstreamFetch
}

// Temporary reports whether the request may succeed when repeated.
func (e *APIError) Temporary() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
