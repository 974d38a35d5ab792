package collector

import (
	"errors"
	"fmt"

	"GoldSentinel/internal/cache"
	"GoldSentinel/internal/model"
)

// errorDescriptions maps the upstream's embedded error codes.
var errorDescriptions = map[int]string{
	10001: "Invalid API key",
	10002: "Key has no request permission",
	10003: "API key expired",
	10004: "Unknown request source",
	10005: "Banned IP address",
	10006: "Banned API key",
	10007: "Request limit exceeded",
	10008: "API under maintenance",
}

// DescribeCode resolves an upstream error code to a readable description.
func DescribeCode(code int) string {
	if d, ok := errorDescriptions[code]; ok {
		return d
	}
	return fmt.Sprintf("Unknown error code: %d", code)
}

// APIError is a well-formed upstream response carrying a non-success code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, DescribeCode(e.Code))
}

// ErrorInfo converts the error into the display record.
func (e *APIError) ErrorInfo() model.ErrorInfo {
	return model.ErrorInfo{Code: e.Code, Description: DescribeCode(e.Code), Message: e.Message}
}

// TransportError is a network failure, timeout or non-200 status.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP error %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether a retry may succeed.
func (e *TransportError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == 429, e.StatusCode >= 500:
		return true
	}
	return false
}

// ErrInvalidRequest is returned before any call is made when the request
// parameters are out of range. It matches cache.ErrNotSent, so the call is
// not charged to quota.
var ErrInvalidRequest = fmt.Errorf("invalid request: %w", cache.ErrNotSent)

// ErrMalformedResponse marks a payload that decoded but failed validation.
var ErrMalformedResponse = errors.New("malformed response")
