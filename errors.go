package finora

import (
	"errors"
	"fmt"
	"time"
)

// Error type constants used in ClientError.Type.
const (
	ErrorTypeNetwork    = "Network"
	ErrorTypeTimeout    = "Timeout"
	ErrorTypeAPI        = "API"
	ErrorTypeValidation = "Validation"
)

// Retryable HTTP status codes. 408/429 are transient client conditions, the
// 5xx subset covers overloaded or briefly unavailable backends.
var retryableStatusCodes = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// ClientError is the single error type surfaced by the client. Type
// distinguishes network failures, timeouts, API errors and configuration
// problems so callers work against a small stable vocabulary.
type ClientError struct {
	Type      string
	Message   string
	Cause     error
	RequestID string

	Method     string
	URL        string
	StatusCode int

	// Timeout carries the configured request timeout for ErrorTypeTimeout.
	Timeout time.Duration

	// Payload holds the decoded structured error body for ErrorTypeAPI.
	Payload map[string]any

	Attempt     int
	MaxAttempts int
	Timestamp   time.Time
	Duration    time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxAttempts)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// newAPIError builds an ErrorTypeAPI error from a failed HTTP response. The
// message prefers the payload's "error" field, then "message", then a generic
// status line.
func newAPIError(statusCode int, url string, payload map[string]any) *ClientError {
	message := fmt.Sprintf("request failed with status %d", statusCode)
	if payload != nil {
		if v, ok := payload["error"].(string); ok && v != "" {
			message = v
		} else if v, ok := payload["message"].(string); ok && v != "" {
			message = v
		}
	}
	return &ClientError{
		Type:       ErrorTypeAPI,
		Message:    message,
		URL:        url,
		StatusCode: statusCode,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}

// newTimeoutError builds an ErrorTypeTimeout error carrying the configured
// request timeout.
func newTimeoutError(url string, timeout time.Duration, cause error) *ClientError {
	return &ClientError{
		Type:      ErrorTypeTimeout,
		Message:   fmt.Sprintf("request timed out after %v", timeout),
		Cause:     cause,
		URL:       url,
		Timeout:   timeout,
		Timestamp: time.Now(),
	}
}

// newNetworkError builds an ErrorTypeNetwork error.
func newNetworkError(url string, cause error) *ClientError {
	return &ClientError{
		Type:      ErrorTypeNetwork,
		Message:   "network request failed",
		Cause:     cause,
		URL:       url,
		Timestamp: time.Now(),
	}
}

// IsRetryable reports whether an error represents a transient failure that
// might succeed on retry. Network errors, timeouts and the retryable HTTP
// status subset qualify; everything else aborts immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeNetwork, ErrorTypeTimeout:
			return true
		case ErrorTypeAPI:
			return retryableStatusCodes[clientErr.StatusCode]
		default:
			return false
		}
	}

	return false
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrorTypeTimeout
}

// IsAPIError returns the ClientError when err is an API error, nil otherwise.
func IsAPIError(err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrorTypeAPI {
		return clientErr
	}
	return nil
}
