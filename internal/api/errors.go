package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	ErrInvalidID   = "invalid_id"
	ErrInvalidCode = "invalid_code"
)

// ErrTimeout matches (via errors.Is) a NetworkError caused by the request
// timeout.
var ErrTimeout = errors.New("request_timeout")

// ValidationError is returned before any request is sent.
type ValidationError struct {
	Code  string
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Field)
}

// NetworkError means the request did not complete.
type NetworkError struct {
	Method  string
	Path    string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, ErrTimeout)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrTimeout && e.Timeout
}

// Error is a non-2xx answer from the backend. Message holds the backend's
// structured error text when it sent one.
type Error struct {
	Status  int
	Message string
	Body    []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend status %d", e.Status)
}

// Unauthorized reports a 401 or 403, which the client treats as
// authoritative regardless of what the role policy predicted.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func (e *Error) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Message returns the backend's structured error message when err carries
// one, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401/403 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

func newError(status int, body []byte) *Error {
	return &Error{Status: status, Message: structuredMessage(body), Body: body}
}

// structuredMessage pulls "error" and then "message" out of a JSON object
// body. Plain text bodies are not structured and yield "".
func structuredMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := rawString(payload.Error); msg != "" {
		return msg
	}
	return rawString(payload.Message)
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
