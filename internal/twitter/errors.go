package twitter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Remote error classes. Match them with errors.Is.
var (
	ErrAlreadyDeleted = errors.New("tweet already deleted")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// REST v1.1 error codes the client reacts to.
const (
	CodeNoStatusFound     = 144
	CodeRateLimitExceeded = 88
	CodeBadAuthentication = 32
	CodeInvalidToken      = 89
)

// ErrorDetail is one entry of the API "errors" array.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int
	Details    []ErrorDetail
	ResetAt    time.Time // from x-rate-limit-reset, zero when absent
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("twitter api: status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("code %d: %s", d.Code, d.Message))
	}
	return fmt.Sprintf("twitter api: status %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// Is maps the response onto the sentinel error classes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAlreadyDeleted:
		return e.hasCode(CodeNoStatusFound) || e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests || e.hasCode(CodeRateLimitExceeded)
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized ||
			e.hasCode(CodeBadAuthentication) || e.hasCode(CodeInvalidToken)
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.hasCode(CodeRateLimitExceeded) ||
		e.StatusCode >= http.StatusInternalServerError
}

func (e *APIError) hasCode(code int) bool {
	for _, d := range e.Details {
		if d.Code == code {
			return true
		}
	}
	return false
}
