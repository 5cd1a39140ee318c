package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrMissingEnv is returned by fail-fast constructors when a required
	// environment variable is absent.
	ErrMissingEnv = errors.New("missing environment variable")

	// ErrService is the base error for provider backend failures.
	ErrService = errors.New("service error")

	// ErrAuth indicates the provider rejected the credential (401/403).
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)

	// ErrRateLimited indicates the provider throttled the request (429).
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrService)

	// ErrInvalidRequest indicates the provider rejected the request body (400, 404, 422).
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrInvalidResponse indicates the provider answered 2xx with a body that could not be used.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)
)

// MissingEnvError names the variable a fail-fast constructor could not find.
func MissingEnvError(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingEnv, name)
}

// ServiceError carries the HTTP status and provider message of a failed call.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether the status is a transient one (429, 5xx except 501, 529).
func (e *ServiceError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	}
	return false
}

// errorEnvelope matches both the OpenAI/Azure shape {"error":{"message","type","code"}}
// and the Anthropic shape {"type":"error","error":{"type","message"}}.
type errorEnvelope struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// NewServiceError builds a ServiceError from a non-2xx status and its raw body.
// The provider's own error message is extracted when the body is JSON.
func NewServiceError(statusCode int, body string) *ServiceError {
	serviceErr := &ServiceError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(body),
		Err:        categoryFor(statusCode),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Error.Message != "" {
		serviceErr.Message = envelope.Error.Message
		serviceErr.Code = envelope.Error.Type
		if code := strings.Trim(string(envelope.Error.Code), `"`); code != "" && code != "null" {
			serviceErr.Code = code
		}
	}

	return serviceErr
}

func categoryFor(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrAuth
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode == http.StatusBadRequest || statusCode == http.StatusNotFound || statusCode == http.StatusUnprocessableEntity:
		return ErrInvalidRequest
	default:
		return ErrService
	}
}
