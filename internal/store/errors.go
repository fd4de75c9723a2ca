package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the record does not exist or is not visible
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned when the store rejects a payload or query
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when the store refuses the credentials in use
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable covers transport failures, 5xx responses and an open breaker
	ErrUnavailable = errors.New("store unavailable")
	// ErrAuthentication is the class of every *AuthError
	ErrAuthentication = errors.New("store authentication failed")
)

// FieldError is the per-field validation detail the store attaches to 400 responses
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the store
type APIError struct {
	Status  int
	Message string
	Data    map[string]FieldError
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("store responded %d: %s", e.Status, e.Message)
}

// Is maps the HTTP status onto the package sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidInput:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
	}
	return false
}

// FieldMessages flattens the validation detail into field -> message
func (e *APIError) FieldMessages() map[string]string {
	if len(e.Data) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Data))
	for field, fe := range e.Data {
		out[field] = fe.Message
	}
	return out
}

// decodeAPIError builds an APIError from a response body. Both the current
// ("status") and the older ("code") envelope keys are understood.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var envelope struct {
		Status  int                        `json:"status"`
		Code    int                        `json:"code"`
		Message string                     `json:"message"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiErr
	}
	if envelope.Message != "" {
		apiErr.Message = envelope.Message
	}
	for field, raw := range envelope.Data {
		var fe FieldError
		if err := json.Unmarshal(raw, &fe); err != nil || fe.Message == "" {
			continue
		}
		if apiErr.Data == nil {
			apiErr.Data = make(map[string]FieldError)
		}
		apiErr.Data[field] = fe
	}
	return apiErr
}

// AuthError reports a failed explicit authentication
type AuthError struct {
	Collection string
	Identity   string
	Err        error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticating %q against %q: %v", e.Identity, e.Collection, e.Err)
}

// Unwrap exposes the underlying cause
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is makes every AuthError match ErrAuthentication
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthentication
}

// countsAsFailure reports whether err indicates the store itself is unhealthy.
// Not-found and validation responses are normal outcomes for the breaker.
func countsAsFailure(err error) bool {
	return err != nil && errors.Is(err, ErrUnavailable)
}
