package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrValidation is returned before any network call when a required field is
// empty.
var ErrValidation = errors.New("validation failed")

// Required reports a missing field as a validation error.
func Required(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}

// Error is an application error: the backend answered with a non-2xx status.
// Detail carries the backend's {"detail": ...} message when present.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Message returns the text meant for the user.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.Status)
}

// IsStatus reports whether err is an *Error carrying the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// UserMessage extracts a user-facing message from any error this package
// produces, falling back to fallback for transport failures.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message()
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return fallback
	}
}

const maxErrorBody = 64 << 10

// decodeError builds an *Error from a failed response. FastAPI replies with
// {"detail": "..."}; other stacks use {"error": "..."}; anything else is kept
// as trimmed text.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.Path = resp.Request.URL.Path
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Detail = strings.TrimSpace(string(raw))
		return apiErr
	}

	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil {
		apiErr.Detail = detail
	} else if len(payload.Detail) > 0 {
		// FastAPI validation errors put a list of objects in detail.
		apiErr.Detail = string(payload.Detail)
	} else {
		apiErr.Detail = payload.Error
	}
	return apiErr
}
