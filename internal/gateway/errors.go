package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds matched with errors.Is against an *Error.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
)

// Error is the uniform failure result of a gateway call. Status is the HTTP
// status of the remote response, or 0 when no response was received.
type Error struct {
	Status  int
	Message string
	Err     error
}

// NewError builds an *Error with the given status and message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// NotFound builds a 404 error for the named resource, e.g. "Estimation not found".
func NotFound(resource string) *Error {
	return NewError(http.StatusNotFound, resource+" not found")
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Status != 0:
		return http.StatusText(e.Status)
	default:
		return "gateway error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps status codes onto the sentinel kinds.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// Message returns the remote-provided message carried by err, or fallback
// when err carries none.
func Message(err error, fallback string) string {
	var ge *Error
	if errors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	return fallback
}

// Normalize turns any error into an *Error whose Message is the remote message
// or fallback. A nil err stays nil.
func Normalize(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		if ge.Message != "" {
			return ge
		}
		return &Error{Status: ge.Status, Message: fallback, Err: ge.Err}
	}
	return &Error{Message: fallback, Err: err}
}
