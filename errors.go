// Package restfire is a Go client library for hierarchical JSON data stores
// exposing a REST + Server-Sent Events API.
package restfire

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied indicates a 401 / 403 response, or a stream cancelled
	// because the credential can no longer read the location.
	ErrAccessDenied = errors.New("restfire: access denied")

	// ErrCredentialExpired indicates the credential was revoked or expired while streaming.
	ErrCredentialExpired = errors.New("restfire: credential expired")

	// ErrUnexpectedStatus indicates any other non-successful status code.
	ErrUnexpectedStatus = errors.New("restfire: unexpected status code")

	// ErrDeserialization indicates a body or event payload that does not match the requested type.
	ErrDeserialization = errors.New("restfire: deserialization failed")

	// ErrInvalidArgument indicates an invalid path or parameter.
	ErrInvalidArgument = errors.New("restfire: invalid argument")

	// ErrAlreadyActive is returned by StartListening while a session is running.
	ErrAlreadyActive = errors.New("restfire: listener already active")

	// ErrNotActive is returned by StopListening while no session is running.
	ErrNotActive = errors.New("restfire: listener not active")

	// ErrFilterAlreadySet is returned when a query filter is set twice without Clear.
	ErrFilterAlreadySet = errors.New("restfire: query filter already set")

	// ErrStreamRequestFailed indicates a transport-level failure of an event stream.
	ErrStreamRequestFailed = errors.New("restfire: stream request failed")

	// ErrRequestFailed indicates a transport-level failure of a single request.
	ErrRequestFailed = errors.New("restfire: request failed")

	// ErrDatabaseClosed is returned for operations issued after Database.Close.
	ErrDatabaseClosed = errors.New("restfire: database closed")
)

// Error is the failure delivered through futures and listeners.
// errors.Is(err, Kind) holds for its Kind, and errors.Is / errors.As also see the Cause.
type Error struct {
	Kind       error
	URL        string
	StatusCode int    // zero when no response was received
	Body       string // response body or event payload, may be empty
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if len(e.URL) > 0 {
		msg += fmt.Sprintf(" (url: %s)", e.URL)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status: %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is ...
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind error, url string, statusCode int, body string, cause error) *Error {
	return &Error{
		Kind:       kind,
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
		Cause:      cause,
	}
}
