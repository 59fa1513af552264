// Package quark provides an HTTP client for the Quark drive REST API
// with envelope classification, task polling, and error taxonomy.
package quark

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for API failure classification.
// Use errors.Is(err, quark.ErrCapacityExceeded) to check.
var (
	// ErrTransport marks timeouts, connection failures, and responses
	// whose body could not be parsed as a service envelope.
	ErrTransport = errors.New("quark: transport failure")

	// ErrShareAccessDenied is returned when the share-token exchange
	// yields an empty capability token (wrong passcode or dead link).
	ErrShareAccessDenied = errors.New("quark: share access denied")

	// ErrCapacityExceeded means the drive is full. Never retried: a
	// partially completed save may already occupy space.
	ErrCapacityExceeded = errors.New("quark: drive capacity exceeded")

	// ErrDestinationMissing means the destination folder no longer exists.
	ErrDestinationMissing = errors.New("quark: destination folder missing")

	// ErrNameConflict is returned on folder-name collision.
	ErrNameConflict = errors.New("quark: folder name conflict")

	// ErrTaskTimeout means the poll budget was exhausted without a
	// terminal status. The remote task may still complete out of band.
	ErrTaskTimeout = errors.New("quark: task poll budget exhausted")

	// ErrLoginRequired means the session cookie is empty or stale.
	ErrLoginRequired = errors.New("quark: login required")
)

// Application error codes carried in service envelopes.
const (
	codeOK             = 0
	codeNameConflict   = 23008
	codeCapacityLimit  = 32003
	codeMissingDestDir = 41013
)

// APIError wraps a sentinel error with the application code and the
// server's message for debugging.
type APIError struct {
	Code    int
	Message string
	Err     error // sentinel, for errors.Is(); may be nil
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quark: API error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyCode maps an application error code to a sentinel error.
// Returns nil for codes with no dedicated sentinel.
func classifyCode(code int, message string) error {
	switch code {
	case codeCapacityLimit:
		if strings.Contains(message, "capacity limit") {
			return ErrCapacityExceeded
		}

		return nil
	case codeMissingDestDir:
		return ErrDestinationMissing
	case codeNameConflict:
		return ErrNameConflict
	default:
		return nil
	}
}

// apiError builds an APIError with its sentinel already classified.
func apiError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message, Err: classifyCode(code, message)}
}
