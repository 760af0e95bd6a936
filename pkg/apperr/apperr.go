// Package apperr defines the error kinds surfaced by the client core.
//
// Every failure the core reports is one of these types, so callers can branch
// with errors.As instead of matching on messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteSession is returned when a login is attempted without both an
// identity and a token.
var ErrIncompleteSession = errors.New("session requires both user and token")

// GenericRemoteMessage is used when the remote service gives no reason.
const GenericRemoteMessage = "The prediction service could not complete the request. Please try again."

// FieldError describes one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is raised for client-detected bad input. It never reaches the network.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has reports whether field is among the offending fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no field was reported.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// TransportError means no response was received (dial failure, timeout, cancellation).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteServiceError is a non-success or unreadable response from the remote service.
type RemoteServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = GenericRemoteMessage
	}
	if e.Status == 0 {
		return msg
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, msg)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// UserMessage is the text shown in the inline error banner.
func (e *RemoteServiceError) UserMessage() string {
	if e.Message == "" {
		return GenericRemoteMessage
	}
	return e.Message
}

// PersistenceError is a local storage failure. It degrades durability only.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DataIntegrityWarning records a server payload that contradicted itself and
// was corrected locally. It is attached to results, not returned as a failure.
type DataIntegrityWarning struct {
	Field     string  `json:"field"`
	Reported  string  `json:"reported"`
	Corrected string  `json:"corrected"`
	Score     float64 `json:"score"`
}

func (w *DataIntegrityWarning) Error() string {
	return fmt.Sprintf("server reported %s %q for score %.2f, corrected to %q", w.Field, w.Reported, w.Score, w.Corrected)
}
