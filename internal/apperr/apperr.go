// Package apperr defines the closed set of failure kinds the API can report.
// Data access code wraps every failure in an *Error; the HTTP layer maps the Kind
// to a status code in exactly one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	Storage      Kind = iota // connection, query, or transaction failure
	Validation               // a required field is missing or malformed
	Conflict                 // the write collides with existing rows (duplicate username, FK in use)
	Unauthorized             // bad credentials or token
	NotFound                 // the addressed row does not exist
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	default:
		return "storage"
	}
}

// Status is the HTTP status code for the kind.
// Conflict maps to 400, not 409: the web client treats "Username exists" as a bad request.
func (k Kind) Status() int {
	switch k {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients; Err is the
// underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Invalid(msg string) *Error { return New(Validation, msg) }

func Missing(msg string) *Error { return New(NotFound, msg) }

// StorageErr wraps a database failure under a generic client-facing message.
func StorageErr(err error) *Error { return Wrap(Storage, "Database error", err) }

// KindOf returns the Kind of err, or Storage when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Storage
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
