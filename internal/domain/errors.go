package domain

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")
)

// Session errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password") // login rejected
	ErrNoSession          = errors.New("no active session")
	ErrNoCredential       = errors.New("no access credential")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Detail string
	// Fields holds per-field messages, e.g. {"username": ["already taken"]}.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("backend returned ")
	b.WriteString(http.StatusText(e.Status))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString("; ")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(strings.Join(e.Fields[name], ", "))
		}
	}
	return b.String()
}

// Unwrap maps the status code onto the package sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return ErrInvalidInput
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// FieldErrors flattens Fields into ValidationErrors, ordered by field name.
func (e *APIError) FieldErrors() []ValidationError {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ValidationError, 0, len(names))
	for _, name := range names {
		out = append(out, ValidationError{Field: name, Message: strings.Join(e.Fields[name], " ")})
	}
	return out
}
