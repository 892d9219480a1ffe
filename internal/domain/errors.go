package domain

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to API callers.
type ErrorKind int

const (
	// KindInternal is an unexpected failure (HTTP 500).
	KindInternal ErrorKind = iota
	// KindValidation is malformed, missing, or oversized input (HTTP 400).
	KindValidation
	// KindNotFound means a referenced announcement does not exist (HTTP 404).
	KindNotFound
	// KindUnknownField means the request body carried fields outside the
	// allowed set (HTTP 400).
	KindUnknownField
)

// String returns the default error code for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindUnknownField:
		return "unknown_fields"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps the kind to its response status.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindUnknownField:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UnknownFieldsDetail lists the rejected body fields.
type UnknownFieldsDetail struct {
	Fields []string `json:"fields"`
}

// Error is the single error type crossing the service boundary. Kind selects
// the HTTP status; Code overrides the kind's default code when set (for
// example "missing_user_id"); Details carries structured context such as
// []FieldError or UnknownFieldsDetail.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.ErrCode())
}

// ErrCode returns the stable machine-readable code.
func (e *Error) ErrCode() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// HTTPStatus returns the response status for the error.
func (e *Error) HTTPStatus() int { return e.Kind.HTTPStatus() }

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnknownField = &Error{Kind: KindUnknownField}
	ErrInternal     = &Error{Kind: KindInternal}
)

// NotFound reports a missing resource by name.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Validation reports one or more invalid fields.
func Validation(details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Details: details}
}

// UnknownFields reports body fields outside the allowed set.
func UnknownFields(fields ...string) *Error {
	return &Error{Kind: KindUnknownField, Message: "Unknown fields", Details: UnknownFieldsDetail{Fields: fields}}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}
