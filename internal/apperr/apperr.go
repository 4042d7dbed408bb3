// Package apperr defines the error taxonomy surfaced to API clients and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindDuplicateIdentity    Kind = "DuplicateIdentity"
	KindAuthentication       Kind = "AuthenticationError"
	KindAuthorization        Kind = "AuthorizationError"
	KindAlreadyAuthenticated Kind = "AlreadyAuthenticatedError"
	KindNotFound             Kind = "NotFound"
	KindInvalidMediaType     Kind = "InvalidMediaType"
	KindExternalService      Kind = "ExternalServiceError"
	KindPersistence          Kind = "PersistenceError"
	KindInternal             Kind = "InternalError"
)

// FieldError is a single field-scoped problem. Path is the request field
// name ("email", "file", ...).
type FieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
	Kind Kind   `json:"kind,omitempty"`
}

// Error is an application error with a client-facing kind and message.
type Error struct {
	Kind    Kind
	Message string
	// Field is set when the whole error is scoped to one request field.
	Field string
	// Fields carries aggregated field errors for validation failures.
	Fields []FieldError
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind, so errors.Is(err, &Error{Kind: KindNotFound}) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// New returns an Error of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of kind with message and an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Unauthenticated(msg string) *Error { return New(KindAuthentication, msg) }
func Forbidden(msg string) *Error       { return New(KindAuthorization, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }

// Persistence wraps a database failure.
func Persistence(msg string, cause error) *Error {
	return Wrap(KindPersistence, msg, cause)
}

// External wraps a remote store failure and scopes it to a request field.
func External(field, msg string, cause error) *Error {
	return &Error{Kind: KindExternalService, Message: msg, Field: field, Cause: cause}
}

// Sentinel values for errors.Is checks.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrDuplicateIdentity    = &Error{Kind: KindDuplicateIdentity}
	ErrAuthentication       = &Error{Kind: KindAuthentication}
	ErrAuthorization        = &Error{Kind: KindAuthorization}
	ErrAlreadyAuthenticated = &Error{Kind: KindAlreadyAuthenticated}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidMediaType     = &Error{Kind: KindInvalidMediaType}
	ErrExternalService      = &Error{Kind: KindExternalService}
	ErrPersistence          = &Error{Kind: KindPersistence}
)

// KindOf returns the Kind of err, or KindInternal if err is not an
// *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDuplicateIdentity, KindInvalidMediaType:
		return http.StatusUnprocessableEntity
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization, KindAlreadyAuthenticated:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// List collects field errors for one request. Validators and media
// stages append to the same List so that every problem is reported
// together instead of the first one short-circuiting the rest.
type List struct {
	fields []FieldError
}

// Add records a field error.
func (l *List) Add(path, msg string) {
	l.fields = append(l.fields, FieldError{Path: path, Msg: msg})
}

// AddError records err against path. Errors of kind DuplicateIdentity,
// InvalidMediaType and ExternalService keep their kind; anything else is
// recorded with its message only.
func (l *List) AddError(path string, err error) {
	fe := FieldError{Path: path, Msg: err.Error()}
	var ae *Error
	if errors.As(err, &ae) {
		fe.Msg = ae.Message
		fe.Kind = ae.Kind
		if ae.Field != "" {
			fe.Path = ae.Field
		}
	}
	l.fields = append(l.fields, fe)
}

// Has reports whether a field error for path was recorded.
func (l *List) Has(path string) bool {
	for _, f := range l.fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Len returns the number of recorded field errors.
func (l *List) Len() int { return len(l.fields) }

// Fields returns a copy of the recorded field errors.
func (l *List) Fields() []FieldError {
	out := make([]FieldError, len(l.fields))
	copy(out, l.fields)
	return out
}

// Err returns nil if the list is empty. Otherwise it returns a single
// Error carrying every field error. The kind is DuplicateIdentity when
// every recorded problem is an identity collision, and ValidationError
// otherwise.
func (l *List) Err(message string) error {
	if len(l.fields) == 0 {
		return nil
	}
	kind := KindDuplicateIdentity
	for _, f := range l.fields {
		if f.Kind != KindDuplicateIdentity {
			kind = KindValidation
			break
		}
	}
	return &Error{Kind: kind, Message: message, Fields: l.Fields()}
}
