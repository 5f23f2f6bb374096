package apperr

import (
	"errors"
	"net/http"
)

// Kind is a stable machine-readable error category. Every non-2xx
// response carries exactly one of these alongside a human message.
type Kind string

const (
	Unauthenticated   Kind = "unauthenticated"
	InvalidCredential Kind = "invalid_credential"
	Forbidden         Kind = "forbidden"
	NotFound          Kind = "not_found"
	InvalidArgument   Kind = "invalid_argument"
	Conflict          Kind = "conflict"
	PreconditionFail  Kind = "precondition_failed"
	Upstream          Kind = "upstream_failure"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err. Plain errors have no kind and
// surface as internal server errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is lets errors.Is match on kind: errors.Is(err, apperr.New(NotFound, "")).
func (e *Error) Is(target error) bool {
	var ae *Error
	if errors.As(target, &ae) {
		return e.Kind == ae.Kind
	}
	return false
}

// Status maps an error kind to its HTTP status. Token verification
// failures map to 403 to match the existing client contract.
func Status(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidCredential, Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case PreconditionFail:
		return http.StatusPreconditionFailed
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
