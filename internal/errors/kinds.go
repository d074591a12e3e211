package errors

import (
	"context"
	stderrors "errors"
)

// Kind classifies a domain error for the caller.
type Kind int

const (
	// KindUnexpected is any failure that is not a domain error. Its detail
	// never reaches the caller.
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unexpected"
	}
}

// Error is a domain error whose message is safe to show to the end user.
// Code overrides the response code derived from Kind when set.
type Error struct {
	Kind    Kind
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidation reports caller input that violates a precondition.
func NewValidation(message string) *Error { return newError(KindValidation, message) }

// NewNotFound reports a referenced entity that does not exist.
func NewNotFound(message string) *Error { return newError(KindNotFound, message) }

// NewConflict reports a uniqueness or cardinality violation.
func NewConflict(message string) *Error { return newError(KindConflict, message) }

// NewAlreadyExists reports an entity whose unique identity is taken.
func NewAlreadyExists(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Code: ErrCodeAlreadyExists}
}

// NewInvalidCredentials reports a failed credential check.
func NewInvalidCredentials(message string) *Error { return newError(KindUnauthorized, message) }

// NewPolicyDenied reports an authenticated caller whose role is not allowed.
func NewPolicyDenied(message string) *Error { return newError(KindForbidden, message) }

// NewUnavailable reports a dependency that could not be reached in time.
func NewUnavailable(message string) *Error { return newError(KindUnavailable, message) }

// KindOf returns the Kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnexpected
	}
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Kind
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	return KindUnexpected
}

// MessageOf returns the user-facing message of the first domain error in
// err's chain, or "" if there is none.
func MessageOf(err error) string {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// CodeOf returns the response code override of the first domain error in
// err's chain, or "" if there is none.
func CodeOf(err error) string {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
