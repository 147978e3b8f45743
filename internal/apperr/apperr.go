package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidTransition
	KindConflict
	KindUnsupportedMaterial
	KindSelfMessage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindUnsupportedMaterial:
		return "unsupported_material"
	case KindSelfMessage:
		return "self_message"
	default:
		return "internal"
	}
}

// Error is the domain error returned by every operation. Message is safe to
// show to the caller; Err carries the underlying cause for logs.
type Error struct {
	Kind               Kind
	Message            string
	SupportedMaterials []string
	Err                error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound names the missing thing, e.g. NotFound("model").
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func UnsupportedMaterial(material string, supported []string) *Error {
	return &Error{
		Kind:               KindUnsupportedMaterial,
		Message:            fmt.Sprintf("maker does not support material %s", material),
		SupportedMaterials: append([]string(nil), supported...),
	}
}

func SelfMessage() *Error {
	return &Error{Kind: KindSelfMessage, Message: "cannot send message to yourself"}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
