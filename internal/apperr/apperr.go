// Package apperr classifies errors returned by the order core so the HTTP
// layer can translate them without knowing every sentinel.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindSystem Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindIntegrity:
		return "integrity"
	default:
		return "system"
	}
}

// Error carries a Kind and an optional cause. Op names the failing
// operation, e.g. "orders.Create".
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by identity first, then by Kind+Msg so a sentinel
// re-created with extra context (Op, Err) still matches errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.Kind == t.Kind && e.Msg == t.Msg && t.Op == "" && t.Err == nil)
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Wrap attaches op and cause to a sentinel without losing its identity.
func Wrap(sentinel *Error, op string, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Op: op, Msg: sentinel.Msg, Err: cause}
}

func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(op, format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func System(op string, err error) *Error {
	return &Error{Kind: KindSystem, Op: op, Msg: "internal error", Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// KindSystem for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns a client-safe message: the Msg of a classified error,
// or a generic text for system failures.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindSystem {
		return e.Msg
	}
	return "internal error"
}
