// Package apperr carries transport-agnostic failure kinds from the service
// layer to the HTTP routes and bot handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindEmptyCart Kind = "empty_cart"
	KindInvalid   Kind = "invalid"
	KindConflict  Kind = "conflict"
	KindInternal  Kind = "internal"
)

// Error is returned by the cart and order services.
// Message is safe to show to end users; Err is kept for logging.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(op string, kind Kind, msg string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

func NotFound(op, msg string, err error) *Error { return New(op, KindNotFound, msg, err) }
func Invalid(op, msg string, err error) *Error  { return New(op, KindInvalid, msg, err) }
func Internal(op, msg string, err error) *Error { return New(op, KindInternal, msg, err) }

// KindOf reports the kind of the first *Error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message, or fallback for foreign errors.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
