package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidQuantity      Kind = "invalid_quantity"
	KindInvalidDiscount      Kind = "invalid_discount"
	KindInvalidTransition    Kind = "invalid_transition"
	KindInvalidInput         Kind = "invalid_input"
	KindForbidden            Kind = "forbidden"
	KindUnauthorized         Kind = "unauthorized"
	KindPaymentProviderError Kind = "payment_provider_error"
	KindInvalidSignature     Kind = "invalid_signature"
	KindConflict             Kind = "conflict"
	KindInternal             Kind = "internal_error"
)

// Error is a domain error carrying a Kind that callers branch on.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidQuantity   = &Error{Kind: KindInvalidQuantity, Message: "invalid quantity"}
	ErrInvalidDiscount   = &Error{Kind: KindInvalidDiscount, Message: "invalid discount"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrPaymentProvider   = &Error{Kind: KindPaymentProviderError, Message: "payment provider error"}
	ErrInvalidSignature  = &Error{Kind: KindInvalidSignature, Message: "invalid signature"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
)

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) error          { return New(KindNotFound, msg) }
func InvalidQuantity(msg string) error   { return New(KindInvalidQuantity, msg) }
func InvalidDiscount(msg string) error   { return New(KindInvalidDiscount, msg) }
func InvalidTransition(msg string) error { return New(KindInvalidTransition, msg) }
func InvalidInput(msg string) error      { return New(KindInvalidInput, msg) }
func Forbidden(msg string) error         { return New(KindForbidden, msg) }

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message for err. Internal errors are not echoed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidQuantity, KindInvalidDiscount, KindInvalidInput, KindInvalidSignature:
		return http.StatusBadRequest
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPaymentProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
