package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

// Kind classifies an error for clients. Its value is the wire "type".
type Kind string

const (
	KindAuthentication Kind = "AuthenticationError"
	KindValidation     Kind = "ValidationError"
	KindNotFound       Kind = "NotFoundError"
	KindConflict       Kind = "ConflictError"
	KindSelfTarget     Kind = "SelfTargetError"
	KindForbidden      Kind = "ForbiddenError"
	// KindUnavailable marks transient backend failures. They are reported, not retried.
	KindUnavailable Kind = "UnavailableError"
)

// Error is a classified domain error.
type Error struct {
	Kind       Kind
	Message    string
	Resolution string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail is the client-facing description of an error.
type Detail struct {
	Type       string
	Message    string
	Resolution string
}

// details holds the default message and resolution per kind. Every path that reports
// an error to a client (handshake refusal or in-session error event) goes through it.
var details = map[Kind]Detail{
	KindAuthentication: {
		Message:    "Authentication failed.",
		Resolution: "Please ensure your token is valid and connect again.",
	},
	KindValidation: {
		Message:    "The request is invalid.",
		Resolution: "Check the required fields and their format.",
	},
	KindNotFound: {
		Message:    "The referenced entity does not exist.",
		Resolution: "Ensure the identifier is correct and the entity exists.",
	},
	KindConflict: {
		Message:    "Conflict detected.",
		Resolution: "Please ensure your token is valid and connect again.",
	},
	KindSelfTarget: {
		Message:    "You cannot create a private room with yourself.",
		Resolution: "Please select a different user to chat with.",
	},
	KindForbidden: {
		Message:    "You are not a participant of this room.",
		Resolution: "Join the room before reading it.",
	},
	KindUnavailable: {
		Message:    "The service is temporarily unavailable.",
		Resolution: "Try again later.",
	},
}

func newError(kind Kind, msg string, err error) *Error {
	e := &Error{Kind: kind, Message: msg, Err: err}
	if e.Message == "" {
		e.Message = details[kind].Message
	}
	return e
}

// WithResolution overrides the default resolution of e.
func (e *Error) WithResolution(resolution string) *Error {
	e.Resolution = resolution
	return e
}

// KindOf returns the kind of err. Unclassified errors are KindUnavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnavailable
}

// Describe maps any error to its client-facing detail.
func Describe(err error) Detail {
	var e *Error
	if !errors.As(err, &e) {
		e = newError(KindUnavailable, "", err)
	}

	d := details[e.Kind]
	d.Type = string(e.Kind)
	if e.Message != "" {
		d.Message = e.Message
	}
	if e.Resolution != "" {
		d.Resolution = e.Resolution
	}
	return d
}

// FromStore classifies a storage or session error. notFound is the message used
// when the referenced entity is absent.
func FromStore(err error, notFound string) *Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, notFound, err)
	case errors.Is(err, store.ErrInvalidID):
		return newError(KindValidation, "Invalid object id.", err)
	case errors.Is(err, store.ErrConflict):
		return newError(KindConflict, "", err)
	case errors.Is(err, session.ErrNoSession):
		return newError(KindAuthentication, "Authentication required.", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindUnavailable, "The storage backend timed out.", err)
	default:
		return newError(KindUnavailable, "", err)
	}
}

// ErrRateLimited is reported when a connection sends faster than its budget allows.
var ErrRateLimited = &Error{
	Kind:       KindValidation,
	Message:    "Rate limit exceeded.",
	Resolution: "Slow down and retry shortly.",
}

// NewError classifies err as kind. An empty msg selects the default message of kind.
func NewError(kind Kind, msg string, err error) *Error {
	return newError(kind, msg, err)
}
