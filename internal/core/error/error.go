package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and user-messaging decisions.
type Kind string

const (
	KindRateLimited     Kind = "rate_limited"
	KindConnection      Kind = "connection"
	KindTimeout         Kind = "timeout"
	KindAuthentication  Kind = "authentication"
	KindUpstream        Kind = "upstream"
	KindUnknown         Kind = "unknown"
	KindMalformedOutput Kind = "malformed_output"
	KindPersistence     Kind = "persistence"
	KindValidation      Kind = "validation"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "Sorry, something went wrong on our side. We are already looking into it."
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// DBErrorMessage describes SQL store failures.
	DBErrorMessage = "database operation failed"
)

type kindInfo struct {
	message     string
	userMessage string
	recoverable bool
}

var kinds = map[Kind]kindInfo{
	KindRateLimited: {
		message:     "oracle rate limit exceeded",
		userMessage: "The service is busy right now. Please wait a few seconds and try again.",
		recoverable: true,
	},
	KindConnection: {
		message:     "failed to connect to oracle",
		userMessage: "We could not reach the service. Please check your connection and try again.",
		recoverable: true,
	},
	KindTimeout: {
		message:     "oracle request timed out",
		userMessage: "The request took too long. Please try again.",
		recoverable: true,
	},
	KindAuthentication: {
		message:     "oracle authentication failed",
		userMessage: "The service is misconfigured. Please contact the operator.",
		recoverable: false,
	},
	KindUpstream: {
		message:     "oracle request failed",
		userMessage: "Something went wrong while processing your request. Please try again.",
		recoverable: true,
	},
	KindUnknown: {
		message:     "unexpected error",
		userMessage: SystemErrorMessage,
		recoverable: true,
	},
	KindMalformedOutput: {
		message:     "malformed oracle output",
		userMessage: SystemErrorMessage,
		recoverable: true,
	},
	KindPersistence: {
		message:     "persistence failure",
		userMessage: "Temporary problem saving data. Your message was processed.",
		recoverable: true,
	},
	KindValidation: {
		message:     "invalid input",
		userMessage: "Please write your question.",
		recoverable: true,
	},
}

// Error wraps an underlying error with its kind and a message safe to show users.
type Error struct {
	Kind        Kind
	Err         error
	Message     string
	UserMessage string
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind, filling messages from the taxonomy.
func New(kind Kind, err error) *Error {
	info, ok := kinds[kind]
	if !ok {
		kind = KindUnknown
		info = kinds[KindUnknown]
	}
	return &Error{
		Kind:        kind,
		Err:         err,
		Message:     info.message,
		UserMessage: info.userMessage,
		Recoverable: info.recoverable,
	}
}

// KindOf returns the kind of the first *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns a message that can be shown to the end user for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.UserMessage != "" {
		return e.UserMessage
	}
	return SystemErrorMessage
}

// IsRecoverable reports whether the conversation can continue after err.
// Errors outside the taxonomy are treated as recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return true
}

// WrapRedis wraps a Redis error as a persistence failure.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	e := New(KindPersistence, err)
	e.Message = RedisErrorMessage
	return e
}

// WrapDB wraps a SQL store error as a persistence failure.
func WrapDB(err error) error {
	if err == nil {
		return nil
	}
	e := New(KindPersistence, err)
	e.Message = DBErrorMessage
	return e
}
