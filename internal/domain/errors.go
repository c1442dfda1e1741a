// Package domain holds the error taxonomy shared by the storefront core.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for propagation and HTTP mapping.
type ErrorKind string

const (
	// KindTransport covers network failures and timeouts talking to the AI
	// service or the catalog.
	KindTransport ErrorKind = "transport"
	// KindParse covers AI replies that are not valid or expected JSON.
	KindParse ErrorKind = "parse"
	// KindValidation covers requests that violate a precondition.
	KindValidation ErrorKind = "validation"
	// KindUpstream covers AI replies that omit required fields.
	KindUpstream ErrorKind = "upstream"
)

// Error is a classified failure with optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func TransportFailure(message string, err error) *Error {
	return NewError(KindTransport, message, err)
}

func ParseFailure(message string, err error) *Error {
	return NewError(KindParse, message, err)
}

func ValidationError(message string, err error) *Error {
	return NewError(KindValidation, message, err)
}

func UpstreamError(message string, err error) *Error {
	return NewError(KindUpstream, message, err)
}

// IsKind reports whether err, or anything it wraps, is a *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// UserMessage returns the message meant for end users: the Message of the
// first *Error in the chain, or a generic text.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
