package domain

import (
	"errors"
	"fmt"
)

// ProfileNotFound is the application error the backend returns for callers
// that never saved a profile.
const ProfileNotFound = "Profile not found"

// LoginRequired is shown when an action needs an authenticated session.
const LoginRequired = "Please log in first"

const genericFailureNotice = "An error occurred while contacting the backend"

type ErrorKind int

const (
	TransportFailure ErrorKind = iota
	ApplicationError
	Unauthenticated
	ValidationError
)

func (k ErrorKind) String() string {
	switch k {
	case TransportFailure:
		return "transport failure"
	case ApplicationError:
		return "application error"
	case Unauthenticated:
		return "unauthenticated"
	case ValidationError:
		return "validation error"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// CallError is the single error shape every backend interaction and form
// check reports to the views.
type CallError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Notice is the text shown to the user.
func (e *CallError) Notice() string {
	switch e.Kind {
	case TransportFailure:
		return genericFailureNotice
	default:
		return e.Message
	}
}

func NewTransportError(op string, err error) *CallError {
	return &CallError{Kind: TransportFailure, Op: op, Message: genericFailureNotice, Err: err}
}

func NewApplicationError(op, message string) *CallError {
	return &CallError{Kind: ApplicationError, Op: op, Message: message}
}

func NewUnauthenticatedError(op, message string) *CallError {
	return &CallError{Kind: Unauthenticated, Op: op, Message: message}
}

func NewValidationError(op, message string) *CallError {
	return &CallError{Kind: ValidationError, Op: op, Message: message}
}

// KindOf reports the kind of a CallError; anything else counts as a transport failure.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return TransportFailure
}

// NoticeOf is the user-visible text for any error.
func NoticeOf(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Notice()
	}
	return genericFailureNotice
}

func IsProfileNotFound(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Kind == ApplicationError && ce.Message == ProfileNotFound
}
