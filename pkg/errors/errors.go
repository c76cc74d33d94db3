package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// CodePaymentDeclined marks a hosted payment that failed, was cancelled,
	// or did not pass backend verification.
	CodePaymentDeclined Code = "PAYMENT_DECLINED"
)

// Class groups codes by who is at fault.
type Class string

const (
	// ClassGuard is a rejected precondition; nothing changed.
	ClassGuard Class = "guard"

	// ClassRemote is a failure of an external collaborator.
	ClassRemote Class = "remote"

	ClassInternal Class = "internal"
)

type Metadata struct {
	Class          Class
	HTTPStatus     int
	PublicMessage  string
	DetailsAllowed bool
}

// Retryable reports whether repeating the same call could succeed.
func (m Metadata) Retryable() bool {
	return m.Class != ClassGuard
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:      {ClassGuard, http.StatusBadRequest, "validation failed", true},
	CodeUnauthorized:    {ClassGuard, http.StatusUnauthorized, "authentication required", false},
	CodeForbidden:       {ClassGuard, http.StatusForbidden, "access denied", false},
	CodeNotFound:        {ClassGuard, http.StatusNotFound, "resource not found", false},
	CodeConflict:        {ClassGuard, http.StatusConflict, "conflict detected", false},
	CodeStateConflict:   {ClassGuard, http.StatusUnprocessableEntity, "state transition disallowed", true},
	CodePaymentDeclined: {ClassRemote, http.StatusPaymentRequired, "payment was not completed", true},
	CodeDependency:      {ClassRemote, http.StatusServiceUnavailable, "dependency unavailable", true},
	CodeInternal:        {ClassInternal, http.StatusInternalServerError, "internal server error", false},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// Remote wraps a collaborator failure as DEPENDENCY_ERROR.
func Remote(err error, message string) *Error {
	return Wrap(CodeDependency, err, message)
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// ClassOf returns the class of err, treating untyped errors as internal.
func ClassOf(err error) Class {
	return MetadataFor(As(err).Code()).Class
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
