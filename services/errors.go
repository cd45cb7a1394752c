// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so handlers can pick a status code and callers
// can tell terminal errors from retryable ones.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindAuthorization   ErrorKind = "authorization"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindUnprocessable   ErrorKind = "unprocessable"
	KindExternalGateway ErrorKind = "external_gateway"
	KindIntegrity       ErrorKind = "integrity"
)

type Error struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func AuthorizationError(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func UnprocessableError(format string, args ...any) *Error {
	return &Error{Kind: KindUnprocessable, Message: fmt.Sprintf(format, args...)}
}

func IntegrityError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...), Err: err}
}

// GatewayError wraps a failed external call. Gateway errors are always
// reported as retryable by the claim workflow because nothing was committed;
// Transient only tells whether retrying right away is likely to help.
type GatewayError struct {
	Gateway   string
	Operation string
	Status    int
	Transient bool
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Gateway, e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Gateway, e.Operation, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ExternalGatewayError lifts any error from a gateway call into the taxonomy.
func ExternalGatewayError(step string, err error) *Error {
	transient := true
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		transient = gwErr.Transient
	}
	return &Error{
		Kind:      KindExternalGateway,
		Message:   step,
		Retryable: transient,
		Err:       err,
	}
}

// KindOf returns the kind of a taxonomy error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// outcomeLabel names a failed operation for metrics.
func outcomeLabel(err error) string {
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
