package apperrors

import (
	"errors"
	"fmt"
)

// Code represents a category of session/authorization error.
type Code string

const (
	// CodeInvalidCredentials indicates the login endpoint rejected the
	// supplied username/password. Local to the login flow.
	CodeInvalidCredentials Code = "invalid_credentials"
	// CodeRenewalExpired indicates the renewal credential was rejected or
	// absent. Terminal for the session.
	CodeRenewalExpired Code = "renewal_expired"
	// CodeNetwork indicates a transient transport failure.
	CodeNetwork Code = "network"
	// CodeSubscriptionRequired indicates the authorization gate denied a
	// mutating action. Purely local, no request was issued.
	CodeSubscriptionRequired Code = "subscription_required"
	// CodeInternal indicates an unexpected client-side failure.
	CodeInternal Code = "internal"
)

// Error is a structured session error with a code, message, and optional
// cause. It supports wrapping and unwrapping for use with errors.Is/As.
type Error struct {
	// Code categorizes the error type
	Code Code
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Status is the HTTP status that produced the error, when one exists
	Status int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidCredentials creates a new invalid-credentials error.
func InvalidCredentials(message string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: message}
}

// RenewalExpired creates a new renewal-expired error.
func RenewalExpired(message string) *Error {
	return &Error{Code: CodeRenewalExpired, Message: message}
}

// Network creates a new network error.
func Network(message string) *Error {
	return &Error{Code: CodeNetwork, Message: message}
}

// SubscriptionRequired creates a new subscription-required error.
func SubscriptionRequired(message string) *Error {
	return &Error{Code: CodeSubscriptionRequired, Message: message}
}

// Internal creates a new internal error.
func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

// Internalf creates a new internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an Error, preserving the cause.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// WithStatus records the HTTP status on the error and returns it.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// isCode checks if an error has a specific error code.
func isCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an invalid-credentials error.
func IsInvalidCredentials(err error) bool { return isCode(err, CodeInvalidCredentials) }

// IsRenewalExpired checks if an error is a renewal-expired error.
func IsRenewalExpired(err error) bool { return isCode(err, CodeRenewalExpired) }

// IsNetwork checks if an error is a network error.
func IsNetwork(err error) bool { return isCode(err, CodeNetwork) }

// IsSubscriptionRequired checks if an error is a subscription-required error.
func IsSubscriptionRequired(err error) bool { return isCode(err, CodeSubscriptionRequired) }

// IsInternal checks if an error is an internal error.
func IsInternal(err error) bool { return isCode(err, CodeInternal) }

// GetCode returns the Code from an error, or empty string if not an Error.
func GetCode(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
