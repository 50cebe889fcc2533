package errors

import (
	"errors"
	"fmt"
)

// Code represents a stable error code for programmatic handling.
type Code string

const (
	CodeUnknown       Code = "unknown"
	CodeInvalid       Code = "invalid"
	CodeNotFound      Code = "not_found"
	CodeConflict      Code = "conflict"
	CodeUnauthorized  Code = "unauthorized"
	CodeForbidden     Code = "forbidden"
	CodeInternal      Code = "internal"
	CodeUnavailable   Code = "unavailable"
	CodeDeadline      Code = "deadline_exceeded"
	CodeAlreadyExists Code = "already_exists"
	CodeRemoteService Code = "remote_service"
	CodeSetupFailed   Code = "setup_failed"
)

// Service names a remote collaborator an error originated from.
type Service string

const (
	ServiceStorage      Service = "storage"
	ServiceGitLab       Service = "gitlab"
	ServiceVMManagement Service = "vm-management"
	ServiceKeycloak     Service = "keycloak"
)

const metaService = "service"

// AppError is a structured error type that carries a code, message, and optional metadata.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// WithMeta attaches metadata to the error.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Remote reports a business failure returned by a provisioning collaborator.
func Remote(svc Service, err error, message string) *AppError {
	return Wrap(err, CodeRemoteService, message).WithMeta(metaService, svc)
}

// Unreachable reports a collaborator that could not be contacted at all.
func Unreachable(svc Service, err error) *AppError {
	return Wrap(err, CodeUnavailable, fmt.Sprintf("%s service unavailable", svc)).WithMeta(metaService, svc)
}

// Setup reports an identity provider lifecycle failure.
func Setup(err error, message string) *AppError {
	return Wrap(err, CodeSetupFailed, message).WithMeta(metaService, ServiceKeycloak)
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost AppError in the chain, or CodeUnknown.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ServiceOf returns the collaborator recorded on the error, if any.
func ServiceOf(err error) Service {
	var ae *AppError
	if errors.As(err, &ae) {
		if s, ok := ae.Meta[metaService].(Service); ok {
			return s
		}
	}
	return ""
}
