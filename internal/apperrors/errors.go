// Package apperrors provides the structured error taxonomy used across
// the optimizer: a single ServiceError type carrying an error_type tag,
// an HTTP status, and an optional suggested next action, so every
// handler returns the same {error_type,reason,details,action} shape.
package apperrors

import (
	"errors"
	"net/http"
)

// ErrorType is the PascalCase tag surfaced in HTTP error responses.
type ErrorType string

const (
	ErrTypeValidation       ErrorType = "ValidationError"
	ErrTypeUnsupportedBuild ErrorType = "UnsupportedBuildError"
	ErrTypeBuildDecode      ErrorType = "BuildDecodeError"
	ErrTypeEngineInit       ErrorType = "EngineInitError"
	ErrTypeCalculation      ErrorType = "CalculationError"
	ErrTypeEngineRuntime    ErrorType = "EngineRuntimeError"
	ErrTypeOptimizerBusy    ErrorType = "OptimizerBusy"
	ErrTypeSessionNotFound  ErrorType = "SessionNotFound"
	ErrTypeInternal         ErrorType = "InternalError"
)

// ServiceError is a structured error carrying an HTTP status and an
// optional user-facing next step.
type ServiceError struct {
	Type       ErrorType
	Reason     string
	Details    string
	Action     string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithAction attaches a suggested next step and returns the receiver.
func (e *ServiceError) WithAction(action string) *ServiceError {
	e.Action = action
	return e
}

// WithDetails attaches a long-form detail string and returns the receiver.
func (e *ServiceError) WithDetails(details string) *ServiceError {
	e.Details = details
	return e
}

func new(t ErrorType, reason string, status int) *ServiceError {
	return &ServiceError{Type: t, Reason: reason, HTTPStatus: status}
}

func wrap(t ErrorType, reason string, status int, err error) *ServiceError {
	return &ServiceError{Type: t, Reason: reason, HTTPStatus: status, Err: err}
}

// Validation builds a ValidationError (HTTP 400).
func Validation(reason string) *ServiceError {
	return new(ErrTypeValidation, reason, http.StatusBadRequest)
}

// UnsupportedBuild builds an UnsupportedBuildError (HTTP 400) for builds
// that use archetypes the oracle cannot reason about.
func UnsupportedBuild(reason string) *ServiceError {
	return new(ErrTypeUnsupportedBuild, reason, http.StatusBadRequest)
}

// BuildDecode builds a BuildDecodeError (HTTP 400) for Base64/deflate/XML
// decode failures.
func BuildDecode(err error) *ServiceError {
	return wrap(ErrTypeBuildDecode, "build code could not be decoded", http.StatusBadRequest, err)
}

// EngineInit builds an EngineInitError, fatal at startup or HTTP 500 at
// request time.
func EngineInit(err error) *ServiceError {
	return wrap(ErrTypeEngineInit, "calculation engine failed to initialize", http.StatusInternalServerError, err)
}

// Calculation builds a CalculationError for a single rejected candidate.
func Calculation(err error) *ServiceError {
	return wrap(ErrTypeCalculation, "engine rejected build as invalid", http.StatusBadRequest, err)
}

// EngineRuntime builds an EngineRuntimeError for an engine crash.
func EngineRuntime(err error) *ServiceError {
	return wrap(ErrTypeEngineRuntime, "calculation engine crashed", http.StatusInternalServerError, err)
}

// OptimizerBusy builds an OptimizerBusy error for a Request Gate timeout.
func OptimizerBusy() *ServiceError {
	return new(ErrTypeOptimizerBusy, "optimizer is already running a session", http.StatusServiceUnavailable).
		WithAction("try again shortly")
}

// SessionNotFound builds a SessionNotFound error (HTTP 404).
func SessionNotFound(id string) *ServiceError {
	return new(ErrTypeSessionNotFound, "unknown session id", http.StatusNotFound).WithDetails(id)
}

// Internal builds an unclassified InternalError (HTTP 500).
func Internal(err error) *ServiceError {
	return wrap(ErrTypeInternal, "internal error", http.StatusInternalServerError, err)
}

// As extracts a *ServiceError from an error chain, if present.
func As(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// HTTPStatus returns the HTTP status for an error, defaulting to 500 for
// errors that are not ServiceErrors.
func HTTPStatus(err error) int {
	if svcErr, ok := As(err); ok {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
