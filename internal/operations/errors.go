package operations

import (
	"context"
	"errors"
	"fmt"

	"acidentes/internal/dataprocessing"
	apperrors "acidentes/internal/errors"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeSource       ErrorType = "source"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeData         ErrorType = "data"
	ErrorTypeStorage      ErrorType = "storage"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
)

// OperationError represents a failure of one pipeline step
type OperationError struct {
	Type    ErrorType      `json:"type"`
	Step    string         `json:"step,omitempty"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(step, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Step:    step,
		Message: message,
	}
}

// NewExecutionError creates a new execution error
func NewExecutionError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: "step execution failed",
		Cause:   cause,
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "run was cancelled",
		Cause:   cause,
	}
}

// NewFatalError creates a new fatal error
func NewFatalError(message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeFatal,
		Message: message,
		Cause:   cause,
	}
}

// WrapError classifies err and attaches the failing step. Errors that are
// already an OperationError keep their type.
func WrapError(err error, step string) *OperationError {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Step == "" {
			opErr.Step = step
		}
		return opErr
	}

	var (
		appErr     *apperrors.AppError
		readErr    *dataprocessing.SourceReadError
		timeErr    *dataprocessing.TimeParseError
		missingErr *dataprocessing.MissingColumnError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewCancellationError(step, err)
	case errors.As(err, &readErr):
		return &OperationError{
			Type:    sourceErrorType(err),
			Step:    step,
			Message: "source could not be read",
			Cause:   err,
			Context: map[string]any{"source": readErr.Source, "path": readErr.Path, "line": readErr.Line},
		}
	case errors.As(err, &timeErr):
		return &OperationError{
			Type:    ErrorTypeData,
			Step:    step,
			Message: "invalid time of day",
			Cause:   err,
			Context: map[string]any{"row": timeErr.Row, "value": timeErr.Value},
		}
	case errors.As(err, &missingErr):
		return &OperationError{
			Type:    ErrorTypeData,
			Step:    step,
			Message: "required column missing",
			Cause:   err,
			Context: map[string]any{"column": missingErr.Column},
		}
	case errors.As(err, &appErr) && appErr.Type == apperrors.ErrTypeValidation:
		return &OperationError{
			Type:    ErrorTypeValidation,
			Step:    step,
			Message: appErr.Message,
			Cause:   err,
			Context: appErr.Context,
		}
	case errors.As(err, &appErr) && appErr.Type == apperrors.ErrTypeStorage:
		return &OperationError{
			Type:    ErrorTypeStorage,
			Step:    step,
			Message: "output could not be written",
			Cause:   err,
			Context: appErr.Context,
		}
	default:
		return NewExecutionError(step, err)
	}
}

// sourceErrorType narrows a source failure to a missing or malformed file
// when the loader classified it.
func sourceErrorType(err error) ErrorType {
	switch {
	case apperrors.IsType(err, apperrors.ErrTypeNotFound):
		return ErrorTypeNotFound
	case apperrors.IsType(err, apperrors.ErrTypeParsing):
		return ErrorTypeParsing
	default:
		return ErrorTypeSource
	}
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}
