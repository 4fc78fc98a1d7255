// Package errors provides the error taxonomy shared by the cache, the
// providers and the graph server.
//
// Errors are built fluently:
//
//	errors.NotFound(errors.CodeNodeNotFound, "node does not exist").
//		WithOperation("GetNode").
//		WithResource("node:7").
//		Build()
//
// and classified with the IsX helpers, which see through wrapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType is the category of an error.
type ErrorType string

const (
	ErrorTypeInvalidID     ErrorType = "INVALID_ID"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeTransport     ErrorType = "TRANSPORT"
	ErrorTypeUnimplemented ErrorType = "UNIMPLEMENTED"
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeInternal      ErrorType = "INTERNAL"
)

// Error codes for programmatic handling.
const (
	CodeNodeIDInvalid           = "NODE_ID_INVALID"
	CodeNodeNotFound            = "NODE_NOT_FOUND"
	CodeEdgeNotFound            = "EDGE_NOT_FOUND"
	CodeProviderUnavailable     = "PROVIDER_UNAVAILABLE"
	CodeProviderStatus          = "PROVIDER_STATUS"
	CodeProviderDecode          = "PROVIDER_DECODE"
	CodeOperationNotImplemented = "OPERATION_NOT_IMPLEMENTED"
	CodeRootImmutable           = "ROOT_IMMUTABLE"
	CodeInvalidAttribute        = "INVALID_ATTRIBUTE"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeStoreError              = "STORE_ERROR"
	CodeEventPublishFailed      = "EVENT_PUBLISH_FAILED"
	CodeWrapped                 = "WRAP_ERROR"
)

// UnifiedError is the single error type used across the module.
type UnifiedError struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`

	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *UnifiedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// String provides a detailed multi-line representation for logging.
func (e *UnifiedError) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", e.Error())
	if e.Operation != "" {
		fmt.Fprintf(&b, "Operation: %s\n", e.Operation)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, "Resource: %s\n", e.Resource)
	}
	fmt.Fprintf(&b, "Retryable: %t\n", e.Retryable)
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	if e.File != "" && e.Line > 0 {
		fmt.Fprintf(&b, "Location: %s:%d\n", e.File, e.Line)
	}
	return b.String()
}

// ErrorBuilder constructs UnifiedError values.
type ErrorBuilder struct {
	error *UnifiedError
}

// NewError starts a builder for the given type, code and message.
func NewError(errType ErrorType, code, message string) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(1)
	return &ErrorBuilder{
		error: &UnifiedError{
			Type:    errType,
			Code:    code,
			Message: message,
			File:    file,
			Line:    line,
		},
	}
}

func (b *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	b.error.Details = details
	return b
}

func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.error.Operation = operation
	return b
}

func (b *ErrorBuilder) WithResource(resource string) *ErrorBuilder {
	b.error.Resource = resource
	return b
}

func (b *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	b.error.Retryable = retryable
	return b
}

func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.error.Cause = cause
	return b
}

// Build returns the constructed error.
func (b *ErrorBuilder) Build() *UnifiedError {
	return b.error
}

// InvalidID reports a value that is not a usable node id.
func InvalidID(value any) *ErrorBuilder {
	return NewError(ErrorTypeInvalidID, CodeNodeIDInvalid, "invalid node id").
		WithDetails(fmt.Sprintf("%v", value))
}

func NotFound(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeNotFound, code, message)
}

// Transport reports a failed provider round trip. Transport errors are
// retryable.
func Transport(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeTransport, code, message).WithRetryable(true)
}

func Unimplemented(operation string) *ErrorBuilder {
	return NewError(ErrorTypeUnimplemented, CodeOperationNotImplemented, "not implemented").
		WithOperation(operation)
}

func Validation(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeValidation, code, message)
}

func Conflict(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeConflict, code, message).WithRetryable(true)
}

func Internal(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeInternal, code, message)
}

// IsType checks if an error is of a specific type.
func IsType(err error, errType ErrorType) bool {
	var ue *UnifiedError
	if errors.As(err, &ue) {
		return ue.Type == errType
	}
	return false
}

func IsInvalidID(err error) bool     { return IsType(err, ErrorTypeInvalidID) }
func IsNotFound(err error) bool      { return IsType(err, ErrorTypeNotFound) }
func IsTransport(err error) bool     { return IsType(err, ErrorTypeTransport) }
func IsUnimplemented(err error) bool { return IsType(err, ErrorTypeUnimplemented) }
func IsValidation(err error) bool    { return IsType(err, ErrorTypeValidation) }
func IsConflict(err error) bool      { return IsType(err, ErrorTypeConflict) }
func IsInternal(err error) bool      { return IsType(err, ErrorTypeInternal) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ue *UnifiedError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}

// Code returns the error code, or "" for foreign errors.
func Code(err error) string {
	var ue *UnifiedError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// Wrap adds context to err while preserving its chain. A UnifiedError keeps
// its type and code; anything else becomes INTERNAL.
func Wrap(err error, operation, message string) *UnifiedError {
	if err == nil {
		return nil
	}

	var existing *UnifiedError
	if errors.As(err, &existing) {
		return &UnifiedError{
			Type:      existing.Type,
			Code:      existing.Code,
			Message:   message,
			Details:   existing.Message,
			Operation: operation,
			Resource:  existing.Resource,
			Retryable: existing.Retryable,
			Cause:     err,
			File:      existing.File,
			Line:      existing.Line,
		}
	}

	_, file, line, _ := runtime.Caller(1)
	return &UnifiedError{
		Type:      ErrorTypeInternal,
		Code:      CodeWrapped,
		Message:   message,
		Details:   err.Error(),
		Operation: operation,
		Cause:     err,
		File:      file,
		Line:      line,
	}
}

// HTTPStatus maps an error to the status the graph server answers with.
func HTTPStatus(err error) int {
	var ue *UnifiedError
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError
	}
	switch ue.Type {
	case ErrorTypeInvalidID, ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnimplemented:
		return http.StatusNotImplemented
	case ErrorTypeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
