// Package errors provides stable error codes for the client core.
// Codes cross the FFI boundary unchanged so host UIs can branch on them.
package errors

import "fmt"

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrDisposed ErrorCode = "DISPOSED"

	// Storage errors
	ErrStorage       ErrorCode = "STORAGE_ERROR"
	ErrEntryTooLarge ErrorCode = "ENTRY_TOO_LARGE"

	// Queue errors
	ErrQueueFull    ErrorCode = "QUEUE_FULL"
	ErrQueueLoad    ErrorCode = "QUEUE_LOAD_FAILED"
	ErrItemNotFound ErrorCode = "QUEUE_ITEM_NOT_FOUND"
	ErrUnknownOp    ErrorCode = "UNKNOWN_OPERATION"

	// Sync errors
	ErrSyncInProgress  ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncFailed      ErrorCode = "SYNC_FAILED"
	ErrOfflineRequired ErrorCode = "OFFLINE_REQUIRED"

	// Remote API errors
	ErrRemote       ErrorCode = "REMOTE_ERROR"
	ErrRemoteStatus ErrorCode = "REMOTE_BAD_STATUS"
	ErrRemoteDecode ErrorCode = "REMOTE_DECODE_FAILED"
)

// AppError pairs an ErrorCode with an underlying cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates an AppError with a code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the ErrorCode from err, or ErrInternal if it carries none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if app, ok := err.(*AppError); ok {
		return app.Code
	}
	return ErrInternal
}
