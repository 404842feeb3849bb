package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
	ErrUnauthorized ErrorType = "UNAUTHORIZED"
	ErrConflict     ErrorType = "CONFLICT"
)

var (
	// ErrSyncCancelled is returned by a sync run stopped through CancelSync
	ErrSyncCancelled = stderrors.New("sync cancelled")
	// ErrBatchNotRunning is returned by pause/resume/cancel when there is nothing to act on
	ErrBatchNotRunning = stderrors.New("no batch is being processed")
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func isType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrInvalidInput)
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return isType(err, ErrUnauthorized)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// SyncInProgressError is returned when a sync is requested while another one runs
type SyncInProgressError struct {
	SiteID int64
}

func (e *SyncInProgressError) Error() string {
	return fmt.Sprintf("sync already in progress (site %d)", e.SiteID)
}

// NewSyncInProgressError creates a new SyncInProgressError
func NewSyncInProgressError(siteID int64) error {
	return &SyncInProgressError{SiteID: siteID}
}

// IsSyncInProgress checks if the error is a SyncInProgressError
func IsSyncInProgress(err error) bool {
	var target *SyncInProgressError
	return stderrors.As(err, &target)
}

// BatchInProgressError is returned when a batch is started while another one is being processed
type BatchInProgressError struct {
	Remaining int
}

func (e *BatchInProgressError) Error() string {
	return fmt.Sprintf("batch already in progress (%d items remaining)", e.Remaining)
}

// NewBatchInProgressError creates a new BatchInProgressError
func NewBatchInProgressError(remaining int) error {
	return &BatchInProgressError{Remaining: remaining}
}

// IsBatchInProgress checks if the error is a BatchInProgressError
func IsBatchInProgress(err error) bool {
	var target *BatchInProgressError
	return stderrors.As(err, &target)
}
