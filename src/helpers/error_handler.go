package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"option-guide/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type OptionGuideError struct {
	Message string
	Cause   error
}

func (e *OptionGuideError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *OptionGuideError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ OptionGuideError }
type NetworkError struct{ OptionGuideError }
type DataSourceError struct{ OptionGuideError }
type DatabaseError struct{ OptionGuideError }
type ValidationError struct{ OptionGuideError }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{OptionGuideError{Message: fmt.Sprintf(format, args...)}}
}

// NewNetworkError wraps cause (which may be nil) as a NetworkError.
func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{OptionGuideError{Message: message, Cause: cause}}
}

// NewDatabaseError wraps cause as a DatabaseError.
func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{OptionGuideError{Message: message, Cause: cause}}
}

// NewDataSourceError wraps cause as a DataSourceError.
func NewDataSourceError(message string, cause error) *DataSourceError {
	return &DataSourceError{OptionGuideError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries times, doubling the delay after
// each failure. It stops early when ctx is done.
func RetryWithBackoff[T any](ctx context.Context, operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
}

func NewErrorHandler(l *logger.Logger) *ErrorHandler {
	if l == nil {
		l = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{
		Logger:                 l,
		ErrorCount:             0,
		MaxErrorsBeforeRestart: 10,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Classify wraps err in the typed error matching the operation name.
func (e *ErrorHandler) Classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	base := OptionGuideError{Message: fmt.Sprintf("%s failed", operation), Cause: err}
	lowerOp := strings.ToLower(operation)
	switch {
	case strings.Contains(lowerOp, "network") || strings.Contains(lowerOp, "fetch"):
		return &NetworkError{base}
	case strings.Contains(lowerOp, "database") || strings.Contains(lowerOp, "save"):
		return &DatabaseError{base}
	case strings.Contains(lowerOp, "config"):
		return &ConfigurationError{base}
	default:
		return &base
	}
}

// -----------------------------------------------------------------------------

// Handle records a failure (or a success when err is nil) and logs it.
// It reports whether the consecutive error budget is exhausted.
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		if e.ErrorCount > 0 {
			e.ErrorCount--
		}
		return false
	}
	e.ErrorCount++
	e.Logger.Error("Error in %s: %v", context, err)
	return e.ErrorCount >= e.MaxErrorsBeforeRestart
}
