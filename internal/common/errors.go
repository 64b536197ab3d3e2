package common

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Fatal errors abort the session; ErrInvalidPage is
// surfaced to the agent as a tool error; ErrTimeout is retryable by the caller.
var (
	ErrUnreadablePDF    = errors.New("unreadable pdf")
	ErrOCRUnavailable   = errors.New("ocr unavailable")
	ErrInvalidPage      = errors.New("page index out of range")
	ErrTimeout          = errors.New("operation timed out")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether the caller may retry the whole session.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ClassifyTimeout maps deadline hits (context or transport) onto ErrTimeout
// so callers can classify them as retryable. Other errors pass through.
func ClassifyTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
