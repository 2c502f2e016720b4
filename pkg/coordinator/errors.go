package coordinator

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("condition timeout")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("outcome validation failed")
)

// TimeoutError reports a condition that never held before its deadline.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Polls       int
	// LastErr is the most recent error returned by the check, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("condition %q not met within %dms after %d checks", e.Description, e.Timeout.Milliseconds(), e.Polls)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// ValidationError lists the post-completion checks an outcome failed.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
