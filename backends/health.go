package backends

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnhealthy marks errors caused by an unreachable or failing storage backend,
// as opposed to errors about the data itself.
var ErrUnhealthy = errors.New("backend unhealthy")

// HealthError wraps a connectivity failure with the operation that observed it,
// e.g. "redis:Get" or "postgres:Ping".
type HealthError struct {
	Op    string
	Cause error
}

func (e *HealthError) Error() string {
	if e == nil {
		return ErrUnhealthy.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", ErrUnhealthy, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %v", ErrUnhealthy, e.Cause)
}

func (e *HealthError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrUnhealthy) match any HealthError.
func (e *HealthError) Is(target error) bool {
	return target == ErrUnhealthy
}

// NewHealthError wraps cause as a health error. A nil cause yields ErrUnhealthy.
func NewHealthError(op string, cause error) error {
	if cause == nil {
		return ErrUnhealthy
	}
	return &HealthError{Op: op, Cause: cause}
}

// IsHealthError reports whether err indicates the backend is unhealthy.
func IsHealthError(err error) bool {
	if errors.Is(err, ErrUnhealthy) {
		return true
	}
	var he *HealthError
	return errors.As(err, &he)
}

// MaybeConnError converts err into a HealthError when its message contains one of
// the lowercase patterns, or when it is a context deadline/cancellation.
// Any other error is returned unchanged.
func MaybeConnError(op string, err error, patterns []string) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return NewHealthError(op, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewHealthError(op, err)
	}

	return err
}
