// Package classify provides standardized error classification and wrapping
// for boardkit components, ported from the host framework's error-handling
// conventions so that acquisition-loop failures, config failures, and
// transport failures are all reported the same way.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360/boardkit/retry"
)

// Class represents the classification of an error for handling purposes.
type Class int

const (
	// Transient represents temporary errors that may be retried.
	Transient Class = iota
	// Invalid represents errors due to invalid input or configuration.
	Invalid
	// Fatal represents unrecoverable errors that should stop processing.
	Fatal
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions across drivers and the board base.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotStarted     = errors.New("session not started")
	ErrAlreadyStopped = errors.New("session already stopped")
	ErrShuttingDown   = errors.New("session is shutting down")

	ErrNoConnection      = errors.New("no transport connection available")
	ErrConnectionLost    = errors.New("transport connection lost")
	ErrConnectionTimeout = errors.New("transport connection timeout")

	ErrInvalidData   = errors.New("invalid frame data")
	ErrDataCorrupted = errors.New("frame data corrupted")
	ErrParsingFailed = errors.New("frame parsing failed")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	ErrResourceExhausted = errors.New("resource exhausted")
)

// ClassifiedError wraps an error with its classification and call-site context.
type ClassifiedError struct {
	Class     Class
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error { return ce.Err }

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Transient
	}
	if errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "network", "temporary", "unavailable", "busy", "retry"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Fatal
	}
	if errors.Is(err, ErrDataCorrupted) || errors.Is(err, ErrResourceExhausted) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"fatal", "panic", "corrupted", "invalid config", "missing config", "out of memory"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// IsInvalid reports whether err is classified as invalid input.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Invalid
	}
	return errors.Is(err, ErrInvalidData) || errors.Is(err, ErrParsingFailed)
}

// Classify returns the Class for err, defaulting to Transient for unknown
// errors so that acquisition-loop callers default to "retry and continue".
func Classify(err error) Class {
	if err == nil {
		return Transient
	}
	if IsTransient(err) {
		return Transient
	}
	if IsFatal(err) {
		return Fatal
	}
	if IsInvalid(err) {
		return Invalid
	}
	return Transient
}

func newClassified(class Class, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{Class: class, Err: err, Message: message, Component: component, Operation: operation}
}

// Wrap produces a standardized "component.method: action failed: %w" error.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps err as transient with call-site context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(Transient, wrapped, component, method, wrapped.Error())
}

// WrapFatal wraps err as fatal with call-site context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(Fatal, wrapped, component, method, wrapped.Error())
}

// WrapInvalid wraps err as invalid with call-site context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(Invalid, wrapped, component, method, wrapped.Error())
}

// RetryConfig mirrors the shape of retry.Config for callers that only know
// about "max retries" rather than "max attempts".
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns sane defaults for transport reconnect policies.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ToRetryConfig converts to the retry package's Config, adding 1 to
// MaxRetries to turn "additional attempts" into "total attempts" and
// enabling jitter by default.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
	}
}
