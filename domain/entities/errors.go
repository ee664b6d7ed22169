package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoSuchElement is returned by drivers when a locator matches nothing
	ErrNoSuchElement = errors.New("no such element")

	// ErrStaleHandle signals that a resolved handle no longer matches a live
	// element. Views recover from it with a single refresh-and-retry.
	ErrStaleHandle = errors.New("stale element handle")

	// ErrSessionClosed is returned by every operation after the driver was closed
	ErrSessionClosed = errors.New("session closed")
)

// TimeoutError - a polled condition was never satisfied within its budget
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Attempts    int
	Cause       error
}

func (e *TimeoutError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = fmt.Sprintf("condition not met after %s", e.Timeout)
	}
	if e.Cause != nil {
		msg += " - " + e.Cause.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// NotFoundError - an explicit lookup by name or key failed
type NotFoundError struct {
	Key    string
	Skip   int
	Within string
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	if e.Skip > 0 {
		fmt.Fprintf(&b, "after skipping %d, ", e.Skip)
	}
	fmt.Fprintf(&b, "%q was not found", e.Key)
	if e.Within != "" {
		fmt.Fprintf(&b, " in %s", e.Within)
	}
	return b.String()
}

// ConfigurationError - a malformed declaration or locator
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// IsTimeout reports whether err is (or wraps) a TimeoutError
func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
