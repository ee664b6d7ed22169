// Package pageobject implements lazily resolved page objects: pages bound
// to urls and trees of views bound to locators, resolved on demand by
// polling the driver until the element is present and usable.
package pageobject

import (
	"fmt"
	"time"

	"page_objects/application/wait"
	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds view resolution and page transitions
	DefaultTimeout = 15 * time.Second

	// DefaultHighlight is the outline applied to resolved elements when highlighting is on
	DefaultHighlight = "solid 1px red"
)

// Session is shared by every page and view of one driver. It references
// the driver but only Close releases it.
type Session struct {
	driver    interfaces.Driver
	logger    *logrus.Logger
	timeout   time.Duration
	period    time.Duration
	highlight string
	observer  wait.Observer
	scroll    bool
	closed    bool
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithDefaultTimeout sets the timeout inherited by pages and views
func WithDefaultTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithPollPeriod sets the sleep between two polling attempts
func WithPollPeriod(d time.Duration) SessionOption {
	return func(s *Session) { s.period = d }
}

// WithSessionHighlight sets the default outline style; empty disables highlighting
func WithSessionHighlight(style string) SessionOption {
	return func(s *Session) { s.highlight = style }
}

// WithScrollOnResolve scrolls every view into sight once it resolves
func WithScrollOnResolve(on bool) SessionOption {
	return func(s *Session) { s.scroll = on }
}

// WithObserver reports polling events to o
func WithObserver(o wait.Observer) SessionOption {
	return func(s *Session) { s.observer = o }
}

// NewSession - creates a session around a driver
func NewSession(driver interfaces.Driver, logger *logrus.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	s := &Session{
		driver:  driver,
		logger:  logger,
		timeout: DefaultTimeout,
		period:  wait.DefaultPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver returns the driver shared by the session
func (s *Session) Driver() interfaces.Driver {
	return s.driver
}

// Logger returns the session logger
func (s *Session) Logger() *logrus.Logger {
	return s.logger
}

// Timeout returns the default timeout
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	return s.closed
}

// Close closes the driver. Every node of the session fails afterwards.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.driver.Close(); err != nil {
		return fmt.Errorf("failed to close driver: %w", err)
	}
	return nil
}

func (s *Session) check() error {
	if s.closed {
		return entities.ErrSessionClosed
	}
	return nil
}

func pollOptions[T any](s *Session, timeout time.Duration, description string) wait.Options[T] {
	return wait.Options[T]{
		Timeout:     timeout,
		Period:      s.period,
		Description: description,
		Observer:    s.observer,
	}
}
