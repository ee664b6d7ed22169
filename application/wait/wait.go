// Package wait polls a condition until it holds or a timeout elapses.
//
// UI state changes asynchronously relative to the automation process, so
// every blocking operation in page objects is expressed as a condition
// retried at a fixed period.
package wait

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"page_objects/domain/entities"
)

// DefaultPeriod is the sleep between two attempts when none is configured
const DefaultPeriod = 100 * time.Millisecond

// Observer receives polling events. Implementations must be cheap.
type Observer interface {
	Satisfied(description string, attempts int, elapsed time.Duration)
	TimedOut(description string, attempts int, elapsed time.Duration)
}

// Options configures a single Poll
type Options[T any] struct {
	Timeout     time.Duration
	Period      time.Duration
	Description string
	// Invert waits for a falsy result instead of a truthy one
	Invert bool
	// Default is returned without error when the timeout elapses
	Default  *T
	Observer Observer
}

// Poll invokes condition until the truthiness of its result equals !Invert.
// Errors returned by condition are captured and the loop continues; the
// latest one becomes the cause of the TimeoutError. The first attempt runs
// immediately and the deadline is checked after every attempt, so a zero
// timeout means exactly one attempt.
func Poll[T any](ctx context.Context, opts Options[T], condition func() (T, error)) (T, error) {
	period := opts.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	start := time.Now()
	deadline := start.Add(opts.Timeout)

	var (
		zero     T
		lastErr  error
		attempts int
	)
	for {
		attempts++
		result, err := condition()
		if err != nil {
			lastErr = err
		} else if Truthy(result) != opts.Invert {
			if opts.Observer != nil {
				opts.Observer.Satisfied(opts.Description, attempts, time.Since(start))
			}
			return result, nil
		}

		if !time.Now().Before(deadline) {
			break
		}

		timer := time.NewTimer(period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w", describe(opts), ctx.Err())
		case <-timer.C:
		}
	}

	if opts.Observer != nil {
		opts.Observer.TimedOut(opts.Description, attempts, time.Since(start))
	}
	if opts.Default != nil {
		return *opts.Default, nil
	}
	return zero, &entities.TimeoutError{
		Description: describe(opts),
		Timeout:     opts.Timeout,
		Attempts:    attempts,
		Cause:       lastErr,
	}
}

// Until waits for condition to return a truthy value
func Until[T any](ctx context.Context, timeout time.Duration, description string, condition func() (T, error)) (T, error) {
	return Poll(ctx, Options[T]{Timeout: timeout, Description: description}, condition)
}

// UntilNot waits for condition to return a falsy value
func UntilNot[T any](ctx context.Context, timeout time.Duration, description string, condition func() (T, error)) (T, error) {
	return Poll(ctx, Options[T]{Timeout: timeout, Description: description, Invert: true}, condition)
}

// Or returns a pointer to v, for use as Options.Default
func Or[T any](v T) *T {
	return &v
}

func describe[T any](opts Options[T]) string {
	if opts.Description != "" {
		return opts.Description
	}
	return fmt.Sprintf("condition not met after %s", opts.Timeout)
}

// Truthy reports whether v counts as a satisfied result: nil, false, zero
// numbers and empty strings, slices and maps are falsy.
func Truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return !rv.IsZero()
	}
	return true
}
