package pageobject

import (
	"context"
	"fmt"
	"strings"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"
)

// Element pairs a driver with one of its handles. Existence predicates and
// the inspector receive it; it performs no resolution or staleness recovery.
type Element struct {
	driver interfaces.Driver
	handle interfaces.Handle
}

// NewElement wraps a raw handle
func NewElement(driver interfaces.Driver, handle interfaces.Handle) Element {
	return Element{driver: driver, handle: handle}
}

// Handle returns the raw driver handle
func (e Element) Handle() interfaces.Handle {
	return e.handle
}

func (e Element) Text(ctx context.Context) (string, error) {
	return e.driver.GetText(ctx, e.handle)
}

func (e Element) Attribute(ctx context.Context, name string) (string, error) {
	return e.driver.GetAttribute(ctx, e.handle, name)
}

func (e Element) Property(ctx context.Context, name string) (interface{}, error) {
	return e.driver.GetProperty(ctx, e.handle, name)
}

func (e Element) IsDisplayed(ctx context.Context) (bool, error) {
	return e.driver.IsDisplayed(ctx, e.handle)
}

func (e Element) IsEnabled(ctx context.Context) (bool, error) {
	return e.driver.IsEnabled(ctx, e.handle)
}

func (e Element) Click(ctx context.Context) error {
	return e.driver.Click(ctx, e.handle)
}

// Snapshot reads tag, text, visibility and the usual attributes
func (e Element) Snapshot(ctx context.Context) (entities.ElementSnapshot, error) {
	snap := entities.ElementSnapshot{Attributes: map[string]string{}}

	tag, err := e.driver.GetProperty(ctx, e.handle, "tagName")
	if err != nil {
		return snap, err
	}
	if tag != nil {
		snap.Tag = strings.ToLower(fmt.Sprint(tag))
	}
	if snap.Text, err = e.driver.GetText(ctx, e.handle); err != nil {
		return snap, err
	}
	for _, name := range entities.SnapshotAttributes {
		value, err := e.driver.GetAttribute(ctx, e.handle, name)
		if err != nil {
			return snap, err
		}
		if value != "" {
			snap.Attributes[name] = value
		}
	}
	if snap.IsVisible, err = e.driver.IsDisplayed(ctx, e.handle); err != nil {
		return snap, err
	}
	if snap.IsVisible {
		enabled, err := e.driver.IsEnabled(ctx, e.handle)
		if err != nil {
			return snap, err
		}
		snap.IsClickable = enabled
	}
	return snap, nil
}

// Displayed requires the element to be visible
func Displayed(ctx context.Context, e Element) (bool, error) {
	return e.IsDisplayed(ctx)
}

// Enabled requires the element to accept interaction
func Enabled(ctx context.Context, e Element) (bool, error) {
	return e.IsEnabled(ctx)
}

// DisplayedAndEnabled is the button existence predicate
func DisplayedAndEnabled(ctx context.Context, e Element) (bool, error) {
	return AllOf(Displayed, Enabled)(ctx, e)
}

// HasText requires the element text to contain substr
func HasText(substr string) ExistsFunc {
	return func(ctx context.Context, e Element) (bool, error) {
		text, err := e.Text(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(text, substr), nil
	}
}

// AllOf combines predicates, short-circuiting on the first false
func AllOf(fns ...ExistsFunc) ExistsFunc {
	return func(ctx context.Context, e Element) (bool, error) {
		for _, fn := range fns {
			ok, err := fn(ctx, e)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}
