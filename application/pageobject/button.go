package pageobject

import (
	"context"
	"errors"
	"fmt"

	"page_objects/application/wait"
	"page_objects/domain/entities"
)

// Button is a view that only exists once displayed and enabled
type Button struct {
	*View
}

// NewButton - declares a button under parent
func NewButton(parent Parent, name string, locator entities.Locator, opts ...Option) (*Button, error) {
	opts = append([]Option{WithExists(DisplayedAndEnabled)}, opts...)
	v, _, err := newView(parent, name, "button", locator, opts)
	if err != nil {
		return nil, err
	}
	return &Button{View: v}, nil
}

// Click clicks the button, retrying within the timeout. A failed click
// refreshes the parent view before the next attempt.
func (b *Button) Click(ctx context.Context) error {
	return clickWithRetry(ctx, b.View)
}

func clickWithRetry(ctx context.Context, v *View) error {
	var fatal error
	description := fmt.Sprintf("%s could not be clicked within %s", v.Describe(), v.timeout)
	_, err := wait.Poll(ctx, pollOptions[bool](v.session, v.timeout, description), func() (bool, error) {
		err := v.Click(ctx)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, entities.ErrSessionClosed):
			fatal = err
			return true, nil
		}
		v.refreshParent()
		return false, err
	})
	if fatal != nil {
		return fatal
	}
	return err
}
