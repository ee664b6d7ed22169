package pageobject

import (
	"context"
	"errors"
	"fmt"

	"page_objects/domain/entities"

	"github.com/sirupsen/logrus"
)

// MatchFunc decides whether a menu item answers to key
type MatchFunc func(ctx context.Context, item *View, key string) (bool, error)

// MatchText matches items whose textContent equals key
func MatchText(ctx context.Context, item *View, key string) (bool, error) {
	text, err := item.TextContent(ctx)
	if err != nil {
		return false, err
	}
	return text == key, nil
}

// Menu is a clickable container with an open state. Clicking the menu
// toggles it; selecting an item closes it unless configured otherwise.
type Menu struct {
	*Container[*View]
	open            bool
	alwaysDisplayed bool
	closesOnSelect  bool
	match           MatchFunc
}

// NewMenu - declares a menu whose items are the n-th children, matched by text
func NewMenu(parent Parent, name string, locator entities.Locator, opts ...Option) (*Menu, error) {
	return NewMenuWith(parent, name, locator, DefaultItem, MatchText, opts...)
}

// NewMenuWith - declares a menu with custom items and matching
func NewMenuWith(parent Parent, name string, locator entities.Locator, item ItemFunc[*View], match MatchFunc, opts ...Option) (*Menu, error) {
	opts = append([]Option{WithExists(DisplayedAndEnabled)}, opts...)
	c, cfg, err := newContainer(parent, name, "menu", locator, item, opts)
	if err != nil {
		return nil, err
	}
	if match == nil {
		match = MatchText
	}
	m := &Menu{
		Container:       c,
		alwaysDisplayed: cfg.alwaysDisplayed,
		closesOnSelect:  true,
		match:           match,
	}
	if cfg.closesOnSelect != nil {
		m.closesOnSelect = *cfg.closesOnSelect
	}
	return m, nil
}

// IsOpen reports the tracked state; an always displayed menu is always open
func (m *Menu) IsOpen() bool {
	return m.alwaysDisplayed || m.open
}

// Open clicks the menu unless it is already open
func (m *Menu) Open(ctx context.Context) error {
	if m.IsOpen() {
		return nil
	}
	return m.Toggle(ctx)
}

// Close clicks the menu unless it is already closed
func (m *Menu) Close(ctx context.Context) error {
	if m.alwaysDisplayed || !m.open {
		return nil
	}
	return m.Toggle(ctx)
}

// Toggle clicks the menu and flips its state
func (m *Menu) Toggle(ctx context.Context) error {
	if m.alwaysDisplayed {
		return nil
	}
	if err := clickWithRetry(ctx, m.View); err != nil {
		return err
	}
	m.open = !m.open
	m.session.logger.WithFields(logrus.Fields{"view": m.String(), "open": m.open}).Debug("menu toggled")
	return nil
}

// WithOpen opens the menu, runs fn, and closes the menu if fn left it open
func (m *Menu) WithOpen(ctx context.Context, fn func(*Menu) error) error {
	if err := m.Open(ctx); err != nil {
		return err
	}
	fnErr := fn(m)
	return errors.Join(fnErr, m.Close(ctx))
}

// Find returns the first item matching key, ignoring the first skip positions
func (m *Menu) Find(ctx context.Context, key string, skip int) (*View, error) {
	var (
		found    *View
		matchErr error
	)
	err := m.each(ctx, skip+1, 0, func(_ int, item *View) bool {
		ok, err := m.match(ctx, item, key)
		if err != nil {
			matchErr = err
			return false
		}
		if ok {
			found = item
			return false
		}
		return true
	})
	if matchErr != nil {
		return nil, matchErr
	}
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &entities.NotFoundError{Key: key, Skip: skip, Within: m.Describe()}
	}
	return found, nil
}

// Select opens the menu and clicks the item matching key
func (m *Menu) Select(ctx context.Context, key string) (*View, error) {
	return m.SelectSkip(ctx, key, 0)
}

// SelectSkip is Select ignoring the first skip positions
func (m *Menu) SelectSkip(ctx context.Context, key string, skip int) (*View, error) {
	if err := m.Open(ctx); err != nil {
		return nil, err
	}
	item, err := m.Find(ctx, key, skip)
	if err != nil {
		return nil, err
	}
	if err := item.Click(ctx); err != nil {
		return nil, fmt.Errorf("select %q: %w", key, err)
	}
	if m.closesOnSelect && !m.alwaysDisplayed {
		m.open = false
	}
	return item, nil
}
