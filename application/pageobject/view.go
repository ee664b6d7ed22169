package pageobject

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"page_objects/application/wait"
	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ExistsFunc decides whether a located element counts as present
type ExistsFunc func(ctx context.Context, e Element) (bool, error)

// Viewer is implemented by View and every type built on it
type Viewer interface {
	Node
	Core() *View
}

// View is a potential element: a locator under a parent, resolved into a
// driver handle on first use and cached until refreshed.
type View struct {
	structure
	session      *Session
	parent       Parent
	locator      entities.Locator
	timeout      time.Duration
	exists       ExistsFunc
	highlight    string
	handle       interfaces.Handle
	resolved     bool
	invalidators []func()
}

// Option configures a view at construction
type Option func(*viewConfig)

type viewConfig struct {
	timeout         *time.Duration
	exists          ExistsFunc
	highlight       *string
	args            []interface{}
	named           map[string]interface{}
	minimum         int
	maximum         int
	alwaysDisplayed bool
	closesOnSelect  *bool
}

// WithTimeout overrides the inherited resolution timeout
func WithTimeout(d time.Duration) Option {
	return func(c *viewConfig) { c.timeout = &d }
}

// WithExists sets the existence predicate
func WithExists(fn ExistsFunc) Option {
	return func(c *viewConfig) { c.exists = fn }
}

// WithHighlight overrides the session outline style; empty disables it
func WithHighlight(style string) Option {
	return func(c *viewConfig) { c.highlight = &style }
}

// WithArgs fills positional placeholders of the locator
func WithArgs(args ...interface{}) Option {
	return func(c *viewConfig) { c.args = append(c.args, args...) }
}

// WithNamedArgs fills {name} placeholders of the locator
func WithNamedArgs(values map[string]interface{}) Option {
	return func(c *viewConfig) { c.named = values }
}

// WithBounds restricts mapping indexes to minimum < i < maximum; 0 leaves a side open
func WithBounds(minimum, maximum int) Option {
	return func(c *viewConfig) {
		c.minimum = minimum
		c.maximum = maximum
	}
}

// AlwaysDisplayed marks a menu that never needs opening
func AlwaysDisplayed() Option {
	return func(c *viewConfig) { c.alwaysDisplayed = true }
}

// ClosesOnSelect sets whether selecting a menu item dismisses the menu
func ClosesOnSelect(closes bool) Option {
	return func(c *viewConfig) { c.closesOnSelect = &closes }
}

// NewView - declares a view under parent
func NewView(parent Parent, name string, locator entities.Locator, opts ...Option) (*View, error) {
	v, _, err := newView(parent, name, "view", locator, opts)
	return v, err
}

func newView(parent Parent, name, kind string, locator entities.Locator, opts []Option) (*View, *viewConfig, error) {
	if parent == nil {
		return nil, nil, &entities.ConfigurationError{Reason: fmt.Sprintf("%s %q has no parent", kind, name)}
	}
	cfg := &viewConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	loc, err := freezeLocator(locator, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s.%s: %w", parent, name, err)
	}

	session := parent.Session()
	v := &View{
		structure: structure{name: name, kind: kind},
		session:   session,
		parent:    parent,
		locator:   loc,
		timeout:   session.timeout,
		exists:    alwaysExists,
		highlight: session.highlight,
	}
	if cfg.timeout != nil {
		v.timeout = *cfg.timeout
	}
	if cfg.exists != nil {
		v.exists = cfg.exists
	}
	if cfg.highlight != nil {
		v.highlight = *cfg.highlight
	}
	parent.adopt(v)
	return v, cfg, nil
}

// freezeLocator fills placeholders once; the result never changes afterwards
func freezeLocator(locator entities.Locator, cfg *viewConfig) (entities.Locator, error) {
	if locator.IsZero() {
		locator = entities.XPath(".")
	}
	switch {
	case len(cfg.args) > 0:
		return locator.Format(cfg.args...)
	case cfg.named != nil:
		return locator.FormatNamed(cfg.named)
	case locator.Formattable():
		return entities.Locator{}, &entities.ConfigurationError{Reason: fmt.Sprintf("locator %s has unfilled placeholders", locator)}
	}
	return locator, nil
}

func alwaysExists(context.Context, Element) (bool, error) {
	return true, nil
}

// Core returns the view itself
func (v *View) Core() *View {
	return v
}

// Parent returns the owning page or view
func (v *View) Parent() Node {
	return v.parent
}

// Session returns the session the view belongs to
func (v *View) Session() *Session {
	return v.session
}

// Locator returns the frozen locator
func (v *View) Locator() entities.Locator {
	return v.locator
}

// Timeout returns the resolution timeout
func (v *View) Timeout() time.Duration {
	return v.timeout
}

// Resolved reports whether a handle is cached
func (v *View) Resolved() bool {
	return v.resolved
}

// Lineage returns the view followed by its ancestors
func (v *View) Lineage() []Node {
	return Lineage(v)
}

// Ancestor returns the ancestor at depth index (0 is the view itself)
func (v *View) Ancestor(index int) (Node, error) {
	return Ancestor(v, index)
}

// AncestorNamed returns the first ancestor with the given name or kind
func (v *View) AncestorNamed(name string) (Node, error) {
	return AncestorNamed(v, name)
}

func (v *View) String() string {
	return dotted(v)
}

// Describe renders the lineage with locators: page.list(css=ul).item(xpath=./*[2])
func (v *View) Describe() string {
	chain := Lineage(v)
	parts := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		if cv, ok := chain[i].(Viewer); ok {
			parts = append(parts, fmt.Sprintf("%s(%s)", cv.Name(), cv.Core().locator))
		} else {
			parts = append(parts, chain[i].Name())
		}
	}
	return strings.Join(parts, ".")
}

func (v *View) fields() logrus.Fields {
	return logrus.Fields{"view": v.String(), "locator": v.locator.String()}
}

// Handle resolves the view: the parent first, then the locator under it,
// polled until the element matches and satisfies the existence predicate.
func (v *View) Handle(ctx context.Context) (interfaces.Handle, error) {
	if err := v.session.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", v, err)
	}
	if v.resolved {
		return v.handle, nil
	}

	description := fmt.Sprintf("%s is still missing after %s", v.Describe(), v.timeout)
	h, err := wait.Poll(ctx, pollOptions[interfaces.Handle](v.session, v.timeout, description), func() (interfaces.Handle, error) {
		return v.locate(ctx)
	})
	if err != nil {
		return nil, err
	}

	v.handle, v.resolved = h, true
	v.session.logger.WithFields(v.fields()).Debug("view resolved")
	if v.session.scroll {
		if err := v.session.driver.ScrollIntoView(ctx, h); err != nil {
			v.session.logger.WithFields(v.fields()).WithError(err).Debug("scroll failed")
		}
	}
	v.applyHighlight(ctx, h)
	return h, nil
}

// locate finds the element under the parent handle. A stale parent is
// refreshed and searched again at once, so zero-timeout items survive it.
func (v *View) locate(ctx context.Context) (interfaces.Handle, error) {
	h, err := v.locateUnderParent(ctx)
	if errors.Is(err, entities.ErrStaleHandle) {
		v.refreshParent()
		h, err = v.locateUnderParent(ctx)
	}
	if err != nil {
		return nil, err
	}
	ok, err := v.exists(ctx, Element{driver: v.session.driver, handle: h})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return h, nil
}

func (v *View) locateUnderParent(ctx context.Context) (interfaces.Handle, error) {
	root, err := v.parent.rootHandle(ctx)
	if err != nil {
		return nil, err
	}
	return v.session.driver.Locate(ctx, root, v.locator)
}

// refreshParent discards the parent's handle when it is a view, else our own
func (v *View) refreshParent() {
	if pv, ok := v.parent.(Viewer); ok {
		pv.Core().Refresh()
		return
	}
	v.Refresh()
}

func (v *View) applyHighlight(ctx context.Context, h interfaces.Handle) {
	if v.highlight == "" {
		return
	}
	if _, err := v.session.driver.ExecuteScript(ctx, "arguments[0].style.outline = arguments[1];", h, v.highlight); err != nil {
		v.session.logger.WithFields(v.fields()).WithError(err).Debug("highlight failed")
	}
}

// ClearHighlight removes the outline applied on resolution
func (v *View) ClearHighlight(ctx context.Context) error {
	if !v.resolved || v.highlight == "" {
		return nil
	}
	_, err := v.session.driver.ExecuteScript(ctx, "arguments[0].style.outline = null;", v.handle)
	if err != nil && !errors.Is(err, entities.ErrStaleHandle) {
		return err
	}
	return nil
}

func (v *View) rootHandle(ctx context.Context) (interfaces.Handle, error) {
	return v.Handle(ctx)
}

// Refresh discards the cached handle, then refreshes every live child.
// Children resolve under our handle, so they go after us.
func (v *View) Refresh() {
	v.handle, v.resolved = nil, false
	for _, invalidate := range v.invalidators {
		invalidate()
	}
	v.refreshChildren()
}

func (v *View) onRefresh(fn func()) {
	v.invalidators = append(v.invalidators, fn)
}

// withHandle runs op against the resolved handle. A stale handle triggers a
// refresh and exactly one retry; a second failure is returned to the caller.
func withHandle[T any](ctx context.Context, v *View, op func(h interfaces.Handle) (T, error)) (T, error) {
	var zero T
	h, err := v.Handle(ctx)
	if err != nil {
		return zero, err
	}
	result, err := op(h)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, entities.ErrStaleHandle) {
		return zero, fmt.Errorf("%s: %w", v.Describe(), err)
	}

	v.session.logger.WithFields(v.fields()).Debug("stale handle, refreshing")
	v.Refresh()
	if h, err = v.Handle(ctx); err != nil {
		return zero, err
	}
	if result, err = op(h); err != nil {
		return zero, fmt.Errorf("%s: %w", v.Describe(), err)
	}
	return result, nil
}

func (v *View) element(h interfaces.Handle) Element {
	return Element{driver: v.session.driver, handle: h}
}

// Element returns the capability wrapper around the resolved handle
func (v *View) Element(ctx context.Context) (Element, error) {
	h, err := v.Handle(ctx)
	if err != nil {
		return Element{}, err
	}
	return v.element(h), nil
}

// Exists evaluates the existence predicate against the resolved handle
func (v *View) Exists(ctx context.Context) (bool, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (bool, error) {
		return v.exists(ctx, v.element(h))
	})
}

// Text returns the visible text
func (v *View) Text(ctx context.Context) (string, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (string, error) {
		return v.session.driver.GetText(ctx, h)
	})
}

// Attribute reads an html attribute
func (v *View) Attribute(ctx context.Context, name string) (string, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (string, error) {
		return v.session.driver.GetAttribute(ctx, h, name)
	})
}

// Property reads a DOM property
func (v *View) Property(ctx context.Context, name string) (interface{}, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (interface{}, error) {
		return v.session.driver.GetProperty(ctx, h, name)
	})
}

// TextContent reads the trimmed textContent, which includes hidden text
func (v *View) TextContent(ctx context.Context) (string, error) {
	value, err := v.Property(ctx, "textContent")
	if err != nil || value == nil {
		return "", err
	}
	return strings.TrimSpace(fmt.Sprint(value)), nil
}

// IsDisplayed checks visibility
func (v *View) IsDisplayed(ctx context.Context) (bool, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (bool, error) {
		return v.session.driver.IsDisplayed(ctx, h)
	})
}

// IsEnabled checks whether the element accepts interaction
func (v *View) IsEnabled(ctx context.Context) (bool, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (bool, error) {
		return v.session.driver.IsEnabled(ctx, h)
	})
}

// Click clicks on the element
func (v *View) Click(ctx context.Context) error {
	_, err := withHandle(ctx, v, func(h interfaces.Handle) (struct{}, error) {
		return struct{}{}, v.session.driver.Click(ctx, h)
	})
	return err
}

// SendKeys types text into the element
func (v *View) SendKeys(ctx context.Context, text string) error {
	_, err := withHandle(ctx, v, func(h interfaces.Handle) (struct{}, error) {
		return struct{}{}, v.session.driver.SendKeys(ctx, h, text)
	})
	return err
}

// ScrollIntoView scrolls the element into the viewport
func (v *View) ScrollIntoView(ctx context.Context) error {
	_, err := withHandle(ctx, v, func(h interfaces.Handle) (struct{}, error) {
		return struct{}{}, v.session.driver.ScrollIntoView(ctx, h)
	})
	return err
}

// CSS reads a computed style property such as "display" or "border-top-color"
func (v *View) CSS(ctx context.Context, name string) (string, error) {
	value, err := v.Execute(ctx, "return window.getComputedStyle(arguments[0]).getPropertyValue(arguments[1]);", name)
	if err != nil || value == nil {
		return "", err
	}
	return fmt.Sprint(value), nil
}

// Execute runs a script with the element as arguments[0] followed by args
func (v *View) Execute(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (interface{}, error) {
		return v.session.driver.ExecuteScript(ctx, script, append([]interface{}{h}, args...)...)
	})
}

// Snapshot describes the element for diagnostics
func (v *View) Snapshot(ctx context.Context) (entities.ElementSnapshot, error) {
	return withHandle(ctx, v, func(h interfaces.Handle) (entities.ElementSnapshot, error) {
		snap, err := v.element(h).Snapshot(ctx)
		snap.View = v.String()
		snap.Locator = v.Describe()
		return snap, err
	})
}
