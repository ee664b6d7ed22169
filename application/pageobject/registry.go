package pageobject

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"page_objects/domain/entities"
)

// Kind names the node type a declaration binds to
type Kind string

const (
	KindView      Kind = "view"
	KindButton    Kind = "button"
	KindContainer Kind = "container"
	KindMapping   Kind = "mapping"
	KindTree      Kind = "tree"
	KindMenu      Kind = "menu"
)

// Declaration describes a view before it is bound to a parent: a name, a
// locator template and a node type, plus the declarations of its children
type Declaration struct {
	Name            string
	Kind            Kind
	Locator         entities.Locator
	Timeout         *time.Duration
	Highlight       *string
	Item            *Declaration
	Children        []Declaration
	AlwaysDisplayed bool
	ClosesOnSelect  *bool
	KeyAttribute    string
	Minimum         int
	Maximum         int
}

func (d Declaration) kind() Kind {
	if d.Kind == "" {
		return KindView
	}
	return d.Kind
}

// Validate checks the declaration and everything declared under it
func (d Declaration) Validate() error {
	return d.validate(false)
}

func (d Declaration) validate(item bool) error {
	if !item && (d.Name == "" || strings.Contains(d.Name, ".")) {
		return &entities.ConfigurationError{Reason: fmt.Sprintf("invalid view name %q", d.Name)}
	}
	if d.Locator.Method != "" && d.Locator.Method != entities.MethodXPath && d.Locator.Method != entities.MethodCSS {
		return &entities.ConfigurationError{Reason: fmt.Sprintf("%s: unknown locator method %q", d.Name, d.Locator.Method)}
	}
	if item && !d.Locator.IsZero() && !d.Locator.Formattable() {
		return &entities.ConfigurationError{Reason: fmt.Sprintf("item locator %s cannot be indexed", d.Locator)}
	}

	switch d.kind() {
	case KindView, KindButton:
		// tree rows are items carrying their own cell items
		if d.Item != nil && !item {
			return &entities.ConfigurationError{Reason: fmt.Sprintf("%s: a %s has no items", d.Name, d.kind())}
		}
		if d.Item != nil {
			if err := d.Item.validate(true); err != nil {
				return err
			}
		}
	case KindContainer, KindMapping, KindTree, KindMenu:
		if d.Item != nil {
			if err := d.Item.validate(true); err != nil {
				return fmt.Errorf("%s: %w", d.Name, err)
			}
		}
	default:
		return &entities.ConfigurationError{Reason: fmt.Sprintf("%s: unknown kind %q", d.Name, d.Kind)}
	}
	if d.Minimum < 0 || d.Maximum < 0 || (d.Maximum > 0 && d.Maximum <= d.Minimum+1) {
		return &entities.ConfigurationError{Reason: fmt.Sprintf("%s: empty bounds (%d, %d)", d.Name, d.Minimum, d.Maximum)}
	}

	seen := map[string]bool{}
	for _, child := range d.Children {
		if seen[child.Name] {
			return &entities.ConfigurationError{Reason: fmt.Sprintf("%s: %q declared twice", d.Name, child.Name)}
		}
		seen[child.Name] = true
		if err := child.validate(false); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
	}
	return nil
}

func (d Declaration) options(args []interface{}) []Option {
	var opts []Option
	if d.Timeout != nil {
		opts = append(opts, WithTimeout(*d.Timeout))
	}
	if d.Highlight != nil {
		opts = append(opts, WithHighlight(*d.Highlight))
	}
	if len(args) > 0 {
		opts = append(opts, WithArgs(args...))
	}
	if d.kind() == KindButton {
		opts = append(opts, WithExists(DisplayedAndEnabled))
	}
	return opts
}

// items returns the item builder of a container declaration
func (d Declaration) items() ItemFunc[*View] {
	if d.Item == nil || d.Item.Locator.IsZero() {
		if d.Item != nil {
			return Items(DefaultItemLocator, d.Item.options(nil)...)
		}
		return DefaultItem
	}
	return Items(d.Item.Locator, d.Item.options(nil)...)
}

// Bind instantiates the declaration under parent; args fill the locator placeholders
func (d Declaration) Bind(parent Parent, args ...interface{}) (Viewer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opts := d.options(args)

	switch d.kind() {
	case KindButton:
		return viewer(NewButton(parent, d.Name, d.Locator, opts...))
	case KindContainer:
		return viewer(NewContainer(parent, d.Name, d.Locator, d.items(), opts...))
	case KindMapping:
		opts = append(opts, WithBounds(d.Minimum, d.Maximum))
		var key KeyFunc[*View]
		if d.KeyAttribute != "" {
			key = KeyByAttribute[*View](d.KeyAttribute)
		}
		return viewer(NewMapping(parent, d.Name, d.Locator, d.items(), key, opts...))
	case KindTree:
		row := ContainerItems[*View](DefaultItemLocator, DefaultItem)
		if d.Item != nil {
			locator := d.Item.Locator
			if locator.IsZero() {
				locator = DefaultItemLocator
			}
			row = ContainerItems(locator, d.Item.items(), d.Item.options(nil)...)
		}
		return viewer(NewTreeWith(parent, d.Name, d.Locator, row, opts...))
	case KindMenu:
		if d.AlwaysDisplayed {
			opts = append(opts, AlwaysDisplayed())
		}
		if d.ClosesOnSelect != nil {
			opts = append(opts, ClosesOnSelect(*d.ClosesOnSelect))
		}
		return viewer(NewMenuWith(parent, d.Name, d.Locator, d.items(), MatchText, opts...))
	default:
		return viewer(NewView(parent, d.Name, d.Locator, opts...))
	}
}

func viewer[T Viewer](v T, err error) (Viewer, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// child returns the declaration named name among d's children
func (d Declaration) child(name string) (Declaration, bool) {
	for _, c := range d.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Declaration{}, false
}

// Registry is an ordered set of declarations addressed by name
type Registry struct {
	declarations []Declaration
	index        map[string]int
}

// NewRegistry - builds a registry, failing on invalid or duplicate declarations
func NewRegistry(declarations ...Declaration) (*Registry, error) {
	r := &Registry{index: map[string]int{}}
	for _, d := range declarations {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a declaration
func (r *Registry) Register(d Declaration) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := r.index[d.Name]; ok {
		return &entities.ConfigurationError{Reason: fmt.Sprintf("%q declared twice", d.Name)}
	}
	r.index[d.Name] = len(r.declarations)
	r.declarations = append(r.declarations, d)
	return nil
}

// Lookup returns the declaration registered under name
func (r *Registry) Lookup(name string) (Declaration, error) {
	at, ok := r.index[name]
	if !ok {
		return Declaration{}, &entities.NotFoundError{Key: name, Within: "registry"}
	}
	return r.declarations[at], nil
}

// Names lists the declarations in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.declarations))
	for i, d := range r.declarations {
		names[i] = d.Name
	}
	return names
}

// Bind instantiates the named declaration under parent
func (r *Registry) Bind(parent Parent, name string, args ...interface{}) (Viewer, error) {
	d, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.Bind(parent, args...)
}

// Resolve binds a dotted path under parent. After the first segment each
// segment names a declared child, an item index of a container or a key of
// a mapping, in that order of preference: "results.2.title", "menu.Settings".
// Only key lookups resolve anything; other nodes are bound.
func (r *Registry) Resolve(ctx context.Context, parent Parent, path string) (Viewer, error) {
	segments := strings.Split(path, ".")
	d, err := r.Lookup(segments[0])
	if err != nil {
		return nil, err
	}
	node, err := d.Bind(parent)
	if err != nil {
		return nil, err
	}

	for _, segment := range segments[1:] {
		if c, ok := d.child(segment); ok {
			if node, err = c.Bind(node.Core()); err != nil {
				return nil, err
			}
			d = c
			continue
		}

		index, numeric := strconv.Atoi(segment)
		if list, ok := node.(indexed); ok && numeric == nil {
			if node, err = list.itemViewer(index); err != nil {
				return nil, err
			}
			d = itemDeclaration(d)
			continue
		}
		if mapping, ok := node.(keyed); ok {
			if node, err = mapping.entryViewer(ctx, segment); err != nil {
				return nil, err
			}
			d = itemDeclaration(d)
			continue
		}
		return nil, &entities.NotFoundError{Key: segment, Within: node.String()}
	}
	return node, nil
}

func itemDeclaration(d Declaration) Declaration {
	if d.Item == nil {
		return Declaration{}
	}
	return *d.Item
}

// Viewers returns the items of a container as plain viewers
func (c *Container[T]) Viewers(ctx context.Context) ([]Viewer, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return nil, err
	}
	viewers := make([]Viewer, len(items))
	for i, item := range items {
		viewers[i] = item
	}
	return viewers, nil
}

// PageDeclaration describes a page, the views declared on it and the pages
// reachable from it
type PageDeclaration struct {
	Name    string
	URL     string
	Pattern string
	Timeout *time.Duration
	Views   []Declaration
	Pages   []PageDeclaration
}

// Registry returns the views declared on the page
func (d PageDeclaration) Registry() (*Registry, error) {
	r, err := NewRegistry(d.Views...)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", d.Name, err)
	}
	return r, nil
}

// Page returns the declaration of a page reachable from d
func (d PageDeclaration) Page(name string) (PageDeclaration, error) {
	for _, p := range d.Pages {
		if p.Name == name {
			return p, nil
		}
	}
	return PageDeclaration{}, &entities.NotFoundError{Key: name, Within: d.Name}
}

func (d PageDeclaration) options(args []interface{}) []PageOption {
	var opts []PageOption
	if d.URL != "" {
		opts = append(opts, URL(d.URL, args...))
	}
	if d.Pattern != "" {
		opts = append(opts, Pattern(d.Pattern))
	}
	if d.Timeout != nil {
		opts = append(opts, PageTimeout(*d.Timeout))
	}
	return opts
}

// Open transitions to the page as a root page; args fill url placeholders
func (d PageDeclaration) Open(ctx context.Context, session *Session, args ...interface{}) (*Page, error) {
	return NewPage(ctx, session, d.Name, d.options(args)...)
}

// OpenFrom transitions to the page as a child of parent
func (d PageDeclaration) OpenFrom(ctx context.Context, parent *Page, args ...interface{}) (*Page, error) {
	return parent.Open(ctx, d.Name, d.options(args)...)
}
