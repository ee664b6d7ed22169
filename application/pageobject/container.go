package pageobject

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"page_objects/domain/entities"
)

// ItemFunc builds the item at a 1-based index under the container view
type ItemFunc[T Viewer] func(parent *View, index int) (T, error)

// Container is a view whose children form an index-addressable sequence of
// unknown length. The length is discovered by resolving items 1, 2, 3...
// until one times out.
type Container[T Viewer] struct {
	*View
	item ItemFunc[T]
}

// DefaultItemLocator addresses the n-th child element
var DefaultItemLocator = entities.XPath("./*[%d]")

// NewContainer - declares a container whose items are built by item
func NewContainer[T Viewer](parent Parent, name string, locator entities.Locator, item ItemFunc[T], opts ...Option) (*Container[T], error) {
	c, _, err := newContainer(parent, name, "container", locator, item, opts)
	return c, err
}

// NewViewContainer - declares a container of plain views addressed by position
func NewViewContainer(parent Parent, name string, locator entities.Locator, opts ...Option) (*Container[*View], error) {
	return NewContainer[*View](parent, name, locator, DefaultItem, opts...)
}

func newContainer[T Viewer](parent Parent, name, kind string, locator entities.Locator, item ItemFunc[T], opts []Option) (*Container[T], *viewConfig, error) {
	if item == nil {
		return nil, nil, &entities.ConfigurationError{Reason: fmt.Sprintf("%s %q has no item builder", kind, name)}
	}
	v, cfg, err := newView(parent, name, kind, locator, opts)
	if err != nil {
		return nil, nil, err
	}
	return &Container[T]{View: v, item: item}, cfg, nil
}

// Item builds the item at index without scanning the preceding ones.
// The item is not resolved yet.
func (c *Container[T]) Item(index int) (T, error) {
	item, err := c.item(c.View, index)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", c, err)
	}
	return item, nil
}

// each resolves the container, then items start, start+1... until one
// times out, stop is reached (exclusive, 0 for none) or yield returns false
func (c *Container[T]) each(ctx context.Context, start, stop int, yield func(index int, item T) bool) error {
	if _, err := c.Handle(ctx); err != nil {
		return err
	}
	for i := start; stop <= 0 || i < stop; i++ {
		item, err := c.Item(i)
		if err != nil {
			return err
		}
		if _, err := item.Core().Handle(ctx); err != nil {
			if endOfSequence(err) {
				return nil
			}
			return err
		}
		if !yield(i, item) {
			return nil
		}
	}
	return nil
}

// endOfSequence reports whether an item timed out because nothing matched.
// A timeout caused by anything else, a closed session or a bad expression,
// is a failure of the scan.
func endOfSequence(err error) bool {
	var timeout *entities.TimeoutError
	if !errors.As(err, &timeout) {
		return false
	}
	return timeout.Cause == nil || errors.Is(timeout.Cause, entities.ErrNoSuchElement)
}

// All returns the items in order. An error ends the sequence and is
// yielded with a zero item.
func (c *Container[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		stopped := false
		err := c.each(ctx, 1, 0, func(_ int, item T) bool {
			if !yield(item, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			var zero T
			yield(zero, err)
		}
	}
}

// Each calls fn for every item; a non-nil error from fn stops the scan
func (c *Container[T]) Each(ctx context.Context, fn func(item T) error) error {
	var fnErr error
	err := c.each(ctx, 1, 0, func(_ int, item T) bool {
		fnErr = fn(item)
		return fnErr == nil
	})
	if fnErr != nil {
		return fnErr
	}
	return err
}

// Items collects every item
func (c *Container[T]) Items(ctx context.Context) ([]T, error) {
	var items []T
	err := c.each(ctx, 1, 0, func(_ int, item T) bool {
		items = append(items, item)
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Len counts the items
func (c *Container[T]) Len(ctx context.Context) (int, error) {
	n := 0
	err := c.each(ctx, 1, 0, func(int, T) bool {
		n++
		return true
	})
	return n, err
}

func (c *Container[T]) itemViewer(index int) (Viewer, error) {
	item, err := c.Item(index)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// indexed is implemented by every container, whatever its item type
type indexed interface {
	itemViewer(index int) (Viewer, error)
}

func itemName(index int) string {
	return fmt.Sprintf("item[%d]", index)
}

// itemView builds the view at index from a locator template holding a
// single positional placeholder or an {index} placeholder
func itemView(parent *View, kind string, locator entities.Locator, index int, opts []Option) (*View, *viewConfig, error) {
	if !locator.Formattable() {
		return nil, nil, &entities.ConfigurationError{Reason: fmt.Sprintf("item locator %s cannot be indexed", locator)}
	}
	fill := WithArgs(index)
	if strings.Contains(locator.Expression, "{index}") {
		fill = WithNamedArgs(map[string]interface{}{"index": index})
	}
	opts = append([]Option{WithTimeout(0), fill}, opts...)
	return newView(parent, itemName(index), kind, locator, opts)
}

// DefaultItem builds plain views over DefaultItemLocator
func DefaultItem(parent *View, index int) (*View, error) {
	v, _, err := itemView(parent, "view", DefaultItemLocator, index, nil)
	return v, err
}

// Items builds plain views from a locator template
func Items(locator entities.Locator, opts ...Option) ItemFunc[*View] {
	return func(parent *View, index int) (*View, error) {
		v, _, err := itemView(parent, "view", locator, index, opts)
		return v, err
	}
}

// ButtonItems builds buttons from a locator template
func ButtonItems(locator entities.Locator, opts ...Option) ItemFunc[*Button] {
	return func(parent *View, index int) (*Button, error) {
		opts := append([]Option{WithExists(DisplayedAndEnabled)}, opts...)
		v, _, err := itemView(parent, "button", locator, index, opts)
		if err != nil {
			return nil, err
		}
		return &Button{View: v}, nil
	}
}

// ContainerItems builds nested containers, each with its own item builder
func ContainerItems[T Viewer](locator entities.Locator, item ItemFunc[T], opts ...Option) ItemFunc[*Container[T]] {
	return func(parent *View, index int) (*Container[T], error) {
		if item == nil {
			return nil, &entities.ConfigurationError{Reason: "nested container has no item builder"}
		}
		v, _, err := itemView(parent, "container", locator, index, opts)
		if err != nil {
			return nil, err
		}
		return &Container[T]{View: v, item: item}, nil
	}
}
