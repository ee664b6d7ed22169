package pageobject

import (
	"context"
	"fmt"
	"iter"

	"page_objects/application/wait"
	"page_objects/domain/entities"
)

// LoadFunc asks the page for more items, e.g. by clicking "more"
type LoadFunc func(ctx context.Context, container *View) error

// LoadingFunc reports whether a load is still in progress
type LoadingFunc func(ctx context.Context, container *View) (bool, error)

// InfiniteContainer is a container that grows as it is loaded. Iterating
// loads, waits for loading to settle, yields the new items and repeats
// until a pass adds nothing. Since loading has side effects, a second
// iteration does not replay the first.
type InfiniteContainer[T Viewer] struct {
	*Container[T]
	load    LoadFunc
	loading LoadingFunc
}

// NewInfiniteContainer - declares an incrementally loaded container. A nil
// load does nothing; a nil loading never waits.
func NewInfiniteContainer[T Viewer](parent Parent, name string, locator entities.Locator, item ItemFunc[T], load LoadFunc, loading LoadingFunc, opts ...Option) (*InfiniteContainer[T], error) {
	c, _, err := newContainer(parent, name, "container", locator, item, opts)
	if err != nil {
		return nil, err
	}
	if load == nil {
		load = func(context.Context, *View) error { return nil }
	}
	return &InfiniteContainer[T]{Container: c, load: load, loading: loading}, nil
}

func (c *InfiniteContainer[T]) pass(ctx context.Context) ([]T, error) {
	if err := c.load(ctx, c.View); err != nil {
		return nil, fmt.Errorf("%s load: %w", c, err)
	}
	if c.loading != nil {
		description := fmt.Sprintf("%s still loading after %s", c.Describe(), c.timeout)
		opts := pollOptions[bool](c.session, c.timeout, description)
		opts.Invert = true
		_, err := wait.Poll(ctx, opts, func() (bool, error) {
			return c.loading(ctx, c.View)
		})
		if err != nil {
			return nil, err
		}
	}
	items, err := c.Container.Items(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := items[len(items)-1].Core().ScrollIntoView(ctx); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// All loads and yields items until a load pass adds no new ones
func (c *InfiniteContainer[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		seen := 0
		for {
			items, err := c.pass(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if len(items) <= seen {
				return
			}
			for _, item := range items[seen:] {
				if !yield(item, nil) {
					return
				}
			}
			seen = len(items)
		}
	}
}

// Each calls fn for every item loaded
func (c *InfiniteContainer[T]) Each(ctx context.Context, fn func(item T) error) error {
	for item, err := range c.All(ctx) {
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// Items loads everything and returns the items
func (c *InfiniteContainer[T]) Items(ctx context.Context) ([]T, error) {
	var items []T
	err := c.Each(ctx, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

// At returns the item at a 1-based index, loading only as far as needed.
// Negative indexes count from the tail and load everything.
func (c *InfiniteContainer[T]) At(ctx context.Context, index int) (T, error) {
	var zero T
	if index < 0 {
		items, err := c.Items(ctx)
		if err != nil {
			return zero, err
		}
		if -index > len(items) {
			return zero, &entities.NotFoundError{Key: fmt.Sprint(index), Within: c.Describe()}
		}
		return items[len(items)+index], nil
	}

	n := 0
	for item, err := range c.All(ctx) {
		if err != nil {
			return zero, err
		}
		if n++; n == index {
			return item, nil
		}
	}
	return zero, &entities.NotFoundError{Key: fmt.Sprint(index), Within: c.Describe()}
}
