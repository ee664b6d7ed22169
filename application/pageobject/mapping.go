package pageobject

import (
	"context"
	"fmt"
	"strings"

	"page_objects/domain/entities"

	"github.com/sirupsen/logrus"
)

// KeyFunc derives the mapping key of an item
type KeyFunc[T Viewer] func(ctx context.Context, item T) (string, error)

// KeyByText keys items by their textContent so hidden items keep their key
func KeyByText[T Viewer](ctx context.Context, item T) (string, error) {
	return item.Core().TextContent(ctx)
}

// KeyByAttribute keys items by an html attribute
func KeyByAttribute[T Viewer](name string) KeyFunc[T] {
	return func(ctx context.Context, item T) (string, error) {
		return item.Core().Attribute(ctx, name)
	}
}

// KeyByProperty keys items by a DOM property; a dotted path such as
// "dataset.id" walks into object values
func KeyByProperty[T Viewer](path string) KeyFunc[T] {
	return func(ctx context.Context, item T) (string, error) {
		names := strings.Split(path, ".")
		value, err := item.Core().Property(ctx, names[0])
		if err != nil {
			return "", err
		}
		for _, name := range names[1:] {
			object, ok := value.(map[string]interface{})
			if !ok {
				return "", fmt.Errorf("property %s: %q is not an object", path, name)
			}
			value = object[name]
		}
		if value == nil {
			return "", nil
		}
		return fmt.Sprint(value), nil
	}
}

// Entry is a key and the item it was derived from
type Entry[T Viewer] struct {
	Key   string
	Value T
}

// Mapping is a container indexed by a key derived from each item. The
// index is built on first use and dropped whenever the mapping refreshes.
type Mapping[T Viewer] struct {
	*Container[T]
	key      KeyFunc[T]
	minimum  int
	maximum  int
	entries  []Entry[T]
	position map[string]int
	built    bool
}

// NewMapping - declares a mapping; a nil key function keys items by text
func NewMapping[T Viewer](parent Parent, name string, locator entities.Locator, item ItemFunc[T], key KeyFunc[T], opts ...Option) (*Mapping[T], error) {
	c, cfg, err := newContainer(parent, name, "mapping", locator, item, opts)
	if err != nil {
		return nil, err
	}
	if key == nil {
		key = KeyByText[T]
	}
	m := &Mapping[T]{
		Container: c,
		key:       key,
		minimum:   cfg.minimum,
		maximum:   cfg.maximum,
	}
	c.onRefresh(m.invalidate)
	return m, nil
}

// NewViewMapping - declares a text-keyed mapping of plain views
func NewViewMapping(parent Parent, name string, locator entities.Locator, opts ...Option) (*Mapping[*View], error) {
	return NewMapping[*View](parent, name, locator, DefaultItem, nil, opts...)
}

func (m *Mapping[T]) invalidate() {
	m.entries, m.position, m.built = nil, nil, false
}

func (m *Mapping[T]) build(ctx context.Context) error {
	if m.built {
		return nil
	}

	var (
		entries  []Entry[T]
		position = map[string]int{}
		keyErr   error
	)
	err := m.each(ctx, m.minimum+1, m.maximum, func(index int, item T) bool {
		key, err := m.key(ctx, item)
		if err != nil {
			keyErr = fmt.Errorf("%s key: %w", item, err)
			return false
		}
		if at, ok := position[key]; ok {
			m.session.logger.WithFields(logrus.Fields{
				"view":  m.String(),
				"key":   key,
				"index": index,
			}).Warn("duplicate mapping key, the later item wins")
			entries[at].Value = item
			return true
		}
		position[key] = len(entries)
		entries = append(entries, Entry[T]{Key: key, Value: item})
		return true
	})
	if keyErr != nil {
		return keyErr
	}
	if err != nil {
		return err
	}

	m.entries, m.position, m.built = entries, position, true
	return nil
}

// Entries returns keys and items in document order
func (m *Mapping[T]) Entries(ctx context.Context) ([]Entry[T], error) {
	if err := m.build(ctx); err != nil {
		return nil, err
	}
	return append([]Entry[T](nil), m.entries...), nil
}

// Keys returns the keys in document order
func (m *Mapping[T]) Keys(ctx context.Context) ([]string, error) {
	if err := m.build(ctx); err != nil {
		return nil, err
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys, nil
}

// Values returns the items in document order
func (m *Mapping[T]) Values(ctx context.Context) ([]T, error) {
	if err := m.build(ctx); err != nil {
		return nil, err
	}
	values := make([]T, len(m.entries))
	for i, e := range m.entries {
		values[i] = e.Value
	}
	return values, nil
}

// Get returns the item with the given key
func (m *Mapping[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if err := m.build(ctx); err != nil {
		return zero, err
	}
	at, ok := m.position[key]
	if !ok {
		return zero, &entities.NotFoundError{Key: key, Within: m.Describe()}
	}
	return m.entries[at].Value, nil
}

// Has reports whether an item has the given key
func (m *Mapping[T]) Has(ctx context.Context, key string) (bool, error) {
	if err := m.build(ctx); err != nil {
		return false, err
	}
	_, ok := m.position[key]
	return ok, nil
}

// Len counts the distinct keys within bounds
func (m *Mapping[T]) Len(ctx context.Context) (int, error) {
	if err := m.build(ctx); err != nil {
		return 0, err
	}
	return len(m.entries), nil
}

func (m *Mapping[T]) entryViewer(ctx context.Context, key string) (Viewer, error) {
	item, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// keyed is implemented by every mapping, whatever its item type
type keyed interface {
	entryViewer(ctx context.Context, key string) (Viewer, error)
}
