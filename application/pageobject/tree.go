package pageobject

import (
	"context"

	"page_objects/domain/entities"
)

// Tree is a container of rows, each row a container of cells
type Tree struct {
	*Container[*Container[*View]]
}

// NewTree - declares a tree whose rows and cells are the n-th children
func NewTree(parent Parent, name string, locator entities.Locator, opts ...Option) (*Tree, error) {
	return NewTreeWith(parent, name, locator, ContainerItems[*View](DefaultItemLocator, DefaultItem), opts...)
}

// NewTreeWith - declares a tree with a custom row builder
func NewTreeWith(parent Parent, name string, locator entities.Locator, row ItemFunc[*Container[*View]], opts ...Option) (*Tree, error) {
	c, _, err := newContainer(parent, name, "tree", locator, row, opts)
	if err != nil {
		return nil, err
	}
	return &Tree{Container: c}, nil
}

// Rows returns the rows in order
func (t *Tree) Rows(ctx context.Context) ([]*Container[*View], error) {
	return t.Items(ctx)
}

// Inverse returns the tree column by column
func (t *Tree) Inverse(ctx context.Context) ([][]*View, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, err
	}
	cells := make([][]*View, len(rows))
	for i, row := range rows {
		if cells[i], err = row.Items(ctx); err != nil {
			return nil, err
		}
	}
	return Transpose(cells), nil
}

// Transpose turns rows into columns. Like a zip, the shortest row bounds
// the number of columns.
func Transpose[T any](rows [][]T) [][]T {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	for _, row := range rows[1:] {
		width = min(width, len(row))
	}
	columns := make([][]T, width)
	for c := range columns {
		columns[c] = make([]T, len(rows))
		for r, row := range rows {
			columns[c][r] = row[c]
		}
	}
	return columns
}
