package pageobject

import (
	"context"
	"fmt"
	"strings"
	"weak"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"
)

// Node is a member of the ownership chain: a Page or a View
type Node interface {
	// Name is the declared name of the node
	Name() string
	// Kind is the node type: page, view, button, container...
	Kind() string
	// Parent is the owning node, nil for a root page
	Parent() Node
	String() string
}

// Parent is a node views can be declared under
type Parent interface {
	Node
	Session() *Session
	rootHandle(ctx context.Context) (interfaces.Handle, error)
	adopt(child *View)
}

// structure holds what pages and views share: naming, the parent link and
// the non-owning list of children used to fan out refreshes.
type structure struct {
	name     string
	kind     string
	children []weak.Pointer[View]
}

func (s *structure) Name() string {
	return s.name
}

func (s *structure) Kind() string {
	return s.kind
}

func (s *structure) adopt(child *View) {
	live := s.children[:0]
	for _, c := range s.children {
		if c.Value() != nil {
			live = append(live, c)
		}
	}
	s.children = append(live, weak.Make(child))
}

// refreshChildren invalidates every child still alive, skipping collected ones
func (s *structure) refreshChildren() {
	live := s.children[:0]
	for _, c := range s.children {
		if v := c.Value(); v != nil {
			live = append(live, c)
			v.Refresh()
		}
	}
	s.children = live
}

// Lineage returns n followed by its ancestors, root last
func Lineage(n Node) []Node {
	var chain []Node
	for cur := n; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}
	return chain
}

// Ancestor returns the node at depth index in n's lineage: 0 is n itself,
// negative indexes count from the root end (-1 is the root).
func Ancestor(n Node, index int) (Node, error) {
	chain := Lineage(n)
	i := index
	if i < 0 {
		i += len(chain)
	}
	if i < 0 || i >= len(chain) {
		return nil, &entities.NotFoundError{Key: fmt.Sprintf("ancestor %d", index), Within: n.String()}
	}
	return chain[i], nil
}

// AncestorNamed returns the first node of n's lineage whose name or kind is name
func AncestorNamed(n Node, name string) (Node, error) {
	for _, cur := range Lineage(n) {
		if cur.Name() == name || cur.Kind() == name {
			return cur, nil
		}
	}
	return nil, &entities.NotFoundError{Key: name, Within: n.String()}
}

// OwningPage returns the page at the root of n's lineage
func OwningPage(n Node) (*Page, error) {
	for _, cur := range Lineage(n) {
		if p, ok := cur.(*Page); ok {
			return p, nil
		}
	}
	return nil, &entities.NotFoundError{Key: "page", Within: n.String()}
}

// dotted renders the lineage names root first: page.menu.item
func dotted(n Node) string {
	chain := Lineage(n)
	names := make([]string, len(chain))
	for i, cur := range chain {
		names[len(chain)-1-i] = cur.Name()
	}
	return strings.Join(names, ".")
}
