package browser

import (
	"context"
	"fmt"
	"strings"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// ExecuteScript runs a script body in goja with `arguments` bound to args.
// Handles become element objects exposing a small DOM surface: tagName,
// id, textContent, style, hidden, getAttribute, setAttribute, removeAttribute,
// scrollIntoView. window.getComputedStyle reads inline styles. Returned
// elements map back to handles.
func (d *StaticDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}

	vm := goja.New()
	values := make([]goja.Value, len(args))
	for i, arg := range args {
		v, err := d.toScript(vm, arg)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	if err := vm.Set("document", d.scriptDocument(vm)); err != nil {
		return nil, err
	}
	if err := vm.Set("window", scriptWindow(vm)); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	fn, err := vm.RunString("(function() {\n" + script + "\n})")
	if err != nil {
		return nil, fmt.Errorf("script compile error: %w", err)
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("script is not callable")
	}
	result, err := call(goja.Undefined(), values...)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}
	return d.fromScript(result), nil
}

func (d *StaticDriver) toScript(vm *goja.Runtime, arg interface{}) (goja.Value, error) {
	switch a := arg.(type) {
	case nil:
		return goja.Null(), nil
	case *staticHandle:
		n, err := d.node(a)
		if err != nil {
			return nil, err
		}
		return vm.NewDynamicObject(&scriptElement{vm: vm, driver: d, node: n}), nil
	case []interfaces.Handle:
		items := make([]interface{}, len(a))
		for i, h := range a {
			v, err := d.toScript(vm, h)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return vm.NewArray(items...), nil
	}
	return vm.ToValue(arg), nil
}

func (d *StaticDriver) fromScript(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch e := v.Export().(type) {
	case *scriptElement:
		return d.handle(e.node)
	case []interface{}:
		for i, item := range e {
			if el, ok := item.(*scriptElement); ok {
				e[i] = d.handle(el.node)
			}
		}
		return e
	default:
		return e
	}
}

func (d *StaticDriver) scriptDocument(vm *goja.Runtime) *goja.Object {
	doc := vm.NewObject()
	find := func(all bool) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			nodes, err := query(d.doc, entities.CSS(call.Argument(0).String()))
			if err != nil {
				panic(vm.NewGoError(err))
			}
			if !all {
				if len(nodes) == 0 {
					return goja.Null()
				}
				return vm.NewDynamicObject(&scriptElement{vm: vm, driver: d, node: nodes[0]})
			}
			items := make([]interface{}, len(nodes))
			for i, n := range nodes {
				items[i] = vm.NewDynamicObject(&scriptElement{vm: vm, driver: d, node: n})
			}
			return vm.NewArray(items...)
		}
	}
	_ = doc.Set("querySelector", find(false))
	_ = doc.Set("querySelectorAll", find(true))
	_ = doc.Set("URL", d.url)
	return doc
}

// scriptWindow only offers getComputedStyle, which sees inline styles
func scriptWindow(vm *goja.Runtime) *goja.Object {
	window := vm.NewObject()
	_ = window.Set("getComputedStyle", func(call goja.FunctionCall) goja.Value {
		el, ok := call.Argument(0).Export().(*scriptElement)
		if !ok {
			panic(vm.NewTypeError("getComputedStyle: argument is not an element"))
		}
		return vm.NewDynamicObject(&scriptStyle{vm: vm, node: el.node, computed: true})
	})
	return window
}

// scriptElement exposes a node to scripts. The driver lock is held for
// the whole script, so it touches the document directly.
type scriptElement struct {
	vm     *goja.Runtime
	driver *StaticDriver
	node   *html.Node
}

var scriptElementKeys = []string{"tagName", "id", "className", "textContent", "innerHTML", "hidden", "style", "getAttribute", "setAttribute", "removeAttribute", "scrollIntoView"}

func (e *scriptElement) Get(key string) goja.Value {
	n := e.node
	switch key {
	case "tagName", "id", "className", "textContent", "innerHTML", "hidden", "disabled", "value", "childElementCount":
		return e.vm.ToValue(property(n, key))
	case "style":
		return e.vm.NewDynamicObject(&scriptStyle{vm: e.vm, node: n})
	case "getAttribute":
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			name := call.Argument(0).String()
			if !htmlquery.ExistsAttr(n, name) {
				return goja.Null()
			}
			return e.vm.ToValue(htmlquery.SelectAttr(n, name))
		})
	case "setAttribute":
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			setAttr(n, call.Argument(0).String(), call.Argument(1).String())
			return goja.Undefined()
		})
	case "removeAttribute":
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			removeAttr(n, call.Argument(0).String())
			return goja.Undefined()
		})
	case "scrollIntoView":
		return e.vm.ToValue(func(goja.FunctionCall) goja.Value {
			e.driver.scrolls++
			return goja.Undefined()
		})
	case "querySelector":
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			sel, err := cascadia.Compile(call.Argument(0).String())
			if err != nil {
				panic(e.vm.NewGoError(err))
			}
			found := cascadia.Query(n, sel)
			if found == nil {
				return goja.Null()
			}
			return e.vm.NewDynamicObject(&scriptElement{vm: e.vm, driver: e.driver, node: found})
		})
	}
	return nil
}

func (e *scriptElement) Set(key string, val goja.Value) bool {
	switch key {
	case "id", "value":
		setAttr(e.node, key, val.String())
	case "className":
		setAttr(e.node, "class", val.String())
	case "hidden", "disabled":
		if val.ToBoolean() {
			setAttr(e.node, key, "")
		} else {
			removeAttr(e.node, key)
		}
	case "textContent":
		for c := e.node.FirstChild; c != nil; {
			next := c.NextSibling
			e.node.RemoveChild(c)
			c = next
		}
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: val.String()})
	default:
		return false
	}
	return true
}

func (e *scriptElement) Has(key string) bool {
	for _, k := range scriptElementKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (e *scriptElement) Delete(string) bool {
	return false
}

func (e *scriptElement) Keys() []string {
	return scriptElementKeys
}

// scriptStyle edits the inline style attribute, property names in camelCase.
// A computed style also reports display none for hidden elements.
type scriptStyle struct {
	vm       *goja.Runtime
	node     *html.Node
	computed bool
}

func (s *scriptStyle) declarations() [][2]string {
	var out [][2]string
	for _, decl := range strings.Split(htmlquery.SelectAttr(s.node, "style"), ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok {
			out = append(out, [2]string{strings.TrimSpace(name), strings.TrimSpace(value)})
		}
	}
	return out
}

func (s *scriptStyle) write(decls [][2]string) {
	if len(decls) == 0 {
		removeAttr(s.node, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d[0] + ": " + d[1]
	}
	setAttr(s.node, "style", strings.Join(parts, "; ")+";")
}

func (s *scriptStyle) value(name string) string {
	for _, d := range s.declarations() {
		if d[0] == name {
			return d[1]
		}
	}
	if s.computed && name == "display" && htmlquery.ExistsAttr(s.node, "hidden") {
		return "none"
	}
	return ""
}

func (s *scriptStyle) Get(key string) goja.Value {
	if key == "getPropertyValue" {
		return s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return s.vm.ToValue(s.value(call.Argument(0).String()))
		})
	}
	return s.vm.ToValue(s.value(kebab(key)))
}

func (s *scriptStyle) Set(key string, val goja.Value) bool {
	if s.computed {
		return false
	}
	name := kebab(key)
	var kept [][2]string
	for _, d := range s.declarations() {
		if d[0] != name {
			kept = append(kept, d)
		}
	}
	if val != nil && !goja.IsNull(val) && !goja.IsUndefined(val) && val.String() != "" {
		kept = append(kept, [2]string{name, val.String()})
	}
	s.write(kept)
	return true
}

func (s *scriptStyle) Has(key string) bool {
	return true
}

func (s *scriptStyle) Delete(key string) bool {
	return s.Set(key, goja.Null())
}

func (s *scriptStyle) Keys() []string {
	var keys []string
	for _, d := range s.declarations() {
		keys = append(keys, d[0])
	}
	return keys
}

// kebab turns borderTopColor into border-top-color
func kebab(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
