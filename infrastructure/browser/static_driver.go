package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"page_objects/domain/entities"
	"page_objects/domain/interfaces"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const blankDocument = "<html><head></head><body></body></html>"

// ClickHook runs after a click, outside the driver lock, so it may change
// the document (SetHTML, Mutate, SetURL)
type ClickHook func(d *StaticDriver, node *html.Node)

// StaticDriver is an in-memory browser over parsed HTML documents. Urls
// map to routed documents or local files; handles go stale when the
// document is replaced or the node is detached. Scripts run in goja.
type StaticDriver struct {
	mu          sync.Mutex
	logger      *logrus.Logger
	doc         *html.Node
	url         string
	generation  int
	routes      map[string]string
	redirects   map[string]string
	onClick     ClickHook
	closed      bool
	navigations int
	urlReads    int
	clicks      int
	scrolls     int
}

// staticHandle is a node of one document generation
type staticHandle struct {
	node       *html.Node
	generation int
}

// NewStaticDriver - creates an in-memory driver showing a blank document
func NewStaticDriver(logger *logrus.Logger) *StaticDriver {
	if logger == nil {
		logger = logrus.New()
	}
	doc, _ := htmlquery.Parse(strings.NewReader(blankDocument))
	return &StaticDriver{
		logger:    logger,
		doc:       doc,
		url:       "about:blank",
		routes:    map[string]string{},
		redirects: map[string]string{},
	}
}

// Route serves document at url
func (d *StaticDriver) Route(url, document string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[url] = document
}

// RedirectRoute makes navigating to from land on to
func (d *StaticDriver) RedirectRoute(from, to string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.redirects[from] = to
}

// OnClick sets the hook run after every click
func (d *StaticDriver) OnClick(hook ClickHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClick = hook
}

// SetHTML replaces the current document; every handle goes stale
func (d *StaticDriver) SetHTML(document string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(document)
}

// SetURL changes the location without loading a document, like a client side route
func (d *StaticDriver) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

// Mutate edits the live document. Removed nodes become stale handles.
func (d *StaticDriver) Mutate(fn func(doc *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc)
}

// HTML renders the current document
func (d *StaticDriver) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return ""
	}
	return htmlquery.OutputHTML(d.doc, true)
}

// Navigations counts Navigate calls
func (d *StaticDriver) Navigations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.navigations
}

// URLReads counts CurrentURL calls
func (d *StaticDriver) URLReads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urlReads
}

// Clicks counts Click calls that reached an element
func (d *StaticDriver) Clicks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clicks
}

// Scrolls counts ScrollIntoView calls
func (d *StaticDriver) Scrolls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrolls
}

func (d *StaticDriver) load(document string) error {
	doc, err := htmlquery.Parse(strings.NewReader(document))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	d.doc = doc
	d.generation++
	return nil
}

func (d *StaticDriver) check() error {
	if d.closed {
		return entities.ErrSessionClosed
	}
	return nil
}

// node returns the live node behind h; nil means the document
func (d *StaticDriver) node(h interfaces.Handle) (*html.Node, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if h == nil {
		return d.doc, nil
	}
	sh, ok := h.(*staticHandle)
	if !ok {
		return nil, fmt.Errorf("unexpected handle type %T", h)
	}
	if sh.generation != d.generation || !d.attached(sh.node) {
		return nil, entities.ErrStaleHandle
	}
	return sh.node, nil
}

func (d *StaticDriver) attached(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.doc {
			return true
		}
	}
	return false
}

func (d *StaticDriver) handle(n *html.Node) *staticHandle {
	return &staticHandle{node: n, generation: d.generation}
}

func query(root *html.Node, locator entities.Locator) ([]*html.Node, error) {
	var nodes []*html.Node
	switch locator.Method {
	case entities.MethodXPath:
		found, err := htmlquery.QueryAll(root, locator.Expression)
		if err != nil {
			return nil, &entities.ConfigurationError{Reason: fmt.Sprintf("invalid xpath %q: %v", locator.Expression, err)}
		}
		nodes = found
	case entities.MethodCSS:
		sel, err := cascadia.Compile(locator.Expression)
		if err != nil {
			return nil, &entities.ConfigurationError{Reason: fmt.Sprintf("invalid css selector %q: %v", locator.Expression, err)}
		}
		nodes = cascadia.QueryAll(root, sel)
	default:
		return nil, &entities.ConfigurationError{Reason: fmt.Sprintf("unknown locator method %q", locator.Method)}
	}

	elements := nodes[:0]
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			elements = append(elements, n)
		case html.DocumentNode:
			// "." under the document stands for its root element
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode {
					elements = append(elements, c)
					break
				}
			}
		}
	}
	return elements, nil
}

// Locate finds the first element matching locator under root
func (d *StaticDriver) Locate(ctx context.Context, root interfaces.Handle, locator entities.Locator) (interfaces.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(root)
	if err != nil {
		return nil, err
	}
	nodes, err := query(n, locator)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", locator, entities.ErrNoSuchElement)
	}
	return d.handle(nodes[0]), nil
}

// LocateMany finds every element matching locator under root
func (d *StaticDriver) LocateMany(ctx context.Context, root interfaces.Handle, locator entities.Locator) ([]interfaces.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(root)
	if err != nil {
		return nil, err
	}
	nodes, err := query(n, locator)
	if err != nil {
		return nil, err
	}
	handles := make([]interfaces.Handle, len(nodes))
	for i, node := range nodes {
		handles[i] = d.handle(node)
	}
	return handles, nil
}

// Click counts the click, follows links and runs the click hook
func (d *StaticDriver) Click(ctx context.Context, h interfaces.Handle) error {
	d.mu.Lock()
	n, err := d.node(h)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if !displayed(n) {
		d.mu.Unlock()
		return fmt.Errorf("element not interactable: <%s> is not displayed", n.Data)
	}
	d.clicks++
	hook := d.onClick
	var target string
	if n.Data == "a" {
		if href := htmlquery.SelectAttr(n, "href"); href != "" {
			target = d.resolve(href)
		}
	}
	d.mu.Unlock()

	if target != "" {
		if err := d.Navigate(ctx, target); err != nil {
			return err
		}
	}
	if hook != nil {
		hook(d, n)
	}
	return nil
}

// SendKeys appends text to the value of the element
func (d *StaticDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(h)
	if err != nil {
		return err
	}
	if !enabled(n) {
		return fmt.Errorf("element not interactable: <%s> is disabled", n.Data)
	}
	setAttr(n, "value", htmlquery.SelectAttr(n, "value")+text)
	return nil
}

// GetAttribute reads an attribute; textContent and innerHTML are computed
func (d *StaticDriver) GetAttribute(ctx context.Context, h interfaces.Handle, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(h)
	if err != nil {
		return "", err
	}
	switch name {
	case "textContent":
		return htmlquery.InnerText(n), nil
	case "innerText":
		return visibleText(n), nil
	case "innerHTML":
		return htmlquery.OutputHTML(n, false), nil
	case "outerHTML":
		return htmlquery.OutputHTML(n, true), nil
	}
	return htmlquery.SelectAttr(n, name), nil
}

// GetProperty reads a DOM property
func (d *StaticDriver) GetProperty(ctx context.Context, h interfaces.Handle, name string) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(h)
	if err != nil {
		return nil, err
	}
	return property(n, name), nil
}

// GetText returns the rendered text, empty for hidden elements
func (d *StaticDriver) GetText(ctx context.Context, h interfaces.Handle) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(h)
	if err != nil {
		return "", err
	}
	if !displayed(n) {
		return "", nil
	}
	return visibleText(n), nil
}

// IsDisplayed checks the element and its ancestors for hiding
func (d *StaticDriver) IsDisplayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(h)
	if err != nil {
		return false, err
	}
	return displayed(n), nil
}

// IsEnabled checks the disabled attribute
func (d *StaticDriver) IsEnabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(h)
	if err != nil {
		return false, err
	}
	return enabled(n), nil
}

// ScrollIntoView only validates the handle; there is no viewport
func (d *StaticDriver) ScrollIntoView(ctx context.Context, h interfaces.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.node(h); err != nil {
		return err
	}
	d.scrolls++
	return nil
}

// Navigate loads the routed document for url, following redirects. File
// urls are read from disk; unknown urls show a blank document.
func (d *StaticDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	d.navigations++

	target := url
	for hops := 0; hops < 10; hops++ {
		next, ok := d.redirects[target]
		if !ok {
			break
		}
		target = next
	}

	document, ok := d.routes[target]
	if !ok {
		if path, isFile := strings.CutPrefix(target, "file://"); isFile {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			document = string(data)
		} else {
			d.logger.Warnf("No document routed for %s, showing a blank page", target)
			document = blankDocument
		}
	}
	if err := d.load(document); err != nil {
		return err
	}
	d.url = target
	d.logger.Debugf("Navigated to %s", target)
	return nil
}

// CurrentURL returns the location
func (d *StaticDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return "", err
	}
	d.urlReads++
	return d.url, nil
}

// Close discards the document; later calls fail
func (d *StaticDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.doc = nil
	return nil
}

// resolve makes href absolute against the current location
func (d *StaticDriver) resolve(href string) string {
	base, err := url.Parse(d.url)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func displayed(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		switch cur.Data {
		case "head", "script", "style", "template", "noscript":
			return false
		}
		if htmlquery.ExistsAttr(cur, "hidden") {
			return false
		}
		if cur.Data == "input" && strings.EqualFold(htmlquery.SelectAttr(cur, "type"), "hidden") {
			return false
		}
		style := parseStyle(htmlquery.SelectAttr(cur, "style"))
		if style["display"] == "none" || style["visibility"] == "hidden" {
			return false
		}
	}
	return true
}

func enabled(n *html.Node) bool {
	return !htmlquery.ExistsAttr(n, "disabled")
}

// visibleText collapses whitespace of the text of displayed descendants
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if cur != n && !displayed(cur) {
				return
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func property(n *html.Node, name string) interface{} {
	switch name {
	case "tagName", "nodeName":
		return strings.ToUpper(n.Data)
	case "textContent":
		return htmlquery.InnerText(n)
	case "innerText":
		return visibleText(n)
	case "innerHTML":
		return htmlquery.OutputHTML(n, false)
	case "value", "id", "name", "href", "type":
		return htmlquery.SelectAttr(n, name)
	case "className":
		return htmlquery.SelectAttr(n, "class")
	case "checked", "disabled", "hidden", "selected", "required":
		return htmlquery.ExistsAttr(n, name)
	case "dataset":
		return dataset(n)
	case "childElementCount":
		count := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				count++
			}
		}
		return count
	}
	if htmlquery.ExistsAttr(n, name) {
		return htmlquery.SelectAttr(n, name)
	}
	return nil
}

// dataset maps data-foo-bar attributes to fooBar keys
func dataset(n *html.Node) map[string]interface{} {
	data := map[string]interface{}{}
	for _, a := range n.Attr {
		key, ok := strings.CutPrefix(a.Key, "data-")
		if !ok {
			continue
		}
		parts := strings.Split(key, "-")
		for i := 1; i < len(parts); i++ {
			if parts[i] != "" {
				parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
			}
		}
		data[strings.Join(parts, "")] = a.Val
	}
	return data
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// parseStyle reads an inline style attribute into lower case declarations
func parseStyle(style string) map[string]string {
	declarations := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		declarations[strings.ToLower(strings.TrimSpace(name))] = strings.ToLower(strings.TrimSpace(value))
	}
	return declarations
}
