package pageobject

import (
	"context"
	"strings"
	"testing"
	"time"

	"page_objects/domain/entities"
	"page_objects/infrastructure/browser"

	"github.com/andybalholm/cascadia"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const testURL = "https://app.test/"

const inbox = `<html><body>
<div id="main">
  <h1 class="title">Inbox</h1>
  <ul id="list"><li data-id="a">Alpha</li><li data-id="b">Beta</li><li data-id="c">Gamma</li></ul>
  <p id="hidden" style="display: none">secret</p>
  <input id="name" name="name">
</div>
</body></html>`

type fixture struct {
	ctx     context.Context
	driver  *browser.StaticDriver
	session *Session
	page    *Page
	hook    *test.Hook
}

// newFixture opens testURL serving document on an in-memory driver with
// short timeouts
func newFixture(t *testing.T, document string, opts ...SessionOption) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	driver := browser.NewStaticDriver(logger)
	driver.Route(testURL, document)

	opts = append([]SessionOption{
		WithDefaultTimeout(150 * time.Millisecond),
		WithPollPeriod(5 * time.Millisecond),
	}, opts...)
	session := NewSession(driver, logger, opts...)

	ctx := context.Background()
	page, err := NewPage(ctx, session, "home", URL(testURL))
	require.NoError(t, err)
	return &fixture{ctx: ctx, driver: driver, session: session, page: page, hook: hook}
}

func (f *fixture) view(t *testing.T, parent Parent, name string, locator entities.Locator, opts ...Option) *View {
	t.Helper()
	v, err := NewView(parent, name, locator, opts...)
	require.NoError(t, err)
	return v
}

// removeFirst detaches the first element matching the css selector
func (f *fixture) removeFirst(t *testing.T, selector string) {
	t.Helper()
	f.driver.Mutate(func(doc *html.Node) {
		n := findElement(doc, selector)
		require.NotNil(t, n, selector)
		n.Parent.RemoveChild(n)
	})
}

// appendHTML parses fragment as children of the first element matching selector
func (f *fixture) appendHTML(t *testing.T, selector, fragment string) {
	t.Helper()
	f.driver.Mutate(func(doc *html.Node) {
		n := findElement(doc, selector)
		require.NotNil(t, n, selector)
		nodes, err := html.ParseFragment(strings.NewReader(fragment), n)
		require.NoError(t, err)
		for _, child := range nodes {
			n.AppendChild(child)
		}
	})
}

func css(expression string) entities.Locator {
	return entities.CSS(expression)
}

func xpath(expression string) entities.Locator {
	return entities.XPath(expression)
}

func findElement(doc *html.Node, selector string) *html.Node {
	return cascadia.Query(doc, cascadia.MustCompile(selector))
}
