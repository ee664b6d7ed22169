package pageobject

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"page_objects/domain/entities"
	"page_objects/infrastructure/browser"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const feed = `<html><body>
<div id="feed"><article>1</article><article>2</article></div>
<button id="more">more</button>
</body></html>`

const feedLimit = 6

// withFeed makes clicking "more" append two articles up to feedLimit. The
// feed is busy until a background "request" completes.
func withFeed(f *fixture) {
	f.driver.OnClick(func(d *browser.StaticDriver, clicked *html.Node) {
		if htmlquery.SelectAttr(clicked, "id") != "more" {
			return
		}
		appended := false
		d.Mutate(func(doc *html.Node) {
			list := findElement(doc, "#feed")
			n := len(htmlquery.Find(list, "./article"))
			if n >= feedLimit {
				return
			}
			var b strings.Builder
			for i := n + 1; i <= n+2; i++ {
				fmt.Fprintf(&b, "<article>%d</article>", i)
			}
			nodes, err := html.ParseFragment(strings.NewReader(b.String()), list)
			if err != nil {
				return
			}
			for _, node := range nodes {
				list.AppendChild(node)
			}
			list.Attr = append(list.Attr, html.Attribute{Key: "aria-busy", Val: "true"})
			appended = true
		})
		if !appended {
			return
		}
		go func() {
			time.Sleep(10 * time.Millisecond)
			d.Mutate(func(doc *html.Node) {
				list := findElement(doc, "#feed")
				attrs := list.Attr[:0]
				for _, a := range list.Attr {
					if a.Key != "aria-busy" {
						attrs = append(attrs, a)
					}
				}
				list.Attr = attrs
			})
		}()
	})
}

func newTestFeed(t *testing.T, f *fixture) *InfiniteContainer[*View] {
	t.Helper()
	withFeed(f)
	more, err := NewButton(f.page, "more", css("#more"))
	require.NoError(t, err)

	load := func(ctx context.Context, _ *View) error {
		return more.Click(ctx)
	}
	loading := func(ctx context.Context, container *View) (bool, error) {
		busy, err := container.Attribute(ctx, "aria-busy")
		return busy == "true", err
	}
	c, err := NewInfiniteContainer(f.page, "feed", css("#feed"), Items(xpath("./article[%d]")), load, loading, WithTimeout(time.Second))
	require.NoError(t, err)
	return c
}

func TestInfinite_LoadsUntilNothingIsAdded(t *testing.T) {
	f := newFixture(t, feed)
	c := newTestFeed(t, f)

	items, err := c.Items(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, texts(t, f, items))
	assert.Equal(t, 3, f.driver.Clicks(), "the last pass adds nothing")
	assert.Equal(t, 3, f.driver.Scrolls())
}

func TestInfinite_StopsEarly(t *testing.T) {
	f := newFixture(t, feed)
	c := newTestFeed(t, f)

	for item, err := range c.All(f.ctx) {
		require.NoError(t, err)
		text, err := item.Text(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", text)
		break
	}
	assert.Equal(t, 1, f.driver.Clicks())
}

func TestInfinite_At(t *testing.T) {
	f := newFixture(t, feed)
	c := newTestFeed(t, f)

	third, err := c.At(f.ctx, 3)
	require.NoError(t, err)
	text, err := third.Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", text)
	assert.Equal(t, 1, f.driver.Clicks(), "only one pass was needed")

	last, err := c.At(f.ctx, -1)
	require.NoError(t, err)
	text, err = last.Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "6", text)

	_, err = c.At(f.ctx, -7)
	assert.True(t, entities.IsNotFound(err))
	_, err = c.At(f.ctx, 10)
	assert.True(t, entities.IsNotFound(err))
}

func TestInfinite_LoadFailureEndsIteration(t *testing.T) {
	f := newFixture(t, feed)
	c, err := NewInfiniteContainer(f.page, "feed", css("#feed"), Items(xpath("./article[%d]")),
		func(context.Context, *View) error { return fmt.Errorf("offline") }, nil)
	require.NoError(t, err)

	_, err = c.Items(f.ctx)
	assert.ErrorContains(t, err, "home.feed load: offline")
}
