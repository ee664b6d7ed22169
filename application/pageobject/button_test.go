package pageobject

import (
	"strings"
	"testing"
	"time"

	"page_objects/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const form = `<html><body>
<form id="form">
  <button id="go" disabled>Go</button>
  <button id="ghost" style="display: none">Ghost</button>
</form>
</body></html>`

func TestButton_WaitsUntilEnabled(t *testing.T) {
	f := newFixture(t, form)
	button, err := NewButton(f.page, "go", css("#go"), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "button", button.Kind())

	go func() {
		time.Sleep(30 * time.Millisecond)
		f.driver.Mutate(func(doc *html.Node) {
			n := findElement(doc, "#go")
			attrs := n.Attr[:0]
			for _, a := range n.Attr {
				if a.Key != "disabled" {
					attrs = append(attrs, a)
				}
			}
			n.Attr = attrs
		})
	}()

	require.NoError(t, button.Click(f.ctx))
	assert.Equal(t, 1, f.driver.Clicks())
}

func TestButton_HiddenTimesOut(t *testing.T) {
	f := newFixture(t, form)
	button, err := NewButton(f.page, "ghost", css("#ghost"), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	err = button.Click(f.ctx)
	assert.True(t, entities.IsTimeout(err))
	assert.Contains(t, err.Error(), "home.ghost(css=#ghost)")
	assert.Zero(t, f.driver.Clicks())
}

func TestButton_ClickSurvivesReplacedDocument(t *testing.T) {
	f := newFixture(t, strings.Replace(form, " disabled", "", 1))
	button, err := NewButton(f.page, "go", css("#go"))
	require.NoError(t, err)
	_, err = button.Handle(f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.driver.SetHTML(strings.Replace(form, " disabled", "", 1)))
	require.NoError(t, button.Click(f.ctx))
	assert.Equal(t, 1, f.driver.Clicks())
}
