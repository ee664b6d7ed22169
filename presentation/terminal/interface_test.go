package terminal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"page_objects/application/pageobject"
	"page_objects/domain/interfaces"
	"page_objects/infrastructure/browser"
	"page_objects/infrastructure/definition"
	"page_objects/infrastructure/storage"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const site = "https://shop.test/"

const shopPage = `<html><body>
<h1>Shop</h1>
<input name="q">
<ul class="products"><li data-sku="s1">Shirt</li><li data-sku="s2">Socks</li></ul>
<nav id="nav"><a href="cart">Cart</a></nav>
</body></html>`

const shopDefinition = `
pages:
  - name: shop
    url: https://shop.test/
    views:
      - name: title
        css: h1
      - name: search
        css: input[name=q]
      - name: products
        kind: mapping
        css: ul.products
        key_attribute: data-sku
      - name: list
        kind: container
        css: ul.products
    pages:
      - name: cart
        url: ./cart
`

func newTestTerminal(t *testing.T, input string, record bool) (*TerminalInterface, *bytes.Buffer) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	driver := browser.NewStaticDriver(logger)
	driver.Route(site, shopPage)
	driver.Route(site+"cart", `<html><body><h1>Cart</h1></body></html>`)

	def, err := definition.Parse([]byte(shopDefinition))
	require.NoError(t, err)

	var d interfaces.Driver = driver
	var journal interfaces.Journal
	if record {
		fj, err := storage.NewFileJournal(filepath.Join(t.TempDir(), "journal.json"))
		require.NoError(t, err)
		d, journal = browser.NewRecordingDriver(driver, fj, logger), fj
	}

	session := pageobject.NewSession(d, logger, pageobject.WithDefaultTimeout(100*time.Millisecond), pageobject.WithPollPeriod(5*time.Millisecond))
	out := &bytes.Buffer{}
	return NewTerminalInterface(session, def, journal, strings.NewReader(input), out), out
}

func TestTerminal_InspectsDeclaredPages(t *testing.T) {
	script := strings.Join([]string{
		"text title",
		"open shop",
		"views",
		"text title",
		"items products",
		"items list",
		"text products.s2",
		"type search socks",
		"snapshot search",
		"url",
		"pages",
		"go cart",
		"url",
		"quit",
	}, "\n")
	term, out := newTestTerminal(t, script, false)
	require.NoError(t, term.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "no page open")
	assert.Contains(t, output, "on shop (https://shop.test/)")
	assert.Contains(t, output, "products (mapping) css=ul.products")
	assert.Contains(t, output, "Shop\n")
	assert.Contains(t, output, "  s1\n  s2\n")
	assert.Contains(t, output, "  1. Shirt\n  2. Socks\n")
	assert.Contains(t, output, "Socks\n")
	assert.Contains(t, output, `"value": "socks"`)
	assert.Contains(t, output, "  go cart\n")
	assert.Contains(t, output, "on shop.cart (https://shop.test/cart)")
	assert.Contains(t, output, "https://shop.test/cart\n")
	assert.Contains(t, output, "Bye!")
}

func TestTerminal_ReportsErrorsAndKeepsGoing(t *testing.T) {
	script := strings.Join([]string{
		"open nowhere",
		"open " + site,
		"text missing",
		"frobnicate x",
		"select title x",
		"journal",
	}, "\n")
	term, out := newTestTerminal(t, script, false)
	require.NoError(t, term.Run(context.Background()), "end of input ends the session")

	output := out.String()
	assert.Contains(t, output, `error: "nowhere" was not found`)
	assert.Contains(t, output, "on page (https://shop.test/)")
	assert.Contains(t, output, `error: "missing" was not found`)
	assert.Contains(t, output, `unknown command "frobnicate"`)
	assert.Contains(t, output, "recording is off")
}

func TestTerminal_Journal(t *testing.T) {
	term, out := newTestTerminal(t, "open shop\nclick title\njournal 2\n", true)
	require.NoError(t, term.Run(context.Background()))

	// the output ends with the prompt left by end of input
	lines := strings.Split(out.String(), "\n")
	tail := lines[len(lines)-3 : len(lines)-1]
	assert.Contains(t, tail[0], "locate")
	assert.Contains(t, tail[1], "click")
	assert.Contains(t, tail[1], "css=h1")
}

func TestRootCommand_Dump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopDefinition), 0644))

	out := &bytes.Buffer{}
	cmd := NewRootCommand(strings.NewReader(""), out)
	cmd.SetArgs([]string{"dump", path})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, strings.Join([]string{
		"page shop https://shop.test/",
		"  title (view) css=h1",
		"  search (view) css=input[name=q]",
		"  products (mapping) css=ul.products",
		"  list (container) css=ul.products",
		"  page cart ./cart",
		"",
	}, "\n"), out.String())
}

func TestRootCommand_InspectStaticFile(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(shopPage), 0644))
	t.Setenv("PAGE_DRIVER", "static")
	t.Setenv("VIEW_TIMEOUT", "100ms")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("JOURNAL_PATH", filepath.Join(dir, "journal.json"))
	env := filepath.Join(dir, "missing.env")

	out := &bytes.Buffer{}
	cmd := NewRootCommand(strings.NewReader("url\nquit\n"), out)
	cmd.SetArgs([]string{"inspect", "--env", env, "--url", "file://" + page, "--record"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "file://"+page+"\n")

	out.Reset()
	journal := NewRootCommand(strings.NewReader(""), out)
	journal.SetArgs([]string{"journal", "--env", env, "-n", "5"})
	require.NoError(t, journal.Execute())
	assert.Contains(t, out.String(), "navigate")
}
