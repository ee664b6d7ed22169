package pageobject

import (
	"errors"
	"strings"
	"testing"
	"time"

	"page_objects/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts[T Viewer](t *testing.T, f *fixture, items []T) []string {
	t.Helper()
	out := make([]string, len(items))
	for i, item := range items {
		text, err := item.Core().Text(f.ctx)
		require.NoError(t, err)
		out[i] = text
	}
	return out
}

func TestContainer_TerminatesAtLengthAndRestarts(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewViewContainer(f.page, "list", css("#list"))
	require.NoError(t, err)

	for pass := 0; pass < 2; pass++ {
		n, err := list.Len(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		items, err := list.Items(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, texts(t, f, items))
	}
}

func TestContainer_AllStopsWhenAsked(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewViewContainer(f.page, "list", css("#list"))
	require.NoError(t, err)

	var seen []string
	for item, err := range list.All(f.ctx) {
		require.NoError(t, err)
		text, err := item.Text(f.ctx)
		require.NoError(t, err)
		seen = append(seen, text)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"Alpha", "Beta"}, seen)
}

func TestContainer_EachStopsOnError(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewViewContainer(f.page, "list", css("#list"))
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = list.Each(f.ctx, func(item *View) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestContainer_FollowsTheDocument(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewViewContainer(f.page, "list", css("#list"))
	require.NoError(t, err)

	f.appendHTML(t, "#list", "<li>Delta</li>")
	n, err := list.Len(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, f.driver.SetHTML(strings.Replace(inbox, `<li data-id="c">Gamma</li>`, "", 1)))
	n, err = list.Len(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "a replaced document is picked up through the stale container")
}

func TestContainer_EmptyAndMissing(t *testing.T) {
	f := newFixture(t, inbox)
	f.appendHTML(t, "#main", `<ul id="empty"></ul>`)

	empty, err := NewViewContainer(f.page, "empty", css("#empty"))
	require.NoError(t, err)
	n, err := empty.Len(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	missing, err := NewViewContainer(f.page, "missing", css("#missing"), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	_, err = missing.Len(f.ctx)
	assert.True(t, entities.IsTimeout(err), "a missing container is an error, not an empty one")
}

func TestContainer_ClosedDriverFailsTheScan(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewViewContainer(f.page, "list", css("#list"))
	require.NoError(t, err)
	people, err := NewViewMapping(f.page, "people", css("#list"))
	require.NoError(t, err)

	n, err := list.Len(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	_, err = people.Handle(f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.driver.Close())

	items, err := list.Items(f.ctx)
	assert.ErrorIs(t, err, entities.ErrSessionClosed)
	assert.Nil(t, items)
	_, err = list.Len(f.ctx)
	assert.ErrorIs(t, err, entities.ErrSessionClosed)
	_, err = people.Keys(f.ctx)
	assert.ErrorIs(t, err, entities.ErrSessionClosed)
}

func TestContainer_MalformedItemLocatorFails(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewContainer(f.page, "list", css("#list"), Items(xpath("./li[%d")))
	require.NoError(t, err)

	items, err := list.Items(f.ctx)
	require.Error(t, err)
	assert.True(t, entities.IsConfiguration(err), err.Error())
	assert.Nil(t, items)

	_, err = list.Len(f.ctx)
	assert.True(t, entities.IsConfiguration(err))
}

func TestContainer_ItemWithoutScan(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewContainer(f.page, "list", css("#list"), Items(xpath("./li[%d]")))
	require.NoError(t, err)

	third, err := list.Item(3)
	require.NoError(t, err)
	assert.Equal(t, "home.list.item[3]", third.String())
	assert.Equal(t, "home.list(css=#list).item[3](xpath=./li[3])", third.Describe())
	assert.Equal(t, time.Duration(0), third.Timeout())

	text, err := third.Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Gamma", text)

	named, err := NewContainer(f.page, "named", css("#list"), Items(xpath("./li[{index}]")))
	require.NoError(t, err)
	first, err := named.Item(1)
	require.NoError(t, err)
	text, err = first.Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", text)
}

func TestContainer_ConfigurationErrors(t *testing.T) {
	f := newFixture(t, inbox)

	_, err := NewContainer[*View](f.page, "nobuilder", css("#list"), nil)
	assert.True(t, entities.IsConfiguration(err))

	flat, err := NewContainer(f.page, "flat", css("#list"), Items(css("li")))
	require.NoError(t, err)
	_, err = flat.Len(f.ctx)
	assert.True(t, entities.IsConfiguration(err), "an item locator without a placeholder cannot be indexed")
}

func TestContainer_ButtonItemsStopAtFirstUnusable(t *testing.T) {
	f := newFixture(t, inbox)
	f.appendHTML(t, "#main", `<div id="actions"><button>Save</button><button>Send</button><button disabled>Delete</button><button>Print</button></div>`)

	actions, err := NewContainer(f.page, "actions", css("#actions"), ButtonItems(DefaultItemLocator))
	require.NoError(t, err)

	buttons, err := actions.Items(f.ctx)
	require.NoError(t, err)
	require.Len(t, buttons, 2)
	assert.Equal(t, "button", buttons[0].Kind())

	require.NoError(t, buttons[1].Click(f.ctx))
	assert.Equal(t, 1, f.driver.Clicks())
}

func TestContainer_Viewers(t *testing.T) {
	f := newFixture(t, inbox)
	list, err := NewViewContainer(f.page, "list", css("#list"))
	require.NoError(t, err)

	viewers, err := list.Viewers(f.ctx)
	require.NoError(t, err)
	require.Len(t, viewers, 3)
	assert.Equal(t, "home.list.item[2]", viewers[1].String())
}
