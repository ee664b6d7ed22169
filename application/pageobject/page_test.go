package pageobject

import (
	"context"
	"testing"
	"time"

	"page_objects/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_FixedURLNavigatesOnlyWhenElsewhere(t *testing.T) {
	f := newFixture(t, inbox)
	assert.Equal(t, 1, f.driver.Navigations())
	assert.Equal(t, PageStable, f.page.State())
	assert.Equal(t, testURL, f.page.URL())

	require.NoError(t, f.page.Get(f.ctx, false))
	assert.Equal(t, 1, f.driver.Navigations())

	again, err := NewPage(f.ctx, f.session, "again", URL(testURL))
	require.NoError(t, err)
	assert.Equal(t, PageStable, again.State())
	assert.Equal(t, 1, f.driver.Navigations(), "already there")

	require.NoError(t, f.page.Refresh(f.ctx))
	assert.Equal(t, 2, f.driver.Navigations())
}

func TestPage_GetReturnsAfterLeaving(t *testing.T) {
	f := newFixture(t, inbox)
	title := f.view(t, f.page, "title", css("h1.title"))
	_, err := title.Handle(f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.page.Navigate(f.ctx, testURL+"elsewhere"))
	assert.Equal(t, 2, f.driver.Navigations())
	assert.Equal(t, PageInitial, f.page.State())
	assert.False(t, title.Resolved())

	require.NoError(t, f.page.Get(f.ctx, false))
	assert.Equal(t, 3, f.driver.Navigations())
	assert.Equal(t, PageStable, f.page.State())

	current, err := f.page.CurrentURL(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, testURL, current)

	text, err := title.Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Inbox", text)
}

func TestPage_PatternNeverNavigates(t *testing.T) {
	f := newFixture(t, inbox)
	f.driver.SetURL(testURL + "items/42")
	before := f.driver.Navigations()

	item, err := NewPage(f.ctx, f.session, "item", Pattern(`https://app\.test/items/\d+`))
	require.NoError(t, err)
	assert.Equal(t, before, f.driver.Navigations())
	assert.Equal(t, testURL+"items/42", item.URL())
	assert.Equal(t, PageStable, item.State())

	f.driver.SetURL(testURL)
	err = item.Get(f.ctx, false)
	assert.True(t, entities.IsTimeout(err))
	assert.Contains(t, err.Error(), "failed to transition to a url matching")
	assert.Equal(t, before, f.driver.Navigations())
	assert.Equal(t, PageInitial, item.State())
}

func TestPage_PatternWaitsForLocation(t *testing.T) {
	f := newFixture(t, inbox)
	go func() {
		time.Sleep(30 * time.Millisecond)
		f.driver.SetURL(testURL + "items/7")
	}()

	item, err := NewPage(f.ctx, f.session, "item", Pattern(`https://app\.test/items/\d+`), PageTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, testURL+"items/7", item.URL())
	assert.Equal(t, time.Second, item.Timeout())
}

func TestPage_PatternIsAnchored(t *testing.T) {
	f := newFixture(t, inbox)
	f.driver.SetURL("https://evil.test/?next=https://app.test/items/1")

	_, err := NewPage(f.ctx, f.session, "item", Pattern(`https://app\.test/items/\d+`), PageTimeout(20*time.Millisecond))
	assert.True(t, entities.IsTimeout(err))
}

func TestPage_ContingentURL(t *testing.T) {
	f := newFixture(t, inbox)

	settings, err := f.page.Open(f.ctx, "settings", URL("./settings"))
	require.NoError(t, err)
	assert.Equal(t, testURL+"settings", settings.URL())
	assert.Equal(t, 2, f.driver.Navigations())
	assert.Same(t, f.page, settings.Parent())
	assert.Equal(t, "home.settings", settings.String())

	root, err := settings.Ancestor(-1)
	require.NoError(t, err)
	assert.Same(t, f.page, root)
}

func TestPage_ContingentPattern(t *testing.T) {
	f := newFixture(t, inbox)
	f.driver.SetURL(testURL + "items/7")

	item, err := f.page.Open(f.ctx, "item", Pattern(`./items/\d+`))
	require.NoError(t, err)
	assert.Equal(t, testURL+"items/7", item.URL())

	f.driver.SetURL("https://appXtest/items/7")
	_, err = f.page.Open(f.ctx, "lookalike", Pattern(`./items/\d+`), PageTimeout(20*time.Millisecond))
	assert.True(t, entities.IsTimeout(err), "the parent url is matched literally")
}

func TestPage_URLTemplate(t *testing.T) {
	f := newFixture(t, inbox)

	user, err := NewPage(f.ctx, f.session, "user", URL(testURL+"users/%s", "ann"))
	require.NoError(t, err)
	assert.Equal(t, testURL+"users/ann", user.URL())
	assert.Equal(t, 2, f.driver.Navigations())
}

func TestPage_ConfigurationErrors(t *testing.T) {
	f := newFixture(t, inbox)

	tests := []struct {
		name string
		opts []PageOption
	}{
		{"no url or pattern", nil},
		{"contingent url without parent", []PageOption{URL("./settings")}},
		{"contingent pattern without parent", []PageOption{Pattern(`./items/\d+`)}},
		{"invalid pattern", []PageOption{Pattern(`(`)}},
		{"too many url arguments", []PageOption{URL(testURL+"users/%s", "ann", "bob")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPage(f.ctx, f.session, "broken", tt.opts...)
			assert.True(t, entities.IsConfiguration(err), "%v", err)
		})
	}

	_, err := NewPage(f.ctx, nil, "nosession", URL(testURL))
	assert.True(t, entities.IsConfiguration(err))
	assert.Equal(t, 1, f.driver.Navigations(), "invalid pages never navigate")
}

func TestPage_RedirectRunsBeforeArrival(t *testing.T) {
	f := newFixture(t, inbox)
	f.driver.RedirectRoute(testURL+"private", testURL+"login")

	calls := 0
	private, err := NewPage(f.ctx, f.session, "private", URL(testURL+"private"), Redirect(func(ctx context.Context, p *Page) error {
		calls++
		current, err := p.CurrentURL(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, testURL+"login", current)
		f.driver.SetURL(p.URL())
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, PageStable, private.State())

	_, err = NewPage(f.ctx, f.session, "stuck", URL(testURL+"private"), PageTimeout(20*time.Millisecond))
	assert.True(t, entities.IsTimeout(err), "without the redirect step the page never arrives")
}

func TestPage_WaitsUntilLoaded(t *testing.T) {
	f := newFixture(t, inbox)

	checks := 0
	_, err := NewPage(f.ctx, f.session, "slow", URL(testURL+"slow"), IsLoaded(func(context.Context, *Page) (bool, error) {
		checks++
		return checks >= 3, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, checks)
}

func TestPageState_String(t *testing.T) {
	assert.Equal(t, "initial", PageInitial.String())
	assert.Equal(t, "transitioning", PageTransitioning.String())
	assert.Equal(t, "stable", PageStable.String())
}
