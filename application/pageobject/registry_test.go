package pageobject

import (
	"testing"

	"page_objects/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclaration_BindsEachKind(t *testing.T) {
	f := newFixture(t, inbox)

	tests := []struct {
		decl  Declaration
		check func(t *testing.T, v Viewer)
	}{
		{Declaration{Name: "title", Locator: css("h1.title")}, func(t *testing.T, v Viewer) { assert.IsType(t, &View{}, v) }},
		{Declaration{Name: "name", Kind: KindButton, Locator: css("#name")}, func(t *testing.T, v Viewer) { assert.IsType(t, &Button{}, v) }},
		{Declaration{Name: "list", Kind: KindContainer, Locator: css("#list")}, func(t *testing.T, v Viewer) { assert.IsType(t, &Container[*View]{}, v) }},
		{Declaration{Name: "people", Kind: KindMapping, Locator: css("#list"), KeyAttribute: "data-id"}, func(t *testing.T, v Viewer) { assert.IsType(t, &Mapping[*View]{}, v) }},
		{Declaration{Name: "grid", Kind: KindTree, Locator: css("#list")}, func(t *testing.T, v Viewer) { assert.IsType(t, &Tree{}, v) }},
		{Declaration{Name: "menu", Kind: KindMenu, Locator: css("#list"), AlwaysDisplayed: true}, func(t *testing.T, v Viewer) {
			require.IsType(t, &Menu{}, v)
			assert.True(t, v.(*Menu).IsOpen())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.decl.Name, func(t *testing.T) {
			v, err := tt.decl.Bind(f.page)
			require.NoError(t, err)
			assert.Equal(t, "home."+tt.decl.Name, v.String())
			tt.check(t, v)
		})
	}
}

func TestDeclaration_KeyAttribute(t *testing.T) {
	f := newFixture(t, inbox)
	decl := Declaration{Name: "people", Kind: KindMapping, Locator: css("#list"), KeyAttribute: "data-id", Minimum: 1}
	v, err := decl.Bind(f.page)
	require.NoError(t, err)

	keys, err := v.(*Mapping[*View]).Keys(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestDeclaration_BindWithArgs(t *testing.T) {
	f := newFixture(t, inbox)
	decl := Declaration{Name: "entry", Locator: xpath("//li[%d]")}

	v, err := decl.Bind(f.page, 2)
	require.NoError(t, err)
	text, err := v.Core().Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Beta", text)

	_, err = decl.Bind(f.page)
	assert.True(t, entities.IsConfiguration(err))
}

func TestDeclaration_Validate(t *testing.T) {
	tests := []struct {
		name string
		decl Declaration
	}{
		{"empty name", Declaration{Locator: css("p")}},
		{"dotted name", Declaration{Name: "a.b", Locator: css("p")}},
		{"unknown method", Declaration{Name: "a", Locator: entities.Locator{Method: "id", Expression: "a"}}},
		{"unknown kind", Declaration{Name: "a", Kind: "grid", Locator: css("p")}},
		{"view with items", Declaration{Name: "a", Locator: css("p"), Item: &Declaration{Locator: xpath("./li[%d]")}}},
		{"item without placeholder", Declaration{Name: "a", Kind: KindContainer, Locator: css("ul"), Item: &Declaration{Locator: css("li")}}},
		{"empty bounds", Declaration{Name: "a", Kind: KindMapping, Locator: css("ul"), Minimum: 2, Maximum: 3}},
		{"negative bounds", Declaration{Name: "a", Kind: KindMapping, Locator: css("ul"), Minimum: -1}},
		{"duplicate children", Declaration{Name: "a", Locator: css("div"), Children: []Declaration{
			{Name: "b", Locator: css("p")},
			{Name: "b", Locator: css("span")},
		}}},
		{"invalid child", Declaration{Name: "a", Locator: css("div"), Children: []Declaration{{Locator: css("p")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, entities.IsConfiguration(tt.decl.Validate()))
		})
	}

	valid := Declaration{Name: "a", Kind: KindMapping, Locator: css("ul"), Minimum: 1, Maximum: 3,
		Item: &Declaration{Locator: xpath("./li[{index}]")}}
	assert.NoError(t, valid.Validate())
}

func TestRegistry_LookupAndOrder(t *testing.T) {
	r, err := NewRegistry(
		Declaration{Name: "title", Locator: css("h1")},
		Declaration{Name: "list", Kind: KindContainer, Locator: css("#list")},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "list"}, r.Names())

	d, err := r.Lookup("list")
	require.NoError(t, err)
	assert.Equal(t, KindContainer, d.Kind)

	_, err = r.Lookup("missing")
	assert.True(t, entities.IsNotFound(err))

	err = r.Register(Declaration{Name: "title", Locator: css("h2")})
	assert.True(t, entities.IsConfiguration(err))
}

func TestRegistry_Resolve(t *testing.T) {
	f := newFixture(t, inbox)
	r, err := NewRegistry(
		Declaration{Name: "list", Kind: KindContainer, Locator: css("#list")},
		Declaration{Name: "people", Kind: KindMapping, Locator: css("#list")},
		Declaration{Name: "main", Locator: css("#main"), Children: []Declaration{
			{Name: "title", Locator: css("h1.title")},
		}},
		Declaration{Name: "rows", Kind: KindContainer, Locator: css("#list"), Item: &Declaration{
			Locator:  xpath("./li[%d]"),
			Children: []Declaration{{Name: "self"}},
		}},
	)
	require.NoError(t, err)

	tests := []struct {
		path string
		view string
		text string
	}{
		{"list.2", "home.list.item[2]", "Beta"},
		{"people.Gamma", "home.people.item[3]", "Gamma"},
		{"main.title", "home.main.title", "Inbox"},
		{"rows.1.self", "home.rows.item[1].self", "Alpha"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, err := r.Resolve(f.ctx, f.page, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.view, v.String())
			text, err := v.Core().Text(f.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.text, text)
		})
	}

	for _, path := range []string{"unknown", "main.nothing", "people.Delta"} {
		_, err := r.Resolve(f.ctx, f.page, path)
		assert.True(t, entities.IsNotFound(err), path)
	}
}

func TestPageDeclaration_OpenAndOpenFrom(t *testing.T) {
	f := newFixture(t, inbox)
	decl := PageDeclaration{
		Name:  "inbox",
		URL:   testURL,
		Views: []Declaration{{Name: "title", Locator: css("h1.title")}},
		Pages: []PageDeclaration{{Name: "settings", URL: "./settings"}},
	}

	p, err := decl.Open(f.ctx, f.session)
	require.NoError(t, err)
	assert.Equal(t, 1, f.driver.Navigations())

	views, err := decl.Registry()
	require.NoError(t, err)
	title, err := views.Bind(p, "title")
	require.NoError(t, err)
	text, err := title.Core().Text(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Inbox", text)

	sub, err := decl.Page("settings")
	require.NoError(t, err)
	settings, err := sub.OpenFrom(f.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, testURL+"settings", settings.URL())
	assert.Equal(t, "inbox.settings", settings.String())

	_, err = decl.Page("nope")
	assert.True(t, entities.IsNotFound(err))

	broken := PageDeclaration{Name: "broken", Views: []Declaration{{Name: "a.b"}}}
	_, err = broken.Registry()
	assert.True(t, entities.IsConfiguration(err))
}
