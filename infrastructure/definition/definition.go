// Package definition loads page and view declarations from yaml.
//
//	pages:
//	  - name: search
//	    url: https://example.com/search?q=%s
//	    views:
//	      - name: results
//	        kind: mapping
//	        css: ol.results
//	        key_attribute: data-id
//	        item: {xpath: "./li[%d]"}
//	    pages:
//	      - name: result
//	        pattern: ./item/\d+
package definition

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"page_objects/application/pageobject"
	"page_objects/domain/entities"

	"gopkg.in/yaml.v3"
)

// Definition is a set of root pages
type Definition struct {
	Pages []pageobject.PageDeclaration
}

type document struct {
	Pages []page `yaml:"pages"`
}

type page struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Pattern string   `yaml:"pattern"`
	Timeout Duration `yaml:"timeout"`
	Views   []view   `yaml:"views"`
	Pages   []page   `yaml:"pages"`
}

type view struct {
	Name            string   `yaml:"name"`
	Kind            string   `yaml:"kind"`
	XPath           string   `yaml:"xpath"`
	CSS             string   `yaml:"css"`
	Timeout         Duration `yaml:"timeout"`
	Highlight       *string  `yaml:"highlight"`
	Item            *view    `yaml:"item"`
	Children        []view   `yaml:"children"`
	AlwaysDisplayed bool     `yaml:"always_displayed"`
	ClosesOnSelect  *bool    `yaml:"closes_on_select"`
	KeyAttribute    string   `yaml:"key_attribute"`
	Minimum         int      `yaml:"minimum"`
	Maximum         int      `yaml:"maximum"`
}

// Duration accepts "1.5s" style durations or a number of seconds
type Duration struct {
	Value *time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" || node.Tag == "!!null" {
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		d.Value = &parsed
		return nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, raw)
	}
	parsed := time.Duration(seconds * float64(time.Second))
	d.Value = &parsed
	return nil
}

// Load - reads and parses a definition file
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse - decodes yaml and validates every declaration
func Parse(data []byte) (*Definition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &entities.ConfigurationError{Reason: err.Error()}
	}

	def := &Definition{}
	for _, p := range doc.Pages {
		decl, err := p.declaration()
		if err != nil {
			return nil, err
		}
		def.Pages = append(def.Pages, decl)
	}
	return def, nil
}

// Page returns the root page declared under name
func (d *Definition) Page(name string) (pageobject.PageDeclaration, error) {
	for _, p := range d.Pages {
		if p.Name == name {
			return p, nil
		}
	}
	return pageobject.PageDeclaration{}, &entities.NotFoundError{Key: name, Within: "definition"}
}

// Names lists the root pages
func (d *Definition) Names() []string {
	names := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		names[i] = p.Name
	}
	return names
}

func (p page) declaration() (pageobject.PageDeclaration, error) {
	if p.Name == "" {
		return pageobject.PageDeclaration{}, &entities.ConfigurationError{Reason: "page without a name"}
	}
	if p.URL == "" && p.Pattern == "" {
		return pageobject.PageDeclaration{}, &entities.ConfigurationError{Reason: fmt.Sprintf("page %s: a url or a pattern is required", p.Name)}
	}
	decl := pageobject.PageDeclaration{
		Name:    p.Name,
		URL:     p.URL,
		Pattern: p.Pattern,
		Timeout: p.Timeout.Value,
	}
	for _, v := range p.Views {
		vd, err := v.declaration(false)
		if err != nil {
			return pageobject.PageDeclaration{}, fmt.Errorf("page %s: %w", p.Name, err)
		}
		decl.Views = append(decl.Views, vd)
	}
	// the registry rejects invalid or duplicate views
	if _, err := decl.Registry(); err != nil {
		return pageobject.PageDeclaration{}, err
	}
	for _, child := range p.Pages {
		cd, err := child.declaration()
		if err != nil {
			return pageobject.PageDeclaration{}, fmt.Errorf("page %s: %w", p.Name, err)
		}
		decl.Pages = append(decl.Pages, cd)
	}
	return decl, nil
}

func (v view) declaration(item bool) (pageobject.Declaration, error) {
	decl := pageobject.Declaration{
		Name:            v.Name,
		Kind:            pageobject.Kind(strings.ToLower(v.Kind)),
		Timeout:         v.Timeout.Value,
		Highlight:       v.Highlight,
		AlwaysDisplayed: v.AlwaysDisplayed,
		ClosesOnSelect:  v.ClosesOnSelect,
		KeyAttribute:    v.KeyAttribute,
		Minimum:         v.Minimum,
		Maximum:         v.Maximum,
	}

	// items may rely on the default child locator
	if !item || v.XPath != "" || v.CSS != "" {
		locator, err := entities.SelectLocator(map[string]string{
			string(entities.MethodXPath): v.XPath,
			string(entities.MethodCSS):   v.CSS,
		})
		if err != nil {
			return pageobject.Declaration{}, fmt.Errorf("view %s: %w", v.Name, err)
		}
		decl.Locator = locator
	}

	if v.Item != nil {
		itemDecl, err := v.Item.declaration(true)
		if err != nil {
			return pageobject.Declaration{}, fmt.Errorf("view %s: %w", v.Name, err)
		}
		decl.Item = &itemDecl
	}
	for _, c := range v.Children {
		cd, err := c.declaration(false)
		if err != nil {
			return pageobject.Declaration{}, fmt.Errorf("view %s: %w", v.Name, err)
		}
		decl.Children = append(decl.Children, cd)
	}
	return decl, nil
}
