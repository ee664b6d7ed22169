package entities

// ElementSnapshot is a point-in-time description of a resolved element
type ElementSnapshot struct {
	View        string            `json:"view"`        // dotted lineage of the view
	Locator     string            `json:"locator"`     // locator chain, root first
	Tag         string            `json:"tag"`         // tag name, lower case
	Text        string            `json:"text"`        // visible text
	Attributes  map[string]string `json:"attributes"`  // selected attributes
	IsVisible   bool              `json:"is_visible"`  // displayed
	IsClickable bool              `json:"is_clickable"` // displayed and enabled
}

// SnapshotAttributes lists the attributes captured in a snapshot
var SnapshotAttributes = []string{"id", "class", "name", "type", "href", "value", "aria-label", "data-testid"}
