package entities

import "time"

// ActionType represents a driver interaction recorded in the journal
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionLocate   ActionType = "locate"
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionRead     ActionType = "read"
	ActionScript   ActionType = "script"
	ActionScroll   ActionType = "scroll"
	ActionClose    ActionType = "close"
)

// Action represents a single driver interaction
type Action struct {
	Session  string        `json:"session"`
	Type     ActionType    `json:"type"`
	Selector string        `json:"selector,omitempty"`
	Text     string        `json:"text,omitempty"`
	URL      string        `json:"url,omitempty"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether the interaction returned an error
func (a Action) Failed() bool {
	return a.Error != ""
}
