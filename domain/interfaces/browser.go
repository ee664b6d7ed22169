package interfaces

import (
	"context"

	"page_objects/domain/entities"
)

// Handle is an opaque reference to a live element owned by a Driver.
// A nil Handle stands for the document root.
type Handle interface{}

// Driver defines the browser capability consumed by page objects
type Driver interface {
	// Locate finds the first element matching locator under root.
	// Returns entities.ErrNoSuchElement when nothing matches.
	Locate(ctx context.Context, root Handle, locator entities.Locator) (Handle, error)

	// LocateMany finds every element matching locator under root
	LocateMany(ctx context.Context, root Handle, locator entities.Locator) ([]Handle, error)

	// Click clicks on an element
	Click(ctx context.Context, h Handle) error

	// SendKeys types text into an element
	SendKeys(ctx context.Context, h Handle, text string) error

	// GetAttribute reads an html attribute
	GetAttribute(ctx context.Context, h Handle, name string) (string, error)

	// GetProperty reads a DOM property
	GetProperty(ctx context.Context, h Handle, name string) (interface{}, error)

	// GetText returns the visible text of an element
	GetText(ctx context.Context, h Handle) (string, error)

	// IsDisplayed checks if an element is visible
	IsDisplayed(ctx context.Context, h Handle) (bool, error)

	// IsEnabled checks if an element accepts interaction
	IsEnabled(ctx context.Context, h Handle) (bool, error)

	// ScrollIntoView scrolls the element into the viewport
	ScrollIntoView(ctx context.Context, h Handle) error

	// ExecuteScript runs a script body; args (handles included) are visible as `arguments`
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)

	// Navigate navigates to a URL
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the current page URL
	CurrentURL(ctx context.Context) (string, error)

	// Close closes the browser
	Close() error
}
