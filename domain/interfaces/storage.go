package interfaces

import "page_objects/domain/entities"

// Journal stores the history of driver interactions
type Journal interface {
	// Append records one interaction
	Append(action entities.Action) error

	// Load returns every recorded interaction, oldest first
	Load() ([]entities.Action, error)

	// Flush persists buffered interactions
	Flush() error
}
