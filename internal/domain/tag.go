package domain

import "github.com/google/uuid"

// Tag is shared across todos (many-to-many, no ownership).
type Tag struct {
	ID    uuid.UUID
	Name  string
	Color string
}
