package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority of a todo item.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// DefaultPriority is applied when a create request omits priority.
const DefaultPriority = PriorityMedium

// Priorities lists all valid values in severity order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Todo is the central work item. Tags and Metadata are populated by
// queries that join the related tables; they are nil on bare reads.
type Todo struct {
	ID          uuid.UUID
	Title       string
	Description *string
	Completed   bool
	Priority    Priority
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
	ProjectID   *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time

	Tags     []Tag
	Metadata *TodoMetadata
}

// TodoMetadata is the 1:1 companion row of a Todo. ViewCount only ever
// increases; it is bumped as a side effect of a detail read that hits
// the store.
type TodoMetadata struct {
	ID            uuid.UUID
	TodoID        uuid.UUID
	ViewCount     int
	LastViewedAt  *time.Time
	EstimatedTime *int
	ActualTime    *int
	Notes         *string
}

// Comment on a todo. Immutable once created.
type Comment struct {
	ID        uuid.UUID
	Content   string
	AuthorID  uuid.UUID
	TodoID    uuid.UUID
	CreatedAt time.Time
}

// Attachment references an externally stored file.
type Attachment struct {
	ID        uuid.UUID
	Filename  string
	FileURL   string
	FileSize  int64
	MimeType  string
	TodoID    uuid.UUID
	CreatedAt time.Time
}
