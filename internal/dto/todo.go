package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

type CreateTodoRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdateTodoRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Completed   *bool      `json:"completed"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

type TagResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

type MetadataResponse struct {
	ID            uuid.UUID  `json:"id"`
	TodoID        uuid.UUID  `json:"todoId"`
	ViewCount     int        `json:"viewCount"`
	LastViewedAt  *time.Time `json:"lastViewedAt"`
	EstimatedTime *int       `json:"estimatedTime"`
	ActualTime    *int       `json:"actualTime"`
	Notes         *string    `json:"notes"`
}

type TodoResponse struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	Completed   bool              `json:"completed"`
	Priority    dom.Priority      `json:"priority"`
	DueDate     *time.Time        `json:"dueDate"`
	AssigneeID  *uuid.UUID        `json:"assigneeId"`
	ProjectID   *uuid.UUID        `json:"projectId"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Tags        []TagResponse     `json:"tags"`
	Metadata    *MetadataResponse `json:"metadata"`
}

// Performance annotates list and search responses with how the query ran.
type Performance struct {
	Duration        string `json:"duration"`
	Cached          *bool  `json:"cached,omitempty"`
	QueriesExecuted *int   `json:"queriesExecuted,omitempty"`
	Warning         string `json:"warning,omitempty"`
}

type ListTodosResponse struct {
	Items       []TodoResponse `json:"items"`
	Count       int            `json:"count"`
	Performance Performance    `json:"performance"`
}

type SearchTodosResponse struct {
	Items       []TodoResponse `json:"items"`
	Count       int            `json:"count"`
	Query       string         `json:"query"`
	Performance Performance    `json:"performance"`
}

// DurationMillis renders a duration the way the performance block
// reports it, in whole milliseconds.
func DurationMillis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func FromTodo(t dom.Todo) TodoResponse {
	out := TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		AssigneeID:  t.AssigneeID,
		ProjectID:   t.ProjectID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Tags:        []TagResponse{},
	}
	for _, g := range t.Tags {
		out.Tags = append(out.Tags, TagResponse{ID: g.ID, Name: g.Name, Color: g.Color})
	}
	if t.Metadata != nil {
		out.Metadata = &MetadataResponse{
			ID:            t.Metadata.ID,
			TodoID:        t.Metadata.TodoID,
			ViewCount:     t.Metadata.ViewCount,
			LastViewedAt:  t.Metadata.LastViewedAt,
			EstimatedTime: t.Metadata.EstimatedTime,
			ActualTime:    t.Metadata.ActualTime,
			Notes:         t.Metadata.Notes,
		}
	}
	return out
}

func FromTodos(list []dom.Todo) []TodoResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = FromTodo(list[i])
	}
	return out
}
