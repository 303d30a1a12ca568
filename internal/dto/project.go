package dto

import (
	"time"

	"github.com/google/uuid"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

type CreateProjectRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Icon        *string    `json:"icon"`
	Color       *string    `json:"color"`
	Status      *string    `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

type UpdateProjectRequest = CreateProjectRequest

type MemberResponse struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"projectId"`
	UserID    uuid.UUID      `json:"userId"`
	Role      dom.MemberRole `json:"role"`
	User      *UserResponse  `json:"user,omitempty"`
}

type ProjectResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Color       string            `json:"color"`
	Icon        string            `json:"icon"`
	Status      dom.ProjectStatus `json:"status"`
	StartDate   *time.Time        `json:"startDate"`
	EndDate     *time.Time        `json:"endDate"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	TodoCount   int               `json:"todoCount"`
	MemberCount int               `json:"memberCount"`
	Members     []MemberResponse  `json:"members"`
	Todos       []TodoResponse    `json:"todos,omitempty"`
}

type ListProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
	Count    int               `json:"count"`
}

type ProjectStatsResponse struct {
	TotalTodos        int                  `json:"totalTodos"`
	CompletedTodos    int                  `json:"completedTodos"`
	ActiveTodos       int                  `json:"activeTodos"`
	CompletionRate    float64              `json:"completionRate"`
	PriorityBreakdown map[dom.Priority]int `json:"priorityBreakdown"`
}

func FromProject(p dom.Project) ProjectResponse {
	out := ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		Icon:        p.Icon,
		Status:      p.Status,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		TodoCount:   p.TodoCount,
		MemberCount: p.MemberCount,
		Members:     []MemberResponse{},
	}
	for _, m := range p.Members {
		member := MemberResponse{ID: m.ID, ProjectID: m.ProjectID, UserID: m.UserID, Role: m.Role}
		if m.User != nil {
			u := FromUser(*m.User)
			member.User = &u
		}
		out.Members = append(out.Members, member)
	}
	if p.Todos != nil {
		out.Todos = FromTodos(p.Todos)
	}
	return out
}

func FromProjects(list []dom.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(list))
	for i := range list {
		out[i] = FromProject(list[i])
	}
	return out
}
