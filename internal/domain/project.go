package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// MemberRole of a user within a project.
type MemberRole string

const (
	MemberOwner  MemberRole = "OWNER"
	MemberAdmin  MemberRole = "ADMIN"
	MemberMember MemberRole = "MEMBER"
)

type Project struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Color       string
	Icon        string
	Status      ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	TodoCount   int
	MemberCount int
	Members     []ProjectMember
	Todos       []Todo
}

// ProjectMember joins a user to a project. At most one row per
// (project, user) pair.
type ProjectMember struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      MemberRole
	CreatedAt time.Time

	User *User
}

// ProjectStats summarizes the todos inside one project.
type ProjectStats struct {
	TotalTodos        int
	CompletedTodos    int
	ActiveTodos       int
	CompletionRate    float64
	PriorityBreakdown map[Priority]int
}
