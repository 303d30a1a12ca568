package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role of a user account.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

type User struct {
	ID     uuid.UUID
	Email  string
	Name   string
	Avatar *string
	Role   Role

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserWithCounts is a user row annotated with aggregate counts for list views.
type UserWithCounts struct {
	User
	TodoCount    int
	CommentCount int
}

// UserStats summarizes a user's todo activity.
type UserStats struct {
	TotalTodos     int
	CompletedTodos int
	ActiveTodos    int
	UrgentTodos    int
	TodosThisWeek  int
	CompletionRate float64
}
