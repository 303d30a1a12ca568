package dto

import (
	"time"

	"github.com/google/uuid"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar"`
	Role      dom.Role  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserListItem struct {
	UserResponse
	TodoCount    int `json:"todoCount"`
	CommentCount int `json:"commentCount"`
}

type ListUsersResponse struct {
	Users    []UserListItem `json:"users"`
	Count    int            `json:"count"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type UserDetailResponse struct {
	UserResponse
	Todos    []TodoResponse   `json:"todos"`
	Projects []MemberResponse `json:"projects"`
}

type UserStatsResponse struct {
	TotalTodos     int     `json:"totalTodos"`
	CompletedTodos int     `json:"completedTodos"`
	ActiveTodos    int     `json:"activeTodos"`
	UrgentTodos    int     `json:"urgentTodos"`
	TodosThisWeek  int     `json:"todosThisWeek"`
	CompletionRate float64 `json:"completionRate"`
}

func FromUser(u dom.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.Avatar,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
