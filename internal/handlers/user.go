package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
	"github.com/paulanunes85/sre-demo/internal/dto"
	"github.com/paulanunes85/sre-demo/internal/middleware"
	"github.com/paulanunes85/sre-demo/internal/repo"
)

// UserHandler is a read-only surface; users are created by seeding.
type UserHandler struct {
	repo repo.UserRepo
}

func NewUserHandler(r repo.UserRepo) *UserHandler {
	return &UserHandler{repo: r}
}

func (h *UserHandler) List(c *gin.Context) {
	var f repo.UserFilter
	if v := c.Query("role"); v != "" {
		role := dom.Role(v)
		if !role.Valid() {
			c.Error(middleware.BadRequest("role must be one of ADMIN, MANAGER, MEMBER"))
			return
		}
		f.Role = &role
	}
	f.Search = c.Query("search")

	users, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		c.Error(err)
		return
	}
	items := make([]dto.UserListItem, len(users))
	for i, u := range users {
		items[i] = dto.UserListItem{
			UserResponse: dto.FromUser(u.User),
			TodoCount:    u.TodoCount,
			CommentCount: u.CommentCount,
		}
	}
	c.JSON(http.StatusOK, dto.ListUsersResponse{
		Users:    items,
		Count:    len(items),
		Page:     1,
		PageSize: len(items),
	})
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	u, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.Error(middleware.NotFound("User not found"))
			return
		}
		c.Error(err)
		return
	}
	todos, err := h.repo.RecentTodos(ctx, id, 10)
	if err != nil {
		c.Error(err)
		return
	}
	memberships, err := h.repo.Memberships(ctx, id)
	if err != nil {
		c.Error(err)
		return
	}
	projects := make([]dto.MemberResponse, len(memberships))
	for i, m := range memberships {
		projects[i] = dto.MemberResponse{ID: m.ID, ProjectID: m.ProjectID, UserID: m.UserID, Role: m.Role}
	}
	c.JSON(http.StatusOK, dto.UserDetailResponse{
		UserResponse: dto.FromUser(u),
		Todos:        dto.FromTodos(todos),
		Projects:     projects,
	})
}

func (h *UserHandler) Stats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.repo.Stats(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.UserStatsResponse{
		TotalTodos:     s.TotalTodos,
		CompletedTodos: s.CompletedTodos,
		ActiveTodos:    s.ActiveTodos,
		UrgentTodos:    s.UrgentTodos,
		TodosThisWeek:  s.TodosThisWeek,
		CompletionRate: s.CompletionRate,
	})
}
