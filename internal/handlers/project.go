package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
	"github.com/paulanunes85/sre-demo/internal/dto"
	"github.com/paulanunes85/sre-demo/internal/middleware"
	"github.com/paulanunes85/sre-demo/internal/repo"
)

const (
	defaultProjectIcon  = "📁"
	defaultProjectColor = "#3B82F6"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type ProjectHandler struct {
	repo repo.ProjectRepo
}

func NewProjectHandler(r repo.ProjectRepo) *ProjectHandler {
	return &ProjectHandler{repo: r}
}

func (h *ProjectHandler) List(c *gin.Context) {
	var f repo.ProjectFilter
	if v := c.Query("status"); v != "" {
		status := dom.ProjectStatus(v)
		if !status.Valid() {
			c.Error(middleware.BadRequest("Invalid status value"))
			return
		}
		f.Status = &status
	}
	f.Search = c.Query("search")

	projects, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ListProjectsResponse{
		Projects: dto.FromProjects(projects),
		Count:    len(projects),
	})
}

func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.repo.GetWithDetails(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.Error(middleware.NotFound("Project not found"))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.FromProject(p))
}

func (h *ProjectHandler) Stats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.repo.Stats(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ProjectStatsResponse{
		TotalTodos:        s.TotalTodos,
		CompletedTodos:    s.CompletedTodos,
		ActiveTodos:       s.ActiveTodos,
		CompletionRate:    s.CompletionRate,
		PriorityBreakdown: s.PriorityBreakdown,
	})
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(middleware.BadRequest(err.Error()))
		return
	}
	if req.Name == "" {
		c.Error(middleware.BadRequest("Project name is required"))
		return
	}

	p := dom.Project{
		Name:        req.Name,
		Description: req.Description,
		Icon:        defaultProjectIcon,
		Color:       defaultProjectColor,
		Status:      dom.ProjectPlanning,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if req.Icon != nil {
		p.Icon = *req.Icon
	}
	if req.Color != nil {
		if !hexColor.MatchString(*req.Color) {
			c.Error(middleware.BadRequest("Invalid color format. Use hex format like #3B82F6"))
			return
		}
		p.Color = *req.Color
	}
	if req.Status != nil {
		status := dom.ProjectStatus(*req.Status)
		if !status.Valid() {
			c.Error(middleware.BadRequest("Invalid status value"))
			return
		}
		p.Status = status
	}

	out, err := h.repo.Create(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromProject(out))
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(middleware.BadRequest(err.Error()))
		return
	}

	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.Error(middleware.NotFound("Project not found"))
			return
		}
		c.Error(err)
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != nil {
		existing.Description = req.Description
	}
	if req.Icon != nil {
		existing.Icon = *req.Icon
	}
	if req.Color != nil {
		if !hexColor.MatchString(*req.Color) {
			c.Error(middleware.BadRequest("Invalid color format. Use hex format like #3B82F6"))
			return
		}
		existing.Color = *req.Color
	}
	if req.Status != nil {
		status := dom.ProjectStatus(*req.Status)
		if !status.Valid() {
			c.Error(middleware.BadRequest("Invalid status value"))
			return
		}
		existing.Status = status
	}
	if req.StartDate != nil {
		existing.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		existing.EndDate = req.EndDate
	}

	out, err := h.repo.Update(c.Request.Context(), existing)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.FromProject(out))
}
