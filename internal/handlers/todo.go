package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
	"github.com/paulanunes85/sre-demo/internal/dto"
	"github.com/paulanunes85/sre-demo/internal/middleware"
	"github.com/paulanunes85/sre-demo/internal/repo"
	"github.com/paulanunes85/sre-demo/internal/service"
)

type TodoHandler struct {
	svc *service.TodoService
}

func NewTodoHandler(svc *service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// List handles GET /todos?completed&priority&inefficient.
// inefficient=true takes the N+1 traversal path on a cache miss.
func (h *TodoHandler) List(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	inefficient := c.Query("inefficient") == "true"

	res, err := h.svc.List(c.Request.Context(), filter, inefficient)
	if err != nil {
		c.Error(err)
		return
	}

	perf := dto.Performance{Duration: dto.DurationMillis(res.Duration), Cached: &res.Cached}
	if res.QueriesExecuted > 0 {
		perf.QueriesExecuted = &res.QueriesExecuted
		perf.Warning = "N+1 query pattern detected"
		perf.Cached = nil
	}
	c.JSON(http.StatusOK, dto.ListTodosResponse{
		Items:       dto.FromTodos(res.Items),
		Count:       res.Count,
		Performance: perf,
	})
}

// Search handles GET /todos/search?q=. Queries over a second are flagged
// as slow in the performance block.
func (h *TodoHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.Error(middleware.BadRequest("Search query is required"))
		return
	}
	res, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		c.Error(err)
		return
	}
	perf := dto.Performance{Duration: dto.DurationMillis(res.Duration)}
	if res.Duration.Milliseconds() > 1000 {
		perf.Warning = "Slow query detected - missing index?"
	}
	c.JSON(http.StatusOK, dto.SearchTodosResponse{
		Items:       dto.FromTodos(res.Items),
		Count:       res.Count,
		Query:       q,
		Performance: perf,
	})
}

// GetByID handles GET /todos/:id?nocache. A read that reaches the store
// increments the item's view counter.
func (h *TodoHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	skipCache := c.Query("nocache") != ""
	t, err := h.svc.Get(c.Request.Context(), id, skipCache)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTodo(t))
}

func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(middleware.BadRequest(err.Error()))
		return
	}
	t, err := h.svc.Create(c.Request.Context(), service.CreateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    dom.Priority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromTodo(t))
}

// Update handles PUT /todos/:id?skipCache. skipCache=true persists the
// write but leaves stale cache entries behind on purpose.
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(middleware.BadRequest(err.Error()))
		return
	}
	skipInvalidate := c.Query("skipCache") == "true"

	patch := service.UpdateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		p := dom.Priority(*req.Priority)
		patch.Priority = &p
	}

	t, err := h.svc.Update(c.Request.Context(), id, patch, skipInvalidate)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTodo(t))
}

func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TodoHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.Toggle(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTodo(t))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(middleware.BadRequest("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func parseFilter(c *gin.Context) (repo.TodoFilter, bool) {
	var f repo.TodoFilter
	if v := c.Query("completed"); v != "" {
		b := v == "true"
		f.Completed = &b
	}
	if v := c.Query("priority"); v != "" {
		p := dom.Priority(v)
		if !p.Valid() {
			c.Error(middleware.BadRequest("priority must be one of LOW, MEDIUM, HIGH, URGENT"))
			return repo.TodoFilter{}, false
		}
		f.Priority = &p
	}
	return f, true
}
