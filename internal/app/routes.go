package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paulanunes85/sre-demo/internal/cache"
	"github.com/paulanunes85/sre-demo/internal/config"
	"github.com/paulanunes85/sre-demo/internal/handlers"
	"github.com/paulanunes85/sre-demo/internal/middleware"
	"github.com/paulanunes85/sre-demo/internal/repo"
	"github.com/paulanunes85/sre-demo/internal/service"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, log *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) {
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.RateLimiter(cfg.HTTP.RateLimitWindow.Duration(), cfg.HTTP.RateLimitMax, log))
	r.Use(middleware.ErrorHandler(cfg, log))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "SRE Demo API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"api":     "/api",
			"health":  "/api/health",
		})
	})

	api := r.Group("/api")

	kv := cache.New(rdb, log)

	todoRepo := repo.NewPGTodoRepo(db)
	todoSvc := service.NewTodoService(todoRepo, kv, log)
	todoHandler := handlers.NewTodoHandler(todoSvc)
	registerTodoRoutes(api, todoHandler)

	userHandler := handlers.NewUserHandler(repo.NewPGUserRepo(db))
	registerUserRoutes(api, userHandler)

	projectHandler := handlers.NewProjectHandler(repo.NewPGProjectRepo(db))
	registerProjectRoutes(api, projectHandler)

	chaos := service.NewChaosController(todoRepo, db, cfg.Redis, log)
	handlers.NewChaosHandler(chaos).Register(api.Group("/chaos"))

	handlers.NewHealthHandler(db, kv).Register(api.Group("/health"))
}

func registerTodoRoutes(api *gin.RouterGroup, h *handlers.TodoHandler) {
	api.GET("/todos", h.List)
	api.GET("/todos/search", h.Search)
	api.GET("/todos/:id", h.GetByID)
	api.POST("/todos", h.Create)
	api.PUT("/todos/:id", h.Update)
	api.DELETE("/todos/:id", h.Delete)
	api.POST("/todos/:id/toggle", h.Toggle)
}

func registerUserRoutes(api *gin.RouterGroup, h *handlers.UserHandler) {
	api.GET("/users", h.List)
	api.GET("/users/:id", h.GetByID)
	api.GET("/users/:id/stats", h.Stats)
}

func registerProjectRoutes(api *gin.RouterGroup, h *handlers.ProjectHandler) {
	api.GET("/projects", h.List)
	api.GET("/projects/:id", h.GetByID)
	api.GET("/projects/:id/stats", h.Stats)
	api.POST("/projects", h.Create)
	api.PUT("/projects/:id", h.Update)
}
