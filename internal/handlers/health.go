package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paulanunes85/sre-demo/internal/cache"
)

// HealthHandler probes the store and cache independently and exposes
// process introspection for the observability demos.
type HealthHandler struct {
	db      *pgxpool.Pool
	cache   *cache.Cache
	started time.Time
}

func NewHealthHandler(db *pgxpool.Pool, c *cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: c, started: time.Now()}
}

func (h *HealthHandler) Register(g *gin.RouterGroup) {
	g.GET("", h.basic)
	g.GET("/detailed", h.detailed)
	g.GET("/memory", h.memory)
	g.GET("/cpu", h.cpu)
	g.GET("/ready", h.ready)
	g.GET("/live", h.live)
}

func (h *HealthHandler) basic(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

// detailed returns 503 when either dependency is unhealthy; each check
// is independent so one outage does not mask the other.
func (h *HealthHandler) detailed(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"
	checks := gin.H{"database": "healthy", "redis": "healthy"}

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy"
		status = "degraded"
	}
	if err := h.cache.Ping(ctx); err != nil {
		checks["redis"] = "unhealthy"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
		"checks":    checks,
	})
}

func (h *HealthHandler) memory(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	c.JSON(http.StatusOK, gin.H{
		"heapUsed":   fmt.Sprintf("%d MB", ms.HeapAlloc/1024/1024),
		"heapTotal":  fmt.Sprintf("%d MB", ms.HeapSys/1024/1024),
		"sys":        fmt.Sprintf("%d MB", ms.Sys/1024/1024),
		"numGC":      ms.NumGC,
		"goroutines": runtime.NumGoroutine(),
	})
}

func (h *HealthHandler) cpu(c *gin.Context) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":   fmt.Sprintf("%d ms", int64(ru.Utime.Sec)*1000+int64(ru.Utime.Usec)/1000),
		"system": fmt.Sprintf("%d ms", int64(ru.Stime.Sec)*1000+int64(ru.Stime.Usec)/1000),
	})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
