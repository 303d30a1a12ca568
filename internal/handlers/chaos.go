package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paulanunes85/sre-demo/internal/dto"
	"github.com/paulanunes85/sre-demo/internal/service"
)

// ChaosHandler exposes the fault-scenario controller. Everything under
// it exists to break the process in observable ways on purpose.
type ChaosHandler struct {
	ctrl *service.ChaosController
}

func NewChaosHandler(ctrl *service.ChaosController) *ChaosHandler {
	return &ChaosHandler{ctrl: ctrl}
}

// Register wires all chaos routes onto the group: per-scenario
// enable/disable, the trigger endpoints, and the bulk operations.
func (h *ChaosHandler) Register(g *gin.RouterGroup) {
	for _, sc := range service.AllScenarios() {
		sc := sc
		g.POST("/"+string(sc)+"/enable", func(c *gin.Context) {
			h.ctrl.Enable(sc)
			c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s scenario enabled", sc)})
		})
		g.POST("/"+string(sc)+"/disable", func(c *gin.Context) {
			h.ctrl.Disable(sc)
			c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s scenario disabled", sc)})
		})
	}

	g.POST("/memory-leak/trigger", h.triggerMemoryLeak)
	g.POST("/exhaust-pool", h.exhaustPool)
	g.POST("/async-failure", h.asyncFailure)
	g.POST("/cpu-spike", h.cpuSpike)
	g.POST("/db-timeout", h.dbTimeout)
	g.POST("/enable-all", h.enableAll)
	g.POST("/disable-all", h.disableAll)
	g.GET("/status", h.status)
	g.POST("/reset", h.reset)
	g.POST("/seed-data", h.seedData)
}

func (h *ChaosHandler) triggerMemoryLeak(c *gin.Context) {
	report, err := h.ctrl.TriggerMemoryLeak()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Memory leak triggered",
		"currentHeapUsed": fmt.Sprintf("%d MB", report.HeapUsedMB),
		"leakedObjects":   report.LeakedEntries,
	})
}

func (h *ChaosHandler) exhaustPool(c *gin.Context) {
	created, err := h.ctrl.ExhaustPool(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            "Connection pool exhausted",
		"connectionsCreated": created,
		"warning":            "Application may now fail to get Redis connections",
	})
}

func (h *ChaosHandler) asyncFailure(c *gin.Context) {
	h.ctrl.TriggerAsyncFailure()
	c.JSON(http.StatusOK, gin.H{
		"message": "Unobserved async failure triggered",
		"warning": "The failure will occur shortly and nothing will handle it",
	})
}

func (h *ChaosHandler) cpuSpike(c *gin.Context) {
	duration := parseDurationMillis(c, service.DefaultCPUSpikeDuration)
	iterations := h.ctrl.CPUSpike(duration)
	c.JSON(http.StatusOK, gin.H{
		"message":    "CPU spike completed",
		"duration":   dto.DurationMillis(duration),
		"iterations": iterations,
		"warning":    "Request processing was saturated during this operation",
	})
}

func (h *ChaosHandler) dbTimeout(c *gin.Context) {
	duration := parseDurationMillis(c, service.DefaultTxHoldDuration)
	if err := h.ctrl.HoldTransaction(c.Request.Context(), duration); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Long transaction completed",
		"duration": dto.DurationMillis(duration),
		"warning":  "Connection was held for extended period",
	})
}

func (h *ChaosHandler) enableAll(c *gin.Context) {
	state := h.ctrl.EnableAll()
	c.JSON(http.StatusOK, gin.H{"message": "All chaos scenarios enabled", "state": scenariosDTO(state)})
}

func (h *ChaosHandler) disableAll(c *gin.Context) {
	state := h.ctrl.DisableAll()
	c.JSON(http.StatusOK, gin.H{"message": "All chaos scenarios disabled", "state": scenariosDTO(state)})
}

func (h *ChaosHandler) status(c *gin.Context) {
	st := h.ctrl.Status()
	c.JSON(http.StatusOK, dto.ChaosStatusResponse{
		Scenarios:      scenariosDTO(st.Scenarios),
		MemoryLeakSize: st.BufferSize,
	})
}

func (h *ChaosHandler) reset(c *gin.Context) {
	cleared, err := h.ctrl.Reset(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Demo environment reset",
		"chaosDisabled":   true,
		"testDataCleared": cleared,
	})
}

func (h *ChaosHandler) seedData(c *gin.Context) {
	var req dto.SeedDataRequest
	// Missing or invalid body falls back to the default count.
	_ = c.ShouldBindJSON(&req)
	n, err := h.ctrl.Seed(c.Request.Context(), req.Count)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Created %d test todos", n),
		"count":   n,
	})
}

func scenariosDTO(s service.ChaosState) dto.ChaosScenarios {
	return dto.ChaosScenarios{
		MemoryLeak:     s.MemoryLeak,
		CPUSpike:       s.CPUSpike,
		DBTimeout:      s.DBTimeout,
		PoolExhaustion: s.PoolExhaustion,
		AsyncFailure:   s.AsyncFailure,
	}
}

// parseDurationMillis reads ?duration= as whole milliseconds, matching
// the frontend's chaos controls.
func parseDurationMillis(c *gin.Context, fallback time.Duration) time.Duration {
	raw := c.Query("duration")
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
