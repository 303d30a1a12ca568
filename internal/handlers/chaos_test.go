package handlers

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulanunes85/sre-demo/internal/config"
	"github.com/paulanunes85/sre-demo/internal/middleware"
	"github.com/paulanunes85/sre-demo/internal/service"
)

func newChaosRouter(t *testing.T) (*gin.Engine, *memTodoRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler(config.Config{}, slog.Default()))

	store := newMemTodoRepo()
	ctrl := service.NewChaosController(store, nil, config.RedisConfig{}, slog.Default())
	NewChaosHandler(ctrl).Register(r.Group("/api/chaos"))
	return r, store
}

func TestChaosStatusEndpoint(t *testing.T) {
	r, _ := newChaosRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/chaos/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 0, body["memoryLeakSize"])

	scenarios := body["scenarios"].(map[string]any)
	for _, name := range []string{"memoryLeak", "cpuSpike", "dbTimeout", "poolExhaustion", "asyncFailure"} {
		assert.Equal(t, false, scenarios[name], name)
	}
}

func TestChaosEnableDisableEndpoints(t *testing.T) {
	r, _ := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/db-timeout/enable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "db-timeout scenario enabled")

	status := decode(t, doJSON(t, r, http.MethodGet, "/api/chaos/status", nil))
	assert.Equal(t, true, status["scenarios"].(map[string]any)["dbTimeout"])

	w = doJSON(t, r, http.MethodPost, "/api/chaos/db-timeout/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)

	status = decode(t, doJSON(t, r, http.MethodGet, "/api/chaos/status", nil))
	assert.Equal(t, false, status["scenarios"].(map[string]any)["dbTimeout"])
}

func TestChaosMemoryLeakTriggerGated(t *testing.T) {
	r, _ := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/memory-leak/trigger", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/chaos/memory-leak/enable", nil).Code)

	w = doJSON(t, r, http.MethodPost, "/api/chaos/memory-leak/trigger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 10000, body["leakedObjects"])

	status := decode(t, doJSON(t, r, http.MethodGet, "/api/chaos/status", nil))
	assert.EqualValues(t, 10000, status["memoryLeakSize"])

	// Disable clears the buffer again.
	doJSON(t, r, http.MethodPost, "/api/chaos/memory-leak/disable", nil)
	status = decode(t, doJSON(t, r, http.MethodGet, "/api/chaos/status", nil))
	assert.EqualValues(t, 0, status["memoryLeakSize"])
}

func TestChaosEnableAllDisableAllEndpoints(t *testing.T) {
	r, _ := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/enable-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)["state"].(map[string]any)
	assert.Equal(t, true, state["memoryLeak"])
	assert.Equal(t, true, state["asyncFailure"])

	w = doJSON(t, r, http.MethodPost, "/api/chaos/disable-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state = decode(t, w)["state"].(map[string]any)
	assert.Equal(t, false, state["memoryLeak"])
}

func TestChaosCPUSpikeEndpointHonorsDuration(t *testing.T) {
	r, _ := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/cpu-spike?duration=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "20ms", body["duration"])
	assert.Equal(t, "CPU spike completed", body["message"])
}

func TestChaosAsyncFailureEndpoint(t *testing.T) {
	r, _ := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/async-failure", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unobserved async failure triggered")
}

func TestChaosSeedAndResetEndpoints(t *testing.T) {
	r, store := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/seed-data", gin.H{"count": 25})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 25, decode(t, w)["count"])
	assert.Len(t, store.todos, 25)

	w = doJSON(t, r, http.MethodPost, "/api/chaos/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["chaosDisabled"])
	assert.EqualValues(t, 25, body["testDataCleared"])
	assert.Empty(t, store.todos)
}

func TestChaosSeedDefaultsCount(t *testing.T) {
	r, store := newChaosRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/chaos/seed-data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 100, decode(t, w)["count"])
	assert.Len(t, store.todos, 100)
}
