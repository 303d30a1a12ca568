package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler(nil, nil).Register(r.Group("/api/health"))
	return r
}

func TestHealthBasic(t *testing.T) {
	r := newHealthRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body, "uptime")
}

func TestHealthLive(t *testing.T) {
	r := newHealthRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/health/live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", decode(t, w)["status"])
}

func TestHealthMemory(t *testing.T) {
	r := newHealthRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/health/memory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["heapUsed"], "MB")
	assert.Contains(t, body, "goroutines")
	assert.Contains(t, body, "numGC")
}

func TestHealthCPU(t *testing.T) {
	r := newHealthRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/health/cpu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["user"], "ms")
	assert.Contains(t, body["system"], "ms")
}
