package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paulanunes85/sre-demo/internal/config"
	"github.com/paulanunes85/sre-demo/internal/service"
)

// AppError carries an explicit HTTP status alongside its message.
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string { return e.Message }

func BadRequest(msg string) *AppError { return &AppError{Code: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *AppError   { return &AppError{Code: http.StatusNotFound, Message: msg} }

// ErrorHandler is the single point translating internal failures into
// HTTP responses. Handlers attach errors with c.Error and abort; nothing
// else writes error bodies.
//
// When cfg.Chaos.LeakErrorDetails is set (and the env is not
// production-like), 500 responses additionally echo configuration and
// the request body. That mode is an intentionally unsafe demonstration
// fixture, off by default.
func ErrorHandler(cfg config.Config, log *slog.Logger) gin.HandlerFunc {
	leak := cfg.Chaos.LeakErrorDetails && !cfg.App.IsProduction()
	return func(c *gin.Context) {
		var body []byte
		if leak && c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		c.Next()

		ginErr := c.Errors.Last()
		if ginErr == nil {
			return
		}
		err := ginErr.Err

		status := http.StatusInternalServerError
		message := err.Error()
		var appErr *AppError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Code
			message = appErr.Message
		case errors.Is(err, service.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrValidation),
			errors.Is(err, service.ErrUnknownScenario),
			errors.Is(err, service.ErrScenarioDisabled):
			status = http.StatusBadRequest
		}

		log.Error("request failed",
			"path", c.Request.URL.Path, "method", c.Request.Method,
			"status", status, "err", err)

		if status == http.StatusInternalServerError {
			if leak {
				c.JSON(status, gin.H{
					"error":       message,
					"database":    cfg.PG.DSN,
					"redis":       cfg.Redis.Addr,
					"environment": cfg.App.Env,
					"path":        c.Request.URL.Path,
					"body":        string(body),
				})
				return
			}
			c.JSON(status, gin.H{"error": "Internal Server Error"})
			return
		}
		c.JSON(status, gin.H{"error": message})
	}
}
