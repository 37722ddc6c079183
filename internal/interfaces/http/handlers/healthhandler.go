package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/version"
)

// DependencyCheck pings one dependency.
type DependencyCheck func(ctx context.Context) error

type HealthHandler struct {
	deps   map[string]DependencyCheck
	logger logger.Interface
}

// NewHealthHandler reports unhealthy when any dependency check fails. deps may be nil.
func NewHealthHandler(deps map[string]DependencyCheck, logger logger.Interface) *HealthHandler {
	return &HealthHandler{deps: deps, logger: logger}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, check := range h.deps {
		if err := check(ctx); err != nil {
			h.logger.Warnw("health check failed", "dependency", name, "error", err)
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	body := gin.H{
		"status":  "healthy",
		"service": "infusio",
		"version": version.Current(),
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}

	c.JSON(status, body)
}
