// Package health exposes liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Handler serves /health and /health/ready.
type Handler struct {
	service string
	checks  map[string]Check
}

// NewHandler creates a Handler. checks are run by /ready.
func NewHandler(service string, checks map[string]Check) *Handler {
	return &Handler{service: service, checks: checks}
}

// RegisterRoutes mounts the endpoints on router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Live)
	router.GET("/health/ready", h.Ready)
}

// Live always answers 200 while the process is up.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready runs every check and answers 503 if any fails.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{"service": h.service, "checks": results})
}
