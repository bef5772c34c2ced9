package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcs-service/mcs_service/pkg/health"
	"github.com/mcs-service/mcs_service/pkg/version"
)

// HealthHandler serves liveness, health and build info
type HealthHandler struct {
	checker *health.HealthChecker
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker, started: time.Now()}
}

// HealthResponse extends the checker report with uptime
type HealthResponse struct {
	health.HealthResponse
	Uptime string `json:"uptime"`
}

// Health runs every registered check. Degraded platforms still answer 200.
func (h *HealthHandler) Health(c *gin.Context) {
	status, checks := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		HealthResponse: health.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   version.Get().Short(),
			Checks:    checks,
		},
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

// Live reports that the process is serving requests
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Version returns build metadata
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
