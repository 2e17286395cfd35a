package handler

import (
	"net/http"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/pkg/health"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	monitor *health.Monitor
	hub     *realtime.Hub
	version string
}

type HealthCheckResponse struct {
	Status    health.Status                 `json:"status"`
	Version   string                        `json:"version"`
	Timestamp time.Time                     `json:"timestamp"`
	Checks    map[string]health.CheckResult `json:"checks"`
	Realtime  RealtimeStats                 `json:"realtime"`
}

type RealtimeStats struct {
	Connections int  `json:"connections"`
	Workspaces  int  `json:"workspaces"`
	Relayed     bool `json:"relayed"`
}

func NewHealthHandler(monitor *health.Monitor, hub *realtime.Hub, version string) *HealthHandler {
	return &HealthHandler{monitor: monitor, hub: hub, version: version}
}

// HealthCheck answers 503 only when a critical dependency is down. A
// degraded service still serves traffic.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	report := h.monitor.Run(c.Request.Context())

	response := HealthCheckResponse{
		Status:    report.Status,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    report.Checks,
	}
	if h.hub != nil {
		response.Realtime.Connections, response.Realtime.Workspaces = h.hub.Stats()
		response.Realtime.Relayed = h.hub.Relayed()
	}

	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
