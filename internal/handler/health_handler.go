// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/model"
	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	service   *service.TransactionService
	eventBus  *EventBus
	ws        *WebSocketHandler
	config    *config.Config
	startedAt time.Time
	logger    *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler; ws may be nil when the status stream is disabled
func NewHealthHandler(transactionService *service.TransactionService, eventBus *EventBus, ws *WebSocketHandler, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		service:   transactionService,
		eventBus:  eventBus,
		ws:        ws,
		config:    config,
		startedAt: time.Now(),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including the serial link
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Reader link is down"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	info := h.service.LinkInfo()

	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	link := CheckResult{
		Status:  "healthy",
		Message: h.eventBus.LastStatus(),
		Data: map[string]interface{}{
			"link_status": info.Status,
			"name_filter": h.config.Device.NameFilter,
		},
	}
	if info.Status != model.LinkStatusReady {
		health.Status = "unhealthy"
		link.Status = "unhealthy"
		if info.LastError != "" {
			link.Message = info.LastError
		}
	}
	if info.Device != nil {
		link.Data["port"] = info.Device.ID
	}
	if info.Stats != nil {
		link.Data["timeouts"] = info.Stats.Timeouts
		link.Data["errors"] = info.Stats.Errors
		link.Data["last_activity"] = info.Stats.LastActivity
	}
	health.Checks["serial_link"] = link

	if h.ws != nil {
		stats := h.ws.GetConnectionStats()
		health.Checks["status_stream"] = CheckResult{
			Status: "healthy",
			Data: map[string]interface{}{
				"clients": stats.TotalConnections,
			},
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// ReadinessCheck reports ready once a serial link is attached
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if !h.service.Ready() {
		reason := "reader not connected"
		if lastError := h.service.LinkInfo().LastError; lastError != "" {
			reason = lastError
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": reason,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
