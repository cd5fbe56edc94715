// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

// DiscoveryHandler handles device discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ListPorts lists serial ports
// @Summary List serial ports
// @Description Enumerate serial ports and flag those matching the configured name filter
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.PortsResponse} "Ports listed"
// @Failure 500 {object} utils.APIResponse "Enumeration failed"
// @Router /discovery/ports [get]
func (h *DiscoveryHandler) ListPorts(c *gin.Context) {
	ports, err := h.discoveryService.ListPorts(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ports listed", ports)
}

// ListUSBBridges lists attached USB-to-UART bridges
// @Summary List USB bridges
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{bridges_found=int,bridges=[]model.UARTBridge}} "Bridges listed"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /discovery/usb [get]
func (h *DiscoveryHandler) ListUSBBridges(c *gin.Context) {
	bridges, err := h.discoveryService.ListBridges(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan USB bridges", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "USB bridge scan completed", gin.H{
		"bridges_found": len(bridges),
		"bridges":       bridges,
	})
}
