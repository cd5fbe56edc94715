// internal/handler/link_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfid-bridge/internal/discovery"
	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

// LinkHandler exposes the state of the serial link
type LinkHandler struct {
	service *service.TransactionService
	logger  *utils.ServiceLogger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(transactionService *service.TransactionService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: transactionService,
		logger:  utils.NewServiceLogger(logger, "link-handler"),
	}
}

// GetLink returns the attached device, line configuration and counters
// @Summary Get link
// @Tags Link
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.LinkInfo}
// @Router /link [get]
func (h *LinkHandler) GetLink(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Link retrieved", h.service.LinkInfo())
}

// Reconnect closes the link and resolves the reader again
// @Summary Reconnect link
// @Description Re-run device resolution and reopen the serial link
// @Tags Link
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.LinkInfo} "Reader ready"
// @Failure 404 {object} utils.APIResponse "No device matches the name filter"
// @Failure 502 {object} utils.APIResponse "Device could not be opened"
// @Router /link/reconnect [post]
func (h *LinkHandler) Reconnect(c *gin.Context) {
	if err := h.service.Reconnect(c.Request.Context()); err != nil {
		h.logger.Warn("Reconnect failed", zap.Error(err))

		status := http.StatusBadGateway
		switch {
		case errors.Is(err, discovery.ErrDeviceNotFound):
			status = http.StatusNotFound
		case errors.Is(err, discovery.ErrAmbiguousDevice):
			status = http.StatusConflict
		case errors.Is(err, service.ErrNoResolver):
			status = http.StatusServiceUnavailable
		}
		utils.ErrorResponse(c, status, "Failed to reconnect reader", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reader ready and configured", h.service.LinkInfo())
}
