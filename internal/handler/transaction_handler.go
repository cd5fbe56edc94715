// internal/handler/transaction_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfid-bridge/internal/model"
	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

// TransactionHandler handles command transactions against the reader
type TransactionHandler struct {
	service *service.TransactionService
	logger  *utils.ServiceLogger
}

// TransactionRequest carries a command as space separated hex bytes.
// A blank command is not a binding error; it fails as no_command like any other input.
type TransactionRequest struct {
	Command string `json:"command" example:"01 03 00 00 00 08"`
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: transactionService,
		logger:  utils.NewServiceLogger(logger, "transaction-handler"),
	}
}

// ExecuteTransaction writes a command to the reader and returns its response
// @Summary Execute transaction
// @Description Write a hex command to the RFID reader and read the response
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body TransactionRequest true "Command"
// @Success 200 {object} utils.APIResponse{data=model.TransactionResult} "Response received"
// @Failure 400 {object} utils.APIResponse "Invalid request body"
// @Failure 422 {object} utils.APIResponse{data=model.TransactionResult} "Invalid or blank command"
// @Failure 502 {object} utils.APIResponse{data=model.TransactionResult} "Serial transport failure"
// @Failure 503 {object} utils.APIResponse{data=model.TransactionResult} "Reader not ready"
// @Failure 504 {object} utils.APIResponse{data=model.TransactionResult} "Reader did not answer in time"
// @Router /transactions [post]
func (h *TransactionHandler) ExecuteTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"command": err.Error()})
		return
	}

	result := h.service.Transact(c.Request.Context(), req.Command)
	utils.LoggerWithRequestID(h.logger.Logger, c.GetString(utils.RequestIDKey)).Debug("Transaction handled",
		zap.String("transaction_id", result.ID.String()),
		zap.Bool("success", result.Success),
		zap.String("error_kind", string(result.ErrorKind)),
	)
	if result.Success {
		utils.SuccessResponse(c, http.StatusOK, "Data successfully read from RFID Reader", result)
		return
	}

	utils.FailureResponse(c, StatusCodeFor(result.ErrorKind), result.Message, result)
}

// StatusCodeFor maps a transaction failure onto an HTTP status
func StatusCodeFor(kind model.ErrorKind) int {
	switch kind {
	case model.ErrorKindNone:
		return http.StatusOK
	case model.ErrorKindFormat, model.ErrorKindNoCommand:
		return http.StatusUnprocessableEntity
	case model.ErrorKindNotReady:
		return http.StatusServiceUnavailable
	case model.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
