package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

func TestExecuteTransactionLogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	transactions := service.NewTransactionService(nil, nil, service.TransactionOptions{}, zap.NewNop())
	h := NewTransactionHandler(transactions, zap.New(core))

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(utils.RequestIDKey, "req-42") })
	router.POST("/transactions", h.ExecuteTransaction)

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"command":"01 03"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	entries := logs.FilterMessage("Transaction handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "not_ready", fields["error_kind"])
	assert.Equal(t, false, fields["success"])
}
