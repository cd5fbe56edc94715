package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/model"
	"rfid-bridge/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

func dialStatus(t *testing.T, allowedOrigins []string) (*websocket.Conn, *EventBus) {
	t.Helper()
	conn, bus, _ := dialStatusHandler(t, allowedOrigins)
	return conn, bus
}

func dialStatusHandler(t *testing.T, allowedOrigins []string) (*websocket.Conn, *EventBus, *WebSocketHandler) {
	t.Helper()
	// connection goroutines may outlive the test, so they cannot log through t
	logger := zap.NewNop()

	bus := NewEventBus(logger)
	transactions := service.NewTransactionService(nil, bus, service.TransactionOptions{}, logger)
	ws := NewWebSocketHandler(transactions, bus, allowedOrigins, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Start(ctx)
	go ws.Run(ctx)

	router := gin.New()
	router.GET("/ws/status", ws.HandleStatusConnection)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, bus, ws
}

// readUntil skips broadcasts until a message of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, messageType string) inboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg inboundMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == messageType {
			return msg
		}
	}
}

func TestWebSocketInitialStatus(t *testing.T) {
	conn, _ := dialStatus(t, []string{"*"})

	msg := readUntil(t, conn, "initial_status")

	var data struct {
		Link service.LinkInfo `json:"link"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, model.LinkStatusOffline, data.Link.Status)
}

func TestWebSocketPing(t *testing.T) {
	conn, _ := dialStatus(t, []string{"*"})
	readUntil(t, conn, "initial_status")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "ping", "request_id": "p-1"}))

	msg := readUntil(t, conn, "pong")
	assert.Equal(t, "p-1", msg.RequestID)
}

func TestWebSocketTransactWithoutReader(t *testing.T) {
	conn, _ := dialStatus(t, []string{"*"})
	readUntil(t, conn, "initial_status")

	require.NoError(t, conn.WriteJSON(gin.H{
		"type":       "transact",
		"request_id": "tx-1",
		"data":       gin.H{"command": "01 03"},
	}))

	msg := readUntil(t, conn, "transaction_result")
	assert.Equal(t, "tx-1", msg.RequestID)

	var result model.TransactionResult
	require.NoError(t, json.Unmarshal(msg.Data, &result))
	assert.False(t, result.Success)
	assert.Equal(t, model.ErrorKindNotReady, result.ErrorKind)
}

func TestWebSocketBlankCommandIsNoCommand(t *testing.T) {
	conn, _ := dialStatus(t, []string{"*"})
	readUntil(t, conn, "initial_status")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "transact", "request_id": "tx-3", "data": gin.H{"command": "  "}}))

	msg := readUntil(t, conn, "transaction_result")
	var result model.TransactionResult
	require.NoError(t, json.Unmarshal(msg.Data, &result))
	assert.Equal(t, model.ErrorKindNoCommand, result.ErrorKind)
}

func TestHealthReportsStatusStreamClients(t *testing.T) {
	conn, _, ws := dialStatusHandler(t, []string{"*"})
	readUntil(t, conn, "initial_status")

	cfg := &config.Config{}
	cfg.App.Name = "rfid-bridge"
	health := NewHealthHandler(service.NewTransactionService(nil, nil, service.TransactionOptions{}, zap.NewNop()), NewEventBus(zap.NewNop()), ws, cfg, zap.NewNop())

	router := gin.New()
	router.GET("/health", health.HealthCheck)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Checks, "status_stream")
	assert.EqualValues(t, 1, resp.Checks["status_stream"].Data["clients"])
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	conn, _ := dialStatus(t, []string{"*"})
	readUntil(t, conn, "initial_status")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "transact", "request_id": "tx-2", "data": "01 03"}))
	msg := readUntil(t, conn, "error")
	assert.Equal(t, "tx-2", msg.RequestID)
	assert.Contains(t, string(msg.Data), "invalid transact payload")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "reboot"}))
	msg = readUntil(t, conn, "error")
	assert.Contains(t, string(msg.Data), "unknown message type")
}

func TestWebSocketBroadcastsStatus(t *testing.T) {
	conn, bus := dialStatus(t, []string{"*"})
	readUntil(t, conn, "initial_status")

	// Run subscribes asynchronously; keep publishing until the client sees it
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			bus.SetStatus("Awaiting Data from RFID Reader")
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	msg := readUntil(t, conn, EventTypeStatus)
	assert.Contains(t, string(msg.Data), "Awaiting Data from RFID Reader")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://console.local"})

	req := httptest.NewRequest(http.MethodGet, "/ws/status", nil)
	assert.True(t, check(req), "requests without an Origin are allowed")

	req.Header.Set("Origin", "http://console.local")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
