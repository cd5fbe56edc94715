package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rfid-bridge/internal/model"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestEventBusDistributesByType(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)

	statuses := bus.Subscribe(EventTypeStatus)
	transactions := bus.Subscribe(EventTypeTransaction)

	bus.SetStatus("Writing command to RFID Reader")
	bus.TransactionCompleted(model.Succeeded([]byte{0x01}, "01"))

	status := receive(t, statuses)
	assert.Equal(t, EventTypeStatus, status.Type)
	assert.Equal(t, "Writing command to RFID Reader", status.Data["status"])
	assert.False(t, status.Timestamp.IsZero())

	tx := receive(t, transactions)
	result, ok := tx.Data["result"].(model.TransactionResult)
	require.True(t, ok)
	assert.True(t, result.Success)

	assert.Equal(t, "Writing command to RFID Reader", bus.LastStatus())
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))

	ch := bus.Subscribe(EventTypeStatus)
	bus.Unsubscribe(EventTypeStatus, ch)

	_, ok := <-ch
	assert.False(t, ok)

	// a second unsubscribe is a no-op
	bus.Unsubscribe(EventTypeStatus, ch)
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus(nil)

	for i := 0; i < cap(bus.events)+10; i++ {
		bus.Publish(Event{Type: EventTypeStatus})
	}
	assert.Len(t, bus.events, cap(bus.events))
}
