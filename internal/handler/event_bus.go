// internal/handler/event_bus.go
package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rfid-bridge/internal/model"
)

// Event types published on the bus
const (
	EventTypeStatus      = "status"
	EventTypeTransaction = "transaction"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[string][]chan Event
	events      chan Event
	mutex       sync.RWMutex
	logger      *zap.Logger

	statusMutex sync.RWMutex
	lastStatus  string
}

// Event represents a system event
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
		logger:      logger,
	}
}

// Start distributes events until ctx is done
func (eb *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Publish publishes an event
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.events <- event:
	default:
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", event.Type),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// Unsubscribe removes and closes a channel returned by Subscribe
func (eb *EventBus) Unsubscribe(eventType string, ch <-chan Event) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscribers := eb.subscribers[eventType]
	for i, subscriber := range subscribers {
		if subscriber == ch {
			eb.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			close(subscriber)
			return
		}
	}
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers[event.Type] {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// SetStatus publishes a reader status line
func (eb *EventBus) SetStatus(status string) {
	eb.statusMutex.Lock()
	eb.lastStatus = status
	eb.statusMutex.Unlock()

	eb.Publish(Event{
		Type:   EventTypeStatus,
		Source: "transaction-service",
		Data:   map[string]interface{}{"status": status},
	})
}

// TransactionCompleted publishes the outcome of a transaction
func (eb *EventBus) TransactionCompleted(result model.TransactionResult) {
	eb.Publish(Event{
		Type:   EventTypeTransaction,
		Source: "transaction-service",
		Data:   map[string]interface{}{"result": result},
	})
}

// LastStatus returns the most recent status line
func (eb *EventBus) LastStatus() string {
	eb.statusMutex.RLock()
	defer eb.statusMutex.RUnlock()
	return eb.lastStatus
}
