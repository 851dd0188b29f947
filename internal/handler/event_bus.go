// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"print-bridge/internal/model"
)

// EventBus fans bridge events out to subscribers
type EventBus struct {
	subscribers map[int]chan model.BridgeEvent
	nextID      int
	events      chan model.BridgeEvent
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[int]chan model.BridgeEvent),
		events:      make(chan model.BridgeEvent, 1000),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			return
		}
	}
}

// Stop ends distribution and closes every subscriber channel
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.done)

		eb.mutex.Lock()
		defer eb.mutex.Unlock()
		for id, ch := range eb.subscribers {
			close(ch)
			delete(eb.subscribers, id)
		}
	})
}

// Publish queues an event without blocking
func (eb *EventBus) Publish(event model.BridgeEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// Subscribe returns a channel receiving every event and a function that
// cancels the subscription
func (eb *EventBus) Subscribe() (<-chan model.BridgeEvent, func()) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	id := eb.nextID
	eb.nextID++
	subscriber := make(chan model.BridgeEvent, 100)
	eb.subscribers[id] = subscriber

	return subscriber, func() {
		eb.mutex.Lock()
		defer eb.mutex.Unlock()
		if ch, ok := eb.subscribers[id]; ok {
			close(ch)
			delete(eb.subscribers, id)
		}
	}
}

// distributeEvent delivers an event to every subscriber
func (eb *EventBus) distributeEvent(event model.BridgeEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers {
		select {
		case subscriber <- event:
		default:
			// slow subscriber, skip
		}
	}
}
