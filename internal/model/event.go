// internal/model/event.go
package model

import (
	"time"
)

// EventType represents the type of event pushed to UI subscribers
type EventType string

const (
	EventAgentStatus        EventType = "agent_status"
	EventDevicesChanged     EventType = "devices_changed"
	EventDeviceDisconnected EventType = "device_disconnected"
	EventPrintCompleted     EventType = "print_completed"
	EventPrintFailed        EventType = "print_failed"
)

// BridgeEvent is a state change observed by the bridge
type BridgeEvent struct {
	Type      EventType  `json:"type"`
	Data      JSONObject `json:"data,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewBridgeEvent stamps an event with the current time
func NewBridgeEvent(eventType EventType, data JSONObject) BridgeEvent {
	return BridgeEvent{Type: eventType, Data: data, Timestamp: time.Now()}
}
