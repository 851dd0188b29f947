// internal/model/message.go
package model

import "encoding/json"

// MessageType names a message on the agent websocket
type MessageType string

const (
	MessageDiscover            MessageType = "discover"
	MessageConnectDevice       MessageType = "connect_device"
	MessageDisconnectDevice    MessageType = "disconnect_device"
	MessageGetConnectedDevices MessageType = "get_connected_devices"
	MessageClearDevices        MessageType = "clear_devices"
	MessageSendData            MessageType = "send_data"

	// MessageDeviceDisconnected is pushed by the agent without a request
	MessageDeviceDisconnected MessageType = "device_disconnected"
)

// AgentRequest is sent by the client; RequestID correlates the response
type AgentRequest struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// AgentResponse answers a request, or carries a push when RequestID is empty
type AgentResponse struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// DiscoverRequest asks the agent to scan for printers
type DiscoverRequest struct {
	IgnoreUnknown bool `json:"ignore_unknown"`
}

// DeviceRequest targets a single device
type DeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// SendDataRequest carries raw printer bytes; encoding/json writes them as base64
type SendDataRequest struct {
	DeviceID string `json:"device_id"`
	Payload  []byte `json:"payload"`
}

// DeviceListResponse carries a device list
type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// DeviceStateResponse acknowledges a connect or disconnect
type DeviceStateResponse struct {
	Device *Device `json:"device,omitempty"`
}

// SendDataResponse acknowledges a write
type SendDataResponse struct {
	BytesWritten int `json:"bytes_written"`
}

// DeviceDisconnectedEvent is the payload of a device_disconnected push
type DeviceDisconnectedEvent struct {
	DeviceID string `json:"device_id"`
	Reason   string `json:"reason,omitempty"`
}
