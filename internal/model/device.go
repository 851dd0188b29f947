// internal/model/device.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// ConnectionType represents how a printer is attached to the agent host
type ConnectionType string

const (
	ConnectionTypeSerial    ConnectionType = "serial"
	ConnectionTypeUSB       ConnectionType = "usb"
	ConnectionTypeTCP       ConnectionType = "tcp"
	ConnectionTypeBluetooth ConnectionType = "bluetooth"
)

// DeviceTypeUnknown marks a device the agent could not identify
const DeviceTypeUnknown = "unknown"

// Device is a printer as reported by the local agent. The agent owns the
// hardware; this is a mirrored, best-effort view.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Paired    bool   `json:"paired"`
	Connected bool   `json:"connected"`
	Type      string `json:"type,omitempty"`
}

// IsUnknown reports whether the device has no usable name or an unknown type
func (d *Device) IsUnknown() bool {
	return strings.TrimSpace(d.Name) == "" || strings.EqualFold(d.Type, DeviceTypeUnknown)
}

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// SerialConfig describes a serial or RFCOMM port
type SerialConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// USBConfig identifies a USB printer
type USBConfig struct {
	VendorID  string `json:"vendor_id"`
	ProductID string `json:"product_id"`
	Interface int    `json:"interface"`
}

// TCPConfig addresses a network printer
type TCPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}
