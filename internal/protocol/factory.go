// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"print-bridge/internal/model"
)

// Default ports used when a configuration leaves them out
const (
	DefaultTCPPort  = 9100
	DefaultBaudRate = 9600
)

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// Factory builds a transport for a connection type and configuration
type Factory func(connectionType model.ConnectionType, config model.JSONObject, logger *zap.Logger) (DeviceProtocol, error)

// Defaults hold per connection type values for keys a device leaves unset
type Defaults map[model.ConnectionType]model.JSONObject

// WithDefaults wraps f so device configurations inherit unset keys
func WithDefaults(f Factory, defaults Defaults) Factory {
	return func(connectionType model.ConnectionType, config model.JSONObject, logger *zap.Logger) (DeviceProtocol, error) {
		merged := make(model.JSONObject, len(config))
		for k, v := range defaults[connectionType] {
			merged[k] = v
		}
		for k, v := range config {
			merged[k] = v
		}
		return f(connectionType, merged, logger)
	}
}

// CreateProtocol creates a protocol based on connection type and configuration
func CreateProtocol(connectionType model.ConnectionType, config model.JSONObject, logger *zap.Logger) (DeviceProtocol, error) {
	if err := ValidateConfig(connectionType, config); err != nil {
		return nil, err
	}

	switch connectionType {
	case model.ConnectionTypeSerial, model.ConnectionTypeBluetooth:
		return createSerialProtocol(connectionType, config, logger), nil
	case model.ConnectionTypeUSB:
		return createUSBProtocol(config, logger), nil
	case model.ConnectionTypeTCP:
		return createTCPProtocol(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported protocol type: %s", connectionType)
	}
}

// createSerialProtocol creates a serial protocol. Bluetooth printers are
// reached through their RFCOMM serial node.
func createSerialProtocol(connectionType model.ConnectionType, config model.JSONObject, logger *zap.Logger) DeviceProtocol {
	serialConfig := &SerialConfig{
		Port:     stringValue(config, "port"),
		BaudRate: intValue(config, "baud_rate", DefaultBaudRate),
		DataBits: intValue(config, "data_bits", 8),
		StopBits: intValue(config, "stop_bits", 1),
		Parity:   stringValue(config, "parity"),
		Timeout:  durationValue(config, "timeout", 5*time.Second),
	}
	if serialConfig.Parity == "" {
		serialConfig.Parity = "none"
	}

	logger.Info("Creating serial protocol",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
		zap.String("connection_type", string(connectionType)),
	)

	return NewSerialConnection(serialConfig, connectionType, logger)
}

// createUSBProtocol creates a USB protocol
func createUSBProtocol(config model.JSONObject, logger *zap.Logger) DeviceProtocol {
	usbConfig := &USBConfig{
		VendorID:  stringValue(config, "vendor_id"),
		ProductID: stringValue(config, "product_id"),
		Interface: intValue(config, "interface", 0),
		Endpoint:  intValue(config, "endpoint", 1),
		Timeout:   durationValue(config, "timeout", 5*time.Second),
	}

	logger.Info("Creating USB protocol",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
	)

	return NewUSBConnection(usbConfig, logger)
}

// createTCPProtocol creates a TCP protocol
func createTCPProtocol(config model.JSONObject, logger *zap.Logger) DeviceProtocol {
	tcpConfig := &TCPConfig{
		Host:         stringValue(config, "host"),
		Port:         intValue(config, "port", DefaultTCPPort),
		KeepAlive:    boolValue(config, "keep_alive", true),
		Timeout:      durationValue(config, "timeout", 10*time.Second),
		WriteTimeout: durationValue(config, "write_timeout", 30*time.Second),
	}

	logger.Info("Creating TCP protocol",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
	)

	return NewTCPConnection(tcpConfig, logger)
}

// ValidateConfig validates configuration for a specific protocol type
func ValidateConfig(connectionType model.ConnectionType, config model.JSONObject) error {
	switch connectionType {
	case model.ConnectionTypeSerial, model.ConnectionTypeBluetooth:
		if stringValue(config, "port") == "" {
			return fmt.Errorf("serial port is required")
		}
		if rate := intValue(config, "baud_rate", DefaultBaudRate); !slices.Contains(validBaudRates, rate) {
			return fmt.Errorf("invalid baud rate: %d", rate)
		}
	case model.ConnectionTypeUSB:
		if stringValue(config, "vendor_id") == "" {
			return fmt.Errorf("USB vendor_id is required")
		}
		if stringValue(config, "product_id") == "" {
			return fmt.Errorf("USB product_id is required")
		}
	case model.ConnectionTypeTCP:
		if stringValue(config, "host") == "" {
			return fmt.Errorf("TCP host is required")
		}
		if port := intValue(config, "port", DefaultTCPPort); port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d", port)
		}
	default:
		return fmt.Errorf("unsupported connection type: %s", connectionType)
	}
	return nil
}

func stringValue(config model.JSONObject, key string) string {
	s, _ := config[key].(string)
	return s
}

// intValue accepts JSON numbers as well as Go ints
func intValue(config model.JSONObject, key string, def int) int {
	switch v := config[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func boolValue(config model.JSONObject, key string, def bool) bool {
	if b, ok := config[key].(bool); ok {
		return b
	}
	return def
}

// durationValue accepts a duration string or a number of milliseconds
func durationValue(config model.JSONObject, key string, def time.Duration) time.Duration {
	switch v := config[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case float64:
		return time.Duration(v) * time.Millisecond
	case int:
		return time.Duration(v) * time.Millisecond
	case time.Duration:
		return v
	}
	return def
}
