// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"print-bridge/internal/discovery"
	"print-bridge/internal/model"
)

// PortLister enumerates serial ports
type PortLister func() ([]*enumerator.PortDetails, error)

// Config for serial scanner
type Config struct {
	BaudRate int `json:"baud_rate"`
	// PortPatterns restricts scanning to port names containing one of the patterns
	PortPatterns []string `json:"port_patterns"`
}

// Scanner lists serial ports. RFCOMM nodes are reported as paired bluetooth printers.
type Scanner struct {
	logger *zap.Logger
	config *Config
	list   PortLister
}

// NewScanner creates a new serial scanner. list may be nil to use the OS enumerator.
func NewScanner(logger *zap.Logger, config *Config, list PortLister) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.BaudRate == 0 {
		config.BaudRate = 9600
	}
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		config: config,
		list:   list,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan performs serial port device discovery
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	s.logger.Info("Starting serial port scan")

	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	var discovered []*discovery.DiscoveredDevice
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return discovered, err
		}
		if !s.matches(port.Name) {
			continue
		}
		discovered = append(discovered, s.describe(port))
	}

	s.logger.Info("Serial scan completed", zap.Int("devices_found", len(discovered)))
	return discovered, nil
}

func (s *Scanner) matches(name string) bool {
	if len(s.config.PortPatterns) == 0 {
		return true
	}
	for _, pattern := range s.config.PortPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func (s *Scanner) describe(port *enumerator.PortDetails) *discovery.DiscoveredDevice {
	base := filepath.Base(port.Name)
	d := &discovery.DiscoveredDevice{
		ID:             port.Name,
		Name:           base,
		Address:        port.Name,
		ConnectionType: model.ConnectionTypeSerial,
		ConnectionInfo: model.JSONObject{
			"port":      port.Name,
			"baud_rate": s.config.BaudRate,
		},
	}

	switch {
	case strings.HasPrefix(base, "rfcomm"):
		d.ConnectionType = model.ConnectionTypeBluetooth
		d.Name = "Bluetooth printer (" + base + ")"
		d.Paired = true
		d.Known = true
	case port.IsUSB:
		d.Known = true
		if port.Product != "" {
			d.Name = port.Product
		} else {
			d.Name = fmt.Sprintf("USB serial %s:%s", port.VID, port.PID)
		}
		if port.SerialNumber != "" {
			d.ConnectionInfo["serial_number"] = port.SerialNumber
		}
	}
	return d
}
