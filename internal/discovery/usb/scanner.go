// internal/discovery/usb/scanner.go
package usb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"print-bridge/internal/discovery"
	"print-bridge/internal/model"
)

// USBClassPrinter is the USB printer device class
const USBClassPrinter = 7

// Config for USB scanner
type Config struct {
	ScanTimeout time.Duration `json:"scan_timeout"`
	EnableDebug bool          `json:"enable_debug"`
}

// Scanner enumerates USB printers
type Scanner struct {
	logger       *zap.Logger
	knownDevices *DeviceDatabase
	config       *Config
}

// NewScanner creates a new USB scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.ScanTimeout == 0 {
		config.ScanTimeout = 10 * time.Second
	}
	return &Scanner{
		logger:       logger.With(zap.String("scanner", "usb")),
		knownDevices: NewDeviceDatabase(),
		config:       config,
	}
}

// GetScannerType returns scanner type identifier
func (s *Scanner) GetScannerType() string {
	return "usb"
}

// IsAvailable checks that libusb can enumerate devices
func (s *Scanner) IsAvailable() bool {
	testCtx := gousb.NewContext()
	defer testCtx.Close()

	_, err := testCtx.OpenDevices(func(*gousb.DeviceDesc) bool { return false })
	if err != nil {
		s.logger.Debug("USB subsystem not accessible", zap.Error(err))
		return false
	}
	return true
}

// Scan performs USB device discovery
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	startTime := time.Now()
	s.logger.Info("Starting USB device scan")

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()
	if s.config.EnableDebug {
		usbCtx.Debug(3)
	}

	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return s.shouldExamineDevice(desc)
	})
	defer s.closeAllDevices(devices)
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	seen := make(map[string]bool)
	var discovered []*discovery.DiscoveredDevice
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return discovered, err
		}
		d := s.describe(device.Desc, s.stringDescriptors(device))
		if seen[d.ID] {
			s.logger.Debug("Removing duplicate device", zap.String("id", d.ID))
			continue
		}
		seen[d.ID] = true
		discovered = append(discovered, d)
	}

	s.logger.Info("USB scan completed",
		zap.Int("devices_found", len(discovered)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)
	return discovered, nil
}

// shouldExamineDevice keeps printer-class devices and known printer vendors
func (s *Scanner) shouldExamineDevice(desc *gousb.DeviceDesc) bool {
	if s.knownDevices.IsKnownVendor(desc.Vendor) {
		return true
	}
	if desc.Class == USBClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == USBClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

type descriptors struct {
	manufacturer string
	product      string
	serial       string
}

func (s *Scanner) stringDescriptors(device *gousb.Device) descriptors {
	var d descriptors
	var err error
	if d.manufacturer, err = device.Manufacturer(); err != nil {
		s.logger.Debug("Failed to read manufacturer", zap.Error(err))
	}
	if d.product, err = device.Product(); err != nil {
		s.logger.Debug("Failed to read product", zap.Error(err))
	}
	if d.serial, err = device.SerialNumber(); err != nil {
		s.logger.Debug("Failed to read serial number", zap.Error(err))
	}
	return d
}

// describe builds a discovered device from the descriptor and string descriptors
func (s *Scanner) describe(desc *gousb.DeviceDesc, strs descriptors) *discovery.DiscoveredDevice {
	vendorID := fmt.Sprintf("0x%04X", uint16(desc.Vendor))
	productID := fmt.Sprintf("0x%04X", uint16(desc.Product))

	id := fmt.Sprintf("usb:%04x:%04x", uint16(desc.Vendor), uint16(desc.Product))
	if serial := strings.TrimSpace(strs.serial); serial != "" {
		id += ":" + serial
	} else {
		id += fmt.Sprintf(":%d-%d", desc.Bus, desc.Address)
	}

	vendor, modelName, known := s.knownDevices.Lookup(desc.Vendor, desc.Product)
	name := strings.TrimSpace(strs.product)
	switch {
	case known && modelName != "":
		name = vendor + " " + modelName
	case name == "" && known:
		name = fmt.Sprintf("%s %04X", vendor, uint16(desc.Product))
	}

	return &discovery.DiscoveredDevice{
		ID:             id,
		Name:           name,
		Address:        fmt.Sprintf("bus %d address %d", desc.Bus, desc.Address),
		Paired:         true,
		Known:          known || desc.Class == USBClassPrinter,
		ConnectionType: model.ConnectionTypeUSB,
		ConnectionInfo: model.JSONObject{
			"vendor_id":  vendorID,
			"product_id": productID,
			"interface":  0,
		},
	}
}

// closeAllDevices safely closes all opened USB devices
func (s *Scanner) closeAllDevices(devices []*gousb.Device) {
	for i, device := range devices {
		if device == nil {
			continue
		}
		if err := device.Close(); err != nil {
			s.logger.Warn("Failed to close USB device", zap.Int("device_index", i), zap.Error(err))
		}
	}
}
