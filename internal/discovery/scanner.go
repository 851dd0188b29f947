// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"print-bridge/internal/model"
)

// DeviceScanner finds printers reachable over one kind of connection
type DeviceScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredDevice, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredDevice is a printer found by a scanner, with the transport
// configuration needed to open it
type DiscoveredDevice struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Address        string               `json:"address"`
	Paired         bool                 `json:"paired"`
	Known          bool                 `json:"known"`
	ConnectionType model.ConnectionType `json:"connection_type"`
	ConnectionInfo model.JSONObject     `json:"connection_info"`
}

// Device converts to the wire representation
func (d *DiscoveredDevice) Device() model.Device {
	deviceType := string(d.ConnectionType)
	if !d.Known {
		deviceType = model.DeviceTypeUnknown
	}
	return model.Device{
		ID:      d.ID,
		Name:    d.Name,
		Address: d.Address,
		Paired:  d.Paired,
		Type:    deviceType,
	}
}

// ScannerManager runs every registered scanner
type ScannerManager struct {
	mu       sync.RWMutex
	scanners []DeviceScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{logger: logger.With(zap.String("component", "scanner_manager"))}
}

// RegisterScanner registers a device scanner
func (sm *ScannerManager) RegisterScanner(scanner DeviceScanner) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.scanners = append(sm.scanners, scanner)
	sm.logger.Info("Scanner registered", zap.String("type", scanner.GetScannerType()))
}

// ScanAll runs the available scanners in registration order. A failing
// scanner is logged and skipped. Duplicate ids keep the first occurrence.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredDevice, error) {
	sm.mu.RLock()
	scanners := append([]DeviceScanner(nil), sm.scanners...)
	sm.mu.RUnlock()

	var allDevices []*DiscoveredDevice
	seen := make(map[string]bool)

	for _, scanner := range scanners {
		if err := ctx.Err(); err != nil {
			return allDevices, err
		}

		scannerType := scanner.GetScannerType()
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		devices, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		for _, d := range devices {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			allDevices = append(allDevices, d)
		}
		sm.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("devices_found", len(devices)),
		)
	}

	return allDevices, nil
}

// ScanByType runs a single scanner
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredDevice, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, scanner := range sm.scanners {
		if scanner.GetScannerType() != scannerType {
			continue
		}
		if !scanner.IsAvailable() {
			return nil, fmt.Errorf("scanner not available: %s", scannerType)
		}
		return scanner.Scan(ctx)
	}
	return nil, fmt.Errorf("scanner type not found: %s", scannerType)
}

// GetAvailableScanners returns list of available scanner types
func (sm *ScannerManager) GetAvailableScanners() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var available []string
	for _, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, scanner.GetScannerType())
		}
	}
	return available
}
