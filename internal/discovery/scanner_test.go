package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"print-bridge/internal/model"
)

type stubScanner struct {
	kind      string
	available bool
	devices   []*DiscoveredDevice
	err       error
}

func (s *stubScanner) Scan(context.Context) ([]*DiscoveredDevice, error) { return s.devices, s.err }
func (s *stubScanner) GetScannerType() string                            { return s.kind }
func (s *stubScanner) IsAvailable() bool                                 { return s.available }

func TestScannerManager_ScanAll(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, devices: []*DiscoveredDevice{
		{ID: "/dev/rfcomm0", Name: "BT", Known: true},
		{ID: "/dev/ttyS0", Name: "ttyS0"},
	}})
	sm.RegisterScanner(&stubScanner{kind: "usb", available: false, devices: []*DiscoveredDevice{{ID: "usb:1"}}})
	sm.RegisterScanner(&stubScanner{kind: "broken", available: true, err: errors.New("boom")})
	sm.RegisterScanner(&stubScanner{kind: "tcp", available: true, devices: []*DiscoveredDevice{
		{ID: "/dev/rfcomm0", Name: "duplicate"},
		{ID: "tcp:10.0.0.5:9100", Name: "Network printer", Known: true},
	}})

	devices, err := sm.ScanAll(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, d := range devices {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"/dev/rfcomm0", "/dev/ttyS0", "tcp:10.0.0.5:9100"}, ids)
	assert.Equal(t, "BT", devices[0].Name)
	assert.Equal(t, []string{"serial", "broken", "tcp"}, sm.GetAvailableScanners())
}

func TestScannerManager_ScanByType(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&stubScanner{kind: "usb", available: false})

	_, err := sm.ScanByType(context.Background(), "usb")
	assert.EqualError(t, err, "scanner not available: usb")

	_, err = sm.ScanByType(context.Background(), "ipp")
	assert.EqualError(t, err, "scanner type not found: ipp")
}

func TestDiscoveredDevice_Device(t *testing.T) {
	d := &DiscoveredDevice{ID: "a", Name: "TM", Address: "addr", Paired: true, Known: true, ConnectionType: model.ConnectionTypeBluetooth}
	wire := d.Device()
	assert.Equal(t, model.Device{ID: "a", Name: "TM", Address: "addr", Paired: true, Type: "bluetooth"}, wire)
	assert.False(t, wire.IsUnknown())

	d.Known = false
	wire = d.Device()
	assert.Equal(t, model.DeviceTypeUnknown, wire.Type)
	assert.True(t, wire.IsUnknown())
}
