package serial

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"print-bridge/internal/model"
)

func TestScanner_ClassifiesPorts(t *testing.T) {
	list := func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/rfcomm0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0416", PID: "5011", Product: "POS-80", SerialNumber: "X1"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "04b8", PID: "0e28"},
			{Name: "/dev/ttyS0"},
		}, nil
	}
	s := NewScanner(zap.NewNop(), &Config{BaudRate: 115200}, list)

	devices, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 4)

	bt := devices[0]
	assert.Equal(t, model.ConnectionTypeBluetooth, bt.ConnectionType)
	assert.Equal(t, "Bluetooth printer (rfcomm0)", bt.Name)
	assert.True(t, bt.Paired)
	assert.Equal(t, "/dev/rfcomm0", bt.ConnectionInfo["port"])
	assert.Equal(t, 115200, bt.ConnectionInfo["baud_rate"])

	assert.Equal(t, "POS-80", devices[1].Name)
	assert.Equal(t, "X1", devices[1].ConnectionInfo["serial_number"])
	assert.Equal(t, "serial", devices[1].Device().Type)

	assert.Equal(t, "USB serial 04b8:0e28", devices[2].Name)

	assert.False(t, devices[3].Known)
	unknown := devices[3].Device()
	assert.True(t, unknown.IsUnknown())
}

func TestScanner_PortPatterns(t *testing.T) {
	list := func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{{Name: "/dev/rfcomm0"}, {Name: "/dev/ttyS0"}}, nil
	}
	s := NewScanner(zap.NewNop(), &Config{PortPatterns: []string{"rfcomm"}}, list)

	devices, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/rfcomm0", devices[0].ID)
}

func TestScanner_ListError(t *testing.T) {
	s := NewScanner(zap.NewNop(), nil, func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("permission denied")
	})

	_, err := s.Scan(context.Background())
	assert.EqualError(t, err, "failed to get serial ports: permission denied")
}
