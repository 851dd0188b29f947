// internal/handler/interfaces.go
package handler

import (
	"context"

	"print-bridge/internal/model"
	"print-bridge/internal/preferences"
	"print-bridge/internal/printing"
	"print-bridge/internal/service"
)

// PrinterSession is the agent session the handlers drive
type PrinterSession interface {
	Status() service.SessionStatus
	Connect(ctx context.Context) error
	Disconnect() error
	Discover(ctx context.Context, ignoreUnknown *bool) ([]model.Device, error)
	Devices() []model.Device
	ConnectedDevices() []model.Device
	ConnectDevice(ctx context.Context, deviceID string) (*model.Device, error)
	DisconnectDevice(ctx context.Context, deviceID string) error
	ClearDevices(ctx context.Context) error
	Preferences() preferences.Preferences
	SavePreferences(p preferences.Preferences) error
}

// ReceiptService renders and prints receipts
type ReceiptService interface {
	Preview(req *service.ReceiptRequest) (string, error)
	Encode(ctx context.Context, req *service.ReceiptRequest) ([]byte, error)
	Print(ctx context.Context, req *service.ReceiptRequest) (*printing.Result, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}
