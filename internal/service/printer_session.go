// internal/service/printer_session.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"print-bridge/internal/agent"
	"print-bridge/internal/model"
	"print-bridge/internal/preferences"
	"print-bridge/internal/utils"
)

// AgentClient is the print agent connection the session drives
type AgentClient interface {
	URL() string
	Status() agent.Status
	IsConnected() bool
	OnStatus(h agent.StatusHandler)
	OnDeviceDisconnected(h agent.DisconnectHandler)
	Connect(ctx context.Context) error
	Close() error
	Discover(ctx context.Context, ignoreUnknown bool) ([]model.Device, error)
	ConnectDevice(ctx context.Context, deviceID string) (*model.Device, error)
	DisconnectDevice(ctx context.Context, deviceID string) error
	GetConnectedDevices(ctx context.Context) ([]model.Device, error)
	ClearDevices(ctx context.Context) error
	SendData(ctx context.Context, deviceID string, payload []byte) error
	Devices() []model.Device
	ConnectedDevices() []model.Device
}

// Publisher fans bridge events out to UI subscribers
type Publisher interface {
	Publish(event model.BridgeEvent)
}

// PreferenceStore reads and writes the persisted printer preferences
type PreferenceStore interface {
	Get() preferences.Preferences
	Save(p preferences.Preferences) error
}

// SessionStatus is a snapshot of the agent connection
type SessionStatus struct {
	Status           agent.Status   `json:"status"`
	URL              string         `json:"url"`
	AutoConnect      bool           `json:"auto_connect"`
	Devices          []model.Device `json:"devices"`
	ConnectedDevices []model.Device `json:"connected_devices"`
}

// PrinterSession owns the agent connection for the bridge. It keeps the
// connected-device cache in step with the agent and republishes agent events.
type PrinterSession struct {
	client        AgentClient
	prefs         PreferenceStore
	events        Publisher
	ignoreUnknown bool
	logger        *utils.ServiceLogger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewPrinterSession creates a session and subscribes to client events
func NewPrinterSession(client AgentClient, prefs PreferenceStore, events Publisher, ignoreUnknown bool, logger *zap.Logger) *PrinterSession {
	ps := &PrinterSession{
		client:        client,
		prefs:         prefs,
		events:        events,
		ignoreUnknown: ignoreUnknown,
		logger:        utils.NewServiceLogger(logger, "printer-session"),
		locks:         make(map[string]*sync.Mutex),
	}

	client.OnStatus(ps.onStatus)
	client.OnDeviceDisconnected(ps.onDeviceDisconnected)
	return ps
}

// Start connects once when the auto-connect preference is set. A failed
// attempt is reported and left for the user to retry.
func (ps *PrinterSession) Start(ctx context.Context) error {
	if !ps.prefs.Get().AutoConnect {
		ps.logger.Info("Auto-connect disabled")
		return nil
	}

	ps.logger.Info("Auto-connecting to print agent", zap.String("url", ps.client.URL()))
	if err := ps.Connect(ctx); err != nil {
		return fmt.Errorf("auto-connect failed: %w", err)
	}
	return nil
}

// Connect opens the agent channel and loads the agent's connected devices
func (ps *PrinterSession) Connect(ctx context.Context) error {
	if err := ps.client.Connect(ctx); err != nil {
		return err
	}
	if _, err := ps.refreshConnected(ctx); err != nil {
		ps.logger.Warn("Failed to load connected devices", zap.Error(err))
	}
	return nil
}

// Disconnect closes the agent channel
func (ps *PrinterSession) Disconnect() error {
	return ps.client.Close()
}

// Status returns the current connection snapshot
func (ps *PrinterSession) Status() SessionStatus {
	return SessionStatus{
		Status:           ps.client.Status(),
		URL:              ps.client.URL(),
		AutoConnect:      ps.prefs.Get().AutoConnect,
		Devices:          nonNil(ps.client.Devices()),
		ConnectedDevices: nonNil(ps.client.ConnectedDevices()),
	}
}

// Discover scans for printers. ignoreUnknown nil uses the configured default.
func (ps *PrinterSession) Discover(ctx context.Context, ignoreUnknown *bool) ([]model.Device, error) {
	filter := ps.ignoreUnknown
	if ignoreUnknown != nil {
		filter = *ignoreUnknown
	}

	devices, err := ps.client.Discover(ctx, filter)
	if err != nil {
		return nil, err
	}

	ps.publishDevices()
	return nonNil(devices), nil
}

// Devices returns the cached discovery result
func (ps *PrinterSession) Devices() []model.Device {
	return nonNil(ps.client.Devices())
}

// ConnectedDevices returns the cached connected set
func (ps *PrinterSession) ConnectedDevices() []model.Device {
	return nonNil(ps.client.ConnectedDevices())
}

// ConnectDevice opens a printer on the agent
func (ps *PrinterSession) ConnectDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	unlock := ps.lockDevice(deviceID)
	defer unlock()

	deviceLogger := utils.NewPrinterLogger(ps.logger.Logger, deviceID, "", "agent")

	device, err := ps.client.ConnectDevice(ctx, deviceID)
	deviceLogger.LogConnection("connect", err == nil, err)
	if err != nil {
		return nil, err
	}

	if _, err := ps.refreshConnected(ctx); err != nil {
		ps.logger.Warn("Failed to refresh connected devices", zap.Error(err))
	}
	ps.publishDevices()
	return device, nil
}

// DisconnectDevice releases a printer on the agent
func (ps *PrinterSession) DisconnectDevice(ctx context.Context, deviceID string) error {
	unlock := ps.lockDevice(deviceID)
	defer unlock()

	deviceLogger := utils.NewPrinterLogger(ps.logger.Logger, deviceID, "", "agent")

	err := ps.client.DisconnectDevice(ctx, deviceID)
	deviceLogger.LogConnection("disconnect", err == nil, err)
	if err != nil {
		return err
	}

	if _, err := ps.refreshConnected(ctx); err != nil {
		ps.logger.Warn("Failed to refresh connected devices", zap.Error(err))
	}
	ps.publishDevices()
	return nil
}

// ClearDevices makes the agent forget every device
func (ps *PrinterSession) ClearDevices(ctx context.Context) error {
	if err := ps.client.ClearDevices(ctx); err != nil {
		return err
	}
	ps.publishDevices()
	return nil
}

// Preferences returns the persisted preferences
func (ps *PrinterSession) Preferences() preferences.Preferences {
	return ps.prefs.Get()
}

// SavePreferences persists p. A changed endpoint applies on the next start.
func (ps *PrinterSession) SavePreferences(p preferences.Preferences) error {
	current := ps.prefs.Get()
	if err := ps.prefs.Save(p); err != nil {
		return err
	}
	if p.AgentEndpoint != current.AgentEndpoint {
		ps.logger.Info("Agent endpoint changed, restart required",
			zap.String("current", ps.client.URL()),
			zap.String("saved", p.AgentEndpoint),
		)
	}
	return nil
}

func (ps *PrinterSession) refreshConnected(ctx context.Context) ([]model.Device, error) {
	return ps.client.GetConnectedDevices(ctx)
}

func (ps *PrinterSession) lockDevice(deviceID string) func() {
	ps.locksMu.Lock()
	mu, ok := ps.locks[deviceID]
	if !ok {
		mu = &sync.Mutex{}
		ps.locks[deviceID] = mu
	}
	ps.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (ps *PrinterSession) onStatus(status agent.Status, cause error) {
	data := model.JSONObject{"status": string(status)}
	if cause != nil {
		data["error"] = cause.Error()
		var terr *agent.TransportError
		if errors.As(cause, &terr) {
			data["reason"] = string(terr.Reason)
		}
	}

	ps.logger.Info("Agent status changed", zap.String("status", string(status)), zap.Error(cause))
	ps.publish(model.NewBridgeEvent(model.EventAgentStatus, data))
}

func (ps *PrinterSession) onDeviceDisconnected(event model.DeviceDisconnectedEvent) {
	ps.logger.Warn("Printer disconnected",
		zap.String("device_id", event.DeviceID),
		zap.String("reason", event.Reason),
	)
	ps.publish(model.NewBridgeEvent(model.EventDeviceDisconnected, model.JSONObject{
		"device_id": event.DeviceID,
		"reason":    event.Reason,
	}))
	ps.publishDevices()
}

func (ps *PrinterSession) publishDevices() {
	ps.publish(model.NewBridgeEvent(model.EventDevicesChanged, model.JSONObject{
		"devices":           nonNil(ps.client.Devices()),
		"connected_devices": nonNil(ps.client.ConnectedDevices()),
	}))
}

func (ps *PrinterSession) publish(event model.BridgeEvent) {
	if ps.events != nil {
		ps.events.Publish(event)
	}
}

func nonNil(devices []model.Device) []model.Device {
	if devices == nil {
		return []model.Device{}
	}
	return devices
}
