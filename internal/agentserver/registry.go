// internal/agentserver/registry.go
package agentserver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"print-bridge/internal/discovery"
	"print-bridge/internal/model"
	"print-bridge/internal/protocol"
	"print-bridge/internal/utils"
)

var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceNotConnected = errors.New("device not connected")
)

type entry struct {
	device    *discovery.DiscoveredDevice
	transport protocol.DeviceProtocol
	// serializes writes so receipts never interleave on the wire
	writeMu sync.Mutex
}

func (e *entry) wire() model.Device {
	d := e.device.Device()
	d.Connected = e.transport != nil && e.transport.IsOpen()
	return d
}

// Registry tracks discovered devices and their open transports
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	factory protocol.Factory
	logger  *zap.Logger
}

// NewRegistry creates a registry. factory may be nil to use protocol.CreateProtocol.
func NewRegistry(factory protocol.Factory, logger *zap.Logger) *Registry {
	if factory == nil {
		factory = protocol.CreateProtocol
	}
	return &Registry{
		entries: make(map[string]*entry),
		factory: factory,
		logger:  logger.With(zap.String("component", "device_registry")),
	}
}

// Update merges a scan result. Devices that vanished from the scan are
// dropped unless they are connected.
func (r *Registry) Update(devices []*discovery.DiscoveredDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*entry, len(devices))
	var order []string

	for _, d := range devices {
		if e, ok := r.entries[d.ID]; ok {
			e.device = d
			next[d.ID] = e
		} else {
			next[d.ID] = &entry{device: d}
		}
		order = append(order, d.ID)
	}

	for _, id := range r.order {
		if _, kept := next[id]; kept {
			continue
		}
		if e := r.entries[id]; e.transport != nil && e.transport.IsOpen() {
			next[id] = e
			order = append(order, id)
		}
	}

	r.entries = next
	r.order = order
}

// List returns devices in scan order, optionally without unidentified ones
func (r *Registry) List(ignoreUnknown bool) []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]model.Device, 0, len(r.order))
	for _, id := range r.order {
		d := r.entries[id].wire()
		if ignoreUnknown && d.IsUnknown() {
			continue
		}
		devices = append(devices, d)
	}
	return devices
}

// Connected returns the devices with an open transport
func (r *Registry) Connected() []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []model.Device
	for _, id := range r.order {
		if d := r.entries[id].wire(); d.Connected {
			devices = append(devices, d)
		}
	}
	return devices
}

// Connect opens the transport for a discovered device
func (r *Registry) Connect(ctx context.Context, id string) (model.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return model.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	if e.transport != nil && e.transport.IsOpen() {
		return e.wire(), nil
	}

	dl := utils.NewPrinterLogger(r.logger, id, e.device.Name, string(e.device.ConnectionType))

	transport, err := r.factory(e.device.ConnectionType, e.device.ConnectionInfo, r.logger)
	if err != nil {
		dl.LogConnection("create_transport", false, err)
		return model.Device{}, fmt.Errorf("failed to create transport: %w", err)
	}
	if err := transport.Open(ctx); err != nil {
		dl.LogConnection("open", false, err)
		return model.Device{}, err
	}

	e.transport = transport
	dl.LogConnection("open", true, nil)
	return e.wire(), nil
}

// Disconnect closes a device transport. Disconnecting a device that is not
// open is not an error.
func (r *Registry) Disconnect(id string) (model.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return model.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	r.closeEntry(e)
	return e.wire(), nil
}

// Clear closes every transport and forgets all devices
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		r.closeEntry(e)
	}
	r.entries = make(map[string]*entry)
	r.order = nil
}

// Write sends data to a connected device
func (r *Registry) Write(ctx context.Context, id string, data []byte) (int, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	var transport protocol.DeviceProtocol
	if ok {
		transport = e.transport
	}
	r.mu.RUnlock()

	if !ok || transport == nil || !transport.IsOpen() {
		return 0, fmt.Errorf("%w: %s", ErrDeviceNotConnected, id)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	dl := utils.NewPrinterLogger(r.logger, id, e.device.Name, string(e.device.ConnectionType))
	start := time.Now()
	err := transport.Write(ctx, data)
	dl.LogWrite(len(data), time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// CheckHealth pings every open transport and closes the ones that fail.
// It returns one event per dropped device. A transport replaced while its
// ping was in flight is left alone.
func (r *Registry) CheckHealth(ctx context.Context) []model.DeviceDisconnectedEvent {
	type target struct {
		e         *entry
		transport protocol.DeviceProtocol
	}

	r.mu.RLock()
	var open []target
	for _, id := range r.order {
		if e := r.entries[id]; e.transport != nil {
			open = append(open, target{e: e, transport: e.transport})
		}
	}
	r.mu.RUnlock()

	var dropped []model.DeviceDisconnectedEvent
	for _, t := range open {
		var reason string
		if !t.transport.IsOpen() {
			reason = "transport closed"
		} else {
			t.e.writeMu.Lock()
			err := t.transport.Ping(ctx)
			t.e.writeMu.Unlock()
			if err == nil {
				continue
			}
			reason = err.Error()
		}

		r.mu.Lock()
		current := t.e.transport == t.transport
		if current {
			r.closeEntry(t.e)
		}
		r.mu.Unlock()
		if !current {
			continue
		}

		r.logger.Warn("Device dropped",
			zap.String("device_id", t.e.device.ID),
			zap.String("reason", reason),
		)
		dropped = append(dropped, model.DeviceDisconnectedEvent{DeviceID: t.e.device.ID, Reason: reason})
	}
	return dropped
}

// IDs returns the known device ids in order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// closeEntry requires r.mu held for writing
func (r *Registry) closeEntry(e *entry) {
	if e.transport == nil {
		return
	}
	if err := e.transport.Close(); err != nil {
		r.logger.Warn("Failed to close transport", zap.String("device_id", e.device.ID), zap.Error(err))
	}
	e.transport = nil
}
