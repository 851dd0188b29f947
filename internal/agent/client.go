// internal/agent/client.go
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"print-bridge/internal/model"
)

// Status is the state of the channel to the agent
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

const (
	// Time allowed to write a message to the agent
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the agent
	pongWait = 60 * time.Second
	// Send pings to the agent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from the agent
	maxMessageSize = 1 << 20

	sendBufferSize = 64
)

// DefaultURL is where the local agent listens
const DefaultURL = "ws://127.0.0.1:42123"

// StatusHandler is called synchronously on every status change
type StatusHandler func(status Status, err error)

// DisconnectHandler is called when the agent reports a tracked device as gone
type DisconnectHandler func(event model.DeviceDisconnectedEvent)

type result struct {
	resp *model.AgentResponse
	err  error
}

// session is one live websocket connection with its pumps
type session struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) stop() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}

// dialAttempt identifies one in-flight Connect so Close can abort it
type dialAttempt struct {
	cancel context.CancelFunc
}

// Client is a request/response channel to the local print agent. It mirrors
// the agent's device lists in a best-effort cache.
type Client struct {
	url            string
	dialer         *websocket.Dialer
	dialTimeout    time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	sess    *session
	dial    *dialAttempt
	status  Status
	pending map[string]chan result

	cacheMu   sync.RWMutex
	devices   []model.Device
	connected []model.Device

	handlerMu          sync.RWMutex
	statusHandlers     []StatusHandler
	disconnectHandlers []DisconnectHandler
}

// Option configures a Client
type Option func(*Client)

// WithDialTimeout bounds Connect when the caller's context has no deadline
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithRequestTimeout bounds every request
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// NewClient creates a client for the agent at url. No connection is made
// until Connect.
func NewClient(url string, logger *zap.Logger, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:            url,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		dialTimeout:    5 * time.Second,
		requestTimeout: 30 * time.Second,
		logger:         logger.With(zap.String("component", "agent_client"), zap.String("agent_url", url)),
		status:         StatusDisconnected,
		pending:        make(map[string]chan result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the agent endpoint
func (c *Client) URL() string {
	return c.url
}

// OnStatus registers a status change handler
func (c *Client) OnStatus(h StatusHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.statusHandlers = append(c.statusHandlers, h)
}

// OnDeviceDisconnected registers a handler for device_disconnected pushes
func (c *Client) OnDeviceDisconnected(h DisconnectHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.disconnectHandlers = append(c.disconnectHandlers, h)
}

// Status returns the current channel status
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsConnected reports whether the channel is open
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

// Connect opens the channel. It is a no-op when already connected or
// connecting. A Close while the dial is in flight aborts it.
func (c *Client) Connect(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && c.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}
	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()

	c.mu.Lock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	attempt := &dialAttempt{cancel: cancelDial}
	c.dial = attempt
	c.swapStatusLocked(StatusConnecting)
	c.mu.Unlock()
	c.notify(StatusConnecting, nil)

	conn, _, err := c.dialer.DialContext(dialCtx, c.url, nil)

	c.mu.Lock()
	aborted := c.dial != attempt
	if !aborted {
		c.dial = nil
	}

	if err != nil {
		if aborted {
			c.mu.Unlock()
			return &TransportError{Reason: ReasonClosed, Err: err}
		}
		terr := &TransportError{Reason: classifyDialError(err), Err: err}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			terr.Reason = ReasonTimeout
		}
		changed := c.swapStatusLocked(StatusError)
		c.mu.Unlock()

		c.logger.Warn("Failed to connect to agent", zap.String("reason", string(terr.Reason)), zap.Error(err))
		if changed {
			c.notify(StatusError, terr)
		}
		return terr
	}

	if aborted {
		c.mu.Unlock()
		_ = conn.Close()
		c.logger.Info("Agent dial finished after Close, dropping connection")
		return &TransportError{Reason: ReasonClosed}
	}

	s := &session{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	c.sess = s
	c.swapStatusLocked(StatusConnected)
	c.mu.Unlock()

	go c.writePump(s)
	go c.readPump(s)

	c.logger.Info("Connected to agent")
	c.notify(StatusConnected, nil)
	return nil
}

// Close closes the channel, aborts a dial in flight and fails every pending
// request with ReasonClosed
func (c *Client) Close() error {
	c.mu.Lock()
	s := c.sess
	if c.dial != nil {
		c.dial.cancel()
		c.dial = nil
	}
	c.mu.Unlock()

	if s == nil {
		c.setStatus(StatusDisconnected, nil)
		return nil
	}
	c.teardown(s, StatusDisconnected, nil)
	return nil
}

// teardown detaches s, fails its pending requests and publishes status. Only
// the first caller for a session has any effect.
func (c *Client) teardown(s *session, status Status, cause error) {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	c.sess = nil
	pending := c.pending
	c.pending = make(map[string]chan result)
	changed := c.swapStatusLocked(status)
	c.mu.Unlock()

	s.stop()

	for id, ch := range pending {
		ch <- result{err: &TransportError{Reason: ReasonClosed, Err: cause}}
		c.logger.Debug("Rejected pending request", zap.String("request_id", id))
	}

	if changed {
		c.notify(status, cause)
	}
}

func (c *Client) setStatus(status Status, cause error) {
	c.mu.Lock()
	changed := c.swapStatusLocked(status)
	c.mu.Unlock()

	if changed {
		c.notify(status, cause)
	}
}

// swapStatusLocked must be called with c.mu held
func (c *Client) swapStatusLocked(status Status) bool {
	if c.status == status {
		return false
	}
	c.status = status
	return true
}

// notify clears the caches on loss and runs the status handlers outside c.mu
func (c *Client) notify(status Status, cause error) {
	if status == StatusDisconnected || status == StatusError {
		c.clearCache()
	}

	c.handlerMu.RLock()
	handlers := slices.Clone(c.statusHandlers)
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(status, cause)
	}
}

func (c *Client) readPump(s *session) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("Agent closed the connection")
				c.teardown(s, StatusDisconnected, nil)
				return
			}
			c.logger.Warn("Agent connection lost", zap.Error(err))
			c.teardown(s, StatusError, &TransportError{Reason: ReasonUnknown, Err: err})
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(message)
	}
}

func (c *Client) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("Failed to write to agent", zap.Error(err))
				// the read pump observes the closed socket and tears down
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (c *Client) dispatch(message []byte) {
	var resp model.AgentResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		c.logger.Warn("Ignoring malformed agent message", zap.Error(err))
		return
	}

	if resp.RequestID == "" {
		if resp.Type == model.MessageDeviceDisconnected {
			c.handleDeviceDisconnected(resp.Data)
			return
		}
		c.logger.Debug("Ignoring unsolicited agent message", zap.String("type", string(resp.Type)))
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	delete(c.pending, resp.RequestID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("Ignoring response for unknown request", zap.String("request_id", resp.RequestID))
		return
	}
	ch <- result{resp: &resp}
}

func (c *Client) handleDeviceDisconnected(data json.RawMessage) {
	var event model.DeviceDisconnectedEvent
	if err := json.Unmarshal(data, &event); err != nil || event.DeviceID == "" {
		c.logger.Warn("Ignoring malformed device_disconnected push")
		return
	}

	c.cacheMu.Lock()
	tracked := false
	if i := indexOf(c.connected, event.DeviceID); i >= 0 {
		c.connected = slices.Delete(c.connected, i, i+1)
		tracked = true
	}
	if i := indexOf(c.devices, event.DeviceID); i >= 0 {
		c.devices[i].Connected = false
		tracked = true
	}
	c.cacheMu.Unlock()

	if !tracked {
		return
	}

	c.logger.Info("Agent reported device disconnected",
		zap.String("device_id", event.DeviceID),
		zap.String("reason", event.Reason),
	)

	c.handlerMu.RLock()
	handlers := slices.Clone(c.disconnectHandlers)
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// request sends one message and waits for the response with the same id
func (c *Client) request(ctx context.Context, typ model.MessageType, payload any, out any) error {
	req := model.AgentRequest{Type: typ, RequestID: uuid.NewString()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", typ, err)
		}
		req.Data = data
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", typ, err)
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	ch := make(chan result, 1)

	c.mu.Lock()
	s := c.sess
	if s == nil {
		c.mu.Unlock()
		return &TransportError{Reason: ReasonClosed}
	}
	c.pending[req.RequestID] = ch
	c.mu.Unlock()

	select {
	case s.send <- frame:
	case <-s.done:
		c.forget(req.RequestID)
		return &TransportError{Reason: ReasonClosed}
	case <-ctx.Done():
		c.forget(req.RequestID)
		return contextError(ctx)
	}

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		c.forget(req.RequestID)
		return contextError(ctx)
	}

	if res.err != nil {
		return res.err
	}
	if !res.resp.Success {
		return &ProtocolError{Op: string(typ), Message: res.resp.Error}
	}
	if out != nil && len(res.resp.Data) > 0 {
		if err := json.Unmarshal(res.resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", typ, err)
		}
	}
	return nil
}

func (c *Client) forget(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TransportError{Reason: ReasonTimeout, Err: ctx.Err()}
	}
	return ctx.Err()
}

// Discover asks the agent to scan and replaces the cached device list
func (c *Client) Discover(ctx context.Context, ignoreUnknown bool) ([]model.Device, error) {
	var resp model.DeviceListResponse
	if err := c.request(ctx, model.MessageDiscover, model.DiscoverRequest{IgnoreUnknown: ignoreUnknown}, &resp); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.devices = slices.Clone(resp.Devices)
	c.cacheMu.Unlock()

	return resp.Devices, nil
}

// ConnectDevice asks the agent to open a device
func (c *Client) ConnectDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	var resp model.DeviceStateResponse
	if err := c.request(ctx, model.MessageConnectDevice, model.DeviceRequest{DeviceID: deviceID}, &resp); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	device := model.Device{ID: deviceID}
	if resp.Device != nil {
		device = *resp.Device
	} else if i := indexOf(c.devices, deviceID); i >= 0 {
		device = c.devices[i]
	}
	device.Connected = true

	if i := indexOf(c.devices, deviceID); i >= 0 {
		c.devices[i].Connected = true
	}
	if i := indexOf(c.connected, deviceID); i >= 0 {
		c.connected[i] = device
	} else {
		c.connected = append(c.connected, device)
	}
	return &device, nil
}

// DisconnectDevice asks the agent to release a device
func (c *Client) DisconnectDevice(ctx context.Context, deviceID string) error {
	if err := c.request(ctx, model.MessageDisconnectDevice, model.DeviceRequest{DeviceID: deviceID}, nil); err != nil {
		return err
	}

	c.cacheMu.Lock()
	if i := indexOf(c.connected, deviceID); i >= 0 {
		c.connected = slices.Delete(c.connected, i, i+1)
	}
	if i := indexOf(c.devices, deviceID); i >= 0 {
		c.devices[i].Connected = false
	}
	c.cacheMu.Unlock()
	return nil
}

// GetConnectedDevices fetches the agent's connected set and replaces the cache
func (c *Client) GetConnectedDevices(ctx context.Context) ([]model.Device, error) {
	var resp model.DeviceListResponse
	if err := c.request(ctx, model.MessageGetConnectedDevices, nil, &resp); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.connected = slices.Clone(resp.Devices)
	c.cacheMu.Unlock()

	return resp.Devices, nil
}

// ClearDevices asks the agent to forget all devices
func (c *Client) ClearDevices(ctx context.Context) error {
	if err := c.request(ctx, model.MessageClearDevices, nil, nil); err != nil {
		return err
	}
	c.clearCache()
	return nil
}

// SendData writes raw bytes to a connected device
func (c *Client) SendData(ctx context.Context, deviceID string, payload []byte) error {
	if !c.IsDeviceConnected(deviceID) {
		return &DeviceNotConnectedError{DeviceID: deviceID}
	}
	return c.request(ctx, model.MessageSendData, model.SendDataRequest{DeviceID: deviceID, Payload: payload}, nil)
}

// Devices returns a copy of the cached discovered devices
func (c *Client) Devices() []model.Device {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return slices.Clone(c.devices)
}

// ConnectedDevices returns a copy of the cached connected devices
func (c *Client) ConnectedDevices() []model.Device {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return slices.Clone(c.connected)
}

// IsDeviceConnected checks the cached connected set
func (c *Client) IsDeviceConnected(deviceID string) bool {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return indexOf(c.connected, deviceID) >= 0
}

func (c *Client) clearCache() {
	c.cacheMu.Lock()
	c.devices = nil
	c.connected = nil
	c.cacheMu.Unlock()
}

func indexOf(devices []model.Device, id string) int {
	return slices.IndexFunc(devices, func(d model.Device) bool { return d.ID == id })
}
