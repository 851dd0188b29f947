// internal/agentserver/server.go
package agentserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"print-bridge/internal/discovery"
	"print-bridge/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
)

// Scanner finds printers on demand
type Scanner interface {
	ScanAll(ctx context.Context) ([]*discovery.DiscoveredDevice, error)
}

// Options tune the server
type Options struct {
	HealthCheckInterval time.Duration
	OperationTimeout    time.Duration
}

// Server speaks the print agent websocket protocol on behalf of local printers
type Server struct {
	registry *Registry
	scanner  Scanner
	options  Options
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

// client is one connected websocket peer
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewServer creates an agent server
func NewServer(registry *Registry, scanner Scanner, options Options, logger *zap.Logger) *Server {
	if options.HealthCheckInterval <= 0 {
		options.HealthCheckInterval = 5 * time.Second
	}
	if options.OperationTimeout <= 0 {
		options.OperationTimeout = 30 * time.Second
	}
	return &Server{
		registry: registry,
		scanner:  scanner,
		options:  options,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the agent only listens on loopback
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger.With(zap.String("component", "agent_server")),
		clients: make(map[string]*client),
	}
}

// HandleWebSocket upgrades the request and serves the connection until it closes
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[cl.id] = cl
	s.mu.Unlock()

	s.logger.Info("Client connected",
		zap.String("client_id", cl.id),
		zap.String("remote_addr", c.ClientIP()),
	)

	go s.writePump(cl)
	s.readPump(cl)
}

// ClientCount returns the number of connected peers
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Run checks device health until ctx is done and pushes device_disconnected
// for every dropped device
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.options.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckHealth(ctx)
		}
	}
}

// CheckHealth runs one health pass
func (s *Server) CheckHealth(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, s.options.OperationTimeout)
	defer cancel()

	for _, event := range s.registry.CheckHealth(checkCtx) {
		s.PushDeviceDisconnected(event)
	}
}

// PushDeviceDisconnected notifies every client that a device went away
func (s *Server) PushDeviceDisconnected(event model.DeviceDisconnectedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	frame, err := json.Marshal(model.AgentResponse{
		Type:    model.MessageDeviceDisconnected,
		Success: true,
		Data:    data,
	})
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cl := range s.clients {
		select {
		case cl.send <- frame:
		default:
			s.logger.Warn("Client send buffer full, push dropped", zap.String("client_id", cl.id))
		}
	}
}

// Shutdown disconnects every client and closes every transport
func (s *Server) Shutdown() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for _, cl := range clients {
		_ = cl.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "agent shutting down"),
			time.Now().Add(writeWait))
		cl.close()
	}
	s.registry.Clear()
}

func (s *Server) readPump(cl *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, cl.id)
		s.mu.Unlock()
		cl.close()
		s.logger.Info("Client disconnected", zap.String("client_id", cl.id))
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Websocket read error", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}
		_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req model.AgentRequest
		if err := json.Unmarshal(message, &req); err != nil {
			s.logger.Warn("Ignoring malformed request", zap.String("client_id", cl.id), zap.Error(err))
			continue
		}

		// requests run concurrently; responses carry the request id
		go s.serve(cl, req)
	}
}

func (s *Server) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("Websocket write error", zap.String("client_id", cl.id), zap.Error(err))
				cl.close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (s *Server) serve(cl *client, req model.AgentRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.options.OperationTimeout)
	defer cancel()

	resp := model.AgentResponse{Type: req.Type, RequestID: req.RequestID, Success: true}

	data, err := s.handle(ctx, req)
	if err == nil && data != nil {
		resp.Data, err = json.Marshal(data)
	}
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		resp.Data = nil
		s.logger.Warn("Request failed",
			zap.String("type", string(req.Type)),
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}

	frame, err := json.Marshal(resp)
	if err != nil {
		return
	}
	select {
	case cl.send <- frame:
	case <-cl.done:
	}
}

func (s *Server) handle(ctx context.Context, req model.AgentRequest) (any, error) {
	switch req.Type {
	case model.MessageDiscover:
		var body model.DiscoverRequest
		if err := decode(req.Data, &body); err != nil {
			return nil, err
		}
		devices, err := s.scanner.ScanAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		s.registry.Update(devices)
		return model.DeviceListResponse{Devices: s.registry.List(body.IgnoreUnknown)}, nil

	case model.MessageConnectDevice:
		var body model.DeviceRequest
		if err := decode(req.Data, &body); err != nil {
			return nil, err
		}
		device, err := s.registry.Connect(ctx, body.DeviceID)
		if err != nil {
			return nil, err
		}
		return model.DeviceStateResponse{Device: &device}, nil

	case model.MessageDisconnectDevice:
		var body model.DeviceRequest
		if err := decode(req.Data, &body); err != nil {
			return nil, err
		}
		device, err := s.registry.Disconnect(body.DeviceID)
		if err != nil {
			return nil, err
		}
		return model.DeviceStateResponse{Device: &device}, nil

	case model.MessageGetConnectedDevices:
		devices := s.registry.Connected()
		if devices == nil {
			devices = []model.Device{}
		}
		return model.DeviceListResponse{Devices: devices}, nil

	case model.MessageClearDevices:
		s.registry.Clear()
		return nil, nil

	case model.MessageSendData:
		var body model.SendDataRequest
		if err := decode(req.Data, &body); err != nil {
			return nil, err
		}
		n, err := s.registry.Write(ctx, body.DeviceID, body.Payload)
		if err != nil {
			return nil, err
		}
		return model.SendDataResponse{BytesWritten: n}, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", req.Type)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request data: %w", err)
	}
	return nil
}
