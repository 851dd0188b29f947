package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"print-bridge/internal/agent"
	"print-bridge/internal/config"
	"print-bridge/internal/model"
	"print-bridge/internal/preferences"
	"print-bridge/internal/printing"
	"print-bridge/internal/repository"
	"print-bridge/internal/service"
)

type fakeSession struct {
	status       agent.Status
	connectErr   error
	deviceErr    error
	devices      []model.Device
	connected    []model.Device
	prefs        preferences.Preferences
	lastFilter   *bool
	lastDeviceID string
}

func (f *fakeSession) Status() service.SessionStatus {
	return service.SessionStatus{Status: f.status, URL: agent.DefaultURL, Devices: f.devices, ConnectedDevices: f.connected}
}

func (f *fakeSession) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.status = agent.StatusConnected
	return nil
}

func (f *fakeSession) Disconnect() error {
	f.status = agent.StatusDisconnected
	return nil
}

func (f *fakeSession) Discover(_ context.Context, ignoreUnknown *bool) ([]model.Device, error) {
	f.lastFilter = ignoreUnknown
	return f.devices, nil
}

func (f *fakeSession) Devices() []model.Device          { return f.devices }
func (f *fakeSession) ConnectedDevices() []model.Device { return f.connected }

func (f *fakeSession) ConnectDevice(_ context.Context, id string) (*model.Device, error) {
	f.lastDeviceID = id
	if f.deviceErr != nil {
		return nil, f.deviceErr
	}
	return &model.Device{ID: id, Connected: true}, nil
}

func (f *fakeSession) DisconnectDevice(_ context.Context, id string) error {
	f.lastDeviceID = id
	return f.deviceErr
}

func (f *fakeSession) ClearDevices(context.Context) error { return nil }

func (f *fakeSession) Preferences() preferences.Preferences { return f.prefs }

func (f *fakeSession) SavePreferences(p preferences.Preferences) error {
	f.prefs = p
	return nil
}

type fakeReceipts struct {
	printErr error
	lastReq  *service.ReceiptRequest
}

func (f *fakeReceipts) Preview(req *service.ReceiptRequest) (string, error) {
	f.lastReq = req
	return "<div class=\"receipt\">" + req.Data.StoreName + "</div>", nil
}

func (f *fakeReceipts) Encode(_ context.Context, req *service.ReceiptRequest) ([]byte, error) {
	f.lastReq = req
	return []byte{0x1B, 0x40}, nil
}

func (f *fakeReceipts) Print(_ context.Context, req *service.ReceiptRequest) (*printing.Result, error) {
	f.lastReq = req
	if f.printErr != nil {
		return nil, f.printErr
	}
	return &printing.Result{JobID: uuid.New(), DeviceID: "bt-1", Bytes: 2}, nil
}

type testEnv struct {
	engine   *gin.Engine
	session  *fakeSession
	receipts *fakeReceipts
	jobs     repository.PrintJobRepository
	bus      *EventBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	session := &fakeSession{status: agent.StatusDisconnected}
	receipts := &fakeReceipts{}
	jobs, err := repository.NewMemoryJournal(10, zap.NewNop())
	require.NoError(t, err)
	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	t.Cleanup(bus.Stop)

	cfg := &config.Config{App: config.AppConfig{Name: "print-bridge", Version: "test"}}
	logger := zap.NewNop()

	engine := gin.New()
	health := NewHealthHandler(session, nil, cfg, logger)
	agentH := NewAgentHandler(session, logger)
	devices := NewDeviceHandler(session, logger)
	receiptH := NewReceiptHandler(receipts, logger)
	prefs := NewPreferencesHandler(session, logger)
	jobH := NewJobHandler(jobs, logger)
	ws := NewWebSocketHandler(bus, session, logger)

	engine.GET("/health", health.HealthCheck)
	engine.GET("/ready", health.ReadinessCheck)
	api := engine.Group("/api/v1")
	api.GET("/agent/status", agentH.GetStatus)
	api.POST("/agent/connect", agentH.Connect)
	api.POST("/devices/discover", devices.Discover)
	api.POST("/devices/connect", devices.ConnectDevice)
	api.POST("/devices/disconnect", devices.DisconnectDevice)
	api.POST("/receipts/preview", receiptH.Preview)
	api.POST("/receipts/escpos", receiptH.Encode)
	api.POST("/receipts/print", receiptH.Print)
	api.GET("/preferences", prefs.GetPreferences)
	api.PUT("/preferences", prefs.UpdatePreferences)
	api.GET("/jobs", jobH.ListJobs)
	api.GET("/jobs/:job_id", jobH.GetJob)
	engine.GET("/ws/events", ws.HandleEventConnection)

	return &testEnv{engine: engine, session: session, receipts: receipts, jobs: jobs, bus: bus}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

const receiptBody = `{"data":{"store_name":"Corner Cafe","items":[{"id":"1","name":"Latte","quantity":1,"price":"3.50","total":"3.50"}],"subtotal":"3.50","total":"3.50","currency":"$"},"printer_id":"bt-1"}`

func TestAgentConnect_MapsTransportReasons(t *testing.T) {
	cases := []struct {
		reason agent.Reason
		status int
	}{
		{agent.ReasonRefused, http.StatusServiceUnavailable},
		{agent.ReasonTimeout, http.StatusGatewayTimeout},
		{agent.ReasonUnknown, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			env := newTestEnv(t)
			env.session.connectErr = &agent.TransportError{Reason: tc.reason, Err: errors.New("dial")}

			w := env.do(http.MethodPost, "/api/v1/agent/connect", "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, false, decodeBody(t, w)["success"])
		})
	}
}

func TestAgentConnect_Success(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/agent/connect", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "connected", data["status"])
}

func TestDiscover_ParsesFilter(t *testing.T) {
	env := newTestEnv(t)
	env.session.devices = []model.Device{{ID: "/dev/rfcomm0", Name: "Kitchen"}}

	w := env.do(http.MethodPost, "/api/v1/devices/discover?ignore_unknown=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.session.lastFilter)
	assert.False(t, *env.session.lastFilter)

	w = env.do(http.MethodPost, "/api/v1/devices/discover", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.session.lastFilter)

	w = env.do(http.MethodPost, "/api/v1/devices/discover?ignore_unknown=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectDevice_BodyCarriesPathLikeID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/devices/connect", `{"device_id":"/dev/rfcomm0"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/dev/rfcomm0", env.session.lastDeviceID)

	w = env.do(http.MethodPost, "/api/v1/devices/connect", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectDevice_AgentRejection(t *testing.T) {
	env := newTestEnv(t)
	env.session.deviceErr = &agent.ProtocolError{Op: "connect_device", Message: "device not found"}

	w := env.do(http.MethodPost, "/api/v1/devices/connect", `{"device_id":"x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	apiErr := decodeBody(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "AGENT_ERROR", apiErr["code"])
	assert.Equal(t, "connect_device failed: device not found", apiErr["details"])
}

func TestReceiptPreview_ReturnsHTML(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/receipts/preview", receiptBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Corner Cafe")
	assert.Equal(t, "3.5", env.receipts.lastReq.Data.Total.String())
}

func TestReceiptEncode_ReturnsBytes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/receipts/escpos", receiptBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.True(t, bytes.Equal([]byte{0x1B, 0x40}, w.Body.Bytes()))
}

func TestReceiptPrint_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not connected", printing.ErrNotConnected, http.StatusServiceUnavailable},
		{"no printer", printing.ErrNoPrinter, http.StatusConflict},
		{"device not connected", &agent.DeviceNotConnectedError{DeviceID: "bt-1"}, http.StatusConflict},
		{"invalid", service.ErrInvalidReceipt, http.StatusBadRequest},
		{"closed", &agent.TransportError{Reason: agent.ReasonClosed}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.receipts.printErr = tc.err

			w := env.do(http.MethodPost, "/api/v1/receipts/print", receiptBody)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestReceiptPrint_Success(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/receipts/print", receiptBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bt-1", env.receipts.lastReq.PrinterID)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "bt-1", data["device_id"])
}

func TestPreferences_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/v1/preferences", `{"auto_connect":true,"agent_endpoint":"ws://127.0.0.1:42123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.session.prefs.AutoConnect)

	w = env.do(http.MethodGet, "/api/v1/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["auto_connect"])
}

func TestJobs_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	job := &model.PrintJob{DeviceID: "bt-1", Status: model.PrintJobStatusSuccess}
	require.NoError(t, env.jobs.Record(context.Background(), job))
	require.NoError(t, env.jobs.Record(context.Background(), &model.PrintJob{DeviceID: "bt-2", Status: model.PrintJobStatusFailed}))

	w := env.do(http.MethodGet, "/api/v1/jobs?status=FAILED", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["jobs"], 1)

	w = env.do(http.MethodGet, "/api/v1/jobs?status=MAYBE", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/jobs?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/jobs/"+job.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/v1/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth_AgentDegradedIsStillHealthy(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "degraded", checks["agent"].(map[string]interface{})["status"])
	assert.NotContains(t, checks, "database")

	w = env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventStream_DeliversSubscribedEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.engine)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/events", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "initial_status", msg.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]interface{}{"topic": "device_disconnected"},
	}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "subscribed", msg.Type)

	env.bus.Publish(model.NewBridgeEvent(model.EventAgentStatus, model.JSONObject{"status": "connected"}))
	env.bus.Publish(model.NewBridgeEvent(model.EventDeviceDisconnected, model.JSONObject{"device_id": "bt-1"}))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "device_disconnected", msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "bt-1", data["device_id"])
}
