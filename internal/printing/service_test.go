package printing

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"print-bridge/internal/agent"
	"print-bridge/internal/model"
	"print-bridge/internal/receipt"
)

type fakeAgent struct {
	connected bool
	devices   []model.Device
	sendErr   error

	mu   sync.Mutex
	sent map[string][]byte
}

func (f *fakeAgent) IsConnected() bool                { return f.connected }
func (f *fakeAgent) ConnectedDevices() []model.Device { return f.devices }

func (f *fakeAgent) SendData(_ context.Context, id string, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	for _, d := range f.devices {
		if d.ID == id {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.sent == nil {
				f.sent = make(map[string][]byte)
			}
			f.sent[id] = payload
			return nil
		}
	}
	return &agent.DeviceNotConnectedError{DeviceID: id}
}

type memoryJournal struct {
	jobs []*model.PrintJob
}

func (j *memoryJournal) Record(_ context.Context, job *model.PrintJob) error {
	j.jobs = append(j.jobs, job)
	return nil
}

func sampleReceipt() *receipt.ReceiptData {
	return &receipt.ReceiptData{
		ReceiptNumber: "R-1001",
		Date:          "2026-10-17",
		Time:          "12:30",
		StoreName:     "Corner Cafe",
		Items: []receipt.ReceiptItem{
			{ID: "1", Name: "Latte", Quantity: 2, Price: decimal.RequireFromString("3.50"), Total: decimal.RequireFromString("7.00")},
		},
		Subtotal:      decimal.RequireFromString("7.00"),
		Total:         decimal.RequireFromString("7.00"),
		PaymentMethod: "Cash",
		Currency:      "$",
	}
}

func newService(a Agent, j Journal) *Service {
	return NewService(a, receipt.NewRenderer(nil, zap.NewNop()), j, zap.NewNop())
}

func TestPrintReceipt_NotConnected(t *testing.T) {
	j := &memoryJournal{}
	s := newService(&fakeAgent{connected: false}, j)

	_, err := s.PrintReceipt(context.Background(), sampleReceipt(), Options{PrinterID: "p1"})

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, j.jobs)
}

func TestPrintReceipt_NoPrinter(t *testing.T) {
	s := newService(&fakeAgent{connected: true}, nil)

	_, err := s.PrintReceipt(context.Background(), sampleReceipt(), Options{})

	assert.ErrorIs(t, err, ErrNoPrinter)
}

func TestPrintReceipt_DefaultsToFirstConnectedDevice(t *testing.T) {
	a := &fakeAgent{connected: true, devices: []model.Device{{ID: "p1", Connected: true}, {ID: "p2", Connected: true}}}
	j := &memoryJournal{}
	s := newService(a, j)

	res, err := s.PrintReceipt(context.Background(), sampleReceipt(), Options{PrinterSettings: receipt.PresetFor(58)})
	require.NoError(t, err)

	assert.Equal(t, "p1", res.DeviceID)
	payload := a.sent["p1"]
	require.NotEmpty(t, payload)
	assert.Equal(t, len(payload), res.Bytes)
	assert.True(t, bytes.HasPrefix(payload, []byte{0x1B, 0x40}))
	assert.True(t, bytes.HasSuffix(payload, []byte{0x1D, 0x56, 0x42, 0x00}))
	assert.Contains(t, string(payload), "Corner Cafe")

	require.Len(t, j.jobs, 1)
	assert.Equal(t, model.PrintJobStatusSuccess, j.jobs[0].Status)
	assert.Equal(t, res.JobID, j.jobs[0].ID)
	assert.Equal(t, "R-1001", j.jobs[0].ReceiptNumber)
}

func TestPrintReceipt_MatchesRendererOutput(t *testing.T) {
	a := &fakeAgent{connected: true, devices: []model.Device{{ID: "p1"}}}
	s := newService(a, nil)
	ps := receipt.PresetFor(80)

	_, err := s.PrintReceipt(context.Background(), sampleReceipt(), Options{PrinterID: "p1", PrinterSettings: ps})
	require.NoError(t, err)

	want, err := receipt.NewRenderer(nil, zap.NewNop()).Render(context.Background(), sampleReceipt(), nil, ps)
	require.NoError(t, err)
	assert.Equal(t, want, a.sent["p1"])
}

func TestPrintReceipt_ExplicitPrinterNotConnected(t *testing.T) {
	a := &fakeAgent{connected: true, devices: []model.Device{{ID: "p1"}}}
	j := &memoryJournal{}
	s := newService(a, j)

	_, err := s.PrintReceipt(context.Background(), sampleReceipt(), Options{PrinterID: "p9"})

	var notConnected *agent.DeviceNotConnectedError
	require.ErrorAs(t, err, &notConnected)
	require.Len(t, j.jobs, 1)
	assert.Equal(t, model.PrintJobStatusFailed, j.jobs[0].Status)
	require.NotNil(t, j.jobs[0].ErrorMessage)
	assert.Equal(t, "device p9 is not connected", *j.jobs[0].ErrorMessage)
}

func TestPrintReceipt_TransportFailure(t *testing.T) {
	sendErr := &agent.TransportError{Reason: agent.ReasonClosed}
	a := &fakeAgent{connected: true, devices: []model.Device{{ID: "p1"}}, sendErr: sendErr}
	s := newService(a, nil)

	_, err := s.PrintReceipt(context.Background(), sampleReceipt(), Options{})

	assert.True(t, errors.Is(err, sendErr))
	assert.True(t, agent.IsReason(err, agent.ReasonClosed))
}
