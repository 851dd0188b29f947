package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"print-bridge/internal/agent"
	"print-bridge/internal/config"
	"print-bridge/internal/model"
	"print-bridge/internal/printing"
	"print-bridge/internal/receipt"
	"print-bridge/internal/repository"
)

func sampleRequest() *ReceiptRequest {
	return &ReceiptRequest{
		Data: receipt.ReceiptData{
			Date:      "2024-05-01",
			Time:      "12:30",
			StoreName: "Corner Cafe",
			Items: []receipt.ReceiptItem{
				{ID: "1", Name: "Latte", Quantity: 2, Price: decimal.RequireFromString("3.50"), Total: decimal.RequireFromString("7.00")},
			},
			Subtotal:      decimal.RequireFromString("7.00"),
			Total:         decimal.RequireFromString("7.00"),
			PaymentMethod: "Cash",
			Currency:      "$",
		},
		Settings: &receipt.ReceiptSettings{TransactionPrefix: "TX-", TransactionNext: 42},
	}
}

type receiptHarness struct {
	client  *fakeClient
	journal repository.PrintJobRepository
	events  *recordingPublisher
	service *ReceiptService
}

func newReceiptHarness(t *testing.T) *receiptHarness {
	t.Helper()
	client := newFakeClient()
	journal, err := repository.NewMemoryJournal(10, zap.NewNop())
	require.NoError(t, err)

	renderer := receipt.NewRenderer(nil, zap.NewNop())
	printer := printing.NewService(client, renderer, journal, zap.NewNop())
	events := &recordingPublisher{}
	cfg := config.PrinterConfig{PaperWidth: 58, FeedLines: 2, CutEnabled: true}

	return &receiptHarness{
		client:  client,
		journal: journal,
		events:  events,
		service: NewReceiptService(renderer, printer, cfg, events, zap.NewNop()),
	}
}

func TestDefaultPrinterSettings(t *testing.T) {
	ps := DefaultPrinterSettings(config.PrinterConfig{PaperWidth: 58, FeedLines: 4})
	assert.Equal(t, 58, ps.PaperWidth)
	assert.Equal(t, 32, ps.CharsPerLine)
	assert.Equal(t, 4, ps.FeedLines)

	ps = DefaultPrinterSettings(config.PrinterConfig{PaperWidth: 80, CharsPerLine: 42, CharacterEncoding: "CP437", Transcode: true})
	assert.Equal(t, 42, ps.CharsPerLine)
	assert.Equal(t, "CP437", ps.CharacterEncoding)
	assert.True(t, ps.Transcode)
}

func TestReceiptService_PreviewUsesNumbering(t *testing.T) {
	h := newReceiptHarness(t)

	html, err := h.service.Preview(sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, html, "TX-42")
	assert.Contains(t, html, "Corner Cafe")
}

func TestReceiptService_EncodeStartsWithInitialize(t *testing.T) {
	h := newReceiptHarness(t)

	out, err := h.service.Encode(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte{0x1B, 0x40}))
	assert.True(t, bytes.Contains(out, []byte("Latte")))
}

func TestReceiptService_RejectsBadQuantity(t *testing.T) {
	h := newReceiptHarness(t)
	req := sampleRequest()
	req.Data.Items[0].Quantity = 0

	_, err := h.service.Encode(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestReceiptService_PrintPublishesOutcome(t *testing.T) {
	h := newReceiptHarness(t)
	ctx := context.Background()

	_, err := h.service.Print(ctx, sampleRequest())
	assert.ErrorIs(t, err, printing.ErrNotConnected)
	failed, ok := h.events.last(model.EventPrintFailed)
	require.True(t, ok)
	assert.Equal(t, "TX-42", failed.Data["receipt_number"])

	require.NoError(t, h.client.Connect(ctx))
	_, err = h.client.ConnectDevice(ctx, "bt-1")
	require.NoError(t, err)

	result, err := h.service.Print(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "bt-1", result.DeviceID)
	assert.Equal(t, result.Bytes, len(h.client.sent["bt-1"]))

	completed, ok := h.events.last(model.EventPrintCompleted)
	require.True(t, ok)
	assert.Equal(t, result.JobID.String(), completed.Data["job_id"])

	jobs, err := h.journal.List(ctx, model.PrintJobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.PrintJobStatusSuccess, jobs[0].Status)
}

func TestReceiptService_PrintToUnconnectedDevice(t *testing.T) {
	h := newReceiptHarness(t)
	ctx := context.Background()
	require.NoError(t, h.client.Connect(ctx))

	req := sampleRequest()
	req.PrinterID = "usb-1"
	_, err := h.service.Print(ctx, req)

	var nc *agent.DeviceNotConnectedError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, "usb-1", nc.DeviceID)
}
