// internal/service/receipt_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"print-bridge/internal/config"
	"print-bridge/internal/model"
	"print-bridge/internal/printing"
	"print-bridge/internal/receipt"
	"print-bridge/internal/utils"
)

// ErrInvalidReceipt is returned for receipts that cannot be laid out
var ErrInvalidReceipt = errors.New("invalid receipt")

// ReceiptRequest carries one receipt and the settings to format it with
type ReceiptRequest struct {
	Data      receipt.ReceiptData      `json:"data"`
	Settings  *receipt.ReceiptSettings `json:"settings,omitempty"`
	Printer   *receipt.PrinterSettings `json:"printer,omitempty"`
	PrinterID string                   `json:"printer_id,omitempty"`
}

// ReceiptRenderer renders the preview and the print stream
type ReceiptRenderer interface {
	printing.Renderer
	RenderPreview(data *receipt.ReceiptData, settings *receipt.ReceiptSettings, ps receipt.PrinterSettings) (string, error)
}

// Printer sends a rendered receipt to a printer
type Printer interface {
	PrintReceipt(ctx context.Context, data *receipt.ReceiptData, opts printing.Options) (*printing.Result, error)
}

// ReceiptService prepares receipts for preview and print
type ReceiptService struct {
	renderer ReceiptRenderer
	printer  Printer
	defaults receipt.PrinterSettings
	events   Publisher
	logger   *utils.ServiceLogger
}

// NewReceiptService creates a receipt service. Requests without printer
// settings use defaults from cfg.
func NewReceiptService(renderer ReceiptRenderer, printer Printer, cfg config.PrinterConfig, events Publisher, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		renderer: renderer,
		printer:  printer,
		defaults: DefaultPrinterSettings(cfg),
		events:   events,
		logger:   utils.NewServiceLogger(logger, "receipt-service"),
	}
}

// DefaultPrinterSettings maps configuration onto printer settings
func DefaultPrinterSettings(cfg config.PrinterConfig) receipt.PrinterSettings {
	ps := receipt.PresetFor(cfg.PaperWidth)
	if cfg.CharsPerLine > 0 {
		ps.CharsPerLine = cfg.CharsPerLine
	}
	if cfg.CharacterEncoding != "" {
		ps.CharacterEncoding = cfg.CharacterEncoding
	}
	ps.Transcode = cfg.Transcode
	ps.FeedLines = cfg.FeedLines
	ps.CutEnabled = cfg.CutEnabled
	return ps.Normalized()
}

// Preview renders the HTML preview
func (s *ReceiptService) Preview(req *ReceiptRequest) (string, error) {
	data, settings, ps, err := s.prepare(req)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderPreview(data, settings, ps)
}

// Encode renders the raw ESC/POS stream without sending it
func (s *ReceiptService) Encode(ctx context.Context, req *ReceiptRequest) ([]byte, error) {
	data, settings, ps, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ctx, data, settings, ps)
}

// Print renders and sends the receipt, publishing the outcome
func (s *ReceiptService) Print(ctx context.Context, req *ReceiptRequest) (*printing.Result, error) {
	data, settings, ps, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	result, err := s.printer.PrintReceipt(ctx, data, printing.Options{
		PrinterID:       req.PrinterID,
		PrinterSettings: ps,
		ReceiptSettings: settings,
	})
	if err != nil {
		s.publish(model.NewBridgeEvent(model.EventPrintFailed, model.JSONObject{
			"receipt_number": data.ReceiptNumber,
			"printer_id":     req.PrinterID,
			"error":          err.Error(),
		}))
		return nil, err
	}

	s.publish(model.NewBridgeEvent(model.EventPrintCompleted, model.JSONObject{
		"receipt_number": data.ReceiptNumber,
		"job_id":         result.JobID.String(),
		"device_id":      result.DeviceID,
		"bytes":          result.Bytes,
	}))
	return result, nil
}

func (s *ReceiptService) prepare(req *ReceiptRequest) (*receipt.ReceiptData, *receipt.ReceiptSettings, receipt.PrinterSettings, error) {
	if req == nil {
		return nil, nil, receipt.PrinterSettings{}, fmt.Errorf("%w: empty request", ErrInvalidReceipt)
	}
	for i, item := range req.Data.Items {
		if item.Quantity <= 0 {
			return nil, nil, receipt.PrinterSettings{}, fmt.Errorf("%w: item %d has quantity %d", ErrInvalidReceipt, i, item.Quantity)
		}
	}

	settings := req.Settings
	if settings == nil {
		settings = &receipt.ReceiptSettings{}
	}

	data := req.Data
	if data.ReceiptNumber == "" {
		data.ReceiptNumber = settings.NextReceiptNumber()
	}

	ps := s.defaults
	if req.Printer != nil {
		ps = req.Printer.Normalized()
	}
	return &data, settings, ps, nil
}

func (s *ReceiptService) publish(event model.BridgeEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
