// internal/printing/service.go
package printing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"print-bridge/internal/model"
	"print-bridge/internal/receipt"
	"print-bridge/internal/utils"
)

var (
	// ErrNotConnected means the channel to the agent is not open
	ErrNotConnected = errors.New("not connected to print agent")
	// ErrNoPrinter means no printer id was given and none is connected
	ErrNoPrinter = errors.New("no printer connected")
)

// Agent is the part of the agent client the orchestrator needs
type Agent interface {
	IsConnected() bool
	ConnectedDevices() []model.Device
	SendData(ctx context.Context, deviceID string, payload []byte) error
}

// Renderer turns a receipt into printer bytes
type Renderer interface {
	Render(ctx context.Context, data *receipt.ReceiptData, settings *receipt.ReceiptSettings, ps receipt.PrinterSettings) ([]byte, error)
}

// Journal records print outcomes
type Journal interface {
	Record(ctx context.Context, job *model.PrintJob) error
}

// Options selects the printer and the formatting for one print
type Options struct {
	PrinterID       string
	PrinterSettings receipt.PrinterSettings
	ReceiptSettings *receipt.ReceiptSettings
}

// Result describes a completed print
type Result struct {
	JobID    uuid.UUID `json:"job_id"`
	DeviceID string    `json:"device_id"`
	Bytes    int       `json:"bytes"`
}

// Service renders receipts and sends them to a connected printer. It keeps
// no state of its own.
type Service struct {
	agent    Agent
	renderer Renderer
	journal  Journal
	logger   *zap.Logger
}

// NewService creates the orchestrator. journal may be nil.
func NewService(agent Agent, renderer Renderer, journal Journal, logger *zap.Logger) *Service {
	return &Service{
		agent:    agent,
		renderer: renderer,
		journal:  journal,
		logger:   logger.With(zap.String("component", "print_service")),
	}
}

// PrintReceipt renders data and sends it to the selected printer. When no
// printer id is given the first connected device is used.
func (s *Service) PrintReceipt(ctx context.Context, data *receipt.ReceiptData, opts Options) (*Result, error) {
	if !s.agent.IsConnected() {
		return nil, ErrNotConnected
	}

	deviceID, err := s.resolvePrinter(opts.PrinterID)
	if err != nil {
		return nil, err
	}

	job := &model.PrintJob{
		ID:            uuid.New(),
		DeviceID:      deviceID,
		ReceiptNumber: data.ReceiptNumber,
		CreatedAt:     time.Now(),
	}

	op := utils.NewJobLogger(s.logger, job.ID.String(), deviceID)
	op.Started(zap.String("receipt_number", data.ReceiptNumber))

	payload, err := s.renderer.Render(ctx, data, opts.ReceiptSettings, opts.PrinterSettings)
	if err == nil {
		job.Bytes = len(payload)
		err = s.agent.SendData(ctx, deviceID, payload)
	}

	job.DurationMs = int(time.Since(job.CreatedAt).Milliseconds())
	if err != nil {
		msg := err.Error()
		job.Status = model.PrintJobStatusFailed
		job.ErrorMessage = &msg
		op.Failed(err)
	} else {
		job.Status = model.PrintJobStatusSuccess
		op.Succeeded(zap.Int("bytes", job.Bytes))
	}
	s.record(job)

	if err != nil {
		return nil, err
	}
	return &Result{JobID: job.ID, DeviceID: deviceID, Bytes: job.Bytes}, nil
}

func (s *Service) resolvePrinter(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	connected := s.agent.ConnectedDevices()
	if len(connected) == 0 {
		return "", ErrNoPrinter
	}
	return connected[0].ID, nil
}

func (s *Service) record(job *model.PrintJob) {
	if s.journal == nil {
		return
	}
	// the caller's context may already be cancelled; the journal entry is still wanted
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(ctx, job); err != nil {
		s.logger.Warn("Failed to record print job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
