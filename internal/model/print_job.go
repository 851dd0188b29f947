// internal/model/print_job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// PrintJobStatus represents the outcome of a print job
type PrintJobStatus string

const (
	PrintJobStatusSuccess PrintJobStatus = "SUCCESS"
	PrintJobStatusFailed  PrintJobStatus = "FAILED"
)

// PrintJob is a journal entry for one receipt sent to a printer
type PrintJob struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	DeviceID      string         `json:"device_id" db:"device_id"`
	ReceiptNumber string         `json:"receipt_number" db:"receipt_number"`
	Status        PrintJobStatus `json:"status" db:"status"`
	Bytes         int            `json:"bytes" db:"bytes"`
	DurationMs    int            `json:"duration_ms" db:"duration_ms"`
	ErrorMessage  *string        `json:"error_message,omitempty" db:"error_message"`
	Metadata      JSONObject     `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// IsSuccess reports whether the job reached the printer
func (j *PrintJob) IsSuccess() bool {
	return j.Status == PrintJobStatusSuccess
}

// PrintJobFilter narrows journal listings
type PrintJobFilter struct {
	DeviceID string
	Status   PrintJobStatus
	Since    *time.Time
	Limit    int
}
