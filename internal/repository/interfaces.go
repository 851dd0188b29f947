// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"print-bridge/internal/model"
)

// ErrNotFound is returned when a journal entry does not exist
var ErrNotFound = errors.New("print job not found")

// PrintJobRepository defines print journal data access operations
type PrintJobRepository interface {
	// Record stores a finished job and trims the journal to its limit
	Record(ctx context.Context, job *model.PrintJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error)
	// List returns jobs newest first
	List(ctx context.Context, filter model.PrintJobFilter) ([]*model.PrintJob, error)
	// Prune keeps the newest keep entries and returns how many were removed
	Prune(ctx context.Context, keep int) (int64, error)
}
