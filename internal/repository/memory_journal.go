// internal/repository/memory_journal.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"print-bridge/internal/model"
)

// memoryJournal keeps the most recent jobs in process when no database is configured
type memoryJournal struct {
	mu     sync.Mutex
	jobs   *lru.Cache[uuid.UUID, *model.PrintJob]
	logger *zap.Logger
}

// NewMemoryJournal creates an in-memory journal holding at most limit entries
func NewMemoryJournal(limit int, logger *zap.Logger) (PrintJobRepository, error) {
	if limit <= 0 {
		limit = 500
	}
	jobs, err := lru.New[uuid.UUID, *model.PrintJob](limit)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	return &memoryJournal{jobs: jobs, logger: logger}, nil
}

func (m *memoryJournal) Record(_ context.Context, job *model.PrintJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	stored := *job
	m.mu.Lock()
	defer m.mu.Unlock()
	if evicted := m.jobs.Add(stored.ID, &stored); evicted {
		m.logger.Debug("Journal full, oldest entry evicted")
	}
	return nil
}

func (m *memoryJournal) GetByID(_ context.Context, id uuid.UUID) (*model.PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Peek leaves recency untouched so eviction stays insertion ordered
	job, ok := m.jobs.Peek(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJournal) List(_ context.Context, filter model.PrintJobFilter) ([]*model.PrintJob, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.jobs.Keys()
	jobs := []*model.PrintJob{}
	for i := len(keys) - 1; i >= 0 && len(jobs) < limit; i-- {
		job, ok := m.jobs.Peek(keys[i])
		if !ok || !matches(job, filter) {
			continue
		}
		copied := *job
		jobs = append(jobs, &copied)
	}
	return jobs, nil
}

func (m *memoryJournal) Prune(_ context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for m.jobs.Len() > keep {
		if _, _, ok := m.jobs.RemoveOldest(); !ok {
			break
		}
		removed++
	}
	return removed, nil
}

func matches(job *model.PrintJob, filter model.PrintJobFilter) bool {
	if filter.DeviceID != "" && job.DeviceID != filter.DeviceID {
		return false
	}
	if filter.Status != "" && job.Status != filter.Status {
		return false
	}
	if filter.Since != nil && job.CreatedAt.Before(*filter.Since) {
		return false
	}
	return true
}
