// internal/repository/print_job_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"print-bridge/internal/database"
	"print-bridge/internal/model"
)

const printJobColumns = `id, device_id, receipt_number, status, bytes,
		duration_ms, error_message, metadata, created_at`

// printJobRepository implements PrintJobRepository on postgres
type printJobRepository struct {
	db     *database.DB
	limit  int
	logger *zap.Logger
}

// NewPrintJobRepository creates a postgres backed journal capped at limit entries
func NewPrintJobRepository(db *database.DB, limit int, logger *zap.Logger) PrintJobRepository {
	return &printJobRepository{
		db:     db,
		limit:  limit,
		logger: logger,
	}
}

// Record inserts a job
func (r *printJobRepository) Record(ctx context.Context, job *model.PrintJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.Metadata == nil {
		job.Metadata = model.JSONObject{}
	}

	query := `
		INSERT INTO print_jobs (
			id, device_id, receipt_number, status, bytes,
			duration_ms, error_message, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.DeviceID, job.ReceiptNumber, job.Status, job.Bytes,
		job.DurationMs, job.ErrorMessage, job.Metadata, job.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record print job", zap.Error(err))
		return fmt.Errorf("failed to record print job: %w", err)
	}

	if r.limit > 0 {
		if _, err := r.Prune(ctx, r.limit); err != nil {
			r.logger.Warn("Failed to prune print journal", zap.Error(err))
		}
	}

	return nil
}

// GetByID retrieves a job by ID
func (r *printJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	query := `SELECT ` + printJobColumns + ` FROM print_jobs WHERE id = $1`

	job, err := scanPrintJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}

	return job, nil
}

// List retrieves jobs matching the filter
func (r *printJobRepository) List(ctx context.Context, filter model.PrintJobFilter) ([]*model.PrintJob, error) {
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.DeviceID != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("device_id = $%d", argIndex))
		args = append(args, filter.DeviceID)
		argIndex++
	}

	if filter.Status != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Since != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.Since)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM print_jobs %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, printJobColumns, whereClause, argIndex)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list print jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*model.PrintJob{}
	for rows.Next() {
		job, err := scanPrintJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate print jobs: %w", err)
	}

	return jobs, nil
}

// Prune removes everything but the newest keep entries
func (r *printJobRepository) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM print_jobs WHERE id IN (
			SELECT id FROM print_jobs ORDER BY created_at DESC OFFSET $1
		)
	`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune print jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		r.logger.Info("Pruned print journal",
			zap.Int64("rows_deleted", rowsAffected),
			zap.Int("kept", keep),
		)
	}

	return rowsAffected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrintJob(row rowScanner) (*model.PrintJob, error) {
	job := &model.PrintJob{}
	err := row.Scan(
		&job.ID, &job.DeviceID, &job.ReceiptNumber, &job.Status, &job.Bytes,
		&job.DurationMs, &job.ErrorMessage, &job.Metadata, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
