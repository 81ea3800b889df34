package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"receipt-service/internal/domains/receipt/model"
)

// =====================================================
// JOB LOGS
// =====================================================

type jobLogRepository struct {
	pool *pgxpool.Pool
}

func NewJobLogRepository(pool *pgxpool.Pool) JobLogRepository {
	return &jobLogRepository{pool: pool}
}

func (r *jobLogRepository) Create(ctx context.Context, log *model.JobLog) error {
	query := `
		INSERT INTO job_logs (
			id, job_id, queue_name, job_type, receipt_id, status,
			attempt, max_attempts, is_recovery_job, started_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID, log.JobID, log.QueueName, log.JobType, log.ReceiptID,
		log.Status, log.Attempt, log.MaxAttempts, log.IsRecoveryJob,
		log.StartedAt, log.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job log: %w", err)
	}
	return nil
}

func (r *jobLogRepository) MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}

	query := `
		UPDATE job_logs
		SET status = $2, result = $3, finished_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, model.JobStatusCompleted, resultJSON); err != nil {
		return fmt.Errorf("failed to mark job log completed: %w", err)
	}
	return nil
}

func (r *jobLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, jobError string) error {
	query := `
		UPDATE job_logs
		SET status = $2, error = $3, finished_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, model.JobStatusFailed, jobError); err != nil {
		return fmt.Errorf("failed to mark job log failed: %w", err)
	}
	return nil
}

func (r *jobLogRepository) DeleteExpired(ctx context.Context, limit int) (int64, error) {
	query := `
		DELETE FROM job_logs
		WHERE id IN (
			SELECT id FROM job_logs
			WHERE expires_at < NOW()
			ORDER BY expires_at
			LIMIT $1
		)
	`

	result, err := r.pool.Exec(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired job logs: %w", err)
	}
	return result.RowsAffected(), nil
}

// =====================================================
// EMAIL LOGS
// =====================================================

type emailLogRepository struct {
	pool *pgxpool.Pool
}

func NewEmailLogRepository(pool *pgxpool.Pool) EmailLogRepository {
	return &emailLogRepository{pool: pool}
}

func (r *emailLogRepository) Create(ctx context.Context, log *model.EmailLog) error {
	query := `
		INSERT INTO email_logs (
			id, receipt_id, recipient, status, message_id, error_kind,
			error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID, log.ReceiptID, log.Recipient, log.Status, log.MessageID,
		log.ErrorKind, log.ErrorMessage, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create email log: %w", err)
	}
	return nil
}

// =====================================================
// CLOUD STORAGE LOGS
// =====================================================

type cloudStorageLogRepository struct {
	pool *pgxpool.Pool
}

func NewCloudStorageLogRepository(pool *pgxpool.Pool) CloudStorageLogRepository {
	return &cloudStorageLogRepository{pool: pool}
}

func (r *cloudStorageLogRepository) Create(ctx context.Context, log *model.CloudStorageLog) error {
	query := `
		INSERT INTO cloud_storage_logs (
			id, receipt_id, action, public_id, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID, log.ReceiptID, log.Action, log.PublicID, log.Status,
		log.ErrorMessage, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cloud storage log: %w", err)
	}
	return nil
}
