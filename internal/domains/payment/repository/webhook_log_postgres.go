package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"receipt-service/internal/domains/payment/model"
)

type webhookLogRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookLogRepository(pool *pgxpool.Pool) WebhookLogRepository {
	return &webhookLogRepository{pool: pool}
}

const webhookLogColumns = `
	id, webhook_id, provider, event_type, payload, signature_valid,
	processed, outcome, order_id, transaction_id, attempts, last_error,
	received_at, processed_at, expires_at
`

func (r *webhookLogRepository) Create(ctx context.Context, log *model.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (
			id, webhook_id, provider, event_type, payload, signature_valid,
			processed, outcome, order_id, transaction_id, attempts, last_error,
			received_at, processed_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID, log.WebhookID, log.Provider, log.EventType, log.Payload,
		log.SignatureValid, log.Processed, log.Outcome, log.OrderID,
		log.TransactionID, log.Attempts, log.LastError, log.ReceivedAt,
		log.ProcessedAt, log.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateWebhook
		}
		return fmt.Errorf("failed to create webhook log: %w", err)
	}
	return nil
}

func (r *webhookLogRepository) GetByWebhookID(ctx context.Context, webhookID string) (*model.WebhookLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs WHERE webhook_id = $1`

	log, err := scanWebhookLog(r.pool.QueryRow(ctx, query, webhookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrWebhookLogNotFound
		}
		return nil, fmt.Errorf("failed to get webhook log: %w", err)
	}
	return log, nil
}

func (r *webhookLogRepository) MarkProcessed(ctx context.Context, id uuid.UUID, outcome string, orderID *uuid.UUID, transactionID *string) error {
	query := `
		UPDATE webhook_logs
		SET processed = TRUE,
		    outcome = $2,
		    order_id = COALESCE($3, order_id),
		    transaction_id = COALESCE($4, transaction_id),
		    attempts = attempts + 1,
		    processed_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, outcome, orderID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrWebhookLogNotFound
	}
	return nil
}

func (r *webhookLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE webhook_logs
		SET outcome = $2,
		    attempts = attempts + 1,
		    last_error = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, model.OutcomeProcessingFailed, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark webhook failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrWebhookLogNotFound
	}
	return nil
}

func (r *webhookLogRepository) ListRecent(ctx context.Context, provider string, limit int) ([]*model.WebhookLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs`
	args := []any{}
	if provider != "" {
		query += ` WHERE provider = $1`
		args = append(args, provider)
	}
	query += fmt.Sprintf(` ORDER BY received_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.WebhookLog
	for rows.Next() {
		log, err := scanWebhookLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (r *webhookLogRepository) DeleteExpired(ctx context.Context, limit int) (int64, error) {
	query := `
		DELETE FROM webhook_logs
		WHERE id IN (
			SELECT id FROM webhook_logs
			WHERE expires_at < NOW()
			ORDER BY expires_at
			LIMIT $1
		)
	`

	result, err := r.pool.Exec(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired webhook logs: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanWebhookLog(row rowScanner) (*model.WebhookLog, error) {
	log := &model.WebhookLog{}
	err := row.Scan(
		&log.ID,
		&log.WebhookID,
		&log.Provider,
		&log.EventType,
		&log.Payload,
		&log.SignatureValid,
		&log.Processed,
		&log.Outcome,
		&log.OrderID,
		&log.TransactionID,
		&log.Attempts,
		&log.LastError,
		&log.ReceivedAt,
		&log.ProcessedAt,
		&log.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return log, nil
}
