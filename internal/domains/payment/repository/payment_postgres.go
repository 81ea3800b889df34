package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"receipt-service/internal/domains/payment/model"
)

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const insertPaymentQuery = `
	INSERT INTO payment_transactions (
		id, transaction_id, order_id, user_id, store_id, provider,
		amount, currency, status, webhook_log_id, failure_reason,
		succeeded_at, failed_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

func (r *paymentRepository) CreateTx(ctx context.Context, tx pgx.Tx, payment *model.PaymentTransaction) error {
	_, err := tx.Exec(ctx, insertPaymentQuery,
		payment.ID, payment.TransactionID, payment.OrderID, payment.UserID,
		payment.StoreID, payment.Provider, payment.Amount, payment.Currency,
		payment.Status, payment.WebhookLogID, payment.FailureReason,
		payment.SucceededAt, payment.FailedAt, payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

// CreateFailed records a failed payment outside any transaction. Redelivered
// failure webhooks hit the unique transaction_id and are treated as done.
func (r *paymentRepository) CreateFailed(ctx context.Context, payment *model.PaymentTransaction) error {
	_, err := r.pool.Exec(ctx, insertPaymentQuery,
		payment.ID, payment.TransactionID, payment.OrderID, payment.UserID,
		payment.StoreID, payment.Provider, payment.Amount, payment.Currency,
		payment.Status, payment.WebhookLogID, payment.FailureReason,
		payment.SucceededAt, payment.FailedAt, payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create failed payment transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// 23505 is the Postgres unique_violation code.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
