package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"receipt-service/internal/domains/order/model"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

const orderColumns = `
	id, order_number, user_id, store_id, store_name, customer_name,
	customer_email, items, subtotal, tax, shipping, discount, total,
	currency, status, paid_at, cancelled_at, created_at, updated_at
`

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetByIDForUpdateTx re-reads the order inside the commit transaction with
// a row lock, so two webhooks for the same order serialize here.
func (r *orderRepository) GetByIDForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, model.OrderStatusPaid, paidAt)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	// Only demote orders still awaiting payment; a late failure webhook
	// must not clobber a PAID order.
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	_, err := r.pool.Exec(ctx, query, id, model.OrderStatusPaymentFailed, model.OrderStatusPendingPayment)
	if err != nil {
		return fmt.Errorf("failed to mark order payment failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	order := &model.Order{}
	var itemsJSON []byte

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.StoreID,
		&order.StoreName,
		&order.CustomerName,
		&order.CustomerEmail,
		&itemsJSON,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Discount,
		&order.Total,
		&order.Currency,
		&order.Status,
		&order.PaidAt,
		&order.CancelledAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
	}

	return order, nil
}
