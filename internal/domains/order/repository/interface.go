package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"receipt-service/internal/domains/order/model"
)

// OrderRepository is the data access surface the payment commit needs.
// The *Tx variants run inside the commit transaction and take the row lock
// that closes the TOCTOU window against concurrent webhooks.
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByIDForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) error
}
