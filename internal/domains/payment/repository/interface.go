package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"receipt-service/internal/domains/payment/model"
)

// WebhookLogRepository persists the per-delivery audit trail. GetByWebhookID
// is the duplicate gate for redeliveries.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *model.WebhookLog) error
	GetByWebhookID(ctx context.Context, webhookID string) (*model.WebhookLog, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, outcome string, orderID *uuid.UUID, transactionID *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ListRecent(ctx context.Context, provider string, limit int) ([]*model.WebhookLog, error)
	DeleteExpired(ctx context.Context, limit int) (int64, error)
}

// PaymentRepository writes payment transactions. CreateTx runs inside the
// commit transaction and surfaces ErrDuplicateTransaction on the unique
// transaction_id index, which is the cross-webhook idempotency backstop.
type PaymentRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, payment *model.PaymentTransaction) error
	CreateFailed(ctx context.Context, payment *model.PaymentTransaction) error
}
