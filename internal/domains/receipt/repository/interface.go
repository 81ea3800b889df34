package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"receipt-service/internal/domains/receipt/model"
)

// ReceiptRepository is the data access surface for the fulfillment
// aggregate. The *Tx methods run inside the payment commit transaction.
// Every Mark* mutation also bumps the matching attempt counter, so the
// counters always equal the number of worker entries for that stage.
type ReceiptRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, receipt *model.Receipt) error
	CountByStoreYearTx(ctx context.Context, tx pgx.Tx, storeID uuid.UUID, year int) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Receipt, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Receipt, error)

	MarkPDFGenerated(ctx context.Context, id uuid.UUID, localPath string, sizeBytes int64) error
	IncrementPDFAttempts(ctx context.Context, id uuid.UUID) error
	MarkUploaded(ctx context.Context, id uuid.UUID, publicID, secureURL string) error
	IncrementUploadAttempts(ctx context.Context, id uuid.UUID) error
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	IncrementEmailAttempts(ctx context.Context, id uuid.UUID, lastError string) error
	MarkEmailPermanentFailure(ctx context.Context, id uuid.UUID, lastError string) error
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)

	FindStuckRender(ctx context.Context, olderThan time.Time, limit int) ([]*model.Receipt, error)
	FindStuckUpload(ctx context.Context, olderThan time.Time, limit int) ([]*model.Receipt, error)
	FindStuckEmail(ctx context.Context, olderThan time.Time, limit int) ([]*model.Receipt, error)
	FindExhausted(ctx context.Context, renderBefore, fulfillBefore time.Time, limit int) ([]*model.Receipt, error)

	FindCleanupCandidates(ctx context.Context, limit int) ([]*model.Receipt, error)
	ClearLocalPath(ctx context.Context, id uuid.UUID) error
}

// JobLogRepository persists worker execution records.
type JobLogRepository interface {
	Create(ctx context.Context, log *model.JobLog) error
	MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error
	MarkFailed(ctx context.Context, id uuid.UUID, jobError string) error
	DeleteExpired(ctx context.Context, limit int) (int64, error)
}

// EmailLogRepository persists mail delivery attempts.
type EmailLogRepository interface {
	Create(ctx context.Context, log *model.EmailLog) error
}

// CloudStorageLogRepository persists object store calls.
type CloudStorageLogRepository interface {
	Create(ctx context.Context, log *model.CloudStorageLog) error
}
