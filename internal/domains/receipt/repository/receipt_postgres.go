package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"receipt-service/internal/domains/receipt/model"
)

type receiptRepository struct {
	pool *pgxpool.Pool
}

func NewReceiptRepository(pool *pgxpool.Pool) ReceiptRepository {
	return &receiptRepository{pool: pool}
}

const receiptColumns = `
	id, receipt_number, transaction_id, order_id, user_id, store_id,
	provider, amount, currency, snapshot, status,
	pdf_generated, pdf_local_path, pdf_size_bytes, pdf_generated_at, pdf_generation_attempts,
	cloudinary_uploaded, cloudinary_public_id, cloudinary_secure_url, cloudinary_uploaded_at, cloudinary_upload_attempts,
	email_sent, email_sent_at, email_send_attempts, email_last_error, email_permanent_failure,
	paid_at, completed_at, created_at, updated_at
`

func (r *receiptRepository) CreateTx(ctx context.Context, tx pgx.Tx, receipt *model.Receipt) error {
	snapshot, err := json.Marshal(receipt.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt snapshot: %w", err)
	}

	query := `
		INSERT INTO receipts (
			id, receipt_number, transaction_id, order_id, user_id, store_id,
			provider, amount, currency, snapshot, status, paid_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`

	_, err = tx.Exec(ctx, query,
		receipt.ID, receipt.ReceiptNumber, receipt.TransactionID,
		receipt.OrderID, receipt.UserID, receipt.StoreID, receipt.Provider,
		receipt.Amount, receipt.Currency, snapshot, receipt.Status,
		receipt.PaidAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "receipts_receipt_number_key":
				return model.ErrDuplicateReceiptNumber
			case "receipts_transaction_id_key":
				return model.ErrDuplicateTransactionRef
			}
			return model.ErrDuplicateReceiptNumber
		}
		return fmt.Errorf("failed to create receipt: %w", err)
	}
	return nil
}

// CountByStoreYearTx counts inside the commit transaction so the allocated
// sequence reflects receipts committed so far this year for the store.
func (r *receiptRepository) CountByStoreYearTx(ctx context.Context, tx pgx.Tx, storeID uuid.UUID, year int) (int, error) {
	query := `
		SELECT COUNT(*) FROM receipts
		WHERE store_id = $1
		  AND paid_at >= make_date($2, 1, 1)
		  AND paid_at < make_date($2 + 1, 1, 1)
	`

	var count int
	if err := tx.QueryRow(ctx, query, storeID, year).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count receipts: %w", err)
	}
	return count, nil
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *receiptRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE transaction_id = $1`
	return r.getOne(ctx, query, transactionID)
}

func (r *receiptRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, orderID)
}

func (r *receiptRepository) getOne(ctx context.Context, query string, arg any) (*model.Receipt, error) {
	receipt, err := scanReceipt(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

// =====================================================
// STAGE MUTATIONS
// =====================================================

func (r *receiptRepository) MarkPDFGenerated(ctx context.Context, id uuid.UUID, localPath string, sizeBytes int64) error {
	query := `
		UPDATE receipts
		SET pdf_generated = TRUE,
		    pdf_local_path = $2,
		    pdf_size_bytes = $3,
		    pdf_generated_at = NOW(),
		    pdf_generation_attempts = pdf_generation_attempts + 1,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, localPath, sizeBytes)
}

func (r *receiptRepository) IncrementPDFAttempts(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE receipts
		SET pdf_generation_attempts = pdf_generation_attempts + 1, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *receiptRepository) MarkUploaded(ctx context.Context, id uuid.UUID, publicID, secureURL string) error {
	query := `
		UPDATE receipts
		SET cloudinary_uploaded = TRUE,
		    cloudinary_public_id = $2,
		    cloudinary_secure_url = $3,
		    cloudinary_uploaded_at = NOW(),
		    cloudinary_upload_attempts = cloudinary_upload_attempts + 1,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, publicID, secureURL)
}

func (r *receiptRepository) IncrementUploadAttempts(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE receipts
		SET cloudinary_upload_attempts = cloudinary_upload_attempts + 1, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *receiptRepository) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE receipts
		SET email_sent = TRUE,
		    email_sent_at = NOW(),
		    email_send_attempts = email_send_attempts + 1,
		    email_last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *receiptRepository) IncrementEmailAttempts(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE receipts
		SET email_send_attempts = email_send_attempts + 1,
		    email_last_error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, lastError)
}

func (r *receiptRepository) MarkEmailPermanentFailure(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE receipts
		SET email_permanent_failure = TRUE,
		    email_send_attempts = email_send_attempts + 1,
		    email_last_error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, lastError)
}

// MarkCompleted flips PENDING to COMPLETED only when all three stage flags
// are set. Returns false when the guard did not match, which covers both
// "not done yet" and "already completed".
func (r *receiptRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE receipts
		SET status = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND status = $3
		  AND pdf_generated = TRUE
		  AND cloudinary_uploaded = TRUE
		  AND email_sent = TRUE
	`

	result, err := r.pool.Exec(ctx, query, id, model.ReceiptStatusCompleted, model.ReceiptStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark receipt completed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// =====================================================
// RECOVERY SCANS
// =====================================================

func (r *receiptRepository) FindStuckRender(ctx context.Context, olderThan time.Time, limit int) ([]*model.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + ` FROM receipts
		WHERE status = $1
		  AND pdf_generated = FALSE
		  AND pdf_generation_attempts < $2
		  AND created_at < $3
		ORDER BY created_at
		LIMIT $4
	`
	return r.list(ctx, query, model.ReceiptStatusPending, maxPDFAttempts, olderThan, limit)
}

func (r *receiptRepository) FindStuckUpload(ctx context.Context, olderThan time.Time, limit int) ([]*model.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + ` FROM receipts
		WHERE status = $1
		  AND pdf_generated = TRUE
		  AND cloudinary_uploaded = FALSE
		  AND cloudinary_upload_attempts < $2
		  AND pdf_generated_at < $3
		ORDER BY pdf_generated_at
		LIMIT $4
	`
	return r.list(ctx, query, model.ReceiptStatusPending, maxUploadAttempts, olderThan, limit)
}

func (r *receiptRepository) FindStuckEmail(ctx context.Context, olderThan time.Time, limit int) ([]*model.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + ` FROM receipts
		WHERE status = $1
		  AND pdf_generated = TRUE
		  AND email_sent = FALSE
		  AND email_permanent_failure = FALSE
		  AND email_send_attempts < $2
		  AND pdf_generated_at < $3
		ORDER BY pdf_generated_at
		LIMIT $4
	`
	return r.list(ctx, query, model.ReceiptStatusPending, maxEmailAttempts, olderThan, limit)
}

// FindExhausted returns receipts where some stage ran out of attempts
// without finishing. These need operator attention, not another enqueue.
// The render stage gets a tighter age cutoff than upload and email.
func (r *receiptRepository) FindExhausted(ctx context.Context, renderBefore, fulfillBefore time.Time, limit int) ([]*model.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + ` FROM receipts
		WHERE status = $1
		  AND (
		    (pdf_generated = FALSE AND pdf_generation_attempts >= $4 AND created_at < $2)
		    OR (pdf_generated = TRUE AND cloudinary_uploaded = FALSE AND cloudinary_upload_attempts >= $5 AND created_at < $3)
		    OR (pdf_generated = TRUE AND email_sent = FALSE AND email_permanent_failure = FALSE AND email_send_attempts >= $6 AND created_at < $3)
		  )
		ORDER BY created_at
		LIMIT $7
	`
	return r.list(ctx, query, model.ReceiptStatusPending, renderBefore, fulfillBefore, maxPDFAttempts, maxUploadAttempts, maxEmailAttempts, limit)
}

// =====================================================
// ARTIFACT CLEANUP
// =====================================================

func (r *receiptRepository) FindCleanupCandidates(ctx context.Context, limit int) ([]*model.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + ` FROM receipts
		WHERE pdf_local_path IS NOT NULL
		  AND cloudinary_uploaded = TRUE
		  AND (email_sent = TRUE OR email_permanent_failure = TRUE)
		ORDER BY pdf_generated_at
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *receiptRepository) ClearLocalPath(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE receipts SET pdf_local_path = NULL, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id)
}

// =====================================================
// HELPERS
// =====================================================

func (r *receiptRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrReceiptNotFound
	}
	return nil
}

func (r *receiptRepository) list(ctx context.Context, query string, args ...any) ([]*model.Receipt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*model.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*model.Receipt, error) {
	receipt := &model.Receipt{}
	var snapshotJSON []byte

	err := row.Scan(
		&receipt.ID,
		&receipt.ReceiptNumber,
		&receipt.TransactionID,
		&receipt.OrderID,
		&receipt.UserID,
		&receipt.StoreID,
		&receipt.Provider,
		&receipt.Amount,
		&receipt.Currency,
		&snapshotJSON,
		&receipt.Status,
		&receipt.PDFGenerated,
		&receipt.PDFLocalPath,
		&receipt.PDFSizeBytes,
		&receipt.PDFGeneratedAt,
		&receipt.PDFGenerationAttempts,
		&receipt.CloudinaryUploaded,
		&receipt.CloudinaryPublicID,
		&receipt.CloudinarySecureURL,
		&receipt.CloudinaryUploadedAt,
		&receipt.CloudinaryUploadAttempts,
		&receipt.EmailSent,
		&receipt.EmailSentAt,
		&receipt.EmailSendAttempts,
		&receipt.EmailLastError,
		&receipt.EmailPermanentFailure,
		&receipt.PaidAt,
		&receipt.CompletedAt,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if snapshotJSON != nil {
		if err := json.Unmarshal(snapshotJSON, &receipt.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal receipt snapshot: %w", err)
		}
	}
	return receipt, nil
}
