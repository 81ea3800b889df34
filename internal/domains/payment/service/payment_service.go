package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tiendc/go-deepcopy"

	ordermodel "receipt-service/internal/domains/order/model"
	orderrepo "receipt-service/internal/domains/order/repository"
	"receipt-service/internal/domains/payment/model"
	paymentrepo "receipt-service/internal/domains/payment/repository"
	receiptmodel "receipt-service/internal/domains/receipt/model"
	receiptrepo "receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/infrastructure/queue"
	"receipt-service/internal/shared"
	"receipt-service/pkg/database"
	"receipt-service/pkg/logger"
)

// receiptNumberRetries bounds how often the commit re-runs after losing a
// receipt number race to a concurrent commit for the same store.
const receiptNumberRetries = 3

type paymentService struct {
	pool     *pgxpool.Pool
	orders   orderrepo.OrderRepository
	payments paymentrepo.PaymentRepository
	receipts receiptrepo.ReceiptRepository
	enqueuer queue.Enqueuer
}

func NewPaymentService(
	pool *pgxpool.Pool,
	orders orderrepo.OrderRepository,
	payments paymentrepo.PaymentRepository,
	receipts receiptrepo.ReceiptRepository,
	enqueuer queue.Enqueuer,
) PaymentService {
	return &paymentService{
		pool:     pool,
		orders:   orders,
		payments: payments,
		receipts: receipts,
		enqueuer: enqueuer,
	}
}

func (s *paymentService) CommitSuccessfulPayment(ctx context.Context, in model.CommitInput) (*model.CommitResult, error) {
	// 1. Validate against current order state. These checks repeat under
	// the row lock inside the transaction; failing early here just avoids
	// opening transactions for garbage.
	order, err := s.orders.GetByID(ctx, in.OrderID)
	if errors.Is(err, ordermodel.ErrOrderNotFound) {
		return &model.CommitResult{
			Type:    model.CommitValidationFailed,
			Message: fmt.Sprintf("order %s not found", in.OrderID),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if order.Status == ordermodel.OrderStatusPaid {
		return s.alreadyProcessed(ctx, in.TransactionID)
	}
	if order.Status == ordermodel.OrderStatusCancelled {
		return &model.CommitResult{
			Type:           model.CommitValidationFailed,
			Message:        "order is cancelled",
			RequiresRefund: true,
		}, nil
	}
	if !order.Total.Equal(in.Amount) {
		return &model.CommitResult{
			Type:    model.CommitValidationFailed,
			Message: fmt.Sprintf("amount mismatch: webhook says %s, order total is %s", in.Amount, order.Total),
		}, nil
	}

	// 2. A receipt for this transaction means a previous delivery already
	// committed. Answer with its id instead of touching anything.
	if existing, err := s.receipts.GetByTransactionID(ctx, in.TransactionID); err == nil {
		return &model.CommitResult{Type: model.CommitAlreadyProcessed, ReceiptID: &existing.ID}, nil
	} else if !errors.Is(err, receiptmodel.ErrReceiptNotFound) {
		return nil, err
	}

	// 3. Atomic commit. A unique violation on receipt_number aborts the
	// whole transaction, so the retry re-runs it with a bumped sequence.
	var receipt *receiptmodel.Receipt
	for attempt := 0; attempt < receiptNumberRetries; attempt++ {
		receipt, err = s.commitTx(ctx, in, attempt)
		if !errors.Is(err, receiptmodel.ErrDuplicateReceiptNumber) {
			break
		}
	}
	switch {
	case errors.Is(err, receiptmodel.ErrDuplicateReceiptNumber):
		return nil, model.ErrReceiptNumberExhausted
	case errors.Is(err, ordermodel.ErrOrderPaid),
		errors.Is(err, model.ErrDuplicateTransaction),
		errors.Is(err, receiptmodel.ErrDuplicateTransactionRef):
		return s.alreadyProcessed(ctx, in.TransactionID)
	case errors.Is(err, ordermodel.ErrOrderCancelled):
		return &model.CommitResult{
			Type:           model.CommitValidationFailed,
			Message:        "order is cancelled",
			RequiresRefund: true,
		}, nil
	case err != nil:
		return nil, err
	}

	// 4. Hand off to the render queue. An enqueue failure is logged, not
	// returned; the recovery scan re-enqueues pending receipts.
	s.enqueueRender(ctx, receipt.ID)

	return &model.CommitResult{Type: model.CommitProcessed, ReceiptID: &receipt.ID}, nil
}

func (s *paymentService) commitTx(ctx context.Context, in model.CommitInput, seqOffset int) (*receiptmodel.Receipt, error) {
	return database.WithTransactionResult(ctx, s.pool, func(tx pgx.Tx) (*receiptmodel.Receipt, error) {
		// Re-read under the row lock; two webhooks for the same order
		// serialize here and the loser sees PAID.
		order, err := s.orders.GetByIDForUpdateTx(ctx, tx, in.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Status == ordermodel.OrderStatusPaid {
			return nil, ordermodel.ErrOrderPaid
		}
		if order.Status == ordermodel.OrderStatusCancelled {
			return nil, ordermodel.ErrOrderCancelled
		}

		now := time.Now().UTC()

		payment := &model.PaymentTransaction{
			ID:            uuid.New(),
			TransactionID: in.TransactionID,
			OrderID:       order.ID,
			UserID:        order.UserID,
			StoreID:       order.StoreID,
			Provider:      in.Provider,
			Amount:        in.Amount,
			Currency:      in.Currency,
			Status:        model.PaymentStatusSucceeded,
			WebhookLogID:  in.WebhookLogID,
			SucceededAt:   &now,
			CreatedAt:     now,
		}
		if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
			return nil, err
		}

		if err := s.orders.MarkPaidTx(ctx, tx, order.ID, now); err != nil {
			return nil, err
		}

		year := now.Year()
		count, err := s.receipts.CountByStoreYearTx(ctx, tx, order.StoreID, year)
		if err != nil {
			return nil, err
		}

		// Freeze the order into the receipt so later order edits never
		// change what the customer was sent.
		var snapshot receiptmodel.OrderSnapshot
		if err := deepcopy.Copy(&snapshot, order); err != nil {
			return nil, fmt.Errorf("failed to freeze order snapshot: %w", err)
		}

		receipt := &receiptmodel.Receipt{
			ID:            uuid.New(),
			ReceiptNumber: receiptmodel.FormatReceiptNumber(year, count+1+seqOffset),
			TransactionID: in.TransactionID,
			OrderID:       order.ID,
			UserID:        order.UserID,
			StoreID:       order.StoreID,
			Provider:      in.Provider,
			Amount:        in.Amount,
			Currency:      in.Currency,
			Snapshot:      snapshot,
			Status:        receiptmodel.ReceiptStatusPending,
			PaidAt:        now,
		}
		if err := s.receipts.CreateTx(ctx, tx, receipt); err != nil {
			return nil, err
		}
		return receipt, nil
	})
}

// RecordFailedPayment writes the failed transaction and demotes the order.
// No receipt, no jobs.
func (s *paymentService) RecordFailedPayment(ctx context.Context, in model.CommitInput, reason string) (*model.CommitResult, error) {
	order, err := s.orders.GetByID(ctx, in.OrderID)
	if errors.Is(err, ordermodel.ErrOrderNotFound) {
		return &model.CommitResult{
			Type:    model.CommitValidationFailed,
			Message: fmt.Sprintf("order %s not found", in.OrderID),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := &model.PaymentTransaction{
		ID:            uuid.New(),
		TransactionID: in.TransactionID,
		OrderID:       order.ID,
		UserID:        order.UserID,
		StoreID:       order.StoreID,
		Provider:      in.Provider,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Status:        model.PaymentStatusFailed,
		WebhookLogID:  in.WebhookLogID,
		FailureReason: &reason,
		FailedAt:      &now,
		CreatedAt:     now,
	}

	if err := s.payments.CreateFailed(ctx, payment); err != nil {
		if errors.Is(err, model.ErrDuplicateTransaction) {
			return &model.CommitResult{Type: model.CommitAlreadyProcessed}, nil
		}
		return nil, err
	}

	if err := s.orders.MarkPaymentFailed(ctx, order.ID); err != nil {
		return nil, err
	}

	return &model.CommitResult{Type: model.CommitProcessed}, nil
}

func (s *paymentService) alreadyProcessed(ctx context.Context, transactionID string) (*model.CommitResult, error) {
	result := &model.CommitResult{Type: model.CommitAlreadyProcessed}
	if existing, err := s.receipts.GetByTransactionID(ctx, transactionID); err == nil {
		result.ReceiptID = &existing.ID
	}
	return result, nil
}

func (s *paymentService) enqueueRender(ctx context.Context, receiptID uuid.UUID) {
	task, err := queue.NewReceiptTask(shared.TypeGenerateReceiptPDF, receiptID.String(), false)
	if err != nil {
		logger.Error("failed to build render task", err)
		return
	}

	opts := queue.ReceiptTaskOptions(shared.TypeGenerateReceiptPDF, receiptID.String(), false)
	if _, err := s.enqueuer.EnqueueContext(ctx, task, opts...); err != nil && !queue.IsDuplicateTask(err) {
		logger.Error("failed to enqueue render task", err)
	}
}
