package service

import (
	"context"
	"fmt"
	"time"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/infrastructure/queue"
	"receipt-service/internal/shared"
	"receipt-service/pkg/logger"
)

// Stuck thresholds. A receipt younger than its threshold is assumed to
// still have a live queue entry and is left alone.
const (
	renderStuckAfter = 15 * time.Minute
	uploadStuckAfter = 30 * time.Minute
	emailStuckAfter  = 30 * time.Minute
	defaultScanLimit = 50

	// A receipt with no PDF after an hour is critical; upload and email get
	// longer because their backoff chains run further.
	renderExhaustedAfter  = time.Hour
	fulfillExhaustedAfter = 4 * time.Hour
)

// ScanReport summarizes one recovery sweep.
type ScanReport struct {
	RenderRequeued int `json:"renderRequeued"`
	UploadRequeued int `json:"uploadRequeued"`
	EmailRequeued  int `json:"emailRequeued"`
	Flagged        int `json:"flagged"`
}

// RecoveryService is the self-healing sweep. It re-enqueues receipts whose
// fulfillment stalled (crashed worker, lost queue entry) and flags the ones
// that ran out of attempts.
type RecoveryService interface {
	RunScan(ctx context.Context, limit int) (*ScanReport, error)
}

type recoveryService struct {
	receipts repository.ReceiptRepository
	enqueuer queue.Enqueuer
}

func NewRecoveryService(receipts repository.ReceiptRepository, enqueuer queue.Enqueuer) RecoveryService {
	return &recoveryService{receipts: receipts, enqueuer: enqueuer}
}

func (s *recoveryService) RunScan(ctx context.Context, limit int) (*ScanReport, error) {
	if limit <= 0 {
		limit = defaultScanLimit
	}
	now := time.Now().UTC()
	report := &ScanReport{}

	stuckRender, err := s.receipts.FindStuckRender(ctx, now.Add(-renderStuckAfter), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stuck renders: %w", err)
	}
	report.RenderRequeued = s.requeue(ctx, shared.TypeGenerateReceiptPDF, stuckRender)

	stuckUpload, err := s.receipts.FindStuckUpload(ctx, now.Add(-uploadStuckAfter), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stuck uploads: %w", err)
	}
	report.UploadRequeued = s.requeue(ctx, shared.TypeUploadReceiptPDF, stuckUpload)

	stuckEmail, err := s.receipts.FindStuckEmail(ctx, now.Add(-emailStuckAfter), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stuck emails: %w", err)
	}
	report.EmailRequeued = s.requeue(ctx, shared.TypeSendReceiptEmail, stuckEmail)

	// Exhausted receipts are never re-enqueued; they need a human.
	exhausted, err := s.receipts.FindExhausted(ctx, now.Add(-renderExhaustedAfter), now.Add(-fulfillExhaustedAfter), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan exhausted receipts: %w", err)
	}
	for _, receipt := range exhausted {
		logger.Critical("receipt fulfillment exhausted its attempts", map[string]interface{}{
			"receipt_id":      receipt.ID.String(),
			"receipt_number":  receipt.ReceiptNumber,
			"pdf_attempts":    receipt.PDFGenerationAttempts,
			"upload_attempts": receipt.CloudinaryUploadAttempts,
			"email_attempts":  receipt.EmailSendAttempts,
			"age":             now.Sub(receipt.CreatedAt).String(),
		})
	}
	report.Flagged = len(exhausted)

	logger.Info("recovery scan finished", map[string]interface{}{
		"render_requeued": report.RenderRequeued,
		"upload_requeued": report.UploadRequeued,
		"email_requeued":  report.EmailRequeued,
		"flagged":         report.Flagged,
	})
	return report, nil
}

func (s *recoveryService) requeue(ctx context.Context, taskType string, receipts []*model.Receipt) int {
	requeued := 0
	for _, receipt := range receipts {
		task, err := queue.NewReceiptTask(taskType, receipt.ID.String(), true)
		if err != nil {
			logger.Error("failed to build recovery task", err)
			continue
		}

		opts := queue.ReceiptTaskOptions(taskType, receipt.ID.String(), true)
		if _, err := s.enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
			if !queue.IsDuplicateTask(err) {
				logger.Error("failed to enqueue recovery task", err)
			}
			continue
		}
		requeued++
	}
	return requeued
}
