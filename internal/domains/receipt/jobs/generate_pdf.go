package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/pdf"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/infrastructure/queue"
	"receipt-service/internal/shared"
	"receipt-service/internal/shared/utils"
	"receipt-service/pkg/logger"
)

// GeneratePDFHandler renders the receipt PDF to the local spool and kicks
// off the upload and email stages.
type GeneratePDFHandler struct {
	receipts   repository.ReceiptRepository
	enqueuer   queue.Enqueuer
	recorder   *jobRecorder
	uploadsDir string
}

func NewGeneratePDFHandler(receipts repository.ReceiptRepository, jobLogs repository.JobLogRepository, enqueuer queue.Enqueuer, uploadsDir string) *GeneratePDFHandler {
	return &GeneratePDFHandler{
		receipts:   receipts,
		enqueuer:   enqueuer,
		recorder:   newJobRecorder(jobLogs),
		uploadsDir: uploadsDir,
	}
}

func (h *GeneratePDFHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ReceiptTaskPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	receiptID := utils.ParseStringToUUID(payload.ReceiptID)
	if receiptID == uuid.Nil {
		return fmt.Errorf("invalid receipt id %q: %w", payload.ReceiptID, asynq.SkipRetry)
	}

	log := h.recorder.start(ctx, t, &receiptID, payload.IsRecovery)

	receipt, err := h.receipts.GetByID(ctx, receiptID)
	if err != nil {
		h.recorder.fail(ctx, log, err)
		if errors.Is(err, model.ErrReceiptNotFound) {
			return fmt.Errorf("receipt %s not found: %w", receiptID, asynq.SkipRetry)
		}
		return err
	}

	// A recovery job may race the original; the flag makes the loser a
	// no-op that still re-kicks the later stages.
	if receipt.PDFGenerated {
		h.enqueueNextStages(ctx, receipt, payload.IsRecovery)
		h.recorder.complete(ctx, log, map[string]any{"alreadyGenerated": true})
		return nil
	}

	content, err := pdf.RenderReceipt(receipt)
	if err != nil {
		return h.failAttempt(ctx, log, receipt.ID, fmt.Errorf("failed to render receipt %s: %w", receipt.ID, err))
	}

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return h.failAttempt(ctx, log, receipt.ID, fmt.Errorf("failed to create spool dir: %w", err))
	}
	localPath := filepath.Join(h.uploadsDir, receipt.ID.String()+".pdf")
	if err := os.WriteFile(localPath, content, 0o644); err != nil {
		return h.failAttempt(ctx, log, receipt.ID, fmt.Errorf("failed to write receipt pdf: %w", err))
	}

	if err := h.receipts.MarkPDFGenerated(ctx, receipt.ID, localPath, int64(len(content))); err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}

	h.enqueueNextStages(ctx, receipt, payload.IsRecovery)
	h.recorder.complete(ctx, log, map[string]any{
		"path":      localPath,
		"sizeBytes": len(content),
	})
	return nil
}

// failAttempt counts the attempt on the receipt row and rethrows so asynq
// schedules the retry.
func (h *GeneratePDFHandler) failAttempt(ctx context.Context, log *model.JobLog, receiptID uuid.UUID, cause error) error {
	if err := h.receipts.IncrementPDFAttempts(ctx, receiptID); err != nil {
		logger.Error("failed to count pdf attempt", err)
	}
	h.recorder.fail(ctx, log, cause)
	return cause
}

// enqueueNextStages hands the receipt to the upload and email queues.
// Failures are logged only; the recovery scan picks up receipts whose
// later stages never got queued.
func (h *GeneratePDFHandler) enqueueNextStages(ctx context.Context, receipt *model.Receipt, isRecovery bool) {
	next := []string{}
	if !receipt.CloudinaryUploaded {
		next = append(next, shared.TypeUploadReceiptPDF)
	}
	if !receipt.EmailSent && !receipt.EmailPermanentFailure {
		next = append(next, shared.TypeSendReceiptEmail)
	}

	for _, taskType := range next {
		task, err := queue.NewReceiptTask(taskType, receipt.ID.String(), isRecovery)
		if err != nil {
			logger.Error("failed to build follow-up task", err)
			continue
		}
		opts := queue.ReceiptTaskOptions(taskType, receipt.ID.String(), isRecovery)
		if _, err := h.enqueuer.EnqueueContext(ctx, task, opts...); err != nil && !queue.IsDuplicateTask(err) {
			logger.Error("failed to enqueue follow-up task", err)
		}
	}
}
