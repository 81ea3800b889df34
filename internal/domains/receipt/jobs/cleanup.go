package jobs

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	paymentrepo "receipt-service/internal/domains/payment/repository"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/shared"
	"receipt-service/internal/shared/utils"
	"receipt-service/pkg/logger"
)

// CleanupHandler owns the two housekeeping tasks: expiring audit rows and
// removing local PDFs that are safe to delete because the durable copy is
// uploaded and the email is settled.
type CleanupHandler struct {
	webhookLogs paymentrepo.WebhookLogRepository
	jobLogs     repository.JobLogRepository
	receipts    repository.ReceiptRepository
	recorder    *jobRecorder
}

func NewCleanupHandler(
	webhookLogs paymentrepo.WebhookLogRepository,
	jobLogs repository.JobLogRepository,
	receipts repository.ReceiptRepository,
) *CleanupHandler {
	return &CleanupHandler{
		webhookLogs: webhookLogs,
		jobLogs:     jobLogs,
		receipts:    receipts,
		recorder:    newJobRecorder(jobLogs),
	}
}

// ProcessLogCleanup deletes webhook and job log rows past their TTL.
func (h *CleanupHandler) ProcessLogCleanup(ctx context.Context, t *asynq.Task) error {
	var payload shared.CleanupPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.Limit <= 0 {
		payload.Limit = 1000
	}

	log := h.recorder.start(ctx, t, nil, false)

	webhooks, err := h.webhookLogs.DeleteExpired(ctx, payload.Limit)
	if err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}

	jobs, err := h.jobLogs.DeleteExpired(ctx, payload.Limit)
	if err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}

	h.recorder.complete(ctx, log, map[string]any{
		"webhookLogsDeleted": webhooks,
		"jobLogsDeleted":     jobs,
	})
	return nil
}

// ProcessArtifactCleanup removes spooled PDFs whose receipt is uploaded and
// whose email is either sent or permanently failed.
func (h *CleanupHandler) ProcessArtifactCleanup(ctx context.Context, t *asynq.Task) error {
	var payload shared.CleanupPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	log := h.recorder.start(ctx, t, nil, false)

	candidates, err := h.receipts.FindCleanupCandidates(ctx, payload.Limit)
	if err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}

	removed := 0
	for _, receipt := range candidates {
		if receipt.PDFLocalPath == nil {
			continue
		}
		if err := os.Remove(*receipt.PDFLocalPath); err != nil && !os.IsNotExist(err) {
			logger.Error("failed to remove spooled pdf", err)
			continue
		}
		if err := h.receipts.ClearLocalPath(ctx, receipt.ID); err != nil {
			logger.Error("failed to clear local pdf path", err)
			continue
		}
		removed++
	}

	h.recorder.complete(ctx, log, map[string]any{
		"candidates": len(candidates),
		"removed":    removed,
	})
	return nil
}
