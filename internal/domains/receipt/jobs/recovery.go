package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/domains/receipt/service"
	"receipt-service/internal/shared"
	"receipt-service/internal/shared/utils"
)

// RecoveryHandler runs the scheduled self-healing sweep.
type RecoveryHandler struct {
	recovery service.RecoveryService
	recorder *jobRecorder
}

func NewRecoveryHandler(recovery service.RecoveryService, jobLogs repository.JobLogRepository) *RecoveryHandler {
	return &RecoveryHandler{
		recovery: recovery,
		recorder: newJobRecorder(jobLogs),
	}
}

func (h *RecoveryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.RecoveryScanPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := h.recorder.start(ctx, t, nil, false)

	report, err := h.recovery.RunScan(ctx, payload.Limit)
	if err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}

	h.recorder.complete(ctx, log, map[string]any{
		"renderRequeued": report.RenderRequeued,
		"uploadRequeued": report.UploadRequeued,
		"emailRequeued":  report.EmailRequeued,
		"flagged":        report.Flagged,
	})
	return nil
}
