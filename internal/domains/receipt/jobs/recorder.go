package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/pkg/logger"
)

// jobRecorder mirrors queue execution metadata into job_logs so failed runs
// stay inspectable after the queue entry is gone. All writes are best
// effort; a broken audit trail must never fail the job itself.
type jobRecorder struct {
	jobLogs repository.JobLogRepository
}

func newJobRecorder(jobLogs repository.JobLogRepository) *jobRecorder {
	return &jobRecorder{jobLogs: jobLogs}
}

func (r *jobRecorder) start(ctx context.Context, t *asynq.Task, receiptID *uuid.UUID, isRecovery bool) *model.JobLog {
	taskID, _ := asynq.GetTaskID(ctx)
	queueName, _ := asynq.GetQueueName(ctx)
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	now := time.Now().UTC()
	log := &model.JobLog{
		ID:            uuid.New(),
		JobID:         taskID,
		QueueName:     queueName,
		JobType:       t.Type(),
		ReceiptID:     receiptID,
		Status:        model.JobStatusStarted,
		Attempt:       retried + 1,
		MaxAttempts:   maxRetry + 1,
		IsRecoveryJob: isRecovery,
		StartedAt:     now,
		ExpiresAt:     now.Add(model.JobLogTTLDays * 24 * time.Hour),
	}

	if err := r.jobLogs.Create(ctx, log); err != nil {
		logger.Error("failed to create job log", err)
	}
	return log
}

func (r *jobRecorder) complete(ctx context.Context, log *model.JobLog, result map[string]any) {
	if err := r.jobLogs.MarkCompleted(ctx, log.ID, result); err != nil {
		logger.Error("failed to mark job log completed", err)
	}
}

func (r *jobRecorder) fail(ctx context.Context, log *model.JobLog, cause error) {
	if err := r.jobLogs.MarkFailed(ctx, log.ID, cause.Error()); err != nil {
		logger.Error("failed to mark job log failed", err)
	}
}
