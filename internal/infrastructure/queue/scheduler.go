package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"receipt-service/internal/shared"
)

// Cron entries. The recovery sweep runs every 15 minutes; the two cleanup
// jobs run nightly off-peak.
const (
	recoveryCron        = "*/15 * * * *"
	logCleanupCron      = "0 2 * * *"
	artifactCleanupCron = "0 3 * * *"
)

// RegisterSchedules wires the periodic tasks onto an asynq scheduler.
func RegisterSchedules(scheduler *asynq.Scheduler) error {
	recoveryPayload, err := json.Marshal(shared.RecoveryScanPayload{Limit: 50})
	if err != nil {
		return fmt.Errorf("failed to marshal recovery payload: %w", err)
	}
	cleanupPayload, err := json.Marshal(shared.CleanupPayload{})
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}

	entries := []struct {
		cron string
		task *asynq.Task
		opts []asynq.Option
	}{
		{
			cron: recoveryCron,
			task: asynq.NewTask(shared.TypeRecoveryScan, recoveryPayload),
			opts: []asynq.Option{
				asynq.Queue(shared.QueueRecovery),
				asynq.MaxRetry(0),
				asynq.Timeout(5 * time.Minute),
			},
		},
		{
			cron: logCleanupCron,
			task: asynq.NewTask(shared.TypeCleanupLogs, cleanupPayload),
			opts: []asynq.Option{
				asynq.Queue(shared.QueueRecovery),
				asynq.MaxRetry(1),
				asynq.Timeout(10 * time.Minute),
			},
		},
		{
			cron: artifactCleanupCron,
			task: asynq.NewTask(shared.TypeCleanupArtifacts, cleanupPayload),
			opts: []asynq.Option{
				asynq.Queue(shared.QueueRecovery),
				asynq.MaxRetry(1),
				asynq.Timeout(10 * time.Minute),
			},
		},
	}

	for _, entry := range entries {
		if _, err := scheduler.Register(entry.cron, entry.task, entry.opts...); err != nil {
			return fmt.Errorf("failed to register %s schedule: %w", entry.task.Type(), err)
		}
	}
	return nil
}
