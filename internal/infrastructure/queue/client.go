package queue

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// Enqueuer abstracts *asynq.Client so services and job handlers can be
// tested without Redis.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IsDuplicateTask reports whether an enqueue failed only because a task
// with the same ID is already queued. Callers treat that as success.
func IsDuplicateTask(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}
