package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"receipt-service/internal/shared"
)

// NewReceiptTask builds a fulfillment task for one receipt.
func NewReceiptTask(taskType, receiptID string, isRecovery bool) (*asynq.Task, error) {
	payload, err := json.Marshal(shared.ReceiptTaskPayload{
		ReceiptID:  receiptID,
		IsRecovery: isRecovery,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(taskType, payload), nil
}

// ReceiptTaskOptions returns the queue routing and retry budget for a
// fulfillment task. The first enqueue carries a deterministic task ID so an
// accidental double enqueue collapses into one job; recovery enqueues skip
// the ID because the archived original would otherwise block them, and run
// on the low-weight recovery queue so they never starve live traffic.
func ReceiptTaskOptions(taskType, receiptID string, isRecovery bool) []asynq.Option {
	var queueName string
	var maxAttempts int

	switch taskType {
	case shared.TypeGenerateReceiptPDF:
		queueName = shared.QueueReceiptGeneration
		maxAttempts = shared.MaxPDFAttempts
	case shared.TypeUploadReceiptPDF:
		queueName = shared.QueueCloudinaryUpload
		maxAttempts = shared.MaxUploadAttempts
	case shared.TypeSendReceiptEmail:
		queueName = shared.QueueEmailDelivery
		maxAttempts = shared.MaxEmailAttempts
	default:
		queueName = shared.QueueRecovery
		maxAttempts = 1
	}
	if isRecovery {
		queueName = shared.QueueRecovery
	}

	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(maxAttempts - 1),
		asynq.Timeout(2 * time.Minute),
		asynq.Retention(24 * time.Hour),
	}
	if !isRecovery {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("%s:%s", taskType, receiptID)))
	}
	return opts
}
