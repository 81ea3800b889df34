package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"receipt-service/internal/shared"
)

// RetryDelay implements exponential backoff per task family. Render retries
// start at one minute, upload and email at two, each doubling per retry.
func RetryDelay(n int, _ error, task *asynq.Task) time.Duration {
	base := 2 * time.Minute
	if task.Type() == shared.TypeGenerateReceiptPDF {
		base = time.Minute
	}

	// Cap the exponent so a long retry budget never overflows into hours.
	if n > 5 {
		n = 5
	}
	return base * time.Duration(1<<n)
}
