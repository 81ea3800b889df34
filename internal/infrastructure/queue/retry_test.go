package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"receipt-service/internal/shared"
)

func TestRetryDelayRenderSchedule(t *testing.T) {
	task := asynq.NewTask(shared.TypeGenerateReceiptPDF, nil)

	assert.Equal(t, time.Minute, RetryDelay(0, errors.New("boom"), task))
	assert.Equal(t, 2*time.Minute, RetryDelay(1, nil, task))
	assert.Equal(t, 4*time.Minute, RetryDelay(2, nil, task))
}

func TestRetryDelayDefaultSchedule(t *testing.T) {
	for _, taskType := range []string{shared.TypeUploadReceiptPDF, shared.TypeSendReceiptEmail} {
		task := asynq.NewTask(taskType, nil)

		assert.Equal(t, 2*time.Minute, RetryDelay(0, nil, task))
		assert.Equal(t, 4*time.Minute, RetryDelay(1, nil, task))
		assert.Equal(t, 8*time.Minute, RetryDelay(2, nil, task))
	}
}

func TestRetryDelayCapped(t *testing.T) {
	task := asynq.NewTask(shared.TypeSendReceiptEmail, nil)

	capped := RetryDelay(5, nil, task)
	assert.Equal(t, 64*time.Minute, capped)
	assert.Equal(t, capped, RetryDelay(50, nil, task), "exponent is capped")
}
