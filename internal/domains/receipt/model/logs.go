package model

import (
	"time"

	"github.com/google/uuid"
)

// Job log statuses.
const (
	JobStatusStarted   = "STARTED"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// Email log statuses.
const (
	EmailLogSent   = "SENT"
	EmailLogFailed = "FAILED"
)

// Storage log statuses.
const (
	StorageLogSuccess = "SUCCESS"
	StorageLogFailed  = "FAILED"
)

// JobLogTTLDays is how long worker execution rows are kept.
const JobLogTTLDays = 7

// JobLog records one worker execution attempt, mirrored from queue metadata
// so failures stay inspectable after the queue entry is gone.
type JobLog struct {
	ID            uuid.UUID      `json:"id"`
	JobID         string         `json:"jobId"`
	QueueName     string         `json:"queueName"`
	JobType       string         `json:"jobType"`
	ReceiptID     *uuid.UUID     `json:"receiptId,omitempty"`
	Status        string         `json:"status"`
	Attempt       int            `json:"attempt"`
	MaxAttempts   int            `json:"maxAttempts"`
	IsRecoveryJob bool           `json:"isRecoveryJob"`
	Result        map[string]any `json:"result,omitempty"`
	Error         *string        `json:"error,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    *time.Time     `json:"finishedAt,omitempty"`
	ExpiresAt     time.Time      `json:"expiresAt"`
}

// EmailLog records one delivery attempt against the mail server.
type EmailLog struct {
	ID           uuid.UUID `json:"id"`
	ReceiptID    uuid.UUID `json:"receiptId"`
	Recipient    string    `json:"recipient"`
	Status       string    `json:"status"`
	MessageID    *string   `json:"messageId,omitempty"`
	ErrorKind    *string   `json:"errorKind,omitempty"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CloudStorageLog records one call against the object store.
type CloudStorageLog struct {
	ID           uuid.UUID `json:"id"`
	ReceiptID    uuid.UUID `json:"receiptId"`
	Action       string    `json:"action"`
	PublicID     *string   `json:"publicId,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
