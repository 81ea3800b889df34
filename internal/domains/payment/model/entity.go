package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentTransaction records one provider payment in a terminal state.
// TransactionID carries the provider's identifier and is unique, which is
// what makes the commit path idempotent across webhook redeliveries.
type PaymentTransaction struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID string          `json:"transactionId"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        uuid.UUID       `json:"userId"`
	StoreID       uuid.UUID       `json:"storeId"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	WebhookLogID  *uuid.UUID      `json:"webhookLogId,omitempty"`
	FailureReason *string         `json:"failureReason,omitempty"`
	SucceededAt   *time.Time      `json:"succeededAt,omitempty"`
	FailedAt      *time.Time      `json:"failedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// WebhookLog is the audit row for one webhook delivery. WebhookID is unique
// and gates duplicate deliveries before any state mutation happens.
type WebhookLog struct {
	ID             uuid.UUID  `json:"id"`
	WebhookID      string     `json:"webhookId"`
	Provider       string     `json:"provider"`
	EventType      string     `json:"eventType"`
	Payload        []byte     `json:"payload"`
	SignatureValid bool       `json:"signatureValid"`
	Processed      bool       `json:"processed"`
	Outcome        *string    `json:"outcome,omitempty"`
	OrderID        *uuid.UUID `json:"orderId,omitempty"`
	TransactionID  *string    `json:"transactionId,omitempty"`
	Attempts       int        `json:"attempts"`
	LastError      *string    `json:"lastError,omitempty"`
	ReceivedAt     time.Time  `json:"receivedAt"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
	ExpiresAt      time.Time  `json:"expiresAt"`
}
