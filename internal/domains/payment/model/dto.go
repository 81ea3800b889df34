package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxWebhookPayloadBytes bounds what the intake accepts before any parsing.
const maxWebhookPayloadBytes = 1 << 20

// IntakeRequest is one webhook delivery as the HTTP handler received it.
// RawPayload keeps the exact wire bytes because the signature covers them.
type IntakeRequest struct {
	Provider   string
	WebhookID  string
	Signature  string
	RawPayload []byte
}

func (req IntakeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Provider, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.WebhookID, validation.Length(0, 255)),
		validation.Field(&req.Signature, validation.Length(0, 128)),
		validation.Field(&req.RawPayload, validation.Required, validation.Length(1, maxWebhookPayloadBytes)),
	)
}

// IntakeResult is the typed answer reported back to the provider.
type IntakeResult struct {
	Success bool           `json:"success"`
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// CommitInput carries the normalized successful payment into the commit
// transaction.
type CommitInput struct {
	Provider      string
	TransactionID string
	OrderID       uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	WebhookLogID  *uuid.UUID
}

// Commit outcome types.
const (
	CommitProcessed        = "processed"
	CommitAlreadyProcessed = "already_processed"
	CommitValidationFailed = "validation_failed"
)

// CommitResult reports what the commit transaction did. ReceiptID is set
// only when this call created the receipt.
type CommitResult struct {
	Type           string
	ReceiptID      *uuid.UUID
	Message        string
	RequiresRefund bool
}
