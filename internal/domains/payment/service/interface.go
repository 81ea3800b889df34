package service

import (
	"context"

	"receipt-service/internal/domains/payment/model"
)

// WebhookService is the intake pipeline: verify, parse, dedup, dispatch.
// The returned IntakeResult is what the HTTP handler reports back to the
// provider; a non-nil error means an internal failure worth a redelivery.
type WebhookService interface {
	ProcessWebhook(ctx context.Context, req model.IntakeRequest) (*model.IntakeResult, error)
}

// PaymentService owns the terminal payment writes. CommitSuccessfulPayment
// is the atomic order -> PAID transition plus receipt creation.
type PaymentService interface {
	CommitSuccessfulPayment(ctx context.Context, in model.CommitInput) (*model.CommitResult, error)
	RecordFailedPayment(ctx context.Context, in model.CommitInput, reason string) (*model.CommitResult, error)
}
