package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"receipt-service/internal/config"
	"receipt-service/internal/domains/payment/gateway"
	"receipt-service/internal/domains/payment/model"
	"receipt-service/internal/domains/payment/repository"
	"receipt-service/internal/shared/utils"
	"receipt-service/pkg/logger"
)

type webhookService struct {
	cfg         config.PaymentsConfig
	webhookLogs repository.WebhookLogRepository
	payments    PaymentService
}

func NewWebhookService(cfg config.PaymentsConfig, webhookLogs repository.WebhookLogRepository, payments PaymentService) WebhookService {
	return &webhookService{
		cfg:         cfg,
		webhookLogs: webhookLogs,
		payments:    payments,
	}
}

// ProcessWebhook runs the intake pipeline for one delivery:
// 1. Ensure a webhook id (synthesize one when the provider omits it)
// 2. Verify the HMAC signature over the raw payload bytes
// 3. Parse and normalize the provider payload
// 4. Duplicate gate on webhook id, then write the audit row
// 5. Dispatch on the normalized status
func (s *webhookService) ProcessWebhook(ctx context.Context, req model.IntakeRequest) (*model.IntakeResult, error) {
	webhookID := req.WebhookID
	if webhookID == "" {
		webhookID = fmt.Sprintf("webhook_%d_%s", time.Now().Unix(), xid.New().String())
	}

	// The mock provider skips verification only when explicitly enabled;
	// config forces that off in production.
	signatureValid := req.Provider == gateway.ProviderMock && s.cfg.AllowMockProvider
	if !signatureValid {
		secret, ok := s.cfg.WebhookSecrets[req.Provider]
		if !ok {
			s.writeRejectedLog(ctx, webhookID, req, "", false)
			return &model.IntakeResult{
				Type:    model.ResultInvalidSignature,
				Message: model.ErrUnknownProvider.Error(),
			}, nil
		}
		if !gateway.VerifySignature(secret, req.RawPayload, req.Signature) {
			s.writeRejectedLog(ctx, webhookID, req, "", false)
			return &model.IntakeResult{
				Type:    model.ResultInvalidSignature,
				Message: "invalid webhook signature",
			}, nil
		}
		signatureValid = true
	}

	evt, err := gateway.ParseEvent(req.Provider, req.RawPayload)
	var norm *gateway.NormalizedEvent
	if err == nil {
		norm, err = evt.Normalize()
	}
	if err != nil {
		s.writeRejectedLog(ctx, webhookID, req, "", signatureValid)
		return &model.IntakeResult{
			Type:    model.ResultValidationFailed,
			Message: err.Error(),
		}, nil
	}

	// Duplicate gate. Only a processed row is a true redelivery; an
	// unprocessed row means an earlier attempt failed mid-commit, and this
	// delivery must re-run the dispatch against the same row.
	logRow, err := s.webhookLogs.GetByWebhookID(ctx, webhookID)
	if err == nil && logRow.Processed {
		return &model.IntakeResult{
			Success: true,
			Type:    model.ResultDuplicate,
			Message: "webhook already received",
		}, nil
	}
	if err != nil {
		if !errors.Is(err, model.ErrWebhookLogNotFound) {
			return nil, err
		}

		now := time.Now().UTC()
		logRow = &model.WebhookLog{
			ID:             uuid.New(),
			WebhookID:      webhookID,
			Provider:       req.Provider,
			EventType:      norm.Status,
			Payload:        req.RawPayload,
			SignatureValid: signatureValid,
			ReceivedAt:     now,
			ExpiresAt:      now.Add(model.WebhookLogTTLDays * 24 * time.Hour),
		}
		if err := s.webhookLogs.Create(ctx, logRow); err != nil {
			// Lost the insert race to a concurrent delivery of the same id.
			if errors.Is(err, model.ErrDuplicateWebhook) {
				return &model.IntakeResult{
					Success: true,
					Type:    model.ResultDuplicate,
					Message: "webhook already received",
				}, nil
			}
			return nil, err
		}
	}

	switch norm.Status {
	case gateway.StatusSucceeded:
		return s.handleSucceeded(ctx, logRow, norm)
	case gateway.StatusFailed:
		return s.handleFailed(ctx, logRow, norm)
	default:
		s.markProcessed(ctx, logRow.ID, model.OutcomeIgnored, nil, nil)
		return &model.IntakeResult{
			Success: true,
			Type:    model.ResultIgnored,
			Message: fmt.Sprintf("unhandled event status %q", norm.Status),
		}, nil
	}
}

func (s *webhookService) handleSucceeded(ctx context.Context, logRow *model.WebhookLog, norm *gateway.NormalizedEvent) (*model.IntakeResult, error) {
	orderID := utils.ParseStringToUUID(norm.OrderID)
	if orderID == uuid.Nil {
		s.markProcessed(ctx, logRow.ID, model.OutcomeValidationFailed, nil, &norm.TransactionID)
		return &model.IntakeResult{
			Type:    model.ResultValidationFailed,
			Message: fmt.Sprintf("invalid order id %q", norm.OrderID),
		}, nil
	}

	res, err := s.payments.CommitSuccessfulPayment(ctx, model.CommitInput{
		Provider:      norm.Provider,
		TransactionID: norm.TransactionID,
		OrderID:       orderID,
		Amount:        norm.Amount,
		Currency:      norm.Currency,
		WebhookLogID:  &logRow.ID,
	})
	if err != nil {
		s.markFailed(ctx, logRow.ID, err)
		return nil, err
	}

	switch res.Type {
	case model.CommitProcessed:
		s.markProcessed(ctx, logRow.ID, model.OutcomeSuccess, &orderID, &norm.TransactionID)
		return &model.IntakeResult{
			Success: true,
			Type:    model.ResultProcessed,
			Message: "payment recorded",
			Data:    receiptData(res.ReceiptID),
		}, nil

	case model.CommitAlreadyProcessed:
		s.markProcessed(ctx, logRow.ID, model.OutcomeDuplicate, &orderID, &norm.TransactionID)
		return &model.IntakeResult{
			Success: true,
			Type:    model.ResultAlreadyProcessed,
			Message: "payment was already recorded",
			Data:    receiptData(res.ReceiptID),
		}, nil

	default:
		s.markProcessed(ctx, logRow.ID, model.OutcomeValidationFailed, &orderID, &norm.TransactionID)
		result := &model.IntakeResult{
			Type:    model.ResultValidationFailed,
			Message: res.Message,
		}
		if res.RequiresRefund {
			result.Data = map[string]any{"requiresRefund": true}
		}
		return result, nil
	}
}

func (s *webhookService) handleFailed(ctx context.Context, logRow *model.WebhookLog, norm *gateway.NormalizedEvent) (*model.IntakeResult, error) {
	orderID := utils.ParseStringToUUID(norm.OrderID)
	if orderID == uuid.Nil {
		s.markProcessed(ctx, logRow.ID, model.OutcomeValidationFailed, nil, &norm.TransactionID)
		return &model.IntakeResult{
			Type:    model.ResultValidationFailed,
			Message: fmt.Sprintf("invalid order id %q", norm.OrderID),
		}, nil
	}

	res, err := s.payments.RecordFailedPayment(ctx, model.CommitInput{
		Provider:      norm.Provider,
		TransactionID: norm.TransactionID,
		OrderID:       orderID,
		Amount:        norm.Amount,
		Currency:      norm.Currency,
		WebhookLogID:  &logRow.ID,
	}, "payment failed at provider")
	if err != nil {
		s.markFailed(ctx, logRow.ID, err)
		return nil, err
	}

	if res.Type == model.CommitValidationFailed {
		s.markProcessed(ctx, logRow.ID, model.OutcomeValidationFailed, &orderID, &norm.TransactionID)
		return &model.IntakeResult{
			Type:    model.ResultValidationFailed,
			Message: res.Message,
		}, nil
	}

	s.markProcessed(ctx, logRow.ID, model.OutcomeSuccess, &orderID, &norm.TransactionID)
	return &model.IntakeResult{
		Success: true,
		Type:    model.ResultPaymentFailed,
		Message: "payment failure recorded",
	}, nil
}

// writeRejectedLog records deliveries rejected before the duplicate gate.
// Best effort: a second rejection of the same id loses the unique index and
// that is fine.
func (s *webhookService) writeRejectedLog(ctx context.Context, webhookID string, req model.IntakeRequest, eventType string, signatureValid bool) {
	now := time.Now().UTC()
	outcome := model.OutcomeValidationFailed
	processedAt := now

	err := s.webhookLogs.Create(ctx, &model.WebhookLog{
		ID:             uuid.New(),
		WebhookID:      webhookID,
		Provider:       req.Provider,
		EventType:      eventType,
		Payload:        req.RawPayload,
		SignatureValid: signatureValid,
		Processed:      true,
		Outcome:        &outcome,
		ReceivedAt:     now,
		ProcessedAt:    &processedAt,
		ExpiresAt:      now.Add(model.WebhookLogTTLDays * 24 * time.Hour),
	})
	if err != nil && !errors.Is(err, model.ErrDuplicateWebhook) {
		logger.Error("failed to record rejected webhook", err)
	}
}

func (s *webhookService) markProcessed(ctx context.Context, id uuid.UUID, outcome string, orderID *uuid.UUID, transactionID *string) {
	if err := s.webhookLogs.MarkProcessed(ctx, id, outcome, orderID, transactionID); err != nil {
		logger.Error("failed to mark webhook log processed", err)
	}
}

func (s *webhookService) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	if err := s.webhookLogs.MarkFailed(ctx, id, cause.Error()); err != nil {
		logger.Error("failed to mark webhook log failed", err)
	}
}

func receiptData(receiptID *uuid.UUID) map[string]any {
	if receiptID == nil {
		return nil
	}
	return map[string]any{"receiptId": receiptID.String()}
}
