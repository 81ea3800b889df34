package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"receipt-service/internal/domains/receipt/mail"
	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/domains/receipt/service"
	"receipt-service/internal/infrastructure/email"
	"receipt-service/internal/shared"
	"receipt-service/internal/shared/utils"
	"receipt-service/pkg/logger"
)

// SendEmailHandler delivers the receipt email with the PDF attached.
// Permanent failures (bad address) stop the retry chain immediately; the
// receipt is flagged instead of being hammered against the mail server.
type SendEmailHandler struct {
	receipts   repository.ReceiptRepository
	email      email.EmailService
	emailLogs  repository.EmailLogRepository
	receiptSvc service.ReceiptService
	recorder   *jobRecorder
	from       string
}

func NewSendEmailHandler(
	receipts repository.ReceiptRepository,
	jobLogs repository.JobLogRepository,
	emailLogs repository.EmailLogRepository,
	emailSvc email.EmailService,
	receiptSvc service.ReceiptService,
	from string,
) *SendEmailHandler {
	return &SendEmailHandler{
		receipts:   receipts,
		email:      emailSvc,
		emailLogs:  emailLogs,
		receiptSvc: receiptSvc,
		recorder:   newJobRecorder(jobLogs),
		from:       from,
	}
}

func (h *SendEmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ReceiptTaskPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	receiptID := utils.ParseStringToUUID(payload.ReceiptID)
	if receiptID == uuid.Nil {
		return fmt.Errorf("invalid receipt id %q: %w", payload.ReceiptID, asynq.SkipRetry)
	}

	log := h.recorder.start(ctx, t, &receiptID, payload.IsRecovery)

	receipt, err := h.receipts.GetByID(ctx, receiptID)
	if err != nil {
		h.recorder.fail(ctx, log, err)
		if errors.Is(err, model.ErrReceiptNotFound) {
			return fmt.Errorf("receipt %s not found: %w", receiptID, asynq.SkipRetry)
		}
		return err
	}

	if receipt.EmailSent {
		h.recorder.complete(ctx, log, map[string]any{"alreadySent": true})
		return nil
	}
	if receipt.EmailPermanentFailure {
		h.recorder.complete(ctx, log, map[string]any{"skipped": "permanent failure"})
		return nil
	}
	if !receipt.PDFGenerated || receipt.PDFLocalPath == nil {
		h.recorder.fail(ctx, log, model.ErrPDFNotReady)
		return fmt.Errorf("receipt %s: %w", receipt.ID, model.ErrPDFNotReady)
	}

	attachment, err := os.ReadFile(*receipt.PDFLocalPath)
	if err != nil {
		cause := fmt.Errorf("failed to read receipt pdf: %w", err)
		if countErr := h.receipts.IncrementEmailAttempts(ctx, receipt.ID, cause.Error()); countErr != nil {
			logger.Error("failed to count email attempt", countErr)
		}
		h.recorder.fail(ctx, log, cause)
		return cause
	}

	rendered, err := mail.RenderEmail(receipt)
	if err != nil {
		// Template errors are deterministic; retrying cannot help.
		if countErr := h.receipts.IncrementEmailAttempts(ctx, receipt.ID, err.Error()); countErr != nil {
			logger.Error("failed to count email attempt", countErr)
		}
		h.recorder.fail(ctx, log, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	recipient := receipt.Snapshot.CustomerEmail
	result, err := h.email.Send(ctx, email.Message{
		From:    h.from,
		To:      recipient,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Attachments: []email.Attachment{{
			Filename:    receipt.ReceiptNumber + ".pdf",
			Content:     attachment,
			ContentType: "application/pdf",
		}},
	})
	if err != nil {
		kind := email.ClassifyError(err)
		h.writeEmailLog(ctx, receipt.ID, recipient, nil, kind, err)

		if kind.IsPermanent() {
			if markErr := h.receipts.MarkEmailPermanentFailure(ctx, receipt.ID, err.Error()); markErr != nil {
				logger.Error("failed to flag permanent email failure", markErr)
			}
			h.recorder.fail(ctx, log, err)
			return fmt.Errorf("permanent email failure for receipt %s: %v: %w", receipt.ID, err, asynq.SkipRetry)
		}

		if countErr := h.receipts.IncrementEmailAttempts(ctx, receipt.ID, err.Error()); countErr != nil {
			logger.Error("failed to count email attempt", countErr)
		}
		h.recorder.fail(ctx, log, err)
		return err
	}

	if err := h.receipts.MarkEmailSent(ctx, receipt.ID); err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}
	h.writeEmailLog(ctx, receipt.ID, recipient, &result.MessageID, "", nil)

	if _, err := h.receiptSvc.TryComplete(ctx, receipt.ID); err != nil {
		logger.Error("failed to check receipt completion", err)
	}

	h.recorder.complete(ctx, log, map[string]any{"messageId": result.MessageID})
	return nil
}

func (h *SendEmailHandler) writeEmailLog(ctx context.Context, receiptID uuid.UUID, recipient string, messageID *string, kind email.ErrorKind, cause error) {
	entry := &model.EmailLog{
		ID:        uuid.New(),
		ReceiptID: receiptID,
		Recipient: recipient,
		Status:    model.EmailLogSent,
		MessageID: messageID,
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		entry.Status = model.EmailLogFailed
		kindStr := string(kind)
		msg := cause.Error()
		entry.ErrorKind = &kindStr
		entry.ErrorMessage = &msg
	}
	if err := h.emailLogs.Create(ctx, entry); err != nil {
		logger.Error("failed to write email log", err)
	}
}
