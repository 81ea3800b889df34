package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/domains/receipt/service"
	"receipt-service/internal/infrastructure/storage"
	"receipt-service/internal/shared"
	"receipt-service/internal/shared/utils"
	"receipt-service/pkg/logger"
)

// UploadHandler pushes the rendered PDF into the object store and records
// the durable URL on the receipt.
type UploadHandler struct {
	receipts    repository.ReceiptRepository
	storage     storage.CloudStorage
	storageLogs repository.CloudStorageLogRepository
	receiptSvc  service.ReceiptService
	recorder    *jobRecorder
}

func NewUploadHandler(
	receipts repository.ReceiptRepository,
	jobLogs repository.JobLogRepository,
	storageLogs repository.CloudStorageLogRepository,
	cloudStorage storage.CloudStorage,
	receiptSvc service.ReceiptService,
) *UploadHandler {
	return &UploadHandler{
		receipts:    receipts,
		storage:     cloudStorage,
		storageLogs: storageLogs,
		receiptSvc:  receiptSvc,
		recorder:    newJobRecorder(jobLogs),
	}
}

func (h *UploadHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
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

	if receipt.CloudinaryUploaded {
		h.recorder.complete(ctx, log, map[string]any{"alreadyUploaded": true})
		return nil
	}

	// The render stage has to finish first. Rethrow so the retry (or the
	// recovery scan) comes back after the PDF exists.
	if !receipt.PDFGenerated || receipt.PDFLocalPath == nil {
		h.recorder.fail(ctx, log, model.ErrPDFNotReady)
		return fmt.Errorf("receipt %s: %w", receipt.ID, model.ErrPDFNotReady)
	}

	result, err := h.storage.UploadFile(ctx, *receipt.PDFLocalPath, storage.UploadOptions{
		Folder:   fmt.Sprintf("receipts/%s/%d", receipt.StoreID, receipt.PaidAt.Year()),
		PublicID: "receipt_" + receipt.ID.String(),
		Tags: []string{
			"receipt",
			"user_" + receipt.UserID.String(),
			"order_" + receipt.OrderID.String(),
		},
	})
	if err != nil {
		if countErr := h.receipts.IncrementUploadAttempts(ctx, receipt.ID); countErr != nil {
			logger.Error("failed to count upload attempt", countErr)
		}
		h.writeStorageLog(ctx, receipt.ID, nil, model.StorageLogFailed, err)
		h.recorder.fail(ctx, log, err)
		return err
	}

	if err := h.receipts.MarkUploaded(ctx, receipt.ID, result.PublicID, result.SecureURL); err != nil {
		h.recorder.fail(ctx, log, err)
		return err
	}
	h.writeStorageLog(ctx, receipt.ID, &result.PublicID, model.StorageLogSuccess, nil)

	if _, err := h.receiptSvc.TryComplete(ctx, receipt.ID); err != nil {
		logger.Error("failed to check receipt completion", err)
	}

	h.recorder.complete(ctx, log, map[string]any{
		"publicId": result.PublicID,
		"bytes":    result.Bytes,
	})
	return nil
}

func (h *UploadHandler) writeStorageLog(ctx context.Context, receiptID uuid.UUID, publicID *string, status string, cause error) {
	entry := &model.CloudStorageLog{
		ID:        uuid.New(),
		ReceiptID: receiptID,
		Action:    "upload",
		PublicID:  publicID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		entry.ErrorMessage = &msg
	}
	if err := h.storageLogs.Create(ctx, entry); err != nil {
		logger.Error("failed to write cloud storage log", err)
	}
}
