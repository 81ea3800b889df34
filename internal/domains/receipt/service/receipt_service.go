package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/infrastructure/storage"
	"receipt-service/pkg/cache"
	"receipt-service/pkg/logger"
)

const (
	receiptCacheTTL = 5 * time.Minute
	signedURLExpiry = 15 * time.Minute
)

// ReceiptService is the read and completion surface over receipts.
// The fulfillment workers call TryComplete after each stage; the flip
// happens exactly once because the repository guards it with a
// conditional update.
type ReceiptService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
	TryComplete(ctx context.Context, id uuid.UUID) (bool, error)
	SignedPDFURL(ctx context.Context, id uuid.UUID) (string, error)
}

type receiptService struct {
	receipts repository.ReceiptRepository
	cache    cache.Cache
	storage  storage.CloudStorage
}

func NewReceiptService(receipts repository.ReceiptRepository, c cache.Cache, s storage.CloudStorage) ReceiptService {
	return &receiptService{receipts: receipts, cache: c, storage: s}
}

func receiptCacheKey(id uuid.UUID) string {
	return "receipt:" + id.String()
}

func (s *receiptService) GetByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	var cached model.Receipt
	if hit, err := s.cache.Get(ctx, receiptCacheKey(id), &cached); err == nil && hit {
		return &cached, nil
	}

	receipt, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, receiptCacheKey(id), receipt, receiptCacheTTL); err != nil {
		logger.Error("failed to cache receipt", err)
	}
	return receipt, nil
}

// TryComplete flips the receipt to COMPLETED when all three stage flags
// are set. Safe to call after every stage; only the last one wins.
func (s *receiptService) TryComplete(ctx context.Context, id uuid.UUID) (bool, error) {
	flipped, err := s.receipts.MarkCompleted(ctx, id)
	if err != nil {
		return false, err
	}
	if flipped {
		if err := s.cache.Delete(ctx, receiptCacheKey(id)); err != nil {
			logger.Error("failed to invalidate receipt cache", err)
		}
		logger.Info("receipt fulfillment completed", map[string]interface{}{
			"receipt_id": id.String(),
		})
	}
	return flipped, nil
}

// SignedPDFURL returns a short-lived download link for the uploaded PDF.
func (s *receiptService) SignedPDFURL(ctx context.Context, id uuid.UUID) (string, error) {
	receipt, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !receipt.CloudinaryUploaded || receipt.CloudinaryPublicID == nil {
		return "", fmt.Errorf("receipt %s has no uploaded pdf", id)
	}
	return s.storage.SignedURL(ctx, *receipt.CloudinaryPublicID, signedURLExpiry)
}
