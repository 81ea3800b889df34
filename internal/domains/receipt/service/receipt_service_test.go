package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/infrastructure/storage"
)

// =====================================================
// FAKES
// =====================================================

type fakeReceiptRepo struct {
	repository.ReceiptRepository
	receipt   *model.Receipt
	getCalls  int
	completed map[uuid.UUID]bool
}

func (f *fakeReceiptRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Receipt, error) {
	f.getCalls++
	if f.receipt == nil || f.receipt.ID != id {
		return nil, model.ErrReceiptNotFound
	}
	return f.receipt, nil
}

func (f *fakeReceiptRepo) MarkCompleted(_ context.Context, id uuid.UUID) (bool, error) {
	if f.completed == nil {
		f.completed = make(map[uuid.UUID]bool)
	}
	if f.completed[id] {
		return false, nil
	}
	f.completed[id] = true
	return true, nil
}

// fakeCache stores marshaled values so Get exercises the same
// unmarshal-into-dest contract as the redis implementation.
type fakeCache struct {
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeCache) Ping(_ context.Context) error { return nil }

type fakeStorage struct {
	signedFor []string
}

func (f *fakeStorage) UploadFile(_ context.Context, _ string, _ storage.UploadOptions) (*storage.UploadResult, error) {
	return &storage.UploadResult{}, nil
}

func (f *fakeStorage) SignedURL(_ context.Context, publicID string, _ time.Duration) (string, error) {
	f.signedFor = append(f.signedFor, publicID)
	return "https://cdn.example.com/" + publicID + "?sig=abc", nil
}

func (f *fakeStorage) Delete(_ context.Context, _ string) error { return nil }

func storedReceipt() *model.Receipt {
	return &model.Receipt{
		ID:            uuid.New(),
		ReceiptNumber: "RCP-2026-000013",
		TransactionID: "txn_13",
		Status:        model.ReceiptStatusPending,
	}
}

// =====================================================
// TESTS
// =====================================================

func TestGetByIDCachesOnMiss(t *testing.T) {
	receipt := storedReceipt()
	repo := &fakeReceiptRepo{receipt: receipt}
	svc := NewReceiptService(repo, newFakeCache(), &fakeStorage{})

	first, err := svc.GetByID(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptNumber, first.ReceiptNumber)

	second, err := svc.GetByID(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptNumber, second.ReceiptNumber)

	assert.Equal(t, 1, repo.getCalls, "second read must come from cache")
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewReceiptService(&fakeReceiptRepo{}, newFakeCache(), &fakeStorage{})

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrReceiptNotFound)
}

func TestTryCompleteFlipsOnce(t *testing.T) {
	receipt := storedReceipt()
	repo := &fakeReceiptRepo{receipt: receipt}
	c := newFakeCache()
	svc := NewReceiptService(repo, c, &fakeStorage{})

	// Warm the cache so the flip has something to invalidate.
	_, err := svc.GetByID(context.Background(), receipt.ID)
	require.NoError(t, err)

	flipped, err := svc.TryComplete(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.Contains(t, c.deleted, "receipt:"+receipt.ID.String())

	again, err := svc.TryComplete(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.False(t, again, "only the first caller wins the flip")
}

func TestSignedPDFURL(t *testing.T) {
	receipt := storedReceipt()
	publicID := "receipt_" + receipt.ID.String()
	receipt.CloudinaryUploaded = true
	receipt.CloudinaryPublicID = &publicID

	st := &fakeStorage{}
	svc := NewReceiptService(&fakeReceiptRepo{receipt: receipt}, newFakeCache(), st)

	url, err := svc.SignedPDFURL(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Contains(t, url, publicID)
	assert.Equal(t, []string{publicID}, st.signedFor)
}

func TestSignedPDFURLBeforeUpload(t *testing.T) {
	receipt := storedReceipt()
	svc := NewReceiptService(&fakeReceiptRepo{receipt: receipt}, newFakeCache(), &fakeStorage{})

	_, err := svc.SignedPDFURL(context.Background(), receipt.ID)
	assert.Error(t, err)
}
