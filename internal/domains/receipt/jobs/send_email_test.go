package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/repository"
	"receipt-service/internal/domains/receipt/service"
	"receipt-service/internal/infrastructure/email"
	"receipt-service/internal/shared"
)

// =====================================================
// FAKES
// =====================================================

type fakeReceiptStore struct {
	repository.ReceiptRepository
	receipt          *model.Receipt
	emailSent        bool
	attemptErrors    []string
	permanentReasons []string

	pdfPath     string
	pdfAttempts int

	uploadedPublicID string
	uploadAttempts   int
}

func (f *fakeReceiptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Receipt, error) {
	if f.receipt == nil || f.receipt.ID != id {
		return nil, model.ErrReceiptNotFound
	}
	return f.receipt, nil
}

func (f *fakeReceiptStore) MarkEmailSent(_ context.Context, _ uuid.UUID) error {
	f.emailSent = true
	return nil
}

func (f *fakeReceiptStore) IncrementEmailAttempts(_ context.Context, _ uuid.UUID, lastError string) error {
	f.attemptErrors = append(f.attemptErrors, lastError)
	return nil
}

func (f *fakeReceiptStore) MarkEmailPermanentFailure(_ context.Context, _ uuid.UUID, lastError string) error {
	f.permanentReasons = append(f.permanentReasons, lastError)
	return nil
}

type fakeJobLogs struct {
	completed int
	failed    int
}

func (f *fakeJobLogs) Create(_ context.Context, _ *model.JobLog) error { return nil }

func (f *fakeJobLogs) MarkCompleted(_ context.Context, _ uuid.UUID, _ map[string]any) error {
	f.completed++
	return nil
}

func (f *fakeJobLogs) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error {
	f.failed++
	return nil
}

func (f *fakeJobLogs) DeleteExpired(_ context.Context, _ int) (int64, error) { return 0, nil }

type fakeEmailLogs struct {
	entries []*model.EmailLog
}

func (f *fakeEmailLogs) Create(_ context.Context, entry *model.EmailLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeEmailSender struct {
	sendErr error
	sent    []email.Message
}

func (f *fakeEmailSender) Send(_ context.Context, msg email.Message) (*email.SendResult, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, msg)
	return &email.SendResult{MessageID: "msg-123"}, nil
}

type fakeCompleter struct {
	service.ReceiptService
	tried []uuid.UUID
}

func (f *fakeCompleter) TryComplete(_ context.Context, id uuid.UUID) (bool, error) {
	f.tried = append(f.tried, id)
	return true, nil
}

// =====================================================
// HELPERS
// =====================================================

func emailableReceipt(t *testing.T) *model.Receipt {
	t.Helper()

	path := filepath.Join(t.TempDir(), "receipt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644))

	return &model.Receipt{
		ID:            uuid.New(),
		ReceiptNumber: "RCP-2026-000031",
		Status:        model.ReceiptStatusPending,
		PDFGenerated:  true,
		PDFLocalPath:  &path,
		Snapshot: model.OrderSnapshot{
			OrderNumber:   "ORD-2026-31",
			StoreName:     "North End Books",
			CustomerName:  "Avery Quinn",
			CustomerEmail: "avery@example.com",
			Total:         decimal.RequireFromString("12.00"),
			Currency:      "USD",
		},
	}
}

func emailTask(t *testing.T, receiptID uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(shared.ReceiptTaskPayload{ReceiptID: receiptID.String()})
	require.NoError(t, err)
	return asynq.NewTask(shared.TypeSendReceiptEmail, payload)
}

func newEmailHandler(store *fakeReceiptStore, sender *fakeEmailSender, logs *fakeEmailLogs, completer *fakeCompleter) *SendEmailHandler {
	return NewSendEmailHandler(store, &fakeJobLogs{}, logs, sender, completer, "receipts@example.com")
}

// =====================================================
// TESTS
// =====================================================

func TestSendEmailDeliversWithAttachment(t *testing.T) {
	receipt := emailableReceipt(t)
	store := &fakeReceiptStore{receipt: receipt}
	sender := &fakeEmailSender{}
	logs := &fakeEmailLogs{}
	completer := &fakeCompleter{}
	handler := newEmailHandler(store, sender, logs, completer)

	err := handler.ProcessTask(context.Background(), emailTask(t, receipt.ID))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "avery@example.com", msg.To)
	assert.Contains(t, msg.Subject, "RCP-2026-000031")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "RCP-2026-000031.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)

	assert.True(t, store.emailSent)
	assert.Equal(t, []uuid.UUID{receipt.ID}, completer.tried)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, model.EmailLogSent, logs.entries[0].Status)
	require.NotNil(t, logs.entries[0].MessageID)
	assert.Equal(t, "msg-123", *logs.entries[0].MessageID)
}

func TestSendEmailPermanentFailureStopsRetries(t *testing.T) {
	receipt := emailableReceipt(t)
	store := &fakeReceiptStore{receipt: receipt}
	sender := &fakeEmailSender{sendErr: errors.New("550 5.1.1 user unknown")}
	logs := &fakeEmailLogs{}
	handler := newEmailHandler(store, sender, logs, &fakeCompleter{})

	err := handler.ProcessTask(context.Background(), emailTask(t, receipt.ID))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	require.Len(t, store.permanentReasons, 1)
	assert.Contains(t, store.permanentReasons[0], "user unknown")
	assert.Empty(t, store.attemptErrors, "permanent failure is flagged, not counted for retry")
	assert.False(t, store.emailSent)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, model.EmailLogFailed, logs.entries[0].Status)
	require.NotNil(t, logs.entries[0].ErrorKind)
	assert.Equal(t, string(email.ErrKindInvalidEmail), *logs.entries[0].ErrorKind)
}

func TestSendEmailTransientFailureRetries(t *testing.T) {
	receipt := emailableReceipt(t)
	store := &fakeReceiptStore{receipt: receipt}
	sender := &fakeEmailSender{sendErr: errors.New("connection refused")}
	handler := newEmailHandler(store, sender, &fakeEmailLogs{}, &fakeCompleter{})

	err := handler.ProcessTask(context.Background(), emailTask(t, receipt.ID))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	assert.Len(t, store.attemptErrors, 1)
	assert.Empty(t, store.permanentReasons)
}

func TestSendEmailAlreadySentIsNoOp(t *testing.T) {
	receipt := emailableReceipt(t)
	receipt.EmailSent = true
	store := &fakeReceiptStore{receipt: receipt}
	sender := &fakeEmailSender{}
	handler := newEmailHandler(store, sender, &fakeEmailLogs{}, &fakeCompleter{})

	err := handler.ProcessTask(context.Background(), emailTask(t, receipt.ID))
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendEmailSkipsPermanentlyFailedReceipt(t *testing.T) {
	receipt := emailableReceipt(t)
	receipt.EmailPermanentFailure = true
	store := &fakeReceiptStore{receipt: receipt}
	sender := &fakeEmailSender{}
	handler := newEmailHandler(store, sender, &fakeEmailLogs{}, &fakeCompleter{})

	err := handler.ProcessTask(context.Background(), emailTask(t, receipt.ID))
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendEmailRequiresRenderedPDF(t *testing.T) {
	receipt := emailableReceipt(t)
	receipt.PDFGenerated = false
	receipt.PDFLocalPath = nil
	store := &fakeReceiptStore{receipt: receipt}
	handler := newEmailHandler(store, &fakeEmailSender{}, &fakeEmailLogs{}, &fakeCompleter{})

	err := handler.ProcessTask(context.Background(), emailTask(t, receipt.ID))
	assert.ErrorIs(t, err, model.ErrPDFNotReady)
}

func TestSendEmailUnknownReceiptSkipsRetry(t *testing.T) {
	handler := newEmailHandler(&fakeReceiptStore{}, &fakeEmailSender{}, &fakeEmailLogs{}, &fakeCompleter{})

	err := handler.ProcessTask(context.Background(), emailTask(t, uuid.New()))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
