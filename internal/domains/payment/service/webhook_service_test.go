package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-service/internal/config"
	"receipt-service/internal/domains/payment/gateway"
	"receipt-service/internal/domains/payment/model"
)

// =====================================================
// FAKES
// =====================================================

type fakeWebhookLogRepo struct {
	rows      map[string]*model.WebhookLog
	processed []string
	failed    []string
}

func newFakeWebhookLogRepo() *fakeWebhookLogRepo {
	return &fakeWebhookLogRepo{rows: make(map[string]*model.WebhookLog)}
}

func (f *fakeWebhookLogRepo) Create(_ context.Context, log *model.WebhookLog) error {
	if _, ok := f.rows[log.WebhookID]; ok {
		return model.ErrDuplicateWebhook
	}
	f.rows[log.WebhookID] = log
	return nil
}

func (f *fakeWebhookLogRepo) GetByWebhookID(_ context.Context, webhookID string) (*model.WebhookLog, error) {
	if log, ok := f.rows[webhookID]; ok {
		return log, nil
	}
	return nil, model.ErrWebhookLogNotFound
}

func (f *fakeWebhookLogRepo) MarkProcessed(_ context.Context, id uuid.UUID, outcome string, orderID *uuid.UUID, transactionID *string) error {
	f.processed = append(f.processed, outcome)
	for _, log := range f.rows {
		if log.ID == id {
			log.Processed = true
			log.Outcome = &outcome
			log.OrderID = orderID
			log.TransactionID = transactionID
		}
	}
	return nil
}

func (f *fakeWebhookLogRepo) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.failed = append(f.failed, lastError)
	return nil
}

func (f *fakeWebhookLogRepo) ListRecent(_ context.Context, _ string, _ int) ([]*model.WebhookLog, error) {
	return nil, nil
}

func (f *fakeWebhookLogRepo) DeleteExpired(_ context.Context, _ int) (int64, error) {
	return 0, nil
}

type fakePaymentService struct {
	commitResult *model.CommitResult
	commitErr    error
	failedResult *model.CommitResult
	commits      []model.CommitInput
	failures     []model.CommitInput
}

func (f *fakePaymentService) CommitSuccessfulPayment(_ context.Context, in model.CommitInput) (*model.CommitResult, error) {
	f.commits = append(f.commits, in)
	return f.commitResult, f.commitErr
}

func (f *fakePaymentService) RecordFailedPayment(_ context.Context, in model.CommitInput, _ string) (*model.CommitResult, error) {
	f.failures = append(f.failures, in)
	if f.failedResult != nil {
		return f.failedResult, nil
	}
	return &model.CommitResult{Type: model.CommitProcessed}, nil
}

// =====================================================
// HELPERS
// =====================================================

const testSecret = "whsec_test"

func testConfig() config.PaymentsConfig {
	return config.PaymentsConfig{
		WebhookSecrets: map[string]string{"acmepay": testSecret},
	}
}

func signedRequest(orderID uuid.UUID, status string) model.IntakeRequest {
	payload := []byte(fmt.Sprintf(
		`{"transaction_id":"txn_1","order_id":"%s","status":"%s","amount":"50.00","currency":"USD"}`,
		orderID, status,
	))
	return model.IntakeRequest{
		Provider:   "acmepay",
		WebhookID:  "wh_1",
		Signature:  gateway.Sign(testSecret, payload),
		RawPayload: payload,
	}
}

// =====================================================
// TESTS
// =====================================================

func TestProcessWebhookInvalidSignature(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	committer := &fakePaymentService{}
	svc := NewWebhookService(testConfig(), logs, committer)

	req := signedRequest(uuid.New(), "succeeded")
	req.Signature = "deadbeef"

	result, err := svc.ProcessWebhook(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, model.ResultInvalidSignature, result.Type)
	assert.Empty(t, committer.commits, "commit must not run on bad signature")

	// Rejection is still audited.
	row := logs.rows["wh_1"]
	require.NotNil(t, row)
	assert.False(t, row.SignatureValid)
	assert.Equal(t, model.OutcomeValidationFailed, *row.Outcome)
}

func TestProcessWebhookUnknownProviderRejected(t *testing.T) {
	svc := NewWebhookService(testConfig(), newFakeWebhookLogRepo(), &fakePaymentService{})

	req := signedRequest(uuid.New(), "succeeded")
	req.Provider = "nobody"

	result, err := svc.ProcessWebhook(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.ResultInvalidSignature, result.Type)
	assert.Equal(t, model.ErrUnknownProvider.Error(), result.Message)
}

func TestProcessWebhookMockBypassWhenEnabled(t *testing.T) {
	receiptID := uuid.New()
	committer := &fakePaymentService{
		commitResult: &model.CommitResult{Type: model.CommitProcessed, ReceiptID: &receiptID},
	}
	cfg := config.PaymentsConfig{AllowMockProvider: true}
	svc := NewWebhookService(cfg, newFakeWebhookLogRepo(), committer)

	orderID := uuid.New()
	payload := []byte(fmt.Sprintf(
		`{"transaction_id":"txn_mock","order_id":"%s","status":"succeeded","amount":"10","currency":"USD"}`, orderID,
	))
	result, err := svc.ProcessWebhook(context.Background(), model.IntakeRequest{
		Provider:   "mock",
		WebhookID:  "wh_mock",
		RawPayload: payload,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ResultProcessed, result.Type)
}

func TestProcessWebhookMockRejectedWhenDisabled(t *testing.T) {
	svc := NewWebhookService(config.PaymentsConfig{}, newFakeWebhookLogRepo(), &fakePaymentService{})

	result, err := svc.ProcessWebhook(context.Background(), model.IntakeRequest{
		Provider:   "mock",
		WebhookID:  "wh_mock",
		RawPayload: []byte(`{"transaction_id":"t","order_id":"o","status":"succeeded","amount":"1"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ResultInvalidSignature, result.Type)
}

func TestProcessWebhookMalformedPayload(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	svc := NewWebhookService(testConfig(), logs, &fakePaymentService{})

	payload := []byte(`{"status":"succeeded"}`)
	result, err := svc.ProcessWebhook(context.Background(), model.IntakeRequest{
		Provider:   "acmepay",
		WebhookID:  "wh_bad",
		Signature:  gateway.Sign(testSecret, payload),
		RawPayload: payload,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, model.ResultValidationFailed, result.Type)

	row := logs.rows["wh_bad"]
	require.NotNil(t, row)
	assert.True(t, row.SignatureValid)
}

func TestProcessWebhookDuplicateDelivery(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	committer := &fakePaymentService{
		commitResult: &model.CommitResult{Type: model.CommitProcessed},
	}
	svc := NewWebhookService(testConfig(), logs, committer)

	req := signedRequest(uuid.New(), "succeeded")

	first, err := svc.ProcessWebhook(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.ResultProcessed, first.Type)

	second, err := svc.ProcessWebhook(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, model.ResultDuplicate, second.Type)

	assert.Len(t, committer.commits, 1, "redelivery must not commit twice")
}

func TestProcessWebhookRetriesAfterCommitFailure(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	committer := &fakePaymentService{commitErr: errors.New("db connection reset")}
	svc := NewWebhookService(testConfig(), logs, committer)

	req := signedRequest(uuid.New(), "succeeded")

	// First delivery hits an internal failure; the handler answers 500 and
	// the provider redelivers.
	_, err := svc.ProcessWebhook(context.Background(), req)
	require.Error(t, err)
	require.Len(t, logs.failed, 1)

	receiptID := uuid.New()
	committer.commitErr = nil
	committer.commitResult = &model.CommitResult{Type: model.CommitProcessed, ReceiptID: &receiptID}

	// The redelivery must not be swallowed by the duplicate gate; the
	// unprocessed audit row gets re-dispatched.
	result, err := svc.ProcessWebhook(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ResultProcessed, result.Type)
	assert.Len(t, committer.commits, 2, "the redelivery must re-run the commit")
	assert.Len(t, logs.rows, 1, "the redelivery reuses the original audit row")
	assert.Contains(t, logs.processed, model.OutcomeSuccess)
}

func TestProcessWebhookSucceededCommits(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	receiptID := uuid.New()
	committer := &fakePaymentService{
		commitResult: &model.CommitResult{Type: model.CommitProcessed, ReceiptID: &receiptID},
	}
	svc := NewWebhookService(testConfig(), logs, committer)

	orderID := uuid.New()
	result, err := svc.ProcessWebhook(context.Background(), signedRequest(orderID, "succeeded"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ResultProcessed, result.Type)
	assert.Equal(t, receiptID.String(), result.Data["receiptId"])

	require.Len(t, committer.commits, 1)
	assert.Equal(t, orderID, committer.commits[0].OrderID)
	assert.Equal(t, "txn_1", committer.commits[0].TransactionID)
	assert.Contains(t, logs.processed, model.OutcomeSuccess)
}

func TestProcessWebhookAlreadyProcessed(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	receiptID := uuid.New()
	committer := &fakePaymentService{
		commitResult: &model.CommitResult{Type: model.CommitAlreadyProcessed, ReceiptID: &receiptID},
	}
	svc := NewWebhookService(testConfig(), logs, committer)

	result, err := svc.ProcessWebhook(context.Background(), signedRequest(uuid.New(), "succeeded"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ResultAlreadyProcessed, result.Type)
	assert.Contains(t, logs.processed, model.OutcomeDuplicate)
}

func TestProcessWebhookValidationFailedWithRefund(t *testing.T) {
	committer := &fakePaymentService{
		commitResult: &model.CommitResult{
			Type:           model.CommitValidationFailed,
			Message:        "order is cancelled",
			RequiresRefund: true,
		},
	}
	svc := NewWebhookService(testConfig(), newFakeWebhookLogRepo(), committer)

	result, err := svc.ProcessWebhook(context.Background(), signedRequest(uuid.New(), "succeeded"))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, model.ResultValidationFailed, result.Type)
	assert.Equal(t, true, result.Data["requiresRefund"])
}

func TestProcessWebhookFailedPayment(t *testing.T) {
	committer := &fakePaymentService{}
	svc := NewWebhookService(testConfig(), newFakeWebhookLogRepo(), committer)

	result, err := svc.ProcessWebhook(context.Background(), signedRequest(uuid.New(), "failed"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ResultPaymentFailed, result.Type)
	assert.Len(t, committer.failures, 1)
	assert.Empty(t, committer.commits)
}

func TestProcessWebhookIgnoredStatus(t *testing.T) {
	committer := &fakePaymentService{}
	logs := newFakeWebhookLogRepo()
	svc := NewWebhookService(testConfig(), logs, committer)

	result, err := svc.ProcessWebhook(context.Background(), signedRequest(uuid.New(), "pending"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ResultIgnored, result.Type)
	assert.Empty(t, committer.commits)
	assert.Empty(t, committer.failures)
	assert.Contains(t, logs.processed, model.OutcomeIgnored)
}

func TestProcessWebhookSynthesizesMissingID(t *testing.T) {
	logs := newFakeWebhookLogRepo()
	committer := &fakePaymentService{
		commitResult: &model.CommitResult{Type: model.CommitProcessed},
	}
	svc := NewWebhookService(testConfig(), logs, committer)

	req := signedRequest(uuid.New(), "succeeded")
	req.WebhookID = ""

	_, err := svc.ProcessWebhook(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, logs.rows, 1)
	for webhookID := range logs.rows {
		assert.True(t, strings.HasPrefix(webhookID, "webhook_"))
	}
}
