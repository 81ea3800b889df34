package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaystackEventNormalize(t *testing.T) {
	raw := []byte(`{
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "txn_abc",
				"amount": "149.99",
				"currency": "USD",
				"metadata": {"order_id": "7e575b74-4bba-4783-8d77-0b12d64b0b1a"}
			}
		}
	}`)

	evt, err := ParseEvent(ProviderPaystack, raw)
	require.NoError(t, err)

	norm, err := evt.Normalize()
	require.NoError(t, err)

	assert.Equal(t, ProviderPaystack, norm.Provider)
	assert.Equal(t, "txn_abc", norm.TransactionID)
	assert.Equal(t, "7e575b74-4bba-4783-8d77-0b12d64b0b1a", norm.OrderID)
	assert.Equal(t, StatusSucceeded, norm.Status)
	assert.True(t, norm.Amount.Equal(decimal.RequireFromString("149.99")))
	assert.Equal(t, "USD", norm.Currency)
}

func TestPaystackEventNonSuccessTypeIsFailed(t *testing.T) {
	raw := []byte(`{
		"type": "payment_intent.payment_failed",
		"data": {"object": {"id": "txn_1", "amount": "10", "currency": "USD", "metadata": {"order_id": "o1"}}}
	}`)

	evt, err := ParseEvent(ProviderPaystack, raw)
	require.NoError(t, err)

	norm, err := evt.Normalize()
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, norm.Status)
}

func TestPaystackEventMissingFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing transaction id", `{"type":"payment_intent.succeeded","data":{"object":{"amount":"10","metadata":{"order_id":"o1"}}}}`},
		{"missing order id", `{"type":"payment_intent.succeeded","data":{"object":{"id":"txn_1","amount":"10","metadata":{}}}}`},
		{"missing amount", `{"type":"payment_intent.succeeded","data":{"object":{"id":"txn_1","metadata":{"order_id":"o1"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := ParseEvent(ProviderPaystack, []byte(tt.raw))
			require.NoError(t, err)

			_, err = evt.Normalize()
			assert.Error(t, err)
		})
	}
}

func TestMockEventNormalize(t *testing.T) {
	raw := []byte(`{"transaction_id":"txn_mock","order_id":"o1","status":"succeeded","amount":25.50,"currency":"EUR"}`)

	evt, err := ParseEvent(ProviderMock, raw)
	require.NoError(t, err)

	norm, err := evt.Normalize()
	require.NoError(t, err)

	assert.Equal(t, ProviderMock, norm.Provider)
	assert.Equal(t, "txn_mock", norm.TransactionID)
	assert.True(t, norm.Amount.Equal(decimal.RequireFromString("25.5")))
}

func TestGenericEventNormalize(t *testing.T) {
	raw := []byte(`{"transaction_id":"txn_x","order_id":"o2","status":"failed","amount":"12.00","currency":"GBP"}`)

	evt, err := ParseEvent("acmepay", raw)
	require.NoError(t, err)

	norm, err := evt.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "acmepay", norm.Provider)
	assert.Equal(t, StatusFailed, norm.Status)
}

func TestParseEventMalformedJSON(t *testing.T) {
	_, err := ParseEvent(ProviderPaystack, []byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseEvent("acmepay", []byte(`[]`))
	assert.Error(t, err)
}
