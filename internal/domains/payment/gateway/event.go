package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =====================================================
// NORMALIZED WEBHOOK EVENT
// =====================================================

// Payment event statuses after normalization. Anything else is ignored by
// the intake dispatcher.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Provider names with dedicated payload shapes. Every other provider goes
// through the generic identity mapping.
const (
	ProviderPaystack = "paystack"
	ProviderMock     = "mock"
)

// NormalizedEvent is the canonical shape every provider payload is parsed
// into before the commit path runs.
type NormalizedEvent struct {
	Provider      string
	TransactionID string
	OrderID       string
	Status        string
	Amount        decimal.Decimal
	Currency      string
}

// WebhookEvent is the provider payload sum type. Each variant knows how to
// map its own wire shape onto a NormalizedEvent.
type WebhookEvent interface {
	Normalize() (*NormalizedEvent, error)
}

// ParseEvent decodes raw webhook bytes into the provider's event variant.
func ParseEvent(provider string, raw []byte) (WebhookEvent, error) {
	switch provider {
	case ProviderPaystack:
		var evt PaystackEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("failed to parse paystack payload: %w", err)
		}
		return &evt, nil
	case ProviderMock:
		var evt MockEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("failed to parse mock payload: %w", err)
		}
		return &evt, nil
	default:
		var evt GenericEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("failed to parse %s payload: %w", provider, err)
		}
		evt.Provider = provider
		return &evt, nil
	}
}

// =====================================================
// PAYSTACK
// =====================================================

// PaystackEvent mirrors the provider envelope:
// data.object.id -> transaction id, data.object.metadata.order_id -> order,
// type "payment_intent.succeeded" -> succeeded, anything else -> failed.
type PaystackEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string      `json:"id"`
			Amount   json.Number `json:"amount"`
			Currency string      `json:"currency"`
			Metadata struct {
				OrderID string `json:"order_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (e *PaystackEvent) Normalize() (*NormalizedEvent, error) {
	obj := e.Data.Object
	if obj.ID == "" {
		return nil, fmt.Errorf("paystack event missing data.object.id")
	}
	if obj.Metadata.OrderID == "" {
		return nil, fmt.Errorf("paystack event missing metadata.order_id")
	}

	amount, err := parseAmount(obj.Amount)
	if err != nil {
		return nil, fmt.Errorf("paystack event has invalid amount: %w", err)
	}

	status := StatusFailed
	if e.Type == "payment_intent.succeeded" {
		status = StatusSucceeded
	}

	return &NormalizedEvent{
		Provider:      ProviderPaystack,
		TransactionID: obj.ID,
		OrderID:       obj.Metadata.OrderID,
		Status:        status,
		Amount:        amount,
		Currency:      obj.Currency,
	}, nil
}

// =====================================================
// MOCK (test fixture)
// =====================================================

// MockEvent already carries the canonical keys.
type MockEvent struct {
	TransactionID string      `json:"transaction_id"`
	OrderID       string      `json:"order_id"`
	Status        string      `json:"status"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
}

func (e *MockEvent) Normalize() (*NormalizedEvent, error) {
	return normalizeCanonical(ProviderMock, e.TransactionID, e.OrderID, e.Status, e.Amount, e.Currency)
}

// =====================================================
// GENERIC (identity mapping)
// =====================================================

// GenericEvent handles unknown providers that send the canonical keys.
type GenericEvent struct {
	Provider      string      `json:"-"`
	TransactionID string      `json:"transaction_id"`
	OrderID       string      `json:"order_id"`
	Status        string      `json:"status"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
}

func (e *GenericEvent) Normalize() (*NormalizedEvent, error) {
	return normalizeCanonical(e.Provider, e.TransactionID, e.OrderID, e.Status, e.Amount, e.Currency)
}

func normalizeCanonical(provider, transactionID, orderID, status string, amount json.Number, currency string) (*NormalizedEvent, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("%s event missing transaction_id", provider)
	}
	if orderID == "" {
		return nil, fmt.Errorf("%s event missing order_id", provider)
	}

	parsed, err := parseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("%s event has invalid amount: %w", provider, err)
	}

	return &NormalizedEvent{
		Provider:      provider,
		TransactionID: transactionID,
		OrderID:       orderID,
		Status:        status,
		Amount:        parsed,
		Currency:      currency,
	}, nil
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n.String() == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	return decimal.NewFromString(n.String())
}
