package pdf

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-service/internal/domains/receipt/model"
)

func testReceipt() *model.Receipt {
	return &model.Receipt{
		ID:            uuid.New(),
		ReceiptNumber: "RCP-2026-000042",
		TransactionID: "txn_test_1",
		Provider:      "paystack",
		Amount:        decimal.RequireFromString("64.97"),
		Currency:      "USD",
		PaidAt:        time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
		Snapshot: model.OrderSnapshot{
			OrderNumber:   "ORD-2026-1001",
			StoreName:     "North End Books",
			CustomerName:  "Avery Quinn",
			CustomerEmail: "avery@example.com",
			Items: []model.SnapshotItem{
				{SKU: "BK-001", Name: "The Silent Harbor", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), LineTotal: decimal.RequireFromString("39.98")},
				{SKU: "BK-002", Name: "Maps of Nowhere", Quantity: 1, UnitPrice: decimal.RequireFromString("24.99"), LineTotal: decimal.RequireFromString("24.99")},
			},
			Subtotal: decimal.RequireFromString("64.97"),
			Tax:      decimal.Zero,
			Shipping: decimal.Zero,
			Discount: decimal.Zero,
			Total:    decimal.RequireFromString("64.97"),
			Currency: "USD",
		},
	}
}

func TestRenderReceipt(t *testing.T) {
	content, err := RenderReceipt(testReceipt())
	require.NoError(t, err)

	assert.Greater(t, len(content), 1000)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestRenderReceiptWithDiscount(t *testing.T) {
	receipt := testReceipt()
	receipt.Snapshot.Discount = decimal.RequireFromString("5.00")

	content, err := RenderReceipt(receipt)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestRenderReceiptNoItems(t *testing.T) {
	receipt := testReceipt()
	receipt.Snapshot.Items = nil

	content, err := RenderReceipt(receipt)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content[:4]))
}
