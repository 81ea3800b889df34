package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiendc/go-deepcopy"

	ordermodel "receipt-service/internal/domains/order/model"
	receiptmodel "receipt-service/internal/domains/receipt/model"
)

// The snapshot must be a frozen copy. Editing the order after the commit
// must never show up in an already issued receipt.
func TestOrderSnapshotIsIndependent(t *testing.T) {
	order := &ordermodel.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-2026-77",
		StoreName:     "North End Books",
		CustomerName:  "Avery Quinn",
		CustomerEmail: "avery@example.com",
		Items: []ordermodel.OrderItem{
			{SKU: "BK-001", Name: "The Silent Harbor", Quantity: 1, UnitPrice: decimal.RequireFromString("19.99"), LineTotal: decimal.RequireFromString("19.99")},
		},
		Subtotal: decimal.RequireFromString("19.99"),
		Total:    decimal.RequireFromString("19.99"),
		Currency: "USD",
	}

	var snapshot receiptmodel.OrderSnapshot
	require.NoError(t, deepcopy.Copy(&snapshot, order))

	assert.Equal(t, "ORD-2026-77", snapshot.OrderNumber)
	assert.Equal(t, "North End Books", snapshot.StoreName)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "BK-001", snapshot.Items[0].SKU)
	assert.True(t, snapshot.Total.Equal(order.Total))

	order.CustomerName = "Someone Else"
	order.Items[0].Name = "Renamed"
	order.Items[0].Quantity = 99
	order.Total = decimal.RequireFromString("0.01")

	assert.Equal(t, "Avery Quinn", snapshot.CustomerName)
	assert.Equal(t, "The Silent Harbor", snapshot.Items[0].Name)
	assert.Equal(t, 1, snapshot.Items[0].Quantity)
	assert.True(t, snapshot.Total.Equal(decimal.RequireFromString("19.99")))
}
