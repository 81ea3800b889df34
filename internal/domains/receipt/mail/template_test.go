package mail

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-service/internal/domains/receipt/model"
)

func TestRenderEmail(t *testing.T) {
	receipt := &model.Receipt{
		ID:            uuid.New(),
		ReceiptNumber: "RCP-2026-000007",
		PaidAt:        time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		Snapshot: model.OrderSnapshot{
			OrderNumber:  "ORD-2026-55",
			StoreName:    "North End Books",
			CustomerName: "Avery Quinn",
			Total:        decimal.RequireFromString("42.00"),
			Currency:     "USD",
		},
	}

	rendered, err := RenderEmail(receipt)
	require.NoError(t, err)

	assert.Contains(t, rendered.Subject, "RCP-2026-000007")
	assert.Contains(t, rendered.Subject, "North End Books")

	assert.Contains(t, rendered.HTML, "Avery Quinn")
	assert.Contains(t, rendered.HTML, "RCP-2026-000007")
	assert.Contains(t, rendered.HTML, "USD 42.00")

	assert.Contains(t, rendered.Text, "ORD-2026-55")
	assert.Contains(t, rendered.Text, "USD 42.00")
}

func TestRenderEmailEscapesHTML(t *testing.T) {
	receipt := &model.Receipt{
		ReceiptNumber: "RCP-2026-000008",
		PaidAt:        time.Now(),
		Snapshot: model.OrderSnapshot{
			CustomerName: `<script>alert("x")</script>`,
			StoreName:    "Store",
			Total:        decimal.Zero,
			Currency:     "USD",
		},
	}

	rendered, err := RenderEmail(receipt)
	require.NoError(t, err)
	assert.NotContains(t, rendered.HTML, "<script>")
}
