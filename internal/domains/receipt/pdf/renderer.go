package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"receipt-service/internal/domains/receipt/model"
)

// RenderReceipt draws the receipt document and returns the PDF bytes.
// Pure: it reads only the receipt aggregate and does no IO, so the same
// receipt always renders the same document.
func RenderReceipt(receipt *model.Receipt) ([]byte, error) {
	snap := receipt.Snapshot

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Receipt "+receipt.ReceiptNumber, false)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	// Header
	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 10, snap.StoreName)
	doc.Ln(11)
	doc.SetFont("Helvetica", "", 11)
	doc.SetTextColor(100, 100, 100)
	doc.Cell(0, 6, "Payment Receipt")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(12)

	// Meta block
	meta := [][2]string{
		{"Receipt number", receipt.ReceiptNumber},
		{"Order number", snap.OrderNumber},
		{"Paid at", receipt.PaidAt.Format("2 Jan 2006 15:04 UTC")},
		{"Billed to", snap.CustomerName},
		{"Email", snap.CustomerEmail},
	}
	for _, row := range meta {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	// Line items
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(70, 7, "Item", "1", 0, "L", true, 0, "")
	doc.CellFormat(30, 7, "SKU", "1", 0, "L", true, 0, "")
	doc.CellFormat(15, 7, "Qty", "1", 0, "R", true, 0, "")
	doc.CellFormat(35, 7, "Unit price", "1", 0, "R", true, 0, "")
	doc.CellFormat(40, 7, "Line total", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, item := range snap.Items {
		doc.CellFormat(70, 7, item.Name, "1", 0, "L", false, 0, "")
		doc.CellFormat(30, 7, item.SKU, "1", 0, "L", false, 0, "")
		doc.CellFormat(15, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(35, 7, formatMoney(item.UnitPrice, snap.Currency), "1", 0, "R", false, 0, "")
		doc.CellFormat(40, 7, formatMoney(item.LineTotal, snap.Currency), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	// Totals
	totals := [][2]string{
		{"Subtotal", formatMoney(snap.Subtotal, snap.Currency)},
		{"Tax", formatMoney(snap.Tax, snap.Currency)},
		{"Shipping", formatMoney(snap.Shipping, snap.Currency)},
	}
	if snap.Discount.IsPositive() {
		totals = append(totals, [2]string{"Discount", "-" + formatMoney(snap.Discount, snap.Currency)})
	}
	for _, row := range totals {
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(150, 6, row[0], "", 0, "R", false, 0, "")
		doc.CellFormat(40, 6, row[1], "", 1, "R", false, 0, "")
	}
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(150, 8, "Total paid", "T", 0, "R", false, 0, "")
	doc.CellFormat(40, 8, formatMoney(snap.Total, snap.Currency), "T", 1, "R", false, 0, "")

	// Footer
	doc.SetY(-30)
	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(120, 120, 120)
	doc.CellFormat(0, 5, fmt.Sprintf("Transaction %s via %s", receipt.TransactionID, receipt.Provider), "", 1, "C", false, 0, "")
	doc.CellFormat(0, 5, "This receipt was generated automatically. Keep it for your records.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}
