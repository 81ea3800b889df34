package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"receipt-service/internal/domains/receipt/model"
)

// RenderedEmail is the subject and both bodies for one receipt email.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

type templateData struct {
	ReceiptNumber string
	OrderNumber   string
	StoreName     string
	CustomerName  string
	Total         string
	PaidAt        string
}

var htmlBody = htmltemplate.Must(htmltemplate.New("receipt_html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Thanks for your purchase, {{.CustomerName}}!</h2>
  <p>Your payment to <strong>{{.StoreName}}</strong> went through on {{.PaidAt}}.</p>
  <table cellpadding="4">
    <tr><td>Receipt number</td><td><strong>{{.ReceiptNumber}}</strong></td></tr>
    <tr><td>Order number</td><td>{{.OrderNumber}}</td></tr>
    <tr><td>Total paid</td><td><strong>{{.Total}}</strong></td></tr>
  </table>
  <p>Your receipt is attached as a PDF.</p>
  <p style="color: #888; font-size: 12px;">This is an automated message, replies are not monitored.</p>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("receipt_text").Parse(`Thanks for your purchase, {{.CustomerName}}!

Your payment to {{.StoreName}} went through on {{.PaidAt}}.

  Receipt number: {{.ReceiptNumber}}
  Order number:   {{.OrderNumber}}
  Total paid:     {{.Total}}

Your receipt is attached as a PDF.

This is an automated message, replies are not monitored.
`))

// RenderEmail builds the receipt email for one receipt.
func RenderEmail(receipt *model.Receipt) (*RenderedEmail, error) {
	snap := receipt.Snapshot
	data := templateData{
		ReceiptNumber: receipt.ReceiptNumber,
		OrderNumber:   snap.OrderNumber,
		StoreName:     snap.StoreName,
		CustomerName:  snap.CustomerName,
		Total:         formatMoney(snap.Total, snap.Currency),
		PaidAt:        receipt.PaidAt.Format("2 Jan 2006"),
	}

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html email body: %w", err)
	}

	var text bytes.Buffer
	if err := textBody.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text email body: %w", err)
	}

	return &RenderedEmail{
		Subject: fmt.Sprintf("Your receipt %s from %s", receipt.ReceiptNumber, snap.StoreName),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}
