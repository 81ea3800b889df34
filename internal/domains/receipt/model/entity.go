package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt statuses.
const (
	ReceiptStatusPending   = "PENDING"
	ReceiptStatusCompleted = "COMPLETED"
	ReceiptStatusFailed    = "FAILED"
)

// Receipt is the fulfillment aggregate created atomically with the payment
// commit. The three pairs of flag plus attempt counters are the source of
// truth for pipeline progress; queue state is only a delivery mechanism.
type Receipt struct {
	ID            uuid.UUID       `json:"id"`
	ReceiptNumber string          `json:"receiptNumber"`
	TransactionID string          `json:"transactionId"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        uuid.UUID       `json:"userId"`
	StoreID       uuid.UUID       `json:"storeId"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Snapshot      OrderSnapshot   `json:"snapshot"`
	Status        string          `json:"status"`

	PDFGenerated          bool       `json:"pdfGenerated"`
	PDFLocalPath          *string    `json:"pdfLocalPath,omitempty"`
	PDFSizeBytes          *int64     `json:"pdfSizeBytes,omitempty"`
	PDFGeneratedAt        *time.Time `json:"pdfGeneratedAt,omitempty"`
	PDFGenerationAttempts int        `json:"pdfGenerationAttempts"`

	CloudinaryUploaded       bool       `json:"cloudinaryUploaded"`
	CloudinaryPublicID       *string    `json:"cloudinaryPublicId,omitempty"`
	CloudinarySecureURL      *string    `json:"cloudinarySecureUrl,omitempty"`
	CloudinaryUploadedAt     *time.Time `json:"cloudinaryUploadedAt,omitempty"`
	CloudinaryUploadAttempts int        `json:"cloudinaryUploadAttempts"`

	EmailSent             bool       `json:"emailSent"`
	EmailSentAt           *time.Time `json:"emailSentAt,omitempty"`
	EmailSendAttempts     int        `json:"emailSendAttempts"`
	EmailLastError        *string    `json:"emailLastError,omitempty"`
	EmailPermanentFailure bool       `json:"emailPermanentFailure"`

	PaidAt      time.Time  `json:"paidAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AllStagesDone reports whether every fulfillment flag is set.
func (r *Receipt) AllStagesDone() bool {
	return r.PDFGenerated && r.CloudinaryUploaded && r.EmailSent
}

// OrderSnapshot freezes the order as it was at payment time. Later edits to
// the order never change what the receipt shows.
type OrderSnapshot struct {
	OrderNumber   string          `json:"orderNumber"`
	StoreName     string          `json:"storeName"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Items         []SnapshotItem  `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Shipping      decimal.Decimal `json:"shipping"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}

// SnapshotItem is one frozen order line.
type SnapshotItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}
