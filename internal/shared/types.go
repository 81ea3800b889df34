package shared

// Queue names. Weights are configured in cmd/worker; the ratios give the
// email pool the most slots and the recovery scan a single one.
const (
	QueueReceiptGeneration = "receipt-generation"
	QueueCloudinaryUpload  = "cloudinary-upload"
	QueueEmailDelivery     = "email-delivery"
	QueueRecovery          = "recovery-scan"
)

// Task type names.
const (
	TypeGenerateReceiptPDF = "receipt:generate"
	TypeUploadReceiptPDF   = "receipt:upload"
	TypeSendReceiptEmail   = "receipt:send_email"
	TypeRecoveryScan       = "receipt:recovery_scan"
	TypeCleanupLogs        = "receipt:cleanup_logs"
	TypeCleanupArtifacts   = "receipt:cleanup_artifacts"
)

// Per-stage attempt budgets. The receipt row's counters are the source of
// truth; these caps also bound asynq's MaxRetry per task.
const (
	MaxPDFAttempts    = 3
	MaxUploadAttempts = 5
	MaxEmailAttempts  = 5
)

// ReceiptTaskPayload is the payload for all three fulfillment stages.
// IsRecovery marks jobs re-enqueued by the recovery scan; they run at low
// priority and are flagged in job_logs.
type ReceiptTaskPayload struct {
	ReceiptID  string `json:"receipt_id"`
	IsRecovery bool   `json:"is_recovery,omitempty"`
}

// RecoveryScanPayload bounds a single sweep.
type RecoveryScanPayload struct {
	Limit int `json:"limit"`
}

// CleanupPayload bounds a single cleanup run.
type CleanupPayload struct {
	Limit int `json:"limit"`
}
