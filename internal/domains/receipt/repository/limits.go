package repository

import "receipt-service/internal/shared"

// Attempt ceilings used by the recovery scans. Receipts at or over the
// ceiling are never re-enqueued, only flagged.
const (
	maxPDFAttempts    = shared.MaxPDFAttempts
	maxUploadAttempts = shared.MaxUploadAttempts
	maxEmailAttempts  = shared.MaxEmailAttempts
)
