package model

// Payment transaction statuses. A transaction row is only ever written in a
// terminal state, there is no in-flight status.
const (
	PaymentStatusSucceeded = "SUCCEEDED"
	PaymentStatusFailed    = "FAILED"
)

// Webhook log outcomes.
const (
	OutcomeSuccess          = "SUCCESS"
	OutcomeValidationFailed = "VALIDATION_FAILED"
	OutcomeProcessingFailed = "PROCESSING_FAILED"
	OutcomeDuplicate        = "DUPLICATE"
	OutcomeIgnored          = "IGNORED"
)

// Intake result types returned to the provider. The endpoint answers 200
// for all of these so the provider stops redelivering.
const (
	ResultProcessed        = "processed"
	ResultDuplicate        = "duplicate"
	ResultValidationFailed = "validation_failed"
	ResultInvalidSignature = "invalid_signature"
	ResultAlreadyProcessed = "already_processed"
	ResultPaymentFailed    = "payment_failed"
	ResultIgnored          = "ignored"
)

// WebhookLogTTL is how long audit rows are kept before the cleanup job
// removes them.
const WebhookLogTTLDays = 3
