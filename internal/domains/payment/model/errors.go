package model

import "errors"

var (
	ErrWebhookLogNotFound     = errors.New("webhook log not found")
	ErrDuplicateWebhook       = errors.New("webhook already received")
	ErrDuplicateTransaction   = errors.New("payment transaction already recorded")
	ErrUnknownProvider        = errors.New("no webhook secret configured for provider")
	ErrReceiptNumberExhausted = errors.New("could not allocate a unique receipt number")
)
