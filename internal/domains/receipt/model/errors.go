package model

import "errors"

var (
	ErrReceiptNotFound         = errors.New("receipt not found")
	ErrDuplicateReceiptNumber  = errors.New("receipt number already taken")
	ErrDuplicateTransactionRef = errors.New("receipt already exists for transaction")
	ErrPDFNotReady             = errors.New("receipt pdf has not been generated yet")
)
