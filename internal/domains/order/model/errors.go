package model

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderPaid      = errors.New("order already paid")
	ErrOrderCancelled = errors.New("order is cancelled")
)
