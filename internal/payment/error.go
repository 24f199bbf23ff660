package payment

import "errors"

var (
	ErrEmptyReference      = errors.New("payment reference is empty")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
)
