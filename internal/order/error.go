package order

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderHasNoItems = errors.New("order has no items")
)
