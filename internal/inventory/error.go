package inventory

import "errors"

var (
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrDuplicateMovement = errors.New("stock movement already recorded")
)
