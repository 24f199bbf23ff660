package inventory

import "time"

type MovementType string

const (
	MovementSale MovementType = "sale"
)

type Variant struct {
	ID    string
	SKU   string
	Stock int
}

// StockMovement is an append-only ledger row. A sale row for (order, variant)
// is the proof that the order's stock has been deducted.
type StockMovement struct {
	ID            int64
	VariantID     string
	OrderID       int64
	Type          MovementType
	Quantity      int
	PreviousStock int
	NewStock      int
	Reason        string
	CreatedAt     time.Time
}
