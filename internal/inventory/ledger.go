package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"orderkeeper-be/internal/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// Ledger is the only writer allowed to take stock out of a variant for a paid
// order. It never opens its own transaction: the caller's tx must also hold
// the order claim so that the deduction and the status flip commit together.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Deduct removes qty units of variantID for orderID and appends a sale
// movement. It returns (nil, nil) when a sale movement for the pair already
// exists. Insufficient stock is not an error: payment has cleared, so the
// deduction goes through and the oversell is logged as CRITICAL.
func (l *Ledger) Deduct(
	ctx context.Context,
	tx *sql.Tx,
	orderID int64,
	variantID string,
	qty int,
	reason string,
) (*StockMovement, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.String("method", "Deduct"),
		zap.Int64("order_id", orderID),
		zap.String("variant_id", variantID),
		zap.Int("quantity", qty),
	)

	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM stock_movements
			WHERE order_id = $1 AND variant_id = $2 AND type = $3
		)
	`, orderID, variantID, MovementSale).Scan(&exists)
	if err != nil {
		log.Error("failed to check existing movement", zap.Error(err))
		return nil, err
	}
	if exists {
		log.Warn("sale movement already recorded, skipping deduction")
		return nil, nil
	}

	var v Variant
	err = tx.QueryRowContext(ctx, `
		SELECT id, sku, stock
		FROM variants
		WHERE id = $1
		FOR UPDATE
	`, variantID).Scan(&v.ID, &v.SKU, &v.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Error("variant not found for paid order")
			return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, variantID)
		}
		log.Error("failed to lock variant", zap.Error(err))
		return nil, err
	}

	newStock := v.Stock - qty
	if v.Stock < qty {
		logger.Critical(log, "insufficient stock for paid order, deducting anyway",
			zap.String("sku", v.SKU),
			zap.Int("available", v.Stock),
			zap.Int("new_stock", newStock),
		)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE variants
		SET stock = $1, updated_at = NOW()
		WHERE id = $2
	`, newStock, v.ID); err != nil {
		log.Error("failed to update variant stock", zap.Error(err))
		return nil, err
	}

	m := &StockMovement{
		VariantID:     v.ID,
		OrderID:       orderID,
		Type:          MovementSale,
		Quantity:      -qty,
		PreviousStock: v.Stock,
		NewStock:      newStock,
		Reason:        reason,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO stock_movements (
			variant_id, order_id, type, quantity,
			previous_stock, new_stock, reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`,
		m.VariantID,
		m.OrderID,
		m.Type,
		m.Quantity,
		m.PreviousStock,
		m.NewStock,
		m.Reason,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("concurrent sale movement detected", zap.Error(err))
			return nil, fmt.Errorf("%w: order %d variant %s", ErrDuplicateMovement, orderID, variantID)
		}
		log.Error("failed to insert stock movement", zap.Error(err))
		return nil, err
	}

	log.Debug("stock deducted",
		zap.String("sku", v.SKU),
		zap.Int("previous_stock", m.PreviousStock),
		zap.Int("new_stock", m.NewStock),
	)

	return m, nil
}

// isUniqueViolation understands both supported drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
