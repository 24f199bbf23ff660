package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orderkeeper-be/internal/inventory"
	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	FindAwaitingVerification(
		ctx context.Context,
		from, to time.Time,
		limit int,
	) ([]*Order, error)

	FindExpiredPending(
		ctx context.Context,
		cutoff time.Time,
		limit int,
	) ([]*Order, error)

	GetByReference(ctx context.Context, reference string) (*Order, error)

	// ConfirmPaid claims a pending order, deducts stock for each item and
	// marks it processing/paid in one transaction. It returns false when the
	// order was already settled by another path.
	ConfirmPaid(
		ctx context.Context,
		orderID int64,
		channel string,
		paidAt time.Time,
	) (bool, error)

	// CancelPending moves a pending/pending order to cancelled/failed and
	// reports whether this call made the transition.
	CancelPending(ctx context.Context, orderID int64) (bool, error)
}

type repository struct {
	db     *sql.DB
	ledger *inventory.Ledger
}

func NewRepository(db *sql.DB, ledger *inventory.Ledger) Repository {
	return &repository{db: db, ledger: ledger}
}

const orderColumns = `
	id, order_number, user_id, status, payment_status,
	paystack_reference, coupon_code, total_amount, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.PaystackReference,
		&o.CouponCode,
		&o.TotalAmount,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) queryOrders(ctx context.Context, log *zap.Logger, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}

	return orders, nil
}

// FindAwaitingVerification returns pending orders with a payment reference
// created in (from, to], oldest first.
func (r *repository) FindAwaitingVerification(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FindAwaitingVerification"),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("limit", limit),
	)

	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE status = $1
		  AND payment_status = $2
		  AND paystack_reference IS NOT NULL
		  AND paystack_reference <> ''
		  AND created_at > $3
		  AND created_at <= $4
		ORDER BY created_at ASC
		LIMIT $5
	`

	orders, err := r.queryOrders(ctx, log, query,
		StatusPending, PaymentStatusPending, from, to, limit,
	)
	if err != nil {
		return nil, err
	}

	log.Debug("orders awaiting verification fetched", zap.Int("count", len(orders)))
	return orders, nil
}

// FindExpiredPending returns pending orders created at or before cutoff, oldest first.
func (r *repository) FindExpiredPending(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FindExpiredPending"),
		zap.Time("cutoff", cutoff),
		zap.Int("limit", limit),
	)

	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE status = $1
		  AND payment_status = $2
		  AND created_at <= $3
		ORDER BY created_at ASC
		LIMIT $4
	`

	orders, err := r.queryOrders(ctx, log, query,
		StatusPending, PaymentStatusPending, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}

	log.Debug("expired pending orders fetched", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE paystack_reference = $1
		LIMIT 1
	`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ClaimOrder locks the order row inside tx and reports whether the order is
// still in the expected status with an unsettled payment. Every writer that
// settles a payment must call it in the same tx that performs the transition;
// the row lock serialises competing writers and the loser sees the new status.
func ClaimOrder(
	ctx context.Context,
	tx *sql.Tx,
	orderID int64,
	expected OrderStatus,
) (bool, error) {

	var status OrderStatus
	var paymentStatus PaymentStatus

	err := tx.QueryRowContext(ctx, `
		SELECT status, payment_status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&status, &paymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrOrderNotFound
	}
	if err != nil {
		return false, err
	}

	return status == expected && paymentStatus == PaymentStatusPending, nil
}

func (r *repository) ConfirmPaid(
	ctx context.Context,
	orderID int64,
	channel string,
	paidAt time.Time,
) (bool, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ConfirmPaid"),
		zap.Int64("order_id", orderID),
		zap.String("channel", channel),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return false, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	claimed, err := ClaimOrder(ctx, tx, orderID, StatusPending)
	if err != nil {
		log.Error("failed to claim order", zap.Error(err))
		return false, err
	}
	if !claimed {
		log.Info("order already settled, skipping deduction")
		return false, nil
	}

	items, err := listItems(ctx, tx, orderID)
	if err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return false, err
	}
	if len(items) == 0 {
		log.Error("paid order has no items")
		return false, ErrOrderHasNoItems
	}

	reason := fmt.Sprintf("sale: order %d paid", orderID)
	for _, item := range items {
		if _, err := r.ledger.Deduct(ctx, tx, orderID, item.VariantID, item.Quantity, reason); err != nil {
			log.Error("failed to deduct stock",
				zap.String("variant_id", item.VariantID),
				zap.Error(err),
			)
			return false, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    paid_at = $3,
		    payment_method = $4,
		    updated_at = NOW()
		WHERE id = $5
	`,
		StatusProcessing,
		PaymentStatusPaid,
		paidAt,
		channel,
		orderID,
	); err != nil {
		log.Error("failed to mark order paid", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit paid transition", zap.Error(err))
		return false, err
	}
	committed = true

	log.Info("order marked paid", zap.Int("item_count", len(items)))
	return true, nil
}

func listItems(ctx context.Context, tx *sql.Tx, orderID int64) ([]OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, variant_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		item := OrderItem{OrderID: orderID}
		if err := rows.Scan(&item.ID, &item.VariantID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) CancelPending(ctx context.Context, orderID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		  AND payment_status = $5
	`,
		StatusCancelled,
		PaymentStatusFailed,
		orderID,
		StatusPending,
		PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
