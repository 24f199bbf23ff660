package discount

import (
	"context"
	"database/sql"
	"fmt"

	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// DecrementUsage gives one use back to the coupon. It reports false when
	// the counter is already at zero, which happens if a release is replayed.
	DecrementUsage(ctx context.Context, code string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) DecrementUsage(ctx context.Context, code string) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DecrementUsage"),
		zap.String("coupon_code", code),
	)

	res, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count - 1,
		    updated_at = NOW()
		WHERE code = $1
		  AND used_count > 0
	`, code)
	if err != nil {
		log.Error("failed to release coupon usage", zap.Error(err))
		return false, fmt.Errorf("release coupon %s: %w", code, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		log.Warn("coupon usage not released, counter at zero or coupon missing")
		return false, nil
	}

	log.Info("coupon usage released")
	return true, nil
}
