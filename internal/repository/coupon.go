package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, description, discount_percent, for_new_users, expires_at, created_at
		FROM coupons WHERE code = UPPER($1)`

	createCouponSQL = `INSERT INTO coupons (code, description, discount_percent, for_new_users, expires_at)
		VALUES (UPPER($1), $2, $3, $4, $5)`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = UPPER($1)`

	upsertCouponSQL = `INSERT INTO coupons (code, description, discount_percent, for_new_users, expires_at)
		VALUES (UPPER($1), $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			discount_percent = EXCLUDED.discount_percent,
			for_new_users = EXCLUDED.for_new_users,
			expires_at = EXCLUDED.expires_at`

	listCouponsSQL = `SELECT code, description, discount_percent, for_new_users, expires_at, created_at
		FROM coupons ORDER BY created_at DESC`
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are stored uppercased, which makes lookups case-insensitive.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no matching coupon exists. Expiry is a
// domain concern checked by the evaluator, not filtered here.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Create inserts a new coupon. Returns coupon.ErrAlreadyExists when the
// code is taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.Code, c.Description, c.DiscountPercent, c.ForNewUsers, c.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrAlreadyExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	c.Code = strings.ToUpper(c.Code)
	return nil
}

// Upsert inserts a coupon or replaces the rule stored under its code. Used
// by bulk ingestion where re-runs must be idempotent.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, c.Description, c.DiscountPercent, c.ForNewUsers, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// Delete removes a coupon by code. Deleting an absent coupon returns
// coupon.ErrNotFound.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.Code, &c.Description, &c.DiscountPercent, &c.ForNewUsers, &c.ExpiresAt, &c.CreatedAt,
	)
	return c, err
}
