package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexushq/storefront-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, store_id, address_id, items, subtotal, discount_percent, total, coupon_code, payment_method, is_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	// starts_with sidesteps LIKE's treatment of '_' as a single-character
	// wildcard; intent ids routinely contain underscores.
	findByIntentPrefixSQL = `SELECT id, user_id, store_id, address_id, items, subtotal, discount_percent, total, coupon_code, payment_method, is_paid, status, created_at
		FROM orders
		WHERE starts_with(id, $1 || '_') AND payment_method = $2
		ORDER BY id`

	setPaymentStateSQL = `UPDATE orders SET is_paid = $2, status = $3, updated_at = now()
		WHERE id = ANY($1)`

	countOrdersByUserSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	listVisibleByUserSQL = `SELECT id, user_id, store_id, address_id, items, subtotal, discount_percent, total, coupon_code, payment_method, is_paid, status, created_at
		FROM orders
		WHERE user_id = $1 AND (payment_method = $2 OR is_paid)
		ORDER BY created_at DESC`

	listByStoreSQL = `SELECT id, user_id, store_id, address_id, items, subtotal, discount_percent, total, coupon_code, payment_method, is_paid, status, created_at
		FROM orders
		WHERE store_id = $1 AND (payment_method = $2 OR is_paid)
		ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND store_id = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateBatch persists all orders of one checkout in a single transaction:
// either every partition becomes visible or none does. Line items are
// serialized to JSON for storage in the JSONB column.
func (r *OrderRepository) CreateBatch(ctx context.Context, orders []*order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, o := range orders {
		itemsJSON, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("marshaling order items: %w", err)
		}
		_, err = tx.Exec(ctx, createOrderSQL,
			o.ID, o.UserID, o.StoreID, o.AddressID, itemsJSON,
			o.Subtotal, o.DiscountPercent, o.Total, o.CouponCode,
			string(o.PaymentMethod), o.IsPaid, string(o.Status),
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing orders: %w", err)
	}
	return nil
}

// FindByIntentPrefix returns every gateway order whose id starts with
// "<intentID>_".
func (r *OrderRepository) FindByIntentPrefix(ctx context.Context, intentID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, findByIntentPrefixSQL, intentID, string(order.PaymentGateway))
	if err != nil {
		return nil, fmt.Errorf("finding orders for intent %q: %w", intentID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SetPaymentState applies the same paid flag and status to all given orders
// in one statement. Re-applying identical values is a harmless no-op, which
// is what makes reconciliation safe under webhook redelivery.
func (r *OrderRepository) SetPaymentState(ctx context.Context, ids []string, isPaid bool, status order.Status) error {
	_, err := r.pool.Exec(ctx, setPaymentStateSQL, ids, isPaid, string(status))
	if err != nil {
		return fmt.Errorf("setting payment state: %w", err)
	}
	return nil
}

// CountByUser returns how many orders the user has placed, of any kind.
func (r *OrderRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersByUserSQL, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders for user %q: %w", userID, err)
	}
	return n, nil
}

// ListVisibleByUser returns the user's order history: COD orders always,
// gateway orders only once paid.
func (r *OrderRepository) ListVisibleByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listVisibleByUserSQL, userID, string(order.PaymentCOD))
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByStore returns a store's incoming orders, hiding unpaid gateway
// checkouts from the seller.
func (r *OrderRepository) ListByStore(ctx context.Context, storeID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listByStoreSQL, storeID, string(order.PaymentCOD))
	if err != nil {
		return nil, fmt.Errorf("listing orders for store %q: %w", storeID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus performs a seller-driven fulfilment transition scoped to the
// seller's own store.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, storeID string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, storeID, string(status))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		method    string
		status    string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.StoreID, &o.AddressID, &itemsJSON,
		&o.Subtotal, &o.DiscountPercent, &o.Total, &o.CouponCode,
		&method, &o.IsPaid, &status, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, errors.Wrap(err, "unmarshal order items")
	}
	o.PaymentMethod = order.PaymentMethod(method)
	o.Status = order.Status(status)
	return o, nil
}
