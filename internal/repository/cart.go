package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexushq/storefront-api/internal/domain/cart"
)

const (
	getCartSQL = `SELECT items FROM carts WHERE user_id = $1`

	saveCartSQL = `INSERT INTO carts (user_id, items, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`

	clearCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository as one JSONB document per user.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's saved cart. A user with no cart row has an empty
// cart, not an error.
func (r *CartRepository) Get(ctx context.Context, userID string) ([]cart.Line, error) {
	var itemsJSON []byte
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []cart.Line{}, nil
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	var lines []cart.Line
	if err := json.Unmarshal(itemsJSON, &lines); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart items")
	}
	return lines, nil
}

// Save replaces the user's cart document.
func (r *CartRepository) Save(ctx context.Context, userID string, lines []cart.Line) error {
	if lines == nil {
		lines = []cart.Line{}
	}
	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrap(err, "marshal cart items")
	}
	if _, err := r.pool.Exec(ctx, saveCartSQL, userID, itemsJSON); err != nil {
		return fmt.Errorf("saving cart for user %q: %w", userID, err)
	}
	return nil
}

// Clear empties the user's cart. Clearing an already-empty cart succeeds.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}
