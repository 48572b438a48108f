package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexushq/storefront-api/internal/domain/store"
)

const (
	createStoreSQL = `INSERT INTO stores (id, user_id, name, username, description, email, contact, address, logo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getStoreByIDSQL       = storeColumns + ` WHERE id = $1`
	getStoreByUserIDSQL   = storeColumns + ` WHERE user_id = $1`
	getStoreByUsernameSQL = storeColumns + ` WHERE username = $1`
	listStoresByStatusSQL = storeColumns + ` WHERE status = $1 ORDER BY created_at DESC`

	setStoreStatusSQL = `UPDATE stores SET status = $2 WHERE id = $1`

	upsertStoreSQL = `INSERT INTO stores (id, user_id, name, username, description, email, contact, address, logo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			email = EXCLUDED.email,
			contact = EXCLUDED.contact,
			address = EXCLUDED.address,
			logo_url = EXCLUDED.logo_url,
			status = EXCLUDED.status`

	storeColumns = `SELECT id, user_id, name, username, description, email, contact, address, logo_url, status, created_at
		FROM stores`
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// Create persists a new store. Returns store.ErrUsernameTaken on a
// username uniqueness violation.
func (r *StoreRepository) Create(ctx context.Context, s *store.Store) error {
	_, err := r.pool.Exec(ctx, createStoreSQL,
		s.ID, s.UserID, s.Name, s.Username, s.Description,
		s.Email, s.Contact, s.Address, s.LogoURL, string(s.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrUsernameTaken
		}
		return fmt.Errorf("creating store %q: %w", s.ID, err)
	}
	return nil
}

// Upsert inserts or replaces a store row keyed by id. Used by seeding
// tools so re-runs stay idempotent.
func (r *StoreRepository) Upsert(ctx context.Context, s *store.Store) error {
	_, err := r.pool.Exec(ctx, upsertStoreSQL,
		s.ID, s.UserID, s.Name, s.Username, s.Description,
		s.Email, s.Contact, s.Address, s.LogoURL, string(s.Status),
	)
	if err != nil {
		return fmt.Errorf("upserting store %q: %w", s.ID, err)
	}
	return nil
}

// GetByID returns a store by id.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*store.Store, error) {
	return r.getOne(ctx, getStoreByIDSQL, id)
}

// GetByUserID returns the store owned by the given user.
func (r *StoreRepository) GetByUserID(ctx context.Context, userID string) (*store.Store, error) {
	return r.getOne(ctx, getStoreByUserIDSQL, userID)
}

// GetByUsername returns the store with the given username.
func (r *StoreRepository) GetByUsername(ctx context.Context, username string) (*store.Store, error) {
	return r.getOne(ctx, getStoreByUsernameSQL, username)
}

// ListByStatus returns stores in the given approval state, newest first.
func (r *StoreRepository) ListByStatus(ctx context.Context, status store.Status) ([]store.Store, error) {
	rows, err := r.pool.Query(ctx, listStoresByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing stores by status %q: %w", status, err)
	}
	return pgx.CollectRows(rows, scanStore)
}

// SetStatus updates a store's approval state. Returns store.ErrNotFound
// when no such store exists.
func (r *StoreRepository) SetStatus(ctx context.Context, id string, status store.Status) error {
	tag, err := r.pool.Exec(ctx, setStoreStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("setting store %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *StoreRepository) getOne(ctx context.Context, sql string, arg any) (*store.Store, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting store: %w", err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanStore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store: %w", err)
	}
	return &s, nil
}

func scanStore(row pgx.CollectableRow) (store.Store, error) {
	var (
		s      store.Store
		status string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Username, &s.Description,
		&s.Email, &s.Contact, &s.Address, &s.LogoURL, &status, &s.CreatedAt,
	)
	s.Status = store.Status(status)
	return s, err
}
