package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Status tracks a store through the admin approval workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	// ErrNotFound is returned when a requested store does not exist.
	ErrNotFound = errors.New("store not found")
	// ErrUsernameTaken is returned when the requested username is in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAlreadyExists is returned when the user already owns a store.
	ErrAlreadyExists = errors.New("user already has a store")
)

// Store is a seller's shop. A user owns at most one store; only approved
// stores can sell.
type Store struct {
	ID          string
	UserID      string
	Name        string
	Username    string
	Description string
	Email       string
	Contact     string
	Address     string
	LogoURL     string
	Status      Status
	CreatedAt   time.Time
}

// Repository defines persistence operations for stores.
type Repository interface {
	Create(ctx context.Context, s *Store) error
	GetByID(ctx context.Context, id string) (*Store, error)
	GetByUserID(ctx context.Context, userID string) (*Store, error)
	GetByUsername(ctx context.Context, username string) (*Store, error)
	ListByStatus(ctx context.Context, status Status) ([]Store, error)
	SetStatus(ctx context.Context, id string, status Status) error
}

// Uploader stores an uploaded binary under a folder hint and returns a
// retrievable URL. Failures are independent of order/coupon logic.
type Uploader interface {
	Upload(ctx context.Context, name, folder string, data []byte) (string, error)
}
