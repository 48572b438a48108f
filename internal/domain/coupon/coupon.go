package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no coupon matches the given code or the
	// matching coupon has expired. Expired and absent coupons are
	// indistinguishable to the caller.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotEligible is returned when a new-users-only coupon is requested
	// by a user who already has at least one order.
	ErrNotEligible = errors.New("coupon valid for new users only")
	// ErrAlreadyExists is returned on creation when the code is taken.
	ErrAlreadyExists = errors.New("coupon code already exists")
)

// Coupon is a percentage discount rule. Codes are case-insensitive and
// stored uppercased. A coupon is immutable once fetched for a checkout:
// the discount is locked at composition time and never re-validated.
type Coupon struct {
	Code            string
	Description     string
	DiscountPercent decimal.Decimal
	ForNewUsers     bool
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// Expired reports whether the coupon is unusable at the given instant.
// The boundary is inclusive: expiry at exactly now counts as expired.
func (c *Coupon) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Repository provides lookup and administration of coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]Coupon, error)
}

// OrderCounter reports how many orders a user has placed, of any payment
// method or status. Used for the new-user eligibility check.
type OrderCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}
