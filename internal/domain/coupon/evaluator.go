package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Evaluator checks whether a coupon code is usable by the given user and
// returns the coupon on success. Evaluation is a pure read: no usage
// counter is incremented, so repeated evaluation of the same code is
// idempotent.
type Evaluator interface {
	Evaluate(ctx context.Context, code, userID string) (*Coupon, error)
}

// RepoEvaluator implements Evaluator against a coupon Repository and an
// order counter for the new-user restriction.
type RepoEvaluator struct {
	coupons Repository
	orders  OrderCounter
	now     func() time.Time
}

// NewRepoEvaluator creates a RepoEvaluator backed by the given repositories.
func NewRepoEvaluator(coupons Repository, orders OrderCounter) *RepoEvaluator {
	return &RepoEvaluator{coupons: coupons, orders: orders, now: time.Now}
}

// Evaluate looks up the coupon (case-insensitively), treats expiry as a hard
// precondition checked at use time, and enforces the new-user restriction.
func (e *RepoEvaluator) Evaluate(ctx context.Context, code, userID string) (*Coupon, error) {
	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if c.Expired(e.now()) {
		return nil, ErrNotFound
	}

	if c.ForNewUsers {
		n, err := e.orders.CountByUser(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user orders")
		}
		if n > 0 {
			return nil, ErrNotEligible
		}
	}

	return c, nil
}
