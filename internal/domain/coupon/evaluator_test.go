package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	byCode  map[string]*Coupon
	findErr error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockCouponRepo) Create(_ context.Context, _ *Coupon) error { return nil }
func (m *mockCouponRepo) Delete(_ context.Context, _ string) error  { return nil }
func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error)  { return nil, nil }

type mockOrderCounter struct {
	count int
	err   error
}

func (m *mockOrderCounter) CountByUser(_ context.Context, _ string) (int, error) {
	return m.count, m.err
}

func newEvaluator(repo *mockCouponRepo, orders *mockOrderCounter, now time.Time) *RepoEvaluator {
	e := NewRepoEvaluator(repo, orders)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluate_Valid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"SAVE10": {
			Code:            "SAVE10",
			DiscountPercent: decimal.NewFromInt(10),
			ExpiresAt:       now.Add(time.Hour),
		},
	}}
	e := newEvaluator(repo, &mockOrderCounter{}, now)

	c, err := e.Evaluate(context.Background(), "SAVE10", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(c.DiscountPercent))
}

func TestEvaluate_Unknown(t *testing.T) {
	e := newEvaluator(&mockCouponRepo{byCode: map[string]*Coupon{}}, &mockOrderCounter{}, time.Now())

	_, err := e.Evaluate(context.Background(), "NOPE", "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluate_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"OLD": {Code: "OLD", ExpiresAt: now.Add(-time.Millisecond)},
	}}
	e := newEvaluator(repo, &mockOrderCounter{}, now)

	_, err := e.Evaluate(context.Background(), "OLD", "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluate_ExpiryBoundaryIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"EDGE": {Code: "EDGE", ExpiresAt: now},
	}}
	e := newEvaluator(repo, &mockOrderCounter{}, now)

	// expiresAt == now is treated as expired, which reads as not found.
	_, err := e.Evaluate(context.Background(), "EDGE", "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluate_NewUsersOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"WELCOME": {Code: "WELCOME", ForNewUsers: true, ExpiresAt: now.Add(time.Hour)},
	}}

	t.Run("accepted for zero prior orders", func(t *testing.T) {
		e := newEvaluator(repo, &mockOrderCounter{count: 0}, now)
		c, err := e.Evaluate(context.Background(), "WELCOME", "fresh")
		require.NoError(t, err)
		assert.Equal(t, "WELCOME", c.Code)
	})

	t.Run("rejected with prior orders", func(t *testing.T) {
		e := newEvaluator(repo, &mockOrderCounter{count: 3}, now)
		_, err := e.Evaluate(context.Background(), "WELCOME", "returning")
		require.ErrorIs(t, err, ErrNotEligible)
	})
}

func TestEvaluate_RepositoryError(t *testing.T) {
	e := newEvaluator(&mockCouponRepo{findErr: errors.New("db down")}, &mockOrderCounter{}, time.Now())

	_, err := e.Evaluate(context.Background(), "SAVE10", "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestEvaluate_OrderCountError(t *testing.T) {
	now := time.Now()
	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"WELCOME": {Code: "WELCOME", ForNewUsers: true, ExpiresAt: now.Add(time.Hour)},
	}}
	e := newEvaluator(repo, &mockOrderCounter{err: errors.New("db down")}, now)

	_, err := e.Evaluate(context.Background(), "WELCOME", "user-1")
	require.Error(t, err)
}
