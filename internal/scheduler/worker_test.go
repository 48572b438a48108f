package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
)

type mockCouponRepo struct {
	deleted   []string
	deleteErr error
}

func (m *mockCouponRepo) FindByCode(context.Context, string) (*coupon.Coupon, error) {
	return nil, coupon.ErrNotFound
}

func (m *mockCouponRepo) Create(context.Context, *coupon.Coupon) error { return nil }

func (m *mockCouponRepo) Delete(_ context.Context, code string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, code)
	return nil
}

func (m *mockCouponRepo) List(context.Context) ([]coupon.Coupon, error) { return nil, nil }

func TestCouponExpiredEvent(t *testing.T) {
	expiry := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	ev := CouponExpired("SAVE10", expiry)

	assert.Equal(t, EventCouponExpired, ev.Name)
	require.NotNil(t, ev.DeliverAt)
	assert.True(t, ev.DeliverAt.Equal(expiry))

	var payload CouponExpiredPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "SAVE10", payload.Code)
}

func TestWorkerHandle(t *testing.T) {
	t.Run("deletes expired coupon", func(t *testing.T) {
		repo := &mockCouponRepo{}
		w := &Worker{coupons: repo, now: time.Now}

		require.NoError(t, w.handle(context.Background(), CouponExpired("SAVE10", time.Now())))
		assert.Equal(t, []string{"SAVE10"}, repo.deleted)
	})

	t.Run("already deleted coupon is not an error", func(t *testing.T) {
		repo := &mockCouponRepo{deleteErr: coupon.ErrNotFound}
		w := &Worker{coupons: repo, now: time.Now}

		require.NoError(t, w.handle(context.Background(), CouponExpired("GONE", time.Now())))
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		repo := &mockCouponRepo{deleteErr: errors.New("db down")}
		w := &Worker{coupons: repo, now: time.Now}

		require.Error(t, w.handle(context.Background(), CouponExpired("SAVE10", time.Now())))
	})

	t.Run("unknown event ignored", func(t *testing.T) {
		repo := &mockCouponRepo{}
		w := &Worker{coupons: repo, now: time.Now}

		require.NoError(t, w.handle(context.Background(), Event{Name: "store.opened"}))
		assert.Empty(t, repo.deleted)
	})
}

func TestWorkerWaitUntilDue(t *testing.T) {
	t.Run("past deadline returns immediately", func(t *testing.T) {
		w := &Worker{now: time.Now}
		past := time.Now().Add(-time.Hour)

		require.NoError(t, w.waitUntilDue(context.Background(), Event{DeliverAt: &past}))
	})

	t.Run("nil deadline returns immediately", func(t *testing.T) {
		w := &Worker{now: time.Now}
		require.NoError(t, w.waitUntilDue(context.Background(), Event{}))
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		w := &Worker{now: time.Now}
		future := time.Now().Add(time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		go cancel()

		err := w.waitUntilDue(ctx, Event{DeliverAt: &future})
		require.ErrorIs(t, err, context.Canceled)
	})
}
