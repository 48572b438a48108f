//go:build integration

package integration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushq/storefront-api/internal/domain/order"
)

func newOrder(id, userID, storeID string, method order.PaymentMethod, total string) *order.Order {
	o := &order.Order{
		ID:        id,
		UserID:    userID,
		StoreID:   storeID,
		AddressID: "addr-1",
		Items: []order.LineItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
		Subtotal:      decimal.RequireFromString(total),
		Total:         decimal.RequireFromString(total),
		PaymentMethod: method,
		Status:        order.StatusPendingPayment,
	}
	if method == order.PaymentCOD {
		o.Status = order.StatusPlaced
	}
	return o
}

func TestOrderCreateBatchAtomic(t *testing.T) {
	cleanTables(t)
	repo := orderRepo()

	good := newOrder("batch_ok_s1", "u1", "s1", order.PaymentCOD, "25.00")
	dup := newOrder("batch_ok_s1", "u1", "s2", order.PaymentCOD, "10.00")

	// Second insert violates the primary key, so neither row may survive.
	err := repo.CreateBatch(t.Context(), []*order.Order{good, dup})
	require.Error(t, err)

	n, err := repo.CountByUser(t.Context(), "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrderFindByIntentPrefix(t *testing.T) {
	cleanTables(t)
	repo := orderRepo()

	require.NoError(t, repo.CreateBatch(t.Context(), []*order.Order{
		newOrder("pay_1_store-a", "u1", "store-a", order.PaymentGateway, "100.00"),
		newOrder("pay_1_store-b", "u1", "store-b", order.PaymentGateway, "50.00"),
		newOrder("pay_12_store-a", "u2", "store-a", order.PaymentGateway, "30.00"),
		newOrder("cod-1", "u1", "store-a", order.PaymentCOD, "20.00"),
	}))

	got, err := repo.FindByIntentPrefix(t.Context(), "pay_1")
	require.NoError(t, err)

	// "pay_12_store-a" shares a literal prefix but belongs to another
	// intent; the separator keeps it out even though the id contains
	// underscores.
	var ids []string
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"pay_1_store-a", "pay_1_store-b"}, ids)

	for _, o := range got {
		assert.Equal(t, order.PaymentGateway, o.PaymentMethod)
		assert.Equal(t, order.StatusPendingPayment, o.Status)
		require.Len(t, o.Items, 1)
		assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	}
}

func TestOrderSetPaymentState(t *testing.T) {
	cleanTables(t)
	repo := orderRepo()

	require.NoError(t, repo.CreateBatch(t.Context(), []*order.Order{
		newOrder("intent_a_s1", "u1", "s1", order.PaymentGateway, "40.00"),
		newOrder("intent_a_s2", "u1", "s2", order.PaymentGateway, "60.00"),
	}))

	ids := []string{"intent_a_s1", "intent_a_s2"}
	require.NoError(t, repo.SetPaymentState(t.Context(), ids, true, order.StatusPaid))

	got, err := repo.FindByIntentPrefix(t.Context(), "intent_a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, o := range got {
		assert.True(t, o.IsPaid)
		assert.Equal(t, order.StatusPaid, o.Status)
	}

	// Webhook redelivery re-applies the same state.
	require.NoError(t, repo.SetPaymentState(t.Context(), ids, true, order.StatusPaid))

	got, err = repo.FindByIntentPrefix(t.Context(), "intent_a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, o := range got {
		assert.True(t, o.IsPaid)
	}
}

func TestOrderVisibility(t *testing.T) {
	cleanTables(t)
	repo := orderRepo()

	require.NoError(t, repo.CreateBatch(t.Context(), []*order.Order{
		newOrder("cod-1", "u1", "s1", order.PaymentCOD, "10.00"),
		newOrder("gw_1_s1", "u1", "s1", order.PaymentGateway, "20.00"),
		newOrder("gw_2_s1", "u1", "s1", order.PaymentGateway, "30.00"),
	}))
	require.NoError(t, repo.SetPaymentState(t.Context(), []string{"gw_2_s1"}, true, order.StatusPaid))

	t.Run("user history hides unpaid gateway orders", func(t *testing.T) {
		got, err := repo.ListVisibleByUser(t.Context(), "u1")
		require.NoError(t, err)

		var ids []string
		for _, o := range got {
			ids = append(ids, o.ID)
		}
		assert.ElementsMatch(t, []string{"cod-1", "gw_2_s1"}, ids)
	})

	t.Run("seller view hides unpaid gateway orders", func(t *testing.T) {
		got, err := repo.ListByStore(t.Context(), "s1")
		require.NoError(t, err)

		var ids []string
		for _, o := range got {
			ids = append(ids, o.ID)
		}
		assert.ElementsMatch(t, []string{"cod-1", "gw_2_s1"}, ids)
	})

	t.Run("all orders still count for eligibility", func(t *testing.T) {
		n, err := repo.CountByUser(t.Context(), "u1")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func TestOrderUpdateStatus(t *testing.T) {
	cleanTables(t)
	repo := orderRepo()

	require.NoError(t, repo.CreateBatch(t.Context(), []*order.Order{
		newOrder("cod-1", "u1", "s1", order.PaymentCOD, "10.00"),
	}))

	// A seller cannot touch another store's order.
	err := repo.UpdateStatus(t.Context(), "cod-1", "other-store", order.StatusShipped)
	assert.ErrorIs(t, err, order.ErrNotFound)

	require.NoError(t, repo.UpdateStatus(t.Context(), "cod-1", "s1", order.StatusShipped))

	got, err := repo.ListByStore(t.Context(), "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, order.StatusShipped, got[0].Status)
}
