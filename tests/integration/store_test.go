//go:build integration

package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushq/storefront-api/internal/domain/store"
	"github.com/nexushq/storefront-api/internal/repository"
)

func TestStoreApprovalFlow(t *testing.T) {
	cleanTables(t)
	repo := repository.NewStoreRepository(pool)

	s := &store.Store{
		ID:       uuid.NewString(),
		UserID:   "seller-1",
		Name:     "Gadget Hut",
		Username: "gadget-hut",
		Email:    "owner@gadgethut.example",
		Status:   store.StatusPending,
	}
	require.NoError(t, repo.Create(t.Context(), s))

	t.Run("username uniqueness", func(t *testing.T) {
		err := repo.Create(t.Context(), &store.Store{
			ID:       uuid.NewString(),
			UserID:   "seller-2",
			Name:     "Copycat",
			Username: "gadget-hut",
			Email:    "copy@example.com",
			Status:   store.StatusPending,
		})
		assert.ErrorIs(t, err, store.ErrUsernameTaken)
	})

	t.Run("lookups", func(t *testing.T) {
		byID, err := repo.GetByID(t.Context(), s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Gadget Hut", byID.Name)

		byUser, err := repo.GetByUserID(t.Context(), "seller-1")
		require.NoError(t, err)
		assert.Equal(t, s.ID, byUser.ID)

		byName, err := repo.GetByUsername(t.Context(), "gadget-hut")
		require.NoError(t, err)
		assert.Equal(t, s.ID, byName.ID)

		_, err = repo.GetByUserID(t.Context(), "stranger")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("approve", func(t *testing.T) {
		pending, err := repo.ListByStatus(t.Context(), store.StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		require.NoError(t, repo.SetStatus(t.Context(), s.ID, store.StatusApproved))

		pending, err = repo.ListByStatus(t.Context(), store.StatusPending)
		require.NoError(t, err)
		assert.Empty(t, pending)

		approved, err := repo.ListByStatus(t.Context(), store.StatusApproved)
		require.NoError(t, err)
		require.Len(t, approved, 1)
		assert.Equal(t, s.ID, approved[0].ID)
	})

	t.Run("status update on missing store", func(t *testing.T) {
		err := repo.SetStatus(t.Context(), uuid.NewString(), store.StatusRejected)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
