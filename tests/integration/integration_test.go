//go:build integration

// Package integration runs the PostgreSQL repositories against a real
// database in a throwaway container. These tests cover the SQL that unit
// tests mock out: transactional batch inserts, prefix lookups, JSONB round
// trips and constraint-driven error translation.
package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nexushq/storefront-api/internal/domain/product"
	"github.com/nexushq/storefront-api/internal/domain/store"
	"github.com/nexushq/storefront-api/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	pool, err = repository.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("postgres ready at %s", dsn)

	return m.Run()
}

func orderRepo() *repository.OrderRepository { return repository.NewOrderRepository(pool) }

// cleanTables wipes everything between tests so each test owns its data.
func cleanTables(t *testing.T) {
	t.Helper()
	_, err := pool.Exec(t.Context(),
		`TRUNCATE orders, carts, coupons, products, stores CASCADE`)
	require.NoError(t, err)
}

// seedStore inserts an approved store and returns its id.
func seedStore(t *testing.T, name string) string {
	t.Helper()
	s := &store.Store{
		ID:       uuid.NewString(),
		UserID:   uuid.NewString(),
		Name:     name,
		Username: name + "-" + uuid.NewString()[:8],
		Email:    name + "@example.com",
		Status:   store.StatusApproved,
	}
	require.NoError(t, repository.NewStoreRepository(pool).Create(t.Context(), s))
	return s.ID
}

// seedProduct inserts a catalog entry owned by storeID and returns its id.
func seedProduct(t *testing.T, storeID, name string, price string) string {
	t.Helper()
	p := &product.Product{
		ID:       uuid.NewString(),
		StoreID:  storeID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Image: product.Image{
			Thumbnail: "images/" + name + "-thumb.jpg",
			Desktop:   "images/" + name + "-desktop.jpg",
		},
	}
	require.NoError(t, repository.NewProductRepository(pool).Upsert(t.Context(), p))
	return p.ID
}
