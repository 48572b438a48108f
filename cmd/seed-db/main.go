// Command seed-db loads demo stores, products and coupons into the database
// for local development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
	"github.com/nexushq/storefront-api/internal/domain/product"
	"github.com/nexushq/storefront-api/internal/domain/store"
	"github.com/nexushq/storefront-api/internal/repository"
)

type storeJSON struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Contact     string `json:"contact"`
	Address     string `json:"address"`
}

type productJSON struct {
	ID       string          `json:"id"`
	StoreID  string          `json:"storeId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

type seedFile struct {
	Stores   []storeJSON   `json:"stores"`
	Products []productJSON `json:"products"`
}

func main() {
	var (
		databaseURL string
		dataFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataFile, "data-file", "db/seed/catalog.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dataFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, dataFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading seed file", slog.String("path", dataFile))

	data, err := os.ReadFile(dataFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	if err := seedStores(ctx, repository.NewStoreRepository(pool), seed.Stores); err != nil {
		return errors.Wrap(err, "seed stores")
	}
	if err := seedProducts(ctx, repository.NewProductRepository(pool), seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

// seedStores upserts the demo stores pre-approved, so their products are
// sellable immediately.
func seedStores(ctx context.Context, stores *repository.StoreRepository, seed []storeJSON) error {
	slog.Info("upserting stores", slog.Int("count", len(seed)))

	for _, s := range seed {
		if err := stores.Upsert(ctx, &store.Store{
			ID:          s.ID,
			UserID:      s.UserID,
			Name:        s.Name,
			Username:    s.Username,
			Description: s.Description,
			Email:       s.Email,
			Contact:     s.Contact,
			Address:     s.Address,
			Status:      store.StatusApproved,
		}); err != nil {
			return errors.Wrapf(err, "upsert store %s", s.ID)
		}

		slog.Info("upserted store", slog.String("id", s.ID), slog.String("name", s.Name))
	}

	return nil
}

func seedProducts(ctx context.Context, products *repository.ProductRepository, seed []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(seed)))

	for _, p := range seed {
		if err := products.Upsert(ctx, &product.Product{
			ID:       p.ID,
			StoreID:  p.StoreID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, coupons *repository.CouponRepository) error {
	slog.Info("seeding demo coupons")

	expiry := time.Now().Add(90 * 24 * time.Hour)
	demo := []coupon.Coupon{
		{
			Code:            "HAPPYHOURS",
			Description:     "Happy Hours: 18% off entire order",
			DiscountPercent: decimal.NewFromInt(18),
			ExpiresAt:       expiry,
		},
		{
			Code:            "WELCOME25",
			Description:     "Welcome: 25% off your first order",
			DiscountPercent: decimal.NewFromInt(25),
			ForNewUsers:     true,
			ExpiresAt:       expiry,
		},
	}

	for _, c := range demo {
		if err := coupons.Upsert(ctx, &c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}
