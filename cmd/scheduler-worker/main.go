// Command scheduler-worker consumes the scheduler topic and executes
// deferred events, such as deleting coupons once they expire.
package main

import (
	"context"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/nexushq/storefront-api/internal/repository"
	"github.com/nexushq/storefront-api/internal/scheduler"
)

type config struct {
	DatabaseURL string   `usage:"PostgreSQL connection URL" flag:"database-url"`
	Brokers     []string `usage:"Kafka broker addresses"`
	Topic       string   `default:"storefront.scheduler" usage:"Scheduler topic name"`
	GroupID     string   `default:"scheduler-worker" usage:"Consumer group id" flag:"group-id"`
}

func main() {
	sdkapp.Run(func(ctx context.Context, lg *zap.Logger, _ *sdkapp.Telemetry) error {
		var cfg config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{EnvPrefix: "NEXUS"})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}
		if cfg.DatabaseURL == "" || len(cfg.Brokers) == 0 {
			return errors.New("NEXUS_DATABASE_URL and NEXUS_BROKERS are required")
		}

		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		worker := scheduler.NewWorker(cfg.Brokers, cfg.Topic, cfg.GroupID, repository.NewCouponRepository(pool))
		defer func() {
			if err := worker.Close(); err != nil {
				lg.Warn("close worker", zap.Error(err))
			}
		}()

		lg.Info("scheduler worker started",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return worker.Run(ctx)
	})
}
