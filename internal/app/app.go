package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
	"github.com/nexushq/storefront-api/internal/domain/order"
	"github.com/nexushq/storefront-api/internal/domain/store"
	"github.com/nexushq/storefront-api/internal/handler"
	"github.com/nexushq/storefront-api/internal/identity"
	"github.com/nexushq/storefront-api/internal/objectstore"
	"github.com/nexushq/storefront-api/internal/payment"
	"github.com/nexushq/storefront-api/internal/repository"
	"github.com/nexushq/storefront-api/internal/scheduler"
	"github.com/nexushq/storefront-api/pkg/health"
	"github.com/nexushq/storefront-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	storeRepo := repository.NewStoreRepository(pool)

	// External clients.
	gateway := payment.NewClient(payment.ClientConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
	}, nil)
	verifier := payment.NewVerifier(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret)
	uploader := objectstore.NewClient(objectstore.ClientConfig{
		UploadURL:  cfg.Images.UploadURL,
		PrivateKey: cfg.Images.PrivateKey,
	}, nil)

	var events scheduler.Publisher = scheduler.NopPublisher{}
	if len(cfg.Scheduler.Brokers) > 0 {
		kp := scheduler.NewKafkaPublisher(cfg.Scheduler.Brokers, cfg.Scheduler.Topic)
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Warn("close scheduler publisher", zap.Error(err))
			}
		}()
		events = kp
	}

	// Domain services.
	couponEval := coupon.NewRepoEvaluator(couponRepo, orderRepo)
	orderSvc := order.NewService(productRepo, couponEval, orderRepo, gateway, cartRepo, cfg.Gateway.Currency)
	storeSvc := store.NewService(storeRepo, uploader)
	idv := identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.AdminEmails)

	// HTTP handlers.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		orderSvc, orderRepo, productRepo, couponEval, couponRepo,
		cartRepo, storeSvc, storeRepo, verifier, idv, events,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Gateway-Signature"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
