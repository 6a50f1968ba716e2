package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/storefront-checkout/app/internal/config"
	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	"example.com/storefront-checkout/app/internal/domain/geo"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
	"example.com/storefront-checkout/app/internal/infra/cache"
	"example.com/storefront-checkout/app/internal/infra/events"
	"example.com/storefront-checkout/app/internal/infra/observability"
	"example.com/storefront-checkout/app/internal/infra/persistence/mysql"
	"example.com/storefront-checkout/app/internal/infra/persistence/postgres"
	"example.com/storefront-checkout/app/internal/infra/remote"
	"example.com/storefront-checkout/app/internal/infra/security"
	"example.com/storefront-checkout/app/internal/infra/session"
	httpapi "example.com/storefront-checkout/app/internal/interface/http"
	"example.com/storefront-checkout/app/internal/usecase/address"
	authuc "example.com/storefront-checkout/app/internal/usecase/auth"
	checkoutuc "example.com/storefront-checkout/app/internal/usecase/checkout"
	ucoupon "example.com/storefront-checkout/app/internal/usecase/coupon"
	ushipping "example.com/storefront-checkout/app/internal/usecase/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("checkout service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.MySQL.Migrate {
		if err := mysql.Migrate(ctx, db); err != nil {
			return err
		}
	}

	health := map[string]httpapi.HealthCheck{
		"mysql": db.PingContext,
	}

	store, prune, closeStore, err := openSessionStore(ctx, cfg, health)
	if err != nil {
		return err
	}
	defer closeStore()

	httpClient := &http.Client{Timeout: cfg.Services.Timeout}

	var directory geo.Directory = remote.NewGeoClient(cfg.Services.GeoURL, cfg.Services.GeoToken, httpClient)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		directory = cache.NewGeoDirectory(directory, rdb, logger)
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	resolver := address.NewResolver(directory, logger)

	couponRepo := mysql.NewCouponRepository(db)
	var applier domcoupon.Applier = couponRepo
	if !cfg.LocalCoupons() {
		applier = remote.NewCouponClient(cfg.Services.CouponURL, httpClient)
	}
	var orders domorder.Submitter = mysql.NewOrderRepository(db)
	if !cfg.LocalOrders() {
		orders = remote.NewOrderClient(cfg.Services.OrderURL, httpClient)
	}

	catalog := ucoupon.NewCatalog(couponRepo, logger)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warn("coupon catalog not loaded, relying on coupon service", zap.Error(err))
	}
	go catalog.Run(ctx, cfg.Coupons.RefreshInterval)

	var publisher domcheckout.Publisher = events.NewLogPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return err
		}
		defer kp.Close()
		publisher = kp
	}

	calculator := ushipping.NewCalculator(remote.NewShippingClient(cfg.Services.ShippingURL, httpClient), ushipping.Options{
		PerItemWeightGrams: int64(cfg.Shipping.PerItemWeightGrams),
		FallbackFee:        cfg.Shipping.FallbackFee,
		Timeout:            cfg.Shipping.Timeout,
	}, logger)

	checkoutSvc := checkoutuc.NewService(checkoutuc.Dependencies{
		Store:     store,
		Resolver:  resolver,
		Coupons:   ucoupon.NewEngine(catalog, applier, logger),
		Shipping:  calculator,
		Cart:      mysql.NewCartRepository(db),
		Orders:    orders,
		Tax:       checkoutuc.FlatRateTax{Percent: cfg.Tax.Percent},
		Publisher: publisher,
		Logger:    logger,
	})

	var authSvc *authuc.Service
	if cfg.Auth.JWTSecret != "" {
		authSvc = authuc.NewService(security.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration))
	}

	api := httpapi.NewAPI(httpapi.Dependencies{
		CheckoutService: checkoutSvc,
		Addresses:       resolver,
		AuthService:     authSvc,
		HealthChecks:    health,
		Logger:          logger,
	})

	go pruneSessions(ctx, logger, prune, cfg.Session.TTL, cfg.Session.PruneInterval)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("checkout service listening",
			zap.String("addr", server.Addr),
			zap.String("session_store", cfg.Session.Store),
			zap.Bool("local_coupons", cfg.LocalCoupons()),
			zap.Bool("local_orders", cfg.LocalOrders()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down checkout service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type pruneFunc func(ctx context.Context, before time.Time) (int64, error)

func openSessionStore(ctx context.Context, cfg config.Config, health map[string]httpapi.HealthCheck) (domcheckout.Store, pruneFunc, func(), error) {
	if cfg.Session.Store == config.SessionStorePostgres {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		store := postgres.NewSessionStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		health["pg"] = pool.Ping
		return store, store.Prune, pool.Close, nil
	}

	store := session.NewMemoryStore()
	prune := func(ctx context.Context, before time.Time) (int64, error) {
		return int64(store.Prune(before)), nil
	}
	return store, prune, func() {}, nil
}

// pruneSessions drops checkouts nobody touched within ttl.
func pruneSessions(ctx context.Context, logger *zap.Logger, prune pruneFunc, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := prune(pctx, now.Add(-ttl))
			cancel()
			if err != nil {
				logger.Warn("session prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("pruned idle checkout sessions", zap.Int64("count", n))
			}
		}
	}
}
