package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain/auth"
	"github.com/xenking/funing-shop/internal/domain/cart"
	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/order"
	"github.com/xenking/funing-shop/internal/domain/product"
	"github.com/xenking/funing-shop/internal/domain/user"
	"github.com/xenking/funing-shop/internal/handler"
	"github.com/xenking/funing-shop/internal/storage/postgres"
	"github.com/xenking/funing-shop/pkg/health"
	"github.com/xenking/funing-shop/pkg/httpmiddleware"
)

// Services are the domain services shared by the API server and tooling.
type Services struct {
	Users    *user.Service
	Products *product.Service
	Coupons  *coupon.Service
	Grants   *coupon.GrantService
	Carts    *cart.Service
	Orders   *order.Service
	Auth     *auth.Resolver

	ProductRepo *postgres.ProductRepository
	CouponRepo  *postgres.CouponRepository
}

// NewServices wires repositories over pool into domain services.
func NewServices(pool *pgxpool.Pool, m httpmiddleware.Telemetry, cfg *Config) (*Services, error) {
	userRepo := postgres.NewUserRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	grantRepo := postgres.NewGrantRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	hasher := auth.NewKeyHasher([]byte(cfg.APIKeyPepper))
	tokens := auth.NewTokens([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	users := user.NewService(userRepo, hasher, tokens)

	orders, err := order.NewService(orderRepo, grantRepo,
		postgres.NewTransactor(pool, cfg.Tx.Options()),
		m.TracerProvider(), m.MeterProvider(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	return &Services{
		Users:       users,
		Products:    product.NewService(productRepo),
		Coupons:     coupon.NewService(couponRepo),
		Grants:      coupon.NewGrantService(couponRepo, grantRepo, users),
		Carts:       cart.NewService(cartRepo),
		Orders:      orders,
		Auth:        auth.NewResolver(userRepo, hasher, tokens),
		ProductRepo: productRepo,
		CouponRepo:  couponRepo,
	}, nil
}

// Open connects to the database and applies the schema.
func Open(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return pool, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := NewServices(pool, m, cfg)
	if err != nil {
		return err
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           NewRouter(zctx.From(ctx), m, svc, healthSvc),
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// NewRouter builds the HTTP handler serving the API and health probes.
func NewRouter(lg *zap.Logger, m httpmiddleware.Telemetry, svc *Services, healthSvc *health.Health) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument("shop-api", httpmiddleware.ChiRoute, m),
		httpmiddleware.LogRequests(httpmiddleware.ChiRoute),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)

	handler.New(handler.Services{
		Users:    svc.Users,
		Products: svc.Products,
		Coupons:  svc.Coupons,
		Grants:   svc.Grants,
		Carts:    svc.Carts,
		Orders:   svc.Orders,
		Auth:     svc.Auth,
	}).Mount(r)
	return r
}
