package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/mealbox/internal/address"
	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/backend"
	"github.com/mmynk/mealbox/internal/config"
	"github.com/mmynk/mealbox/internal/middleware"
	"github.com/mmynk/mealbox/internal/payment"
	"github.com/mmynk/mealbox/internal/pricing"
	"github.com/mmynk/mealbox/internal/service"
	"github.com/mmynk/mealbox/internal/session"
	"github.com/mmynk/mealbox/internal/storage"
	"github.com/mmynk/mealbox/internal/storage/memory"
	"github.com/mmynk/mealbox/internal/storage/redisstore"
	"github.com/mmynk/mealbox/internal/storage/sqlite"
	"github.com/mmynk/mealbox/internal/wizard"
)

const shutdownTimeout = 10 * time.Second

// sweepInterval checks for idle sessions a few times per timeout, at most
// once a minute.
func sweepInterval(idle time.Duration) time.Duration {
	return max(idle/4, time.Minute)
}

// stores holds the cart store and checkout log picked by CART_STORE.
// Checkouts stay in SQLite when carts live in Redis.
type stores struct {
	carts     storage.CartStore
	checkouts storage.CheckoutLog
	closers   []func() error
}

func (s *stores) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.CartStore {
	case config.StoreMemory:
		m := memory.New()
		return &stores{carts: m, checkouts: m}, nil

	case config.StoreRedis:
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open checkout database: %w", err)
		}
		rs := redisstore.New(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CartTTL,
		})
		if err := rs.Ping(ctx); err != nil {
			db.Close()
			rs.Close()
			return nil, err
		}
		return &stores{carts: rs, checkouts: db, closers: []func() error{rs.Close, db.Close}}, nil

	default:
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return &stores{carts: db, checkouts: db, closers: []func() error{db.Close}}, nil
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	slog.Info("Storage initialized", "cart_store", cfg.CartStore, "database", cfg.DBPath)

	lookup := address.NewHTTPLookup(cfg.AddressURL, cfg.AddressAPIKey, cfg.AddressRPS, cfg.BackendTimeout)
	sessions := session.NewManager(st.carts, lookup, cfg.AddressDebounce)
	go sessions.Sweep(ctx, cfg.SessionIdleTimeout, sweepInterval(cfg.SessionIdleTimeout))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rpcMetrics := middleware.NewMetrics(reg)

	deps := &service.Dependencies{
		Backend:    backend.New(cfg.BackendURL, cfg.BackendTimeout),
		Payment:    payment.New(cfg.PaymentURL, cfg.PaymentAPIKey, cfg.BackendTimeout),
		Checkouts:  st.checkouts,
		Sessions:   sessions,
		Pricer:     pricing.Pricer{DoubleProteinSurcharge: cfg.DoubleProteinSurcharge},
		Labels:     pricing.NewLabeler(cfg.RemappedRoutes),
		Gate:       wizard.NewGate(cfg.RestrictedRoutes),
		Metrics:    service.NewMetrics(reg, sessions),
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 0, cfg.JWTIssuer)
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
		rpcMetrics.Interceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(service.NewBoxServiceHandler(service.NewBoxService(deps), interceptors))
	mux.Handle(service.NewCartServiceHandler(service.NewCartService(deps), interceptors))
	mux.Handle(service.NewCheckoutServiceHandler(service.NewCheckoutService(deps), interceptors))
	mux.Handle(service.NewAccountServiceHandler(service.NewAccountService(deps), interceptors))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Logging(middleware.CORS(cfg.AllowedOrigin, mux))

	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocol needs.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
