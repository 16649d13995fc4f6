package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/storage/sqlite"
	"github.com/mmynk/receiptsplit/pkg/api"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the receipt splitting API server" }
func (*serveCmd) Usage() string {
	return `serve

  Starts the Connect API on PORT. Settings come from the environment:
  PORT, DB_PATH, JWT_SECRET, TOKEN_TTL, LOG_LEVEL, CURRENCY, PHONE_COUNTRY_CODE.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (*serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup().Error("Invalid configuration", "error", err)
		return subcommands.ExitUsageError
	}
	logger := logging.SetupWithLevel(cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set; sessions end when the server restarts")
	}
	jwtManager := auth.NewJWTManager(secret, cfg.TokenTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	// Metrics see every call; logging runs after auth so it knows the caller.
	interceptors := connect.WithInterceptors(
		metrics.Interceptor(),
		middleware.RequireAuth(jwtManager, api.PublicProcedures),
		middleware.LoggingInterceptor(logger),
	)

	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger)
	receiptSvc := service.NewReceiptService(store, service.ReceiptOptions{
		Currency:    cfg.Currency,
		CountryCode: cfg.CountryCode,
		Places:      cfg.Places,
		Logger:      logger,
		Metrics:     metrics,
	})

	router := newRouter(logger, reg,
		route(api.NewAuthServiceHandler(authSvc, interceptors)),
		route(api.NewReceiptServiceHandler(receiptSvc, interceptors)),
	)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", cfg.Addr(), "currency", cfg.Currency, "places", cfg.Places)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
