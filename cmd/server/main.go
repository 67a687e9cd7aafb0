// Package main is the entry point for the stock ledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/ledger"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
		Service:     "stockledger-api",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx := context.Background()

	log.Infow("starting stock ledger", "version", version, "env", cfg.App.Env, "driver", cfg.App.StorageDriver)

	// --- Storage and services ---
	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer container.Close()

	container.Ledger.Subscribe(func(ctx context.Context, e ledger.Event) {
		logger.FromContext(ctx).Infow("stock transaction committed",
			"reference_number", e.ReferenceNumber,
			"transaction_type", e.TransactionType,
			"movements", len(e.Changes),
		)
	})

	if cfg.App.SeedDemo {
		if cfg.App.StorageDriver != config.DriverMemory {
			log.Warnw("SEED_DEMO ignored; use cmd/seed for postgres", "driver", cfg.App.StorageDriver)
		} else {
			res, err := app.SeedDemo(ctx, container)
			if err != nil {
				log.Fatalw("failed to seed demo data", "error", err)
			}
			log.Infow("demo data seeded", "products", len(res.Products), "transactions", len(res.Transactions))
		}
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:       log,
		AuthRequired: cfg.Auth.Required,
		Ledger:       container.Ledger,
		Stock:        container.Stock,
		Driver:       cfg.App.StorageDriver,
		Version:      version,
	}

	if cfg.Auth.Enabled() {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
		log.Infow("token validation enabled", "required", cfg.Auth.Required, "issuer", cfg.Auth.Issuer)
	}
	if container.Idempotency != nil {
		routerCfg.Idempotency = container.Idempotency
	}
	if container.Pool != nil {
		routerCfg.DB = container
	}

	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
