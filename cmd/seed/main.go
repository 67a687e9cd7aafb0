// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"

	"stockledger/internal/app"
	"stockledger/internal/config"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/domain/auth"
	"stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.SetDefault(log)
	ctx := logger.WithLogger(appctx.WithTrace(context.Background(), appctx.NewJobTrace(appctx.OriginSeed, "demo")), log)

	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer container.Close()

	existing, err := container.Products.ListProducts(ctx)
	if err != nil {
		log.Fatalw("failed to list products", "error", err)
	}
	if len(existing) > 0 && os.Getenv("SEED_FORCE") != "true" {
		log.Infow("products already present, skipping demo data", "count", len(existing))
	} else {
		res, err := app.SeedDemo(ctx, container)
		if err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
		for _, p := range res.Products {
			log.Infow("product", "sku", p.SKU, "id", p.ID)
		}
		for _, txn := range res.Transactions {
			log.Infow("transaction", "reference_number", txn.ReferenceNumber, "type", txn.Type, "id", txn.ID)
		}
	}

	if cfg.Auth.Enabled() {
		issueDevToken(cfg, log)
	}

	log.Info("seeding completed successfully")
}

// issueDevToken prints a bearer token for local API calls.
func issueDevToken(cfg *config.Config, log *logger.Logger) {
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret, cfg.Auth.Issuer))

	token, expiresAt, err := jwtService.GenerateAccessToken(app.DemoActor, "seed@stockledger.local", []string{"admin"})
	if err != nil {
		log.Warnw("failed to issue dev token", "error", err)
		return
	}
	log.Infow("dev token issued", "expires_at", expiresAt, "token", token)
}
