// Package app wires storage adapters and domain services for the binaries.
package app

import (
	"context"
	"fmt"

	"stockledger/internal/config"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/numerator"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/register_repo"
	"stockledger/pkg/logger"
)

// Catalog writes reference data. The ledger itself never writes it.
type Catalog interface {
	SaveProduct(ctx context.Context, p product.Product) error
	SaveSupplier(ctx context.Context, s supplier.Supplier) error
}

// Container holds the wired services of one process.
type Container struct {
	Config *config.Config

	Ledger    *ledger.Service
	Stock     *stock.Service
	Products  product.Registry
	Movements stock.Repository
	Catalog   Catalog

	// Postgres only; nil with the memory driver.
	Pool        *postgres.Pool
	TxManager   *postgres.TxManager
	Idempotency *postgres.IdempotencyStore
}

// New builds a container for cfg.App.StorageDriver.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	switch cfg.App.StorageDriver {
	case config.DriverMemory:
		return newMemory(cfg, log), nil
	case config.DriverPostgres:
		return newPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.App.StorageDriver)
	}
}

// Close releases the database pool, if any.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Ping checks the database, if any.
func (c *Container) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return nil
	}
	return c.Pool.Ping(ctx)
}

func ledgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		MaxCommitAttempts: cfg.Ledger.MaxCommitAttempts,
		RetryBackoff:      cfg.Ledger.RetryBackoff,
	}
}

func newMemory(cfg *config.Config, log *logger.Logger) *Container {
	store := memory.New()

	ledgerSvc := ledger.NewService(ledger.Deps{
		TxManager:    store,
		Transactions: store,
		Movements:    store,
		Products:     store,
		Suppliers:    store,
		Numerator:    store,
		Events:       store,
	}, ledgerConfig(cfg))

	log.Infow("storage initialized", "driver", config.DriverMemory)

	return &Container{
		Config:    cfg,
		Ledger:    ledgerSvc,
		Stock:     stock.NewService(store, store),
		Products:  store,
		Movements: store,
		Catalog:   memoryCatalog{store},
	}
}

func newPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.URL)
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}
	if cfg.DB.MinConns > 0 {
		poolCfg.MinConns = cfg.DB.MinConns
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.DB.StatementTimeout)

	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init audit: %w", err)
	}

	products := catalog_repo.NewProductRepo(txm)
	suppliers := catalog_repo.NewSupplierRepo(txm)
	movements := register_repo.NewStockRepo(txm)

	ledgerSvc := ledger.NewService(ledger.Deps{
		TxManager:    txm,
		Transactions: document_repo.NewTransactionRepo(txm),
		Movements:    movements,
		Products:     products,
		Suppliers:    suppliers,
		Numerator:    numerator.NewFromTxManager(txm),
		Events:       postgres.NewOutboxPublisher(txm),
		Audit:        audit,
	}, ledgerConfig(cfg))

	c := &Container{
		Config:    cfg,
		Ledger:    ledgerSvc,
		Stock:     stock.NewService(movements, products),
		Products:  products,
		Movements: movements,
		Catalog:   postgresCatalog{products: products, suppliers: suppliers},
		Pool:      pool,
		TxManager: txm,
	}
	if cfg.Idempotency.Enabled {
		c.Idempotency = postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL)
	}

	log.Infow("storage initialized",
		"driver", config.DriverPostgres,
		"max_conns", poolCfg.MaxConns,
		"statement_timeout", cfg.DB.StatementTimeout,
	)
	return c, nil
}

type memoryCatalog struct {
	store *memory.Store
}

func (m memoryCatalog) SaveProduct(_ context.Context, p product.Product) error {
	m.store.AddProduct(p)
	return nil
}

func (m memoryCatalog) SaveSupplier(_ context.Context, s supplier.Supplier) error {
	m.store.AddSupplier(s)
	return nil
}

type postgresCatalog struct {
	products  *catalog_repo.ProductRepo
	suppliers *catalog_repo.SupplierRepo
}

func (p postgresCatalog) SaveProduct(ctx context.Context, pr product.Product) error {
	return p.products.Upsert(ctx, pr)
}

func (p postgresCatalog) SaveSupplier(ctx context.Context, s supplier.Supplier) error {
	return p.suppliers.Upsert(ctx, s)
}
