// Package main is the entry point for the stock ledger background worker.
// It relays committed-transaction events from the outbox, housekeeps system
// tables and periodically re-verifies every movement chain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockledger/internal/app"
	"stockledger/internal/config"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/infrastructure/broker"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

const (
	cleanupInterval    = time.Hour
	publishedRetention = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
		Service:     "stockledger-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	if cfg.App.StorageDriver != config.DriverPostgres {
		log.Fatalw("worker requires the postgres storage driver", "driver", cfg.App.StorageDriver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stock ledger worker")

	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer container.Close()

	handler, closeHandler, err := outboxHandler(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize broker", "error", err)
	}
	defer closeHandler()

	worker := NewWorker(container, handler, cfg.Worker, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// outboxHandler publishes to Redis when REDIS_ADDR is set and only logs otherwise.
func outboxHandler(ctx context.Context, cfg *config.Config, log *logger.Logger) (postgres.OutboxHandler, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Warn("REDIS_ADDR not set; outbox events are logged only")
		return logHandler{log: log.WithComponent("outbox")}, func() {}, nil
	}

	client, err := broker.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("broker connected", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	return broker.NewPublisher(client, cfg.Redis.Channel), func() { _ = client.Close() }, nil
}

type logHandler struct {
	log *logger.Logger
}

func (h logHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("outbox event", "event_type", msg.EventType, "aggregate_id", msg.AggregateID)
	return nil
}

// Worker runs the periodic jobs.
type Worker struct {
	container *app.Container
	relay     *postgres.OutboxRelay
	cfg       config.WorkerConfig
	log       *logger.Logger
}

// NewWorker relays outbox messages to handler.
func NewWorker(c *app.Container, handler postgres.OutboxHandler, cfg config.WorkerConfig, log *logger.Logger) *Worker {
	return &Worker{
		container: c,
		relay:     postgres.NewOutboxRelay(c.TxManager, cfg.OutboxBatchSize, handler),
		cfg:       cfg,
		log:       log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	outboxTicker := time.NewTicker(w.cfg.OutboxInterval)
	defer outboxTicker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	integrityTicker := time.NewTicker(w.cfg.IntegrityInterval)
	defer integrityTicker.Stop()

	w.verifyIntegrity(w.jobContext(ctx, "integrity"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-outboxTicker.C:
			w.processOutbox(w.jobContext(ctx, "outbox"))
		case <-cleanupTicker.C:
			w.cleanup(w.jobContext(ctx, "cleanup"))
		case <-integrityTicker.C:
			w.verifyIntegrity(w.jobContext(ctx, "integrity"))
		}
	}
}

// jobContext gives each run its own trace ids so its log lines group together.
func (w *Worker) jobContext(ctx context.Context, job string) context.Context {
	return logger.WithLogger(appctx.WithTrace(ctx, appctx.NewJobTrace(appctx.OriginWorker, job)), w.log)
}

func (w *Worker) processOutbox(ctx context.Context) {
	for {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("processed outbox batch", "count", n)
		}
		if n < w.cfg.OutboxBatchSize || ctx.Err() != nil {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	w.container.Pool.LogStats(ctx)

	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if n > 0 {
		w.log.Warnw("outbox messages moved to DLQ", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, publishedRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	if w.container.Idempotency != nil {
		if n, err := w.container.Idempotency.CleanupExpired(ctx); err != nil {
			w.log.Errorw("failed to clean up idempotency keys", "error", err)
		} else if n > 0 {
			w.log.Infow("cleaned up idempotency keys", "count", n)
		}
	}
}

// verifyIntegrity replays the movement chain of every product that has one.
func (w *Worker) verifyIntegrity(ctx context.Context) {
	balances, err := w.container.Movements.ListBalances(ctx)
	if err != nil {
		w.log.Errorw("failed to list balances", "error", err)
		return
	}

	var broken int
	for _, b := range balances {
		if ctx.Err() != nil {
			return
		}
		report, err := w.container.Stock.VerifyStockMovementIntegrity(ctx, b.ProductID)
		if err != nil {
			w.log.Errorw("integrity check failed", "product_id", b.ProductID, "error", err)
			continue
		}
		if !report.Valid {
			broken++
			w.log.Errorw("movement chain broken",
				"product_id", b.ProductID,
				"total_movements", report.TotalMovements,
				"issues", report.Errors,
			)
		}
	}

	w.log.Infow("integrity sweep finished", "products", len(balances), "broken", broken)
}
