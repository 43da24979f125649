// Package main is the entry point for the ledgercore outbox worker.
// It relays committed posting events and prunes delivered ones.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgercore/internal/app"
	"ledgercore/internal/config"
	"ledgercore/internal/core/idempotency"
	"ledgercore/internal/infrastructure/metrics"
	"ledgercore/internal/infrastructure/storage/postgres"
	"ledgercore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if cfg.Storage.Backend != config.BackendPostgres {
		log.Fatalw("worker requires the postgres backend", "backend", cfg.Storage.Backend)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := app.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer st.Close()

	w := NewWorker(st.PgTxManager, st.Idempotency, cfg.Outbox, metrics.New(), log)
	log.Infow("starting ledgercore worker",
		"batch_size", cfg.Outbox.BatchSize,
		"poll_interval", cfg.Outbox.PollInterval,
	)
	w.Run(ctx)
	log.Info("worker stopped")
}

// Worker polls the outbox on a fixed interval and periodically prunes
// dead, published and expired records.
type Worker struct {
	relay   *postgres.OutboxRelay
	keys    idempotency.Store
	cfg     config.OutboxConfig
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewWorker creates a worker whose handler logs every delivered event.
func NewWorker(txm *postgres.TxManager, keys idempotency.Store, cfg config.OutboxConfig, m *metrics.Metrics, log *logger.Logger) *Worker {
	log = log.WithComponent("outbox")
	handler := postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		log.WithContext(ctx).Infow("event delivered",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
		)
		return nil
	})
	return &Worker{
		relay:   postgres.NewOutboxRelay(txm, cfg.BatchSize, handler),
		keys:    keys,
		cfg:     cfg,
		metrics: m,
		log:     log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanup := w.cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	cleanupTicker := time.NewTicker(cleanup)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	published, failed, err := w.relay.ProcessBatch(ctx)
	w.metrics.OutboxDelivered(published, failed)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if published+failed > 0 {
		w.log.Debugw("outbox batch processed", "published", published, "failed", failed)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	moved, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("move to dead letter failed", "error", err)
	} else if moved > 0 {
		w.log.Warnw("outbox messages moved to dead letter", "count", moved)
	}

	purged, err := w.relay.PurgePublished(ctx, w.cfg.PublishRetention)
	if err != nil {
		w.log.Errorw("purge published failed", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	expired, err := w.keys.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if expired > 0 {
		w.log.Infow("removed expired idempotency keys", "count", expired)
	}
}
