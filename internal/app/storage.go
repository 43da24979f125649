package app

import (
	"context"
	"fmt"

	"ledgercore/internal/core/idempotency"
	corenumerator "ledgercore/internal/core/numerator"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/config"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/documents/stockcount"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/infrastructure/storage/memory"
	"ledgercore/internal/infrastructure/storage/postgres"
	"ledgercore/internal/infrastructure/storage/postgres/catalog_repo"
	"ledgercore/internal/infrastructure/storage/postgres/document_repo"
	"ledgercore/internal/infrastructure/storage/postgres/ledger_repo"
	"ledgercore/internal/infrastructure/storage/postgres/register_repo"
	"ledgercore/pkg/logger"
	pgnumerator "ledgercore/pkg/numerator"
)

// Storage is the persistence surface used by the domain services,
// independent of the backend behind it.
type Storage struct {
	Backend   string
	TxManager tx.Manager

	Items     item.Repository
	BOMs      bom.Repository
	Accounts  account.Repository
	Ledger    ledger.Repository
	Movements stock.Repository

	Invoices         invoice.Repository
	Payments         payment.Repository
	GoodsReceipts    goods_receipt.Repository
	GoodsIssues      goods_issue.Repository
	StockCounts      stockcount.Repository
	ProductionOrders production_order.Repository

	Outbox    posting.Outbox
	Audit     posting.AuditSink
	Numerator corenumerator.Generator

	Idempotency idempotency.Store

	// Set for the postgres backend only.
	PgTxManager *postgres.TxManager
	Pool        *postgres.Pool

	closers []func()
}

// Ping checks the backing store.
func (s *Storage) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// Close releases backend resources in reverse order of acquisition.
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewMemoryStorage wraps a fresh in-memory backend.
func NewMemoryStorage() *Storage {
	return MemoryStorage(memory.New())
}

// MemoryStorage exposes an existing in-memory backend.
func MemoryStorage(b *memory.Backend) *Storage {
	return &Storage{
		Backend:          config.BackendMemory,
		TxManager:        b.TxManager,
		Items:            b.Items,
		BOMs:             b.BOMs,
		Accounts:         b.Accounts,
		Ledger:           b.Ledger,
		Movements:        b.Movements,
		Invoices:         b.Invoices,
		Payments:         b.Payments,
		GoodsReceipts:    b.GoodsReceipts,
		GoodsIssues:      b.GoodsIssues,
		StockCounts:      b.StockCounts,
		ProductionOrders: b.ProductionOrders,
		Outbox:           b.Outbox,
		Audit:            b.Audit,
		Idempotency:      b.Idempotency,
		Numerator:        b.Numerator,
	}
}

// NewPostgresStorage connects the pool, applies migrations when enabled
// and builds every repository over one transaction manager.
func NewPostgresStorage(ctx context.Context, cfg config.DatabaseConfig, appName string) (*Storage, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DSN)
	poolCfg.ApplicationName = appName
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	txm := postgres.NewTxManager(pool)
	if cfg.StatementTimeout > 0 {
		txm = txm.WithStatementTimeout(cfg.StatementTimeout)
	}

	if cfg.Migrate {
		if err := postgres.Migrate(ctx, txm); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		pool.Close()
		return nil, err
	}

	numbers := pgnumerator.NewWithQuerierFunc(func(ctx context.Context) pgnumerator.Querier {
		return txm.GetQuerier(ctx)
	})

	logger.Info(ctx, "postgres storage ready", "max_conns", poolCfg.MaxConns, "migrate", cfg.Migrate)

	return &Storage{
		Backend:          config.BackendPostgres,
		TxManager:        txm,
		Items:            catalog_repo.NewItemRepo(txm),
		BOMs:             catalog_repo.NewBOMRepo(txm),
		Accounts:         catalog_repo.NewAccountRepo(txm),
		Ledger:           ledger_repo.NewLedgerRepo(txm),
		Movements:        register_repo.NewMovementRepo(txm),
		Invoices:         document_repo.NewInvoiceRepo(txm),
		Payments:         document_repo.NewPaymentRepo(txm),
		GoodsReceipts:    document_repo.NewGoodsReceiptRepo(txm),
		GoodsIssues:      document_repo.NewGoodsIssueRepo(txm),
		StockCounts:      document_repo.NewStockCountRepo(txm),
		ProductionOrders: document_repo.NewProductionOrderRepo(txm),
		Outbox:           postgres.NewOutboxPublisher(txm),
		Audit:            auditSvc,
		Numerator:        numbers,
		Idempotency:      postgres.NewIdempotencyStore(txm, 0),
		PgTxManager:      txm,
		Pool:             pool,
		closers:          []func(){pool.Close, auditSvc.Close},
	}, nil
}

// NewStorage selects the backend named by cfg.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		st, err := NewPostgresStorage(ctx, cfg.Database, "ledgercore")
		if err != nil {
			return nil, err
		}
		st.Idempotency = postgres.NewIdempotencyStore(st.PgTxManager, cfg.Idempotency.TTL)
		return st, nil
	case config.BackendMemory:
		st := NewMemoryStorage()
		st.Idempotency = memory.NewIdempotencyStore(cfg.Idempotency.TTL)
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
