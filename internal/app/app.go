// Package app wires configuration, storage and the domain services into
// one container shared by the server and the worker.
package app

import (
	"context"
	"fmt"

	"ledgercore/internal/config"
	"ledgercore/internal/core/lock"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/inventory"
	"ledgercore/internal/domain/journal"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/mrp"
	"ledgercore/internal/domain/posting"
	"ledgercore/internal/domain/production"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/domain/settlement"
	"ledgercore/internal/infrastructure/metrics"
)

// App holds every service of a running instance.
type App struct {
	Config  *config.Config
	Storage *Storage
	Metrics *metrics.Metrics

	Engine  *posting.Engine
	Ledger  *ledger.Store
	Stock   *stock.Service
	Journal *journal.Service

	Settlement *settlement.Allocator
	Inventory  *inventory.Reconciler
	Production *production.Accumulator
	MRP        *mrp.Calculator

	Items    *domain.CatalogService[*item.Item]
	BOMs     *domain.CatalogService[*bom.BOM]
	Accounts *domain.CatalogService[*account.Account]
}

// New opens storage selected by cfg and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := Build(cfg, st, metrics.New())
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// Build assembles the services over an existing storage.
func Build(cfg *config.Config, st *Storage, m *metrics.Metrics) (*App, error) {
	rule, err := mrp.NewRule(cfg.MRP.PurchaseRule)
	if err != nil {
		return nil, fmt.Errorf("mrp purchase rule: %w", err)
	}
	tolerance, err := cfg.Settlement.ToleranceMoney()
	if err != nil {
		return nil, err
	}

	ledgerStore := ledger.NewStore(st.Ledger, account.NewLookup(st.Accounts), cfg.Ledger.SequenceBase)
	stockSvc := stock.NewService(st.Items, st.Movements)

	engineCfg := posting.Config{
		TxManager:          st.TxManager,
		Locks:              lock.NewKeyed(),
		Stock:              stockSvc,
		Ledger:             ledgerStore,
		Outbox:             st.Outbox,
		Audit:              st.Audit,
		AllowNegativeStock: cfg.Inventory.AllowNegativeStock,
	}
	if m != nil {
		engineCfg.Observer = m
	}
	engine := posting.NewEngine(engineCfg)

	settlementCfg := settlement.DefaultConfig()
	settlementCfg.Tolerance = tolerance
	settlementCfg.ReceivableAccount = cfg.Settlement.ReceivableAccount
	settlementCfg.PayableAccount = cfg.Settlement.PayableAccount

	inventoryCfg := inventory.DefaultConfig()
	inventoryCfg.ClearingAccount = cfg.Inventory.ClearingAccount
	inventoryCfg.VarianceAccount = cfg.Inventory.VarianceAccount
	inventoryCfg.DefaultValuationAccount = cfg.Inventory.ValuationAccount
	inventoryCfg.DefaultCOGSAccount = cfg.Inventory.COGSAccount

	return &App{
		Config:  cfg,
		Storage: st,
		Metrics: m,
		Engine:  engine,
		Ledger:  ledgerStore,
		Stock:   stockSvc,
		Journal: journal.NewService(engine),
		Settlement: settlement.NewAllocator(engine, st.Invoices, st.Payments,
			st.Numerator, settlementCfg),
		Inventory: inventory.NewReconciler(engine, st.Items, st.GoodsReceipts, st.GoodsIssues,
			st.StockCounts, st.Numerator, inventoryCfg),
		Production: production.NewAccumulator(engine, st.ProductionOrders, st.Items, st.BOMs, st.Numerator),
		MRP:        mrp.NewCalculator(st.Items, st.BOMs, rule),
		Items:      domain.NewCatalogService[*item.Item](st.Items, st.TxManager, "item"),
		BOMs:       domain.NewCatalogService[*bom.BOM](st.BOMs, st.TxManager, "bom"),
		Accounts:   domain.NewCatalogService[*account.Account](st.Accounts, st.TxManager, "account"),
	}, nil
}

// Close releases storage resources.
func (a *App) Close() {
	a.Storage.Close()
}
