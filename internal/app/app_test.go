package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/config"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/infrastructure/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage:    config.StorageConfig{Backend: config.BackendMemory},
		Ledger:     config.LedgerConfig{SequenceBase: 1},
		Settlement: config.SettlementConfig{Tolerance: "0.01", ReceivableAccount: "1200", PayableAccount: "2100"},
		Inventory: config.InventoryConfig{
			ClearingAccount:  "2150",
			VarianceAccount:  "5900",
			ValuationAccount: "1300",
			COGSAccount:      "5000",
		},
		Outbox: config.OutboxConfig{PollInterval: time.Second},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, config.BackendMemory, a.Storage.Backend)
	assert.NoError(t, a.Storage.Ping(ctx))

	it := item.NewItem("RM-1", "Resin", item.KindRawMaterial, types.MustMoney("4"))
	require.NoError(t, a.Items.Create(ctx, it))

	gr := goods_receipt.NewGoodsReceipt()
	gr.AddLine(it.ID, types.NewQuantity(5), nil)
	require.NoError(t, a.Inventory.Receive(ctx, gr))

	stored, err := a.Items.GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(5), stored.Stock)

	entry, err := a.Ledger.Get(ctx, 1)
	require.NoError(t, err, "sequence base comes from config")
	assert.Equal(t, "inventory", entry.SourceModule)
}

func TestBuild_RejectsBadRule(t *testing.T) {
	cfg := testConfig()
	cfg.MRP.PurchaseRule = "item.kind =="

	_, err := Build(cfg, NewMemoryStorage(), metrics.New())
	assert.ErrorContains(t, err, "mrp purchase rule")
}
