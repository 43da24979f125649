package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, int64(1000), cfg.Ledger.SequenceBase)
	assert.Equal(t, "1200", cfg.Settlement.ReceivableAccount)
	assert.False(t, cfg.Inventory.AllowNegativeStock)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEDGERCORE_APP_PORT", "9090")
	t.Setenv("LEDGERCORE_INVENTORY_ALLOW_NEGATIVE_STOCK", "true")
	t.Setenv("LEDGERCORE_LEDGER_SEQUENCE_BASE", "1")
	t.Setenv("LEDGERCORE_OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.Inventory.AllowNegativeStock)
	assert.Equal(t, int64(1), cfg.Ledger.SequenceBase)
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.PollInterval)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "settlement:\n  tolerance: \"0.05\"\nmrp:\n  purchase_rule: item.stock < 1.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledgercore.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	tol, err := cfg.Settlement.ToleranceMoney()
	require.NoError(t, err)
	assert.Equal(t, "0.05", tol.String())
	assert.Equal(t, "item.stock < 1.0", cfg.MRP.PurchaseRule)
}

func TestValidate(t *testing.T) {
	t.Setenv("LEDGERCORE_STORAGE_BACKEND", "postgres")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "database.dsn is required")

	t.Setenv("LEDGERCORE_STORAGE_BACKEND", "sqlite")
	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "unknown storage backend")

	t.Setenv("LEDGERCORE_STORAGE_BACKEND", "memory")
	t.Setenv("LEDGERCORE_SETTLEMENT_TOLERANCE", "-1")
	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "must not be negative")
}
