// Package config loads runtime settings from LEDGERCORE_* environment
// variables, an optional .env file and an optional ledgercore.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ledgercore/internal/core/types"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Inventory  InventoryConfig  `mapstructure:"inventory"`
	MRP        MRPConfig        `mapstructure:"mrp"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`

	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
}

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	Migrate          bool          `mapstructure:"migrate"`
}

type LedgerConfig struct {
	// SequenceBase is the first sequence of an empty ledger.
	SequenceBase int64 `mapstructure:"sequence_base"`
}

type SettlementConfig struct {
	Tolerance         string `mapstructure:"tolerance"`
	ReceivableAccount string `mapstructure:"receivable_account"`
	PayableAccount    string `mapstructure:"payable_account"`
}

type InventoryConfig struct {
	AllowNegativeStock bool   `mapstructure:"allow_negative_stock"`
	ClearingAccount    string `mapstructure:"clearing_account"`
	VarianceAccount    string `mapstructure:"variance_account"`
	ValuationAccount   string `mapstructure:"valuation_account"`
	COGSAccount        string `mapstructure:"cogs_account"`
}

type MRPConfig struct {
	// PurchaseRule is a CEL predicate over the component item.
	PurchaseRule string `mapstructure:"purchase_rule"`
}

type OutboxConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
	PublishRetention time.Duration `mapstructure:"publish_retention"`
}

// IdempotencyConfig controls X-Idempotency-Key replay on mutating requests.
type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.backend", BackendMemory)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.statement_timeout", 30*time.Second)
	v.SetDefault("database.migrate", true)

	v.SetDefault("ledger.sequence_base", 1000)

	v.SetDefault("settlement.tolerance", "0.01")
	v.SetDefault("settlement.receivable_account", "1200")
	v.SetDefault("settlement.payable_account", "2100")

	v.SetDefault("inventory.allow_negative_stock", false)
	v.SetDefault("inventory.clearing_account", "2150")
	v.SetDefault("inventory.variance_account", "5900")
	v.SetDefault("inventory.valuation_account", "1300")
	v.SetDefault("inventory.cogs_account", "5000")

	v.SetDefault("mrp.purchase_rule", "")

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.cleanup_interval", 10*time.Minute)
	v.SetDefault("outbox.publish_retention", 7*24*time.Hour)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
}

// Load reads .env (if present), ledgercore.yaml (if present) and the
// environment. Environment variables win: LEDGERCORE_DATABASE_DSN sets database.dsn.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("ledgercore")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/ledgercore")

	v.SetEnvPrefix("LEDGERCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot start the service.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := c.Settlement.ToleranceMoney(); err != nil {
		return err
	}
	if c.Outbox.PollInterval <= 0 {
		return errors.New("outbox.poll_interval must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

// ToleranceMoney parses the settlement tolerance.
func (s SettlementConfig) ToleranceMoney() (types.Money, error) {
	m, err := types.NewMoneyFromString(s.Tolerance)
	if err != nil {
		return types.Zero(), fmt.Errorf("settlement.tolerance: %w", err)
	}
	if m.IsNegative() {
		return types.Zero(), errors.New("settlement.tolerance must not be negative")
	}
	return m, nil
}
