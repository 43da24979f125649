package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"ledgercore/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createMigrationsTableSQL = `
	CREATE TABLE IF NOT EXISTS sys_schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Migrate applies every embedded migration not yet recorded in
// sys_schema_migrations, each in its own transaction, in file name order.
func Migrate(ctx context.Context, txManager *TxManager) error {
	if _, err := txManager.GetQuerier(ctx).Exec(ctx, createMigrationsTableSQL); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		body, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		applied := false
		err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := txManager.LockKeys(ctx, "schema:migrate"); err != nil {
				return err
			}
			q := txManager.GetQuerier(ctx)
			var exists bool
			if err := q.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM sys_schema_migrations WHERE name = $1)", name).Scan(&exists); err != nil {
				return fmt.Errorf("check migration %s: %w", name, err)
			}
			if exists {
				return nil
			}
			if _, err := q.Exec(ctx, string(body)); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			if _, err := q.Exec(ctx, "INSERT INTO sys_schema_migrations (name) VALUES ($1)", name); err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			applied = true
			return nil
		})
		if err != nil {
			return err
		}
		if applied {
			logger.Info(ctx, "migration applied", "name", name)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
