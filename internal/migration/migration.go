package migration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
)

// Migration defines the interface for a datastore migration.
type Migration interface {
	Version() int
	Description() string
	Up(ctx context.Context, store kv.Storer) error
}

var migrations []Migration

// Register adds a new migration to the list of available migrations.
func Register(m Migration) {
	migrations = append(migrations, m)
}

// Apply runs all pending migrations against the datastore.
func Apply(ctx context.Context, store kv.Storer) error {
	slog.Info("applying datastore migrations")

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version() < migrations[j].Version()
	})

	currentVersion, err := store.GetSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	slog.Info("current datastore version", "version", currentVersion)

	for _, m := range migrations {
		if m.Version() <= currentVersion {
			continue
		}
		slog.Info("running migration", "version", m.Version(), "description", m.Description())
		if err := m.Up(ctx, store); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version(), err)
		}
		if err := store.SetSchemaVersion(ctx, m.Version()); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		slog.Info("migration successful", "version", m.Version())
	}

	slog.Info("migrations are up to date")
	return nil
}
