package app

import (
	"context"
	"fmt"
	"log/slog"

	"gym-booking-service/internal/config"
	"gym-booking-service/internal/slots"
	"gym-booking-service/internal/store"
)

// OpenStore connects the backend named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		st, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// LoadOverrides copies the stored overrides into catalog. An empty table
// is seeded with the built-in overrides first.
func LoadOverrides(ctx context.Context, st store.OverrideStore, catalog *slots.Catalog) error {
	stored, err := st.ListOverrides(ctx)
	if err != nil {
		return fmt.Errorf("failed to list slot overrides: %w", err)
	}
	if len(stored) == 0 {
		stored = slots.DefaultOverrides()
		for date, labels := range stored {
			if err := st.PutOverride(ctx, date, labels); err != nil {
				return fmt.Errorf("failed to seed override %s: %w", date, err)
			}
		}
		slog.Info("seeded default slot overrides", "count", len(stored))
	}
	for date, labels := range stored {
		catalog.SetOverride(date, labels)
	}
	return nil
}
