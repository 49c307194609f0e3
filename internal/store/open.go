package store

import (
	"context"
	"fmt"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/config"
)

// Open builds the Store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory, "":
		return NewMemoryStore(cfg.SessionID), nil
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.StoreDSN, cfg.SessionID)
	case config.StorePostgres:
		return NewPostgresStore(ctx, cfg.StoreDSN, cfg.SessionID)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}
