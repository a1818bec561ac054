package cmd

import (
	"context"

	"github.com/dailypick/dailypick/internal/config"
	"github.com/dailypick/dailypick/internal/core/store"
)

// openStore opens and migrates the configured database.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
