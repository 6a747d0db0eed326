package cmd

import (
	"context"
	"fmt"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/core/store"
)

// withStore opens the configured store, runs fn against it, and closes the
// connection again. Window admin commands are one-shot, so nothing holds a
// connection past the call.
func withStore(ctx context.Context, fn func(*store.Store) error) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	return fn(db)
}
