package store

import (
	"context"
	"errors"
	"fmt"
)

// Window state is one row per client. Stamps hold the JSON-encoded request
// timestamps; updated_at drives pruning and the admin listing.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS client_windows (
		client_id TEXT PRIMARY KEY,
		stamps TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_client_windows_updated ON client_windows(updated_at);`,
}

// Migrate creates the window table and index. Every statement is idempotent,
// so callers run it unconditionally at startup, local file or remote
// database alike.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for i, stmt := range migrations {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration step %d: %w", i+1, err)
		}
	}
	return nil
}
