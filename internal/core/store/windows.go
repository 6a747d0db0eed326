package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codelens/codelens/internal/core"
)

// GetWindow returns stored sliding-window state for a client. A nil window
// with a nil error means the client has no recorded requests.
func (s *Store) GetWindow(ctx context.Context, clientID string) (*core.ClientWindow, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("client id is required")
	}

	var (
		stamps    string
		updatedAt int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT stamps, updated_at
		FROM client_windows
		WHERE client_id = ?
	`, clientID)

	if err := row.Scan(&stamps, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch client window: %w", err)
	}

	decoded, err := decodeStamps(stamps)
	if err != nil {
		return nil, err
	}

	return &core.ClientWindow{
		ClientID:  clientID,
		Stamps:    decoded,
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// PutWindow persists sliding-window state for a client.
func (s *Store) PutWindow(ctx context.Context, window *core.ClientWindow) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if window == nil {
		return errors.New("client window is required")
	}

	clientID := strings.TrimSpace(window.ClientID)
	if clientID == "" {
		return errors.New("client id is required")
	}

	encoded, err := encodeStamps(window.Stamps)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO client_windows (client_id, stamps, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			stamps = excluded.stamps,
			updated_at = excluded.updated_at
	`, clientID, encoded, window.UpdatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store client window: %w", err)
	}

	return nil
}

// DeleteWindow removes stored window state for a client.
func (s *Store) DeleteWindow(ctx context.Context, clientID string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return errors.New("client id is required")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM client_windows WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("delete client window: %w", err)
	}

	return nil
}

// PruneWindows deletes windows whose most recent update is at or before
// cutoff. updated_at advances on every admission attempt, so a window this
// stale cannot hold stamps inside any active window.
func (s *Store) PruneWindows(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM client_windows WHERE updated_at <= ?`, cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune client windows: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune client windows: %w", err)
	}

	return int(affected), nil
}

// Stamps are stored as a JSON array of UnixNano values so the sliding-window
// math keeps sub-second precision across restarts.
func encodeStamps(stamps []time.Time) (string, error) {
	nanos := make([]int64, 0, len(stamps))
	for _, stamp := range stamps {
		nanos = append(nanos, stamp.UTC().UnixNano())
	}

	data, err := json.Marshal(nanos)
	if err != nil {
		return "", fmt.Errorf("encode window stamps: %w", err)
	}
	return string(data), nil
}

func decodeStamps(raw string) ([]time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var nanos []int64
	if err := json.Unmarshal([]byte(raw), &nanos); err != nil {
		return nil, fmt.Errorf("decode window stamps: %w", err)
	}

	stamps := make([]time.Time, 0, len(nanos))
	for _, nano := range nanos {
		stamps = append(stamps, time.Unix(0, nano).UTC())
	}
	return stamps, nil
}
