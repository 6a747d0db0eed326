package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type WindowEntry struct {
	ClientID  string
	Count     int
	Oldest    *time.Time
	Newest    *time.Time
	UpdatedAt time.Time
}

type WindowQuery struct {
	All      bool
	ClientID string
	Prefix   string
}

func (q WindowQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.ClientID) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --client, or --prefix")
}

func (q WindowQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if clientID := strings.TrimSpace(q.ClientID); clientID != "" {
		return "WHERE client_id = ?", []any{clientID}, nil
	}
	prefix := strings.TrimSpace(q.Prefix)
	if prefix == "" {
		return "", nil, errors.New("prefix is required")
	}
	return "WHERE client_id LIKE ?", []any{prefix + "%"}, nil
}

func (s *Store) ListWindows(ctx context.Context, q WindowQuery) ([]WindowEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT client_id, stamps, updated_at
		FROM client_windows
		%s
		ORDER BY client_id
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list client windows: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []WindowEntry{}
	for rows.Next() {
		var (
			clientID  string
			stamps    string
			updatedAt int64
		)
		if err := rows.Scan(&clientID, &stamps, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan client windows: %w", err)
		}

		decoded, err := decodeStamps(stamps)
		if err != nil {
			return nil, err
		}

		entry := WindowEntry{
			ClientID:  clientID,
			Count:     len(decoded),
			UpdatedAt: time.Unix(updatedAt, 0).UTC(),
		}
		if len(decoded) > 0 {
			oldest := decoded[0]
			newest := decoded[len(decoded)-1]
			entry.Oldest = &oldest
			entry.Newest = &newest
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list client windows: %w", err)
	}

	return entries, nil
}

func (s *Store) CountWindows(ctx context.Context, q WindowQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM client_windows
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count client windows: %w", err)
	}
	return count, nil
}

func (s *Store) ResetWindows(ctx context.Context, q WindowQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM client_windows
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset client windows: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset client windows: %w", err)
	}
	return affected, nil
}
