package engine

import (
	"context"
	"sync"
	"time"

	"github.com/codelens/codelens/internal/core"
)

// MemoryWindowStore keeps client windows in process memory. This is the
// default store; state is lost on restart.
type MemoryWindowStore struct {
	mu      sync.RWMutex
	windows map[string]*core.ClientWindow
}

// NewMemoryWindowStore returns an empty in-memory window store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		windows: make(map[string]*core.ClientWindow),
	}
}

// GetWindow returns a copy of the stored window, or nil when the client has
// no recorded admissions.
func (m *MemoryWindowStore) GetWindow(_ context.Context, clientID string) (*core.ClientWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	window, ok := m.windows[clientID]
	if !ok {
		return nil, nil
	}
	return copyWindow(window), nil
}

// PutWindow stores a copy of the window keyed by its client ID.
func (m *MemoryWindowStore) PutWindow(_ context.Context, window *core.ClientWindow) error {
	if window == nil || window.ClientID == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.windows[window.ClientID] = copyWindow(window)
	return nil
}

// DeleteWindow removes a client's window.
func (m *MemoryWindowStore) DeleteWindow(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.windows, clientID)
	return nil
}

// PruneWindows drops stamps at or before cutoff and removes clients whose
// windows emptied. Returns the number of windows removed.
func (m *MemoryWindowStore) PruneWindows(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for clientID, window := range m.windows {
		if window.Prune(cutoff) == 0 {
			delete(m.windows, clientID)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of tracked clients.
func (m *MemoryWindowStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}

func copyWindow(window *core.ClientWindow) *core.ClientWindow {
	if window == nil {
		return nil
	}
	clone := &core.ClientWindow{
		ClientID:  window.ClientID,
		UpdatedAt: window.UpdatedAt,
	}
	if len(window.Stamps) > 0 {
		clone.Stamps = append([]time.Time(nil), window.Stamps...)
	}
	return clone
}
