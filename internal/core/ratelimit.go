package core

import "time"

// ClientWindow captures per-client sliding window state. Stamps hold the
// admission times still inside the trailing window, oldest first.
type ClientWindow struct {
	ClientID  string
	Stamps    []time.Time
	UpdatedAt time.Time
}

// Prune drops stamps at or before cutoff and reports how many remain.
func (w *ClientWindow) Prune(cutoff time.Time) int {
	if len(w.Stamps) == 0 {
		return 0
	}
	keep := 0
	for _, ts := range w.Stamps {
		if ts.After(cutoff) {
			break
		}
		keep++
	}
	if keep > 0 {
		w.Stamps = append([]time.Time(nil), w.Stamps[keep:]...)
	}
	return len(w.Stamps)
}
