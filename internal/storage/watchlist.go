package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// WatchlistKey is the KV entry holding the JSON array of watched coin ids.
const WatchlistKey = "watchlist"

// Watchlist is the persisted set of watched coin ids, in insertion order.
type Watchlist struct {
	mu  sync.Mutex
	kv  KV
	ids []string
}

// LoadWatchlist reads the watchlist from kv. Missing or corrupt data starts
// an empty list.
func LoadWatchlist(ctx context.Context, kv KV) *Watchlist {
	w := &Watchlist{kv: kv}

	raw, err := kv.Get(ctx, WatchlistKey)
	if err != nil {
		slog.Warn("Watchlist load failed, starting empty", slog.Any("error", err))
		return w
	}
	if raw == "" {
		return w
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		slog.Warn("Watchlist data corrupt, starting empty", slog.Any("error", err))
		return w
	}
	w.ids = dedupe(ids)
	return w
}

// Toggle removes id if present, otherwise appends it, then persists the whole
// list. It reports whether id is watched afterwards. On a persistence error
// the in-memory change is kept and the error returned.
func (w *Watchlist) Toggle(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	watched := true
	if i := w.indexOf(id); i >= 0 {
		w.ids = append(w.ids[:i:i], w.ids[i+1:]...)
		watched = false
	} else {
		w.ids = append(w.ids, id)
	}

	data, err := json.Marshal(w.idsOrEmpty())
	if err != nil {
		return watched, err
	}
	if err := w.kv.Put(ctx, WatchlistKey, string(data)); err != nil {
		return watched, fmt.Errorf("persist watchlist: %w", err)
	}
	return watched, nil
}

// Contains reports whether id is watched.
func (w *Watchlist) Contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOf(id) >= 0
}

// IDs returns a copy of the watched ids.
func (w *Watchlist) IDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ids...)
}

func (w *Watchlist) indexOf(id string) int {
	for i, v := range w.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (w *Watchlist) idsOrEmpty() []string {
	if w.ids == nil {
		return []string{}
	}
	return w.ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
