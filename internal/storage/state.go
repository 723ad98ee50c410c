package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/watchlist"
)

const (
	// RootKey is the key the application state is stored under.
	RootKey = "root"
	// SchemaVersion is bumped whenever PersistedState changes shape.
	SchemaVersion = 1
)

// PersistedState is what survives a restart. The wallet is deliberately absent.
type PersistedState struct {
	Version   int                `json:"version"`
	Watchlist watchlist.Snapshot `json:"watchlist"`
}

// LoadWatchlist restores the watchlist from kv. An absent entry, an
// undecodable one or a schema mismatch yields the default seed.
func LoadWatchlist(ctx context.Context, kv KV) (*watchlist.Store, error) {
	store := watchlist.NewStore()

	data, ok, err := kv.Get(ctx, RootKey)
	if err != nil {
		return store, fmt.Errorf("failed to load state: %w", err)
	}
	if !ok {
		logger.Info("No saved watchlist, starting from defaults")
		return store, nil
	}

	var state PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("Saved state is unreadable, starting from defaults: %v", err)
		return store, nil
	}
	if state.Version != SchemaVersion {
		logger.Warn("Saved state has schema version %d (want %d), starting from defaults", state.Version, SchemaVersion)
		return store, nil
	}

	store.Restore(state.Watchlist)
	logger.Info("Restored watchlist with %d tokens", store.Len())
	return store, nil
}

// SaveWatchlist writes the watchlist to kv under the root key.
func SaveWatchlist(ctx context.Context, kv KV, store *watchlist.Store) error {
	data, err := json.Marshal(PersistedState{
		Version:   SchemaVersion,
		Watchlist: store.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := kv.Set(ctx, RootKey, data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
