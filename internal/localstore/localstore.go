package localstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key has never been set.
var ErrNotFound = errors.New("localstore: key not found")

// Store is a small JSON-serializing key-value store for session-local
// bookkeeping: last-active timestamps, click counters, claimed-reward
// ledgers. Values survive process restarts but are not the source of
// truth for player progress.
type Store interface {
	// Get decodes the value at key into dest. Returns ErrNotFound on miss.
	Get(ctx context.Context, key string, dest any) error

	// Set stores value at key, JSON-encoded.
	Set(ctx context.Context, key string, value any) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetInt64 reads an integer value, falling back to def on a miss.
func GetInt64(ctx context.Context, s Store, key string, def int64) (int64, error) {
	var v int64
	if err := s.Get(ctx, key, &v); err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	return v, nil
}
