package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAuthenticated means no resolvable identity exists for the caller.
var ErrNotAuthenticated = errors.New("identity: not authenticated")

// Identity is the opaque authenticated identity of a player.
type Identity struct {
	UserID int64
	TgID   int64
}

// ResolveFunc looks an identity up at the source of truth (the users table).
type ResolveFunc func(ctx context.Context, userID int64) (Identity, error)

// CachedResolver caches resolved identities for a short validity window so
// every request does not hit the database. It is an injected object with
// explicit invalidation hooks, not ambient package state; the reconciler's
// write path invalidates it after persistent write failures.
type CachedResolver struct {
	mu       sync.Mutex
	resolve  ResolveFunc
	validity time.Duration
	entries  map[int64]cachedIdentity
}

type cachedIdentity struct {
	identity   Identity
	resolvedAt time.Time
}

// DefaultValidity is how long a resolved identity stays fresh.
const DefaultValidity = 5 * time.Minute

func NewCachedResolver(resolve ResolveFunc, validity time.Duration) *CachedResolver {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &CachedResolver{
		resolve:  resolve,
		validity: validity,
		entries:  make(map[int64]cachedIdentity),
	}
}

// Resolve returns the identity for userID, from cache when fresh.
func (r *CachedResolver) Resolve(ctx context.Context, userID int64) (Identity, error) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	r.mu.Unlock()

	if ok && time.Since(entry.resolvedAt) < r.validity {
		return entry.identity, nil
	}

	id, err := r.resolve(ctx, userID)
	if err != nil {
		return Identity{}, err
	}

	r.mu.Lock()
	r.entries[userID] = cachedIdentity{identity: id, resolvedAt: time.Now()}
	r.mu.Unlock()
	return id, nil
}

// Invalidate drops the cached identity for one user, forcing re-resolution
// on the next call.
func (r *CachedResolver) Invalidate(userID int64) {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached identity.
func (r *CachedResolver) InvalidateAll() {
	r.mu.Lock()
	r.entries = make(map[int64]cachedIdentity)
	r.mu.Unlock()
}
