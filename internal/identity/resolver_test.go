package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCachedResolverCachesWithinValidity(t *testing.T) {
	calls := 0
	r := NewCachedResolver(func(ctx context.Context, userID int64) (Identity, error) {
		calls++
		return Identity{UserID: userID, TgID: 111}, nil
	}, time.Minute)

	for i := 0; i < 5; i++ {
		id, err := r.Resolve(context.Background(), 1)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if id.TgID != 111 {
			t.Fatalf("TgID = %d; want 111", id.TgID)
		}
	}

	if calls != 1 {
		t.Fatalf("resolve calls = %d; want 1", calls)
	}
}

func TestCachedResolverExpires(t *testing.T) {
	calls := 0
	r := NewCachedResolver(func(ctx context.Context, userID int64) (Identity, error) {
		calls++
		return Identity{UserID: userID}, nil
	}, 10*time.Millisecond)

	if _, err := r.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := r.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if calls != 2 {
		t.Fatalf("resolve calls = %d; want 2 after expiry", calls)
	}
}

func TestCachedResolverInvalidateForcesReResolution(t *testing.T) {
	calls := 0
	r := NewCachedResolver(func(ctx context.Context, userID int64) (Identity, error) {
		calls++
		return Identity{UserID: userID}, nil
	}, time.Minute)

	if _, err := r.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	r.Invalidate(1)
	if _, err := r.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if calls != 2 {
		t.Fatalf("resolve calls = %d; want 2 after invalidation", calls)
	}
}

func TestCachedResolverErrorNotCached(t *testing.T) {
	calls := 0
	r := NewCachedResolver(func(ctx context.Context, userID int64) (Identity, error) {
		calls++
		if calls == 1 {
			return Identity{}, ErrNotAuthenticated
		}
		return Identity{UserID: userID}, nil
	}, time.Minute)

	if _, err := r.Resolve(context.Background(), 1); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v; want ErrNotAuthenticated", err)
	}
	if _, err := r.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if calls != 2 {
		t.Fatalf("resolve calls = %d; want 2", calls)
	}
}
