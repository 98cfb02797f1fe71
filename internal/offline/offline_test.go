package offline

import (
	"context"
	"testing"
	"time"

	"idle_clicker/internal/localstore"
)

func newTestCalculator(now time.Time) (*Calculator, localstore.Store) {
	store := localstore.NewMemoryStore()
	c := NewCalculator(store, 8*time.Hour)
	c.now = func() time.Time { return now }
	return c, store
}

func setLastSeen(t *testing.T, store localstore.Store, userID int64, at time.Time) {
	t.Helper()
	if err := store.Set(context.Background(), lastActiveKey(userID), at.UnixMilli()); err != nil {
		t.Fatalf("set last seen: %v", err)
	}
}

func TestCalculateCapsAtEightHours(t *testing.T) {
	now := time.Now()
	c, store := newTestCalculator(now)
	setLastSeen(t, store, 1, now.Add(-10*time.Hour))

	earnings, err := c.Calculate(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	capped := int64(8 * 3600)
	if earnings.Coins != 10*capped {
		t.Fatalf("coins = %d; want %d", earnings.Coins, 10*capped)
	}
	if earnings.Experience != capped {
		t.Fatalf("experience = %d; want %d", earnings.Experience, capped)
	}
	if earnings.TimeOfflineMs != capped*1000 {
		t.Fatalf("time offline = %dms; want %dms", earnings.TimeOfflineMs, capped*1000)
	}
}

func TestCalculateZeroWhenJustSeen(t *testing.T) {
	now := time.Now()
	c, store := newTestCalculator(now)
	setLastSeen(t, store, 1, now)

	earnings, err := c.Calculate(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !earnings.IsZero() {
		t.Fatalf("expected all-zero result, got %+v", earnings)
	}
}

func TestCalculateFirstRunYieldsZero(t *testing.T) {
	c, _ := newTestCalculator(time.Now())

	// no last-seen recorded: defaults to now, not a huge spurious reward
	earnings, err := c.Calculate(context.Background(), 42, 1000)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !earnings.IsZero() {
		t.Fatalf("expected zero on first run, got %+v", earnings)
	}
}

func TestCalculateClockSkewClampsToZero(t *testing.T) {
	now := time.Now()
	c, store := newTestCalculator(now)
	// last seen in the future (client clock games)
	setLastSeen(t, store, 1, now.Add(2*time.Hour))

	earnings, err := c.Calculate(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !earnings.IsZero() {
		t.Fatalf("expected zero for future last-seen, got %+v", earnings)
	}
}

func TestCalculatePlainGap(t *testing.T) {
	now := time.Now()
	c, store := newTestCalculator(now)
	setLastSeen(t, store, 7, now.Add(-90*time.Second))

	earnings, err := c.Calculate(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if earnings.Coins != 270 {
		t.Fatalf("coins = %d; want 270", earnings.Coins)
	}
	if earnings.Experience != 90 {
		t.Fatalf("experience = %d; want 90", earnings.Experience)
	}
}

func TestUpdateLastActiveRoundTrip(t *testing.T) {
	now := time.Now()
	c, store := newTestCalculator(now)

	if err := c.UpdateLastActive(context.Background(), 9); err != nil {
		t.Fatalf("UpdateLastActive: %v", err)
	}

	var got int64
	if err := store.Get(context.Background(), lastActiveKey(9), &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != now.UnixMilli() {
		t.Fatalf("last active = %d; want %d", got, now.UnixMilli())
	}
}

func TestFormatOfflineTime(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{5 * 1000, "5s"},
		{90 * 1000, "1m 30s"},
		{3600 * 1000, "1h 0m"},
		{2*3600*1000 + 15*60*1000, "2h 15m"},
	}

	for _, tc := range cases {
		if got := FormatOfflineTime(tc.ms); got != tc.want {
			t.Fatalf("FormatOfflineTime(%d) = %q; want %q", tc.ms, got, tc.want)
		}
	}
}
