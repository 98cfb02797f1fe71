package offline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"idle_clicker/internal/domain"
	"idle_clicker/internal/localstore"
)

// DefaultCap bounds how much absence is rewarded, limiting exploits from
// clock manipulation and very long gaps.
const DefaultCap = 8 * time.Hour

// Calculator computes accrued currency and experience for time spent away,
// from only two pieces of state: the passive income rate and the last-seen
// timestamp kept in the local store.
type Calculator struct {
	store localstore.Store
	cap   time.Duration
	now   func() time.Time
}

func NewCalculator(store localstore.Store, cap time.Duration) *Calculator {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Calculator{store: store, cap: cap, now: time.Now}
}

func lastActiveKey(userID int64) string {
	return "last_active:" + strconv.FormatInt(userID, 10)
}

// Calculate returns the offline reward for userID given its passive rate.
// A missing last-seen timestamp counts as "now": first run yields zero, not
// a huge spurious reward. Callers must treat an all-zero result as nothing
// to claim and suppress any prompt.
func (c *Calculator) Calculate(ctx context.Context, userID int64, passiveRate int64) (domain.OfflineEarnings, error) {
	now := c.now()

	var lastSeenMs int64
	err := c.store.Get(ctx, lastActiveKey(userID), &lastSeenMs)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			return domain.OfflineEarnings{}, err
		}
		lastSeenMs = now.UnixMilli()
	}

	elapsed := now.Sub(time.UnixMilli(lastSeenMs))
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > c.cap {
		elapsed = c.cap
	}

	seconds := int64(elapsed / time.Second)
	if seconds == 0 {
		return domain.OfflineEarnings{}, nil
	}

	return domain.OfflineEarnings{
		Coins:         passiveRate * seconds,
		Experience:    seconds, // 1 xp per elapsed second, rate-independent
		TimeOfflineMs: elapsed.Milliseconds(),
	}, nil
}

// UpdateLastActive refreshes the last-seen timestamp. Callers invoke it on a
// foreground heartbeat and on backgrounding/close so the measured gap
// approximates true absence.
func (c *Calculator) UpdateLastActive(ctx context.Context, userID int64) error {
	return c.store.Set(ctx, lastActiveKey(userID), c.now().UnixMilli())
}

// FormatOfflineTime renders an offline duration for the claim dialog.
func FormatOfflineTime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
