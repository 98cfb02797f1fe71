package progress

import (
	"context"

	"idle_clicker/internal/domain"
	"idle_clicker/internal/logger"
)

// RecordStore is the remote store holding canonical progress records.
// Partial-field updates apply atomically per call; there is no cross-call
// transaction guarantee. Store errors, including its not-found sentinel,
// pass through Load unchanged.
type RecordStore interface {
	Get(ctx context.Context, userID int64) (*domain.Progress, error)
	UpdateFields(ctx context.Context, userID int64, fields map[string]any) error
}

// BalanceSource is the external bonus-currency balance. Eventually
// consistent; when it changes, it overrides the locally stored copy.
type BalanceSource interface {
	FetchBalance(ctx context.Context, userID int64) (int64, error)
}

// Loader fetches the canonical record and normalizes derived fields before
// exposing it.
type Loader struct {
	store  RecordStore
	writer *RetryWriter
	bonus  BalanceSource
}

func NewLoader(store RecordStore, writer *RetryWriter, bonus BalanceSource) *Loader {
	return &Loader{store: store, writer: writer, bonus: bonus}
}

// Load reads the record for userID and reconciles derived fields: the level
// is recomputed from experience and experienceRequired is forced to the
// global constant. Drift triggers a best-effort corrective write; the
// corrected in-memory record is used for the session either way. The external
// bonus balance is merged into diamonds through the same corrective path.
func (l *Loader) Load(ctx context.Context, userID int64) (*domain.Progress, error) {
	p, err := l.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	fixes := make(map[string]any)

	if lvl := LevelFor(p.Experience); p.Level != lvl {
		p.Level = lvl
		fixes["level"] = lvl
	}
	if p.ExperienceRequired != ExperienceRequired {
		p.ExperienceRequired = ExperienceRequired
		fixes["experience_required"] = ExperienceRequired
	}

	if l.bonus != nil {
		if balance, err := l.bonus.FetchBalance(ctx, userID); err != nil {
			logger.Warn("bonus balance fetch failed", "user_id", userID, "error", err)
		} else if balance != p.Diamonds {
			p.Diamonds = balance
			fixes["diamonds"] = balance
		}
	}

	if len(fixes) > 0 {
		// fire-and-forget; the session already uses the corrected values
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), correctiveWriteTimeout)
			defer cancel()
			if err := l.writer.Write(ctx, userID, fixes); err != nil {
				logger.Warn("reconciliation write failed", "user_id", userID, "error", err)
			}
		}()
	}

	return p, nil
}
