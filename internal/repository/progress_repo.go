package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"idle_clicker/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressRepository is the remote record store for player progress. Each
// call applies atomically; there is no cross-call transaction guarantee.
type ProgressRepository struct {
	db *pgxpool.Pool
}

func NewProgressRepository(db *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID int64) (*domain.Progress, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, coins, diamonds, experience, level,
		        experience_required, auto_click_power, last_daily_reward,
		        created_at, updated_at
		 FROM progress
		 WHERE user_id = $1`,
		userID,
	)

	var p domain.Progress
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Coins,
		&p.Diamonds,
		&p.Experience,
		&p.Level,
		&p.ExperienceRequired,
		&p.AutoClickPower,
		&p.LastDailyReward,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Upsert creates the progress record on first authentication. Existing
// records are left untouched.
func (r *ProgressRepository) Upsert(ctx context.Context, userID int64, experienceRequired int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO progress (user_id, experience_required)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, experienceRequired,
	)
	return err
}

// ApplyDeltas adds the summed per-field amounts to the record in one atomic
// update. Balances are guarded against going negative: a batch that would
// underflow is rejected whole with ErrInsufficientFunds.
func (r *ProgressRepository) ApplyDeltas(ctx context.Context, userID int64, deltas map[domain.Field]int64) error {
	coins := deltas[domain.FieldCoins]
	diamonds := deltas[domain.FieldDiamonds]
	experience := deltas[domain.FieldExperience]
	if coins == 0 && diamonds == 0 && experience == 0 {
		return nil
	}

	result, err := r.db.Exec(ctx,
		`UPDATE progress
		 SET coins = coins + $1,
		     diamonds = diamonds + $2,
		     experience = experience + $3,
		     updated_at = now()
		 WHERE user_id = $4
		   AND coins + $1 >= 0
		   AND diamonds + $2 >= 0
		   AND experience + $3 >= 0`,
		coins, diamonds, experience, userID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		var exists bool
		_ = r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM progress WHERE user_id = $1)`, userID,
		).Scan(&exists)
		if !exists {
			return ErrNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

// progressColumns whitelists replaceable columns for partial updates.
var progressColumns = map[string]bool{
	"coins":               true,
	"diamonds":            true,
	"experience":          true,
	"level":               true,
	"experience_required": true,
	"auto_click_power":    true,
	"last_daily_reward":   true,
}

// UpdateFields replaces the given columns. Used by the reconciler's
// corrective writes and for non-additive values like auto_click_power.
func (r *ProgressRepository) UpdateFields(ctx context.Context, userID int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	i := 1
	for col, val := range fields {
		if !progressColumns[col] {
			return fmt.Errorf("progress: unknown column %q", col)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, userID)

	query := fmt.Sprintf(`UPDATE progress SET %s WHERE user_id = $%d`,
		strings.Join(sets, ", "), i)

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLastDailyReward stamps the daily reward claim day.
func (r *ProgressRepository) SetLastDailyReward(ctx context.Context, userID int64, day time.Time) error {
	return r.UpdateFields(ctx, userID, map[string]any{"last_daily_reward": day})
}
