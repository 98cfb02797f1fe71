package repository

import (
	"context"

	"idle_clicker/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UpgradeRepository struct {
	db *pgxpool.Pool
}

func NewUpgradeRepository(db *pgxpool.Pool) *UpgradeRepository {
	return &UpgradeRepository{db: db}
}

func (r *UpgradeRepository) ListByUser(ctx context.Context, userID int64) ([]domain.OwnedUpgrade, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, upgrade_id, price, level, purchased_at
		 FROM owned_upgrades
		 WHERE user_id = $1
		 ORDER BY purchased_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.OwnedUpgrade
	for rows.Next() {
		var u domain.OwnedUpgrade
		if err := rows.Scan(&u.ID, &u.UserID, &u.UpgradeID, &u.Price, &u.Level, &u.PurchasedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// Add records a purchased upgrade. Buying an already-owned upgrade raises
// its level instead of inserting a second row.
func (r *UpgradeRepository) Add(ctx context.Context, u *domain.OwnedUpgrade) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO owned_upgrades (user_id, upgrade_id, price, level)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (user_id, upgrade_id)
		 DO UPDATE SET level = owned_upgrades.level + 1
		 RETURNING id, level, purchased_at`,
		u.UserID, u.UpgradeID, u.Price,
	).Scan(&u.ID, &u.Level, &u.PurchasedAt)
}
