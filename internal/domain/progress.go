package domain

import "time"

// Field names a numeric progress field that can be changed optimistically.
type Field string

const (
	FieldCoins      Field = "coins"
	FieldDiamonds   Field = "diamonds"
	FieldExperience Field = "experience"
)

// KnownField reports whether f is one of the optimistically-synced fields.
func KnownField(f Field) bool {
	switch f {
	case FieldCoins, FieldDiamonds, FieldExperience:
		return true
	}
	return false
}

// Progress is the canonical persisted state for one player.
type Progress struct {
	ID                 int64      `db:"id" json:"id"`
	UserID             int64      `db:"user_id" json:"user_id"`
	Coins              int64      `db:"coins" json:"coins"`
	Diamonds           int64      `db:"diamonds" json:"diamonds"`
	Experience         int64      `db:"experience" json:"experience"`
	Level              int        `db:"level" json:"level"`
	ExperienceRequired int64      `db:"experience_required" json:"experience_required"`
	AutoClickPower     int64      `db:"auto_click_power" json:"auto_click_power"`
	LastDailyReward    *time.Time `db:"last_daily_reward" json:"last_daily_reward,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// OfflineEarnings is the transient reward computed for time spent away.
// All-zero means there is nothing to claim.
type OfflineEarnings struct {
	Coins         int64 `json:"coins"`
	Experience    int64 `json:"experience"`
	TimeOfflineMs int64 `json:"time_offline_ms"`
}

// IsZero reports whether there is nothing to claim.
func (e OfflineEarnings) IsZero() bool {
	return e.Coins == 0 && e.Experience == 0
}
