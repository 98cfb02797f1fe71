package handlers

import (
	"context"
	"time"

	"idle_clicker/internal/localstore"
	"idle_clicker/internal/offline"
	"idle_clicker/internal/repository"
	"idle_clicker/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressStore is the slice of the progress repository the handlers touch
// directly; everything else flows through the session manager.
type ProgressStore interface {
	Upsert(ctx context.Context, userID int64, experienceRequired int64) error
	SetLastDailyReward(ctx context.Context, userID int64, day time.Time) error
}

type Handler struct {
	DB       *pgxpool.Pool
	BotToken string
	DevMode  bool

	Users    *repository.UserRepository
	Progress ProgressStore
	Upgrades *repository.UpgradeRepository

	Sessions *session.Manager
	Offline  *offline.Calculator
	Local    localstore.Store
}

func NewHandler(
	db *pgxpool.Pool,
	botToken string,
	devMode bool,
	sessions *session.Manager,
	offlineCalc *offline.Calculator,
	local localstore.Store,
) *Handler {
	return &Handler{
		DB:       db,
		BotToken: botToken,
		DevMode:  devMode,
		Users:    repository.NewUserRepository(db),
		Progress: repository.NewProgressRepository(db),
		Upgrades: repository.NewUpgradeRepository(db),
		Sessions: sessions,
		Offline:  offlineCalc,
		Local:    local,
	}
}

// getUserID extracts the authenticated user id from the gin context.
func getUserID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
