package http

import (
	"idle_clicker/internal/config"
	"idle_clicker/internal/http/handlers"
	"idle_clicker/internal/http/middleware"
	"idle_clicker/internal/localstore"
	"idle_clicker/internal/offline"
	"idle_clicker/internal/session"
	"idle_clicker/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(
	r *gin.Engine,
	db *pgxpool.Pool,
	cfg *config.Config,
	version string,
	sessions *session.Manager,
	offlineCalc *offline.Calculator,
	local localstore.Store,
	hub *ws.Hub,
	resolver middleware.IdentityResolver,
) {
	h := handlers.NewHandler(db, cfg.BotToken, cfg.DevMode, sessions, offlineCalc, local)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	auth := middleware.JWT(resolver)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	// Auth (tighter limit)
	v1.POST("/auth", middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow), h.Auth)

	// Progress view and taps
	v1.GET("/progress", auth, h.GetProgress)
	v1.POST("/click", auth,
		middleware.UserRateLimit("click", cfg.APIRateLimit, cfg.APIRateWindow), h.Click)

	// Offline earnings
	v1.GET("/offline", auth, h.GetOfflineEarnings)
	v1.POST("/offline/claim", auth, h.ClaimOfflineEarnings)

	// Upgrades
	v1.GET("/upgrades", auth, h.GetUpgrades)
	v1.POST("/upgrades/buy", auth, h.BuyUpgrade)

	// Daily reward
	v1.POST("/daily/claim", auth, h.ClaimDailyReward)

	// Presence
	v1.POST("/heartbeat", auth, h.Heartbeat)

	// Live progress stream
	r.GET("/ws", ws.HandleWS(hub))
}
