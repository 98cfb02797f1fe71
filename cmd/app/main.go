package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idle_clicker/internal/bonus"
	"idle_clicker/internal/config"
	"idle_clicker/internal/db"
	httpServer "idle_clicker/internal/http"
	"idle_clicker/internal/http/middleware"
	"idle_clicker/internal/identity"
	"idle_clicker/internal/localstore"
	"idle_clicker/internal/logger"
	"idle_clicker/internal/offline"
	"idle_clicker/internal/progress"
	"idle_clicker/internal/repository"
	"idle_clicker/internal/session"
	"idle_clicker/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	identity.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	// local key-value store: redis in production, memory fallback for dev
	var local localstore.Store
	if cfg.RedisAddr != "" {
		redisStore, err := localstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "idle")
		if err != nil {
			logger.Fatal("failed to connect redis", "error", err)
		}
		local = redisStore
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory local store")
		local = localstore.NewMemoryStore()
	}

	progressRepo := repository.NewProgressRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)

	resolver := identity.NewCachedResolver(func(ctx context.Context, userID int64) (identity.Identity, error) {
		u, err := userRepo.GetByID(ctx, userID)
		if err != nil {
			return identity.Identity{}, identity.ErrNotAuthenticated
		}
		return identity.Identity{UserID: u.ID, TgID: u.TgID}, nil
	}, identity.DefaultValidity)

	writer := progress.NewRetryWriter(progressRepo, resolver)

	var balances progress.BalanceSource
	if cfg.BonusAPIURL != "" {
		balances = bonus.NewClient(cfg.BonusAPIURL, cfg.BonusAPIKey)
	}

	loader := progress.NewLoader(progressRepo, writer, balances)
	offlineCalc := offline.NewCalculator(local, cfg.OfflineCap)

	sessions := session.NewManager(loader, progressRepo, writer, offlineCalc, balances, session.Config{
		Debounce:    cfg.SyncDebounce,
		Retention:   cfg.SyncRetention,
		PassiveTick: cfg.PassiveTick,
		Heartbeat:   cfg.Heartbeat,
		BonusPoll:   cfg.BonusPoll,
	})

	hub := ws.NewHub()
	sessions.SetNotifier(hub)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, dbPool, cfg, version, sessions, offlineCalc, local, hub, resolver)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// flush every open session before the pool closes
	sessions.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
