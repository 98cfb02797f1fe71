package config

import (
	"os"
	"strconv"
	"time"

	"idle_clicker/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string
	JWTSecret   string
	DevMode     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Synchronizer tuning
	SyncDebounce  time.Duration
	SyncRetention time.Duration

	// Session timers
	PassiveTick   time.Duration
	Heartbeat     time.Duration
	BonusPoll     time.Duration
	OfflineCap    time.Duration

	// Bonus-currency balance source
	BonusAPIURL string
	BonusAPIKey string

	// Rate limits
	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Load reads configuration from the environment (.env supported).
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		BotToken:    botToken,
		JWTSecret:   jwtSecret,
		DevMode:     os.Getenv("DEV_MODE") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		SyncDebounce:  envDuration("SYNC_DEBOUNCE_MS", 300) * time.Millisecond,
		SyncRetention: envDuration("SYNC_RETENTION_MS", 1000) * time.Millisecond,

		PassiveTick: envDuration("PASSIVE_TICK_SECONDS", 1) * time.Second,
		Heartbeat:   envDuration("HEARTBEAT_SECONDS", 30) * time.Second,
		BonusPoll:   envDuration("BONUS_POLL_SECONDS", 30) * time.Second,
		OfflineCap:  envDuration("OFFLINE_CAP_HOURS", 8) * time.Hour,

		BonusAPIURL: os.Getenv("BONUS_API_URL"),
		BonusAPIKey: os.Getenv("BONUS_API_KEY"),

		APIRateLimit:   envInt("API_RATE_LIMIT", 120),
		APIRateWindow:  envDuration("API_RATE_WINDOW_SECONDS", 60) * time.Second,
		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow: envDuration("AUTH_RATE_WINDOW_SECONDS", 60) * time.Second,
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// envDuration reads a positive integer env var as a raw duration count;
// the caller multiplies by the unit.
func envDuration(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(def)
}
