package config

import (
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the dashboard core.
type Config struct {
	Port string

	// Bridge endpoints. The trade bridge serves account/strategy calls; the
	// indicator service hands out per-strategy stream sockets.
	BridgeURL    string
	IndicatorURL string

	// Real-time sync
	PollInterval  time.Duration // position reconciliation tick
	StreamRetries int           // reconnect budget per stream session
	RetryDelay    time.Duration // fixed delay between reconnects

	// Persistence
	DBPath   string
	StateKey string

	// Strategy defaults template
	DefaultsPath string

	// Auth
	JWTSecret string

	// Stable identifier reported in system status.
	InstanceID string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	instanceID, err := machineid.ProtectedID("tradesim")
	if err != nil {
		instanceID = "unknown"
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		BridgeURL:     getEnv("BRIDGE_URL", "http://localhost:5001/mt5"),
		IndicatorURL:  getEnv("INDICATOR_URL", "http://localhost:5002"),
		PollInterval:  getEnvDuration("POLL_INTERVAL", time.Second),
		StreamRetries: getEnvInt("STREAM_MAX_RETRIES", 3),
		RetryDelay:    getEnvDuration("STREAM_RETRY_DELAY", 5*time.Second),
		DBPath:        getEnv("DB_PATH", "./data/tradesim.db"),
		StateKey:      getEnv("STATE_KEY", "trade-sim-store"),
		DefaultsPath:  getEnv("STRATEGY_DEFAULTS_PATH", "./configs/strategy_defaults.yaml"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret"),
		InstanceID:    instanceID,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
