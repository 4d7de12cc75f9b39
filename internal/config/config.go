package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                  string
	DBURL                 string
	JWTSecret             string
	JWTTTLHours           int
	IdentityURL           string
	IdentityAPIKey        string
	IdentityTimeoutSecs   int
	CORSAllowedOrigins    []string
	AuthRateLimitPerMin   int
	LogLevel              string
	LogFormat             string
	ReadTimeoutSecs       int
	WriteTimeoutSecs      int
	IdleTimeoutSecs       int
	RecomputeTimeoutSecs  int
	ReconcileIntervalSecs int
	ReconcileQueueSize    int
	ReconcileMaxAttempts  int
	DBMaxConns            int
	DBMinConns            int
	DBMaxIdleSecs         int
	DBMaxLifeSecs         int
	DBConnTimeoutSecs     int
	DBStatementCache      int
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults and validation.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                  getEnv("PORT", "5000"),
		DBURL:                 os.Getenv("DB_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTTTLHours:           getEnvInt("JWT_TTL_HOURS", 24*7),
		IdentityURL:           strings.TrimSpace(os.Getenv("IDENTITY_URL")),
		IdentityAPIKey:        os.Getenv("IDENTITY_API_KEY"),
		IdentityTimeoutSecs:   getEnvInt("IDENTITY_TIMEOUT_SECS", 3),
		CORSAllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AuthRateLimitPerMin:   getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 20),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		ReadTimeoutSecs:       getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:      getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:       getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		RecomputeTimeoutSecs:  getEnvInt("RECOMPUTE_TIMEOUT_SECS", 5),
		ReconcileIntervalSecs: getEnvInt("RECONCILE_INTERVAL_SECS", 300),
		ReconcileQueueSize:    getEnvInt("RECONCILE_QUEUE_SIZE", 1024),
		ReconcileMaxAttempts:  getEnvInt("RECONCILE_MAX_ATTEMPTS", 5),
		DBMaxConns:            getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:            getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:         getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:         getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:     getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:      getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.IdentityURL == "" && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required when IDENTITY_URL is not set")
	}
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 16 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if cfg.JWTTTLHours <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	if cfg.IdentityTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("IDENTITY_TIMEOUT_SECS must be positive")
	}
	if cfg.RecomputeTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("RECOMPUTE_TIMEOUT_SECS must be positive")
	}
	if cfg.ReconcileIntervalSecs < 0 {
		return Config{}, fmt.Errorf("RECONCILE_INTERVAL_SECS must be non-negative")
	}
	if cfg.ReconcileQueueSize <= 0 {
		return Config{}, fmt.Errorf("RECONCILE_QUEUE_SIZE must be positive")
	}
	if cfg.ReconcileMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("RECONCILE_MAX_ATTEMPTS must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
