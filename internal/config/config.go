package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Sync     SyncConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
	Migrate  bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
}

// SyncConfig tunes the local sync engine used by the watch command.
type SyncConfig struct {
	WriteTimeout     time.Duration
	SubscribeTimeout time.Duration
	ResyncOnFailure  bool
	RollbackStrategy string
	UserID           string
	RelayURL         string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("BOARDSYNC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("BOARDSYNC_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMigrate, err := getEnvBool("BOARDSYNC_DB_MIGRATE", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("BOARDSYNC_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("BOARDSYNC_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("BOARDSYNC_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimit, err := getEnvFloat("BOARDSYNC_SERVER_RATE_LIMIT", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("BOARDSYNC_SERVER_RATE_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	syncWriteTimeout, err := getEnvDuration("BOARDSYNC_SYNC_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	subscribeTimeout, err := getEnvDuration("BOARDSYNC_SYNC_SUBSCRIBE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	resyncOnFailure, err := getEnvBool("BOARDSYNC_SYNC_RESYNC_ON_FAILURE", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("BOARDSYNC_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("BOARDSYNC_DB_USER", "boardsync"),
			Password: getEnv("BOARDSYNC_DB_PASSWORD", ""),
			DBName:   getEnv("BOARDSYNC_DB_NAME", "boardsync_dev"),
			SSLMode:  getEnv("BOARDSYNC_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
			Migrate:  dbMigrate,
		},
		Redis: RedisConfig{
			Addr:     getEnv("BOARDSYNC_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("BOARDSYNC_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("BOARDSYNC_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("BOARDSYNC_CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:    rateLimit,
			RateBurst:    rateBurst,
		},
		Sync: SyncConfig{
			WriteTimeout:     syncWriteTimeout,
			SubscribeTimeout: subscribeTimeout,
			ResyncOnFailure:  resyncOnFailure,
			RollbackStrategy: getEnv("BOARDSYNC_SYNC_ROLLBACK", "journal"),
			UserID:           getEnv("BOARDSYNC_SYNC_USER_ID", ""),
			RelayURL:         getEnv("BOARDSYNC_SYNC_RELAY_URL", "ws://localhost:8080"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Database.SSLMode == "disable" && c.Database.Host != "localhost" && c.Database.Host != "127.0.0.1" {
		log.Warn().Msg("BOARDSYNC_DB_SSLMODE=disable is insecure for remote databases; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("BOARDSYNC_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("BOARDSYNC_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("BOARDSYNC_SERVER_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("BOARDSYNC_SERVER_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Sync.WriteTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_SYNC_WRITE_TIMEOUT must be positive, got %s", c.Sync.WriteTimeout)
	}
	if c.Sync.SubscribeTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_SYNC_SUBSCRIBE_TIMEOUT must be positive, got %s", c.Sync.SubscribeTimeout)
	}
	switch c.Sync.RollbackStrategy {
	case "journal", "snapshot":
	default:
		return fmt.Errorf("BOARDSYNC_SYNC_ROLLBACK must be journal or snapshot, got %q", c.Sync.RollbackStrategy)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
