package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration values.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`

	DBDriver       string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN" default:"file:medstore.db"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`
	CORSOrigins        []string      `envconfig:"CORS_ORIGINS" default:"*"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"5m"`
	IdempotencyTTL    time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	SaleRetryAttempts int    `envconfig:"SALE_RETRY_ATTEMPTS" default:"3"`
	SeedCatalog       string `envconfig:"SEED_CATALOG"`
	StockAlertCron    string `envconfig:"STOCK_ALERT_CRON" default:"0 8 * * *"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		slog.Warn("invalid HTTP_PORT, defaulting to 8080", slog.String("value", cfg.HTTPPort))
		cfg.HTTPPort = "8080"
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.SaleRetryAttempts <= 0 {
		cfg.SaleRetryAttempts = 1
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves APP_TIMEZONE, the zone calendar days are counted in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: APP_TIMEZONE %q: %w", c.AppTimezone, err)
	}
	return loc, nil
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
