package config

import (
	"os"
	"strconv"
)

// DefaultDatabasePath is used when neither APP_DATABASE_URL nor RF_SITE_DB is set.
const DefaultDatabasePath = "./data/site.db"

// Config holds the core runtime configuration for the service and the CLI.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	Environment string

	AdminUser     string
	AdminPassword string

	// DatabaseURL is either a postgres:// URL or a SQLite location
	// (plain path or sqlite:// URL).
	DatabaseURL string

	// RetentionDays is how long events and page views are kept.
	// Zero disables the retention worker.
	RetentionDays int

	ListenAddr string

	SessionCookie string
	VariantCookie string

	// RecentLimit is the default row count for the recent-events report.
	RecentLimit int
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		Environment:   getenv("APP_ENV", "development"),
		AdminUser:     getenv("APP_ADMIN_USER", "admin"),
		AdminPassword: getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:   getenv("APP_DATABASE_URL", getenv("RF_SITE_DB", DefaultDatabasePath)),
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),
		SessionCookie: getenv("APP_COOKIE_SESSION_NAME", "session_id"),
		VariantCookie: getenv("APP_COOKIE_VARIANT_NAME", "ab_variant"),
		RecentLimit:   20,
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.RetentionDays = days
		}
	}
	if v := os.Getenv("APP_RECENT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RecentLimit = n
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
