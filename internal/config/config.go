package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "SubsLedger"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	// Expiry scan defaults mirror the production deployment: noon in the
	// operator's zone, warning three days ahead.
	defaultScanHour       = 12
	defaultScanMinute     = 0
	defaultScanTimeZone   = "America/Guatemala"
	defaultExpiryWindow   = 3
	shutdownDurEnvVar     = "SHUTDOWN_TIMEOUT"
	idempotencyTTLEnvVar  = "IDEMPOTENCY_TTL"
	scanHourEnvVar        = "EXPIRY_SCAN_HOUR"
	scanMinuteEnvVar      = "EXPIRY_SCAN_MINUTE"
	scanTimeZoneEnvVar    = "EXPIRY_TIMEZONE"
	expiryWindowEnvVar    = "EXPIRY_WINDOW_DAYS"
)

// Config captures application runtime configuration loaded from environment
// variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	ScanHour         int
	ScanMinute       int
	ScanTimeZone     string
	ExpiryWindowDays int
}

// Load reads configuration values from the environment and populates a
// Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		ScanHour:         defaultScanHour,
		ScanMinute:       defaultScanMinute,
		ScanTimeZone:     getEnv(scanTimeZoneEnvVar, defaultScanTimeZone),
		ExpiryWindowDays: defaultExpiryWindow,
	}

	if v := os.Getenv(shutdownDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idempotencyTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idempotencyTTLEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	var err error
	if cfg.ScanHour, err = intEnv(scanHourEnvVar, cfg.ScanHour); err != nil {
		return Config{}, err
	}
	if cfg.ScanMinute, err = intEnv(scanMinuteEnvVar, cfg.ScanMinute); err != nil {
		return Config{}, err
	}
	if cfg.ExpiryWindowDays, err = intEnv(expiryWindowEnvVar, cfg.ExpiryWindowDays); err != nil {
		return Config{}, err
	}

	if cfg.ScanHour < 0 || cfg.ScanHour > 23 {
		return Config{}, fmt.Errorf("%s must be between 0 and 23", scanHourEnvVar)
	}
	if cfg.ScanMinute < 0 || cfg.ScanMinute > 59 {
		return Config{}, fmt.Errorf("%s must be between 0 and 59", scanMinuteEnvVar)
	}
	if cfg.ExpiryWindowDays < 1 {
		return Config{}, fmt.Errorf("%s must be at least 1", expiryWindowEnvVar)
	}
	if _, err := time.LoadLocation(cfg.ScanTimeZone); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", scanTimeZoneEnvVar, err)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// ScanLocation resolves the configured scan time zone. Load already
// validated it.
func (c Config) ScanLocation() *time.Location {
	loc, err := time.LoadLocation(c.ScanTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
