// Package config reads runtime settings from the environment, optionally
// preloaded from a .env file.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type TrackingMode string

const (
	TrackingSync  TrackingMode = "sync"
	TrackingAsync TrackingMode = "async"
)

const (
	defaultAdminCredentials = "admin:admin"
	defaultSessionTTL       = 30 * 24 * time.Hour
	defaultLinkCacheTTL     = 10 * time.Minute
)

type Config struct {
	Host       string
	Port       string
	DBPath     string
	AdminCreds string `json:"-"`
	JWTSecret  string `json:"-"`
	SessionTTL time.Duration
	LogLevel   string
	LogFile    string
	Debug      bool
	BaseURL    string

	TrackingMode          TrackingMode
	TrackingQueueSize     int
	TrackingBatchSize     int
	TrackingFlushInterval time.Duration

	RedisAddr     string
	RedisPassword string `json:"-"`
	RedisDB       int
	LinkCacheTTL  time.Duration

	GeoIPDBPath      string
	GeoCountryHeader string
	GeoCityHeader    string

	warnings []string
}

// Warnings lists insecure defaults that were applied. They are meant to be
// logged once logging is set up.
func (c Config) Warnings() []string {
	return c.warnings
}

// Address is the host:port the server listens on.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Load reads .env from the working directory if present, then the process
// environment. Variables already set in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		Host:       cmp.Or(os.Getenv("HOST"), "localhost"),
		Port:       cmp.Or(os.Getenv("PORT"), "8080"),
		DBPath:     cmp.Or(os.Getenv("DB_PATH"), "utm.db"),
		AdminCreds: os.Getenv("ADMIN_CREDENTIALS"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		SessionTTL: p.duration("SESSION_TTL", defaultSessionTTL),
		LogLevel:   cmp.Or(os.Getenv("LOG_LEVEL"), "info"),
		LogFile:    os.Getenv("LOG_FILE"),
		Debug:      os.Getenv("DEBUG") == "1" || strings.EqualFold(os.Getenv("DEBUG"), "true"),

		TrackingMode:          TrackingMode(strings.ToLower(cmp.Or(os.Getenv("TRACKING_MODE"), string(TrackingSync)))),
		TrackingQueueSize:     p.positiveInt("TRACKING_QUEUE_SIZE", 1000),
		TrackingBatchSize:     p.positiveInt("TRACKING_BATCH_SIZE", 100),
		TrackingFlushInterval: p.duration("TRACKING_FLUSH_INTERVAL", 5*time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.nonNegativeInt("REDIS_DB", 0),
		LinkCacheTTL:  p.duration("LINK_CACHE_TTL", defaultLinkCacheTTL),

		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		GeoCountryHeader: cmp.Or(os.Getenv("GEO_COUNTRY_HEADER"), "X-Vercel-IP-Country"),
		GeoCityHeader:    cmp.Or(os.Getenv("GEO_CITY_HEADER"), "X-Vercel-IP-City"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %q is not a number", cfg.Port))
	}

	switch cfg.TrackingMode {
	case TrackingSync, TrackingAsync:
	default:
		errs = append(errs, fmt.Errorf("TRACKING_MODE: %q must be sync or async", cfg.TrackingMode))
	}

	cfg.BaseURL = strings.TrimRight(cmp.Or(os.Getenv("BASE_URL"), "http://"+cfg.Address()), "/")

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	if cfg.AdminCreds == "" {
		cfg.AdminCreds = defaultAdminCredentials
		cfg.warnings = append(cfg.warnings, "using default admin credentials - set ADMIN_CREDENTIALS for production")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.AdminCreds
		cfg.warnings = append(cfg.warnings, "using ADMIN_CREDENTIALS as JWT_SECRET - set JWT_SECRET for production")
	}

	return cfg, nil
}

type parser struct {
	errs *[]error
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not a positive duration", key, raw))
		return fallback
	}
	return d
}

func (p parser) positiveInt(key string, fallback int) int {
	n := p.nonNegativeInt(key, fallback)
	if n == 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: must be greater than zero", key))
		return fallback
	}
	return n
}

func (p parser) nonNegativeInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not a valid non-negative integer", key, raw))
		return fallback
	}
	return n
}
