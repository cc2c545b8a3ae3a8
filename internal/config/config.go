// Package config reads server settings from FITADMIN_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fitadmin/internal/domain/calendar"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	prefix = "FITADMIN_"
)

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting the server reads at startup.
type Config struct {
	Addr     string
	DBPath   string
	Env      string
	Location *time.Location

	CORSOrigins []string
	// CSRFKey is 32 bytes, or nil when a random per-process key should be used.
	CSRFKey []byte

	AdminEmail    string
	AdminPassword string

	ResendKey  string
	ResendFrom string
	ReportTo   string

	StatusRefreshInterval time.Duration
	SlowQuery             time.Duration
	SlowRequest           time.Duration
}

// Production reports whether the server runs with production settings.
func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set take precedence over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds a Config from getenv, which receives the full variable name.
// PRE: getenv is non-nil
// POST: Returned Config has every default applied
func FromLookup(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(prefix + key)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Addr:          get("ADDR", ":8080"),
		DBPath:        get("DB_PATH", "fitadmin.db"),
		Env:           strings.ToLower(get("ENV", EnvDevelopment)),
		AdminEmail:    get("ADMIN_EMAIL", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),
		ResendKey:     get("RESEND_KEY", ""),
		ResendFrom:    get("RESEND_FROM", "Fitness Admin <reports@localhost>"),
		ReportTo:      get("REPORT_TO", ""),
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return Config{}, fmt.Errorf("%w: %sENV must be %q or %q", ErrInvalid, prefix, EnvDevelopment, EnvProduction)
	}

	loc, err := calendar.LoadZone(get("TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %sTIMEZONE: %w", ErrInvalid, prefix, err)
	}
	c.Location = loc

	for _, o := range strings.Split(get("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSOrigins = append(c.CORSOrigins, o)
		}
	}

	if raw := get("CSRF_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return Config{}, fmt.Errorf("%w: %sCSRF_KEY must be 64 hex characters", ErrInvalid, prefix)
		}
		c.CSRFKey = key
	} else if c.Production() {
		return Config{}, fmt.Errorf("%w: %sCSRF_KEY is required in production", ErrInvalid, prefix)
	}

	if c.StatusRefreshInterval, err = duration(get("STATUS_REFRESH_INTERVAL", "1h")); err != nil {
		return Config{}, fmt.Errorf("%w: %sSTATUS_REFRESH_INTERVAL: %w", ErrInvalid, prefix, err)
	}
	if c.SlowQuery, err = millis(get("SLOW_QUERY_MS", "50")); err != nil {
		return Config{}, fmt.Errorf("%w: %sSLOW_QUERY_MS: %w", ErrInvalid, prefix, err)
	}
	if c.SlowRequest, err = millis(get("SLOW_REQUEST_MS", "200")); err != nil {
		return Config{}, fmt.Errorf("%w: %sSLOW_REQUEST_MS: %w", ErrInvalid, prefix, err)
	}

	if c.Production() && c.ResendKey == "" {
		slog.Warn("config_warning", "key", prefix+"RESEND_KEY", "message", "email delivery is disabled")
	}
	return c, nil
}

// duration parses a Go duration. Zero disables the job it configures.
func duration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

func millis(raw string) (time.Duration, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return time.Duration(n) * time.Millisecond, nil
}
