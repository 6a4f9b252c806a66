package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	NHLAPIBase string

	RedisURL    string
	DatabaseURL string

	HTTPAddr string

	Timezone string

	CheckInterval     time.Duration
	BroadcastInterval time.Duration
	UpstreamTimeout   time.Duration

	TeamCatalogDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		NHLAPIBase:        "https://api-web.nhle.com/v1",
		HTTPAddr:          ":8080",
		Timezone:          "America/New_York",
		CheckInterval:     5 * time.Minute,
		BroadcastInterval: 30 * time.Second,
		UpstreamTimeout:   8 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("NHL_API_BASE")); v != "" {
		cfg.NHLAPIBase = strings.TrimRight(v, "/")
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("TIMEZONE")); v != "" {
		cfg.Timezone = v
	}

	if v := strings.TrimSpace(os.Getenv("CHECK_INTERVAL")); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return nil, fmt.Errorf("CHECK_INTERVAL: %w", err)
		}
		cfg.CheckInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("BROADCAST_INTERVAL")); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return nil, fmt.Errorf("BROADCAST_INTERVAL: %w", err)
		}
		cfg.BroadcastInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return nil, fmt.Errorf("UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.UpstreamTimeout = d
	}

	cfg.TeamCatalogDir = strings.TrimSpace(os.Getenv("TEAM_CATALOG_DIR"))

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// parseInterval accepts a Go duration string or a bare number of seconds.
func parseInterval(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
