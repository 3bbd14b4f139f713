package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds catalog service configuration.
type Config struct {
	FeedURL         string        `yaml:"feed_url"`
	EntryName       string        `yaml:"entry_name"`
	SourceLabel     string        `yaml:"source_label"`
	FeedTimeout     time.Duration `yaml:"feed_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`
	UserAgent       string        `yaml:"user_agent"`
	BatchSize       int           `yaml:"batch_size"`

	StoreDriver string `yaml:"store_driver"` // sqlite, postgres or memory
	StoreDSN    string `yaml:"store_dsn"`

	ListenAddr            string        `yaml:"listen_addr"`
	DefaultPageSize       int           `yaml:"default_page_size"`
	MaxPageSize           int           `yaml:"max_page_size"`
	QueryCacheSize        int           `yaml:"query_cache_size"`
	ManualRefreshInterval time.Duration `yaml:"manual_refresh_interval"`

	RefreshAt         string        `yaml:"refresh_at"` // HH:MM, local to Timezone
	Timezone          string        `yaml:"timezone"`
	KeepAliveURL      string        `yaml:"keepalive_url"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`

	PriceDiscount float64 `yaml:"price_discount"`
	PriceMarkup   float64 `yaml:"price_markup"`

	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns defaults matching the production Okawa feed.
func DefaultConfig() *Config {
	return &Config{
		FeedURL:               "https://www.okawa.com.ar/tapice/datos/datos.zip",
		EntryName:             "okawa-completa.xls",
		SourceLabel:           "Okawa",
		FeedTimeout:           2 * time.Minute,
		MaxRetries:            2,
		RetryBackoff:          5 * time.Second,
		RetryBackoffMax:       time.Minute,
		UserAgent:             "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		BatchSize:             1000,
		StoreDriver:           "sqlite",
		StoreDSN:              "data/catalog.db",
		ListenAddr:            ":3000",
		DefaultPageSize:       100,
		MaxPageSize:           1000,
		QueryCacheSize:        256,
		ManualRefreshInterval: time.Minute,
		RefreshAt:             "03:00",
		Timezone:              "America/Argentina/Buenos_Aires",
		KeepAliveInterval:     14 * time.Minute,
		PriceDiscount:         0.87,
		PriceMarkup:           2.2,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("feed URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.FeedURL)
	if err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("feed URL must include a host")
	}
	if strings.TrimSpace(c.EntryName) == "" {
		return fmt.Errorf("entry name cannot be empty")
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("feed timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	switch c.StoreDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("store driver must be sqlite, postgres or memory")
	}
	if c.StoreDSN == "" && c.StoreDriver != "memory" {
		return fmt.Errorf("store DSN cannot be empty")
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default page size must be positive")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max page size (%d) cannot be below default page size (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.QueryCacheSize < 0 {
		return fmt.Errorf("query cache size cannot be negative")
	}
	if c.ManualRefreshInterval < 0 {
		return fmt.Errorf("manual refresh interval cannot be negative")
	}
	if _, _, err := c.RefreshClock(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.KeepAliveURL != "" {
		if _, err := url.ParseRequestURI(c.KeepAliveURL); err != nil {
			return fmt.Errorf("invalid keepalive URL: %w", err)
		}
		if c.KeepAliveInterval <= 0 {
			return fmt.Errorf("keepalive interval must be positive")
		}
	}
	if c.PriceDiscount <= 0 || c.PriceMarkup <= 0 {
		return fmt.Errorf("price discount and markup must be positive")
	}
	return nil
}

// RefreshClock parses RefreshAt into hour and minute.
func (c *Config) RefreshClock() (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(c.RefreshAt))
	if err != nil {
		return 0, 0, fmt.Errorf("refresh time must be HH:MM, got %q", c.RefreshAt)
	}
	return t.Hour(), t.Minute(), nil
}

// Location resolves Timezone, falling back to the process local zone when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
