package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CATALOG_"

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return f, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// ApplyEnv overlays CATALOG_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	stringVars := map[string]*string{
		"FEED_URL":      &c.FeedURL,
		"ENTRY_NAME":    &c.EntryName,
		"SOURCE_LABEL":  &c.SourceLabel,
		"USER_AGENT":    &c.UserAgent,
		"STORE_DRIVER":  &c.StoreDriver,
		"STORE_DSN":     &c.StoreDSN,
		"LISTEN_ADDR":   &c.ListenAddr,
		"REFRESH_AT":    &c.RefreshAt,
		"TIMEZONE":      &c.Timezone,
		"KEEPALIVE_URL": &c.KeepAliveURL,
	}
	for name, dst := range stringVars {
		if value, ok := EnvString(EnvPrefix + name); ok {
			*dst = value
		}
	}
	// PORT applies unless CATALOG_LISTEN_ADDR is set.
	if port, ok := EnvString("PORT"); ok {
		if _, set := EnvString(EnvPrefix + "LISTEN_ADDR"); !set {
			c.ListenAddr = ":" + port
		}
	}

	ints := map[string]*int{
		"MAX_RETRIES":       &c.MaxRetries,
		"BATCH_SIZE":        &c.BatchSize,
		"DEFAULT_PAGE_SIZE": &c.DefaultPageSize,
		"MAX_PAGE_SIZE":     &c.MaxPageSize,
		"QUERY_CACHE_SIZE":  &c.QueryCacheSize,
	}
	for name, dst := range ints {
		value, ok, err := EnvInt(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"FEED_TIMEOUT":            &c.FeedTimeout,
		"RETRY_BACKOFF":           &c.RetryBackoff,
		"RETRY_BACKOFF_MAX":       &c.RetryBackoffMax,
		"MANUAL_REFRESH_INTERVAL": &c.ManualRefreshInterval,
		"KEEPALIVE_INTERVAL":      &c.KeepAliveInterval,
	}
	for name, dst := range durations {
		value, ok, err := EnvDuration(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	floats := map[string]*float64{
		"PRICE_DISCOUNT": &c.PriceDiscount,
		"PRICE_MARKUP":   &c.PriceMarkup,
	}
	for name, dst := range floats {
		value, ok, err := EnvFloat(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := EnvBool(EnvPrefix + "VERBOSE"); err != nil {
		return err
	} else if ok {
		c.Verbose = value
	}
	return nil
}
