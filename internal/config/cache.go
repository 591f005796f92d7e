package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig defines settings for the appointment read cache.  When
// Enabled is false or no Redis client is available, reads fall back to
// the database and no entries are written.
type CacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	Prefix    string
	OpTimeout time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults apply when variables are unset.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:   envBool("CACHE_ENABLED", true),
		TTL:       envDur("CACHE_TTL", 10*time.Minute),
		Prefix:    envStr("CACHE_PREFIX", "booking"),
		OpTimeout: envDur("CACHE_OP_TIMEOUT", time.Second),
	}
}

// Shared env helpers used across the config files.

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
