package config

import (
	"time"
)

// CacheConfig tunes the cache-aside layer around the show catalog.  TTL is
// the lifetime of cache entries; LockTTL bounds one loader execution during a
// miss episode.  RetryAttempts and RetryBackoff control how long a caller
// that lost the loading race polls the cache before giving up with a
// "server busy" outcome.
type CacheConfig struct {
	Enabled       bool
	TTL           time.Duration
	LockTTL       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults match the reference tuning: 30s entries, a 2s loading lock and
// ten 200ms polls (a two second wait budget) before returning busy.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:       envBool("CACHE_ENABLED", true),
		TTL:           envDur("CACHE_TTL", 30*time.Second),
		LockTTL:       envDur("CACHE_LOCK_TTL", 2*time.Second),
		RetryAttempts: envInt("CACHE_RETRY_ATTEMPTS", 10),
		RetryBackoff:  envDur("CACHE_RETRY_BACKOFF", 200*time.Millisecond),
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return cfg
}
