package config

import (
	"time"
)

// RateLimitConfig drives the fixed-window rate limiter.  The window counter
// lives in the lock store; when that backend is unreachable the limiter
// follows FailClosed: false (the default) allows the request through,
// prioritizing availability, while true rejects it.  The choice is
// security-relevant, which is why it is a config switch rather than a
// hard-coded policy.
type RateLimitConfig struct {
	Enabled    bool
	Limit      int           // requests allowed per window per client
	Window     time.Duration // fixed window length
	FailClosed bool          // reject when the backend is unreachable
	Debug      bool
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig.  Defaults allow 10 requests per second per client, the
// rate that stops bots without slowing down a human clicking quickly.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:    envBool("RATE_LIMIT_ENABLED", true),
		Limit:      envInt("RATE_LIMIT_LIMIT", 10),
		Window:     envDur("RATE_LIMIT_WINDOW", time.Second),
		FailClosed: envBool("RATE_LIMIT_FAIL_CLOSED", false),
		Debug:      envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window < time.Second {
		cfg.Window = time.Second
	}
	return cfg
}
