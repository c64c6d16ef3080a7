// Package middleware provides the HTTP-facing protection layers: the
// fixed-window rate limiter that shields the whole API from bursty or
// malicious clients.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-booking/internal/config"
	"github.com/iliyamo/ticket-booking/internal/lockstore"
)

// Counter is the atomic increment-with-expiry primitive the limiter counts
// on.  The lock store implements it; tests substitute a fake.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// NewFixedWindow builds the per-client fixed-window limiter.  Each client
// (keyed by IP) gets `ratelimit:<ip>` incremented per request; the counter's
// TTL starts the window and its expiry resets it.  Bursts straddling a
// window boundary are an accepted approximation of a sliding window.
//
// When the counter backend errors the limiter follows cfg.FailClosed; the
// default lets the request through, trading strict throttling for uptime.
func NewFixedWindow(cfg config.RateLimitConfig, counter Counter) echo.MiddlewareFunc {
	if !cfg.Enabled || counter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	windowSecs := int(cfg.Window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := lockstore.RateLimitKey(ip)

			count, err := counter.IncrWindow(c.Request().Context(), key, cfg.Window)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] counter error for key=%s: %v", key, err)
				}
				if cfg.FailClosed {
					return c.JSON(http.StatusServiceUnavailable, echo.Map{
						"error":   "rate_limiter_unavailable",
						"message": "try again shortly",
					})
				}
				return next(c)
			}

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(windowSecs))
				if cfg.Debug {
					c.Logger().Infof("[ratelimit] block key=%s count=%d limit=%d", key, count, cfg.Limit)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": windowSecs,
				})
			}
			return next(c)
		}
	}
}
