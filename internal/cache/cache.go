// Package cache implements cache-aside reads with single-flight protection.
// When a popular entry expires, every concurrent reader misses at once; the
// guard elects exactly one of them to run the expensive loader while the rest
// poll the cache, so backend load for one key stays at one in-flight query
// regardless of request volume.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/ticket-booking/internal/lockstore"
)

// KV is the subset of the lock store used for cache entries.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Locker acquires the short-lived loading lock for a miss episode.
type Locker interface {
	AcquireBulk(ctx context.Context, keys []string, owner string, ttl time.Duration) (bool, error)
}

// ErrBusy is returned when a caller lost the loading race and the cache was
// still empty after the bounded retries.  Handlers map it to 503 so waiters
// back off instead of piling onto the backend.
var ErrBusy = errors.New("cache: loader busy, retries exhausted")

// Source tells the caller where a value came from, mostly for the X-Source
// response header.
type Source string

const (
	SourceCache  Source = "cache"
	SourceLoader Source = "loader"
)

const loaderOwner = "loader"

// Cache composes a key-value store with the stampede lock.
type Cache struct {
	kv       KV
	locks    Locker
	lockTTL  time.Duration
	attempts int
	backoff  time.Duration
}

// Option tunes a Cache.
type Option func(*Cache)

// WithRetry overrides the losing caller's attempt count and poll interval.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Cache) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithLockTTL overrides the loading lock's TTL.  It should comfortably cover
// one loader execution; expiry is what recovers from a crashed loader.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// New builds a Cache with the reference defaults: ten polls of 200ms and a
// two second loading lock.
func New(kv KV, locks Locker, opts ...Option) *Cache {
	c := &Cache{
		kv:       kv,
		locks:    locks,
		lockTTL:  2 * time.Second,
		attempts: 10,
		backoff:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the cached value for key, running loader on a miss.
// Among concurrent callers for the same missing key exactly one executes
// loader; it writes the result back with the given TTL and returns it
// directly.  The others re-poll the cache and fail with ErrBusy once the
// attempt budget is spent.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, Source, error) {
	lockKey := lockstore.StampedeKey(key)
	for i := 0; i < c.attempts; i++ {
		if v, ok, err := c.kv.Get(ctx, key); err != nil {
			return nil, "", err
		} else if ok {
			return v, SourceCache, nil
		}

		won, err := c.locks.AcquireBulk(ctx, []string{lockKey}, loaderOwner, c.lockTTL)
		if err != nil {
			return nil, "", err
		}
		if won {
			v, err := loader(ctx)
			if err != nil {
				return nil, "", err
			}
			if err := c.kv.Set(ctx, key, v, ttl); err != nil {
				return nil, "", err
			}
			return v, SourceLoader, nil
		}

		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	return nil, "", ErrBusy
}
