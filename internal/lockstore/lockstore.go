// Package lockstore wraps the Redis client with the server-side atomic
// primitives the rest of the service is built on: the all-or-nothing bulk
// lock behind seat reservations and the stampede guard, the owner-checked
// release, and the increment-with-expiry counter behind the rate limiter.
// Every check-then-set runs as a single Lua script execution so concurrent
// callers observe a total order per key set; the go-redis client is safe for
// concurrent use, so no additional serialization is needed around calls.
package lockstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// acquireBulkScript sets every key to the owner with a TTL if and only if
// none of the keys currently exist.  Returns 1 on success, 0 if any key is
// already held; on failure no key is modified.
var acquireBulkScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
    if redis.call("EXISTS", key) == 1 then return 0 end
end
for _, key in ipairs(KEYS) do
    redis.call("SET", key, ARGV[1], "EX", ARGV[2])
end
return 1
`)

// releaseOwnedScript deletes each key only when it still holds the caller's
// owner token, so an expired-and-reacquired lock is never released by the
// previous owner.  Returns the number of keys deleted.
var releaseOwnedScript = redis.NewScript(`
local released = 0
for _, key in ipairs(KEYS) do
    if redis.call("GET", key) == ARGV[1] then
        released = released + redis.call("DEL", key)
    end
end
return released
`)

// incrWindowScript increments a counter and starts its expiry window on the
// call that creates the key.
var incrWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// ErrUnavailable is returned when the lock store has no reachable backend.
// Callers decide per policy whether to fail open or closed.
var ErrUnavailable = errors.New("lockstore: backend unavailable")

// Store exposes the atomic primitives on top of a shared Redis client.
type Store struct {
	rdb *redis.Client
}

// New returns a Store bound to the provided client.  A nil client is
// accepted so a failed connection at startup degrades instead of crashing:
// every operation then returns ErrUnavailable and the dependent features
// surface their defined failure outcomes.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// AcquireBulk atomically claims all keys for owner with the given TTL.  It
// returns false when any key is already held; in that case nothing was
// modified.
func (s *Store) AcquireBulk(ctx context.Context, keys []string, owner string, ttl time.Duration) (bool, error) {
	if s.rdb == nil {
		return false, ErrUnavailable
	}
	if len(keys) == 0 {
		return false, errors.New("lockstore: no keys to acquire")
	}
	res, err := acquireBulkScript.Run(ctx, s.rdb, keys, owner, int64(ttl/time.Second)).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// ReleaseOwned deletes each key still held by owner and returns how many
// were released.
func (s *Store) ReleaseOwned(ctx context.Context, keys []string, owner string) (int64, error) {
	if s.rdb == nil {
		return 0, ErrUnavailable
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return releaseOwnedScript.Run(ctx, s.rdb, keys, owner).Int64()
}

// IncrWindow increments the fixed-window counter at key, setting its TTL to
// the window length when the counter is created.  It returns the count after
// the increment.
func (s *Store) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s.rdb == nil {
		return 0, ErrUnavailable
	}
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return incrWindowScript.Run(ctx, s.rdb, []string{key}, strconv.FormatInt(secs, 10)).Int64()
}

// Get returns the value at key.  The second result is false on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.rdb == nil {
		return nil, false, ErrUnavailable
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores value at key with a TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Owner returns the owner token currently holding key, if any.
func (s *Store) Owner(ctx context.Context, key string) (string, bool, error) {
	if s.rdb == nil {
		return "", false, ErrUnavailable
	}
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
