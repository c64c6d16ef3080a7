// Package ledger records the response of a side-effecting operation under a
// client-supplied idempotency key, so duplicate retries replay the original
// response instead of charging or booking twice.
package ledger

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/ticket-booking/internal/lockstore"
)

// KV is the subset of the lock store the ledger needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DefaultTTL keeps a record long enough to outlive any client retry storm.
const DefaultTTL = 24 * time.Hour

// Ledger is the idempotency record store.
type Ledger struct {
	kv  KV
	ttl time.Duration
}

// New builds a Ledger; a non-positive ttl falls back to DefaultTTL.
func New(kv KV, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{kv: kv, ttl: ttl}
}

// Check returns the previously recorded response for requestKey, if any.
// An empty key means idempotency is not enforced.  Backend errors are logged
// and reported as a miss: absence fails open toward processing the request.
func (l *Ledger) Check(ctx context.Context, requestKey string) ([]byte, bool) {
	if requestKey == "" {
		return nil, false
	}
	body, ok, err := l.kv.Get(ctx, lockstore.IdempotencyKey(requestKey))
	if err != nil {
		log.Printf("ledger: lookup %q failed, proceeding without replay: %v", requestKey, err)
		return nil, false
	}
	return body, ok
}

// Save records the response produced for requestKey.  Records are written
// once after the guarded operation completes and never mutated.  An empty
// key is a no-op; a write failure is logged, since losing a record only
// costs replay protection for that key.
func (l *Ledger) Save(ctx context.Context, requestKey string, response []byte) {
	if requestKey == "" {
		return
	}
	if err := l.kv.Set(ctx, lockstore.IdempotencyKey(requestKey), response, l.ttl); err != nil {
		log.Printf("ledger: save %q failed: %v", requestKey, err)
	}
}
