package lockstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespaces(t *testing.T) {
	assert.Equal(t, "seat:42", SeatKey(42))
	assert.Equal(t, []string{"seat:1", "seat:7"}, SeatKeys([]uint64{1, 7}))
	assert.Equal(t, "lock:shows:theater:3", StampedeKey(TheaterShowsKey(3)))
	assert.Equal(t, "idempotency:abc", IdempotencyKey("abc"))
	assert.Equal(t, "ratelimit:10.0.0.1", RateLimitKey("10.0.0.1"))
	assert.Equal(t, "shows:theater:12", TheaterShowsKey(12))
}
