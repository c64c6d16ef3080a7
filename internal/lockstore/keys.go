package lockstore

import "strconv"

// Key namespaces are part of the external contract: operators and load tests
// inspect them directly, so the exact formats below must not change.

// SeatKey is the reservation lock key for one seat.
func SeatKey(seatID uint64) string {
	return "seat:" + strconv.FormatUint(seatID, 10)
}

// SeatKeys maps a seat set to its lock keys.
func SeatKeys(seatIDs []uint64) []string {
	keys := make([]string, 0, len(seatIDs))
	for _, id := range seatIDs {
		keys = append(keys, SeatKey(id))
	}
	return keys
}

// StampedeKey guards a cache entry's miss episode.
func StampedeKey(cacheKey string) string {
	return "lock:" + cacheKey
}

// IdempotencyKey namespaces a client-supplied request key.
func IdempotencyKey(requestKey string) string {
	return "idempotency:" + requestKey
}

// RateLimitKey namespaces a per-client rate window counter.
func RateLimitKey(clientID string) string {
	return "ratelimit:" + clientID
}

// TheaterShowsKey is the cache entry for a theater's show listing.
func TheaterShowsKey(theaterID uint64) string {
	return "shows:theater:" + strconv.FormatUint(theaterID, 10)
}
