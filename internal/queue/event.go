// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into bookings.
package queue

// BookingQueueName is the durable queue carrying booking requests from the
// payment path to the worker.
const BookingQueueName = "bookings"

// BookingRequestedEvent is published after a successful lock-and-pay
// sequence when the broker hand-off is active.  It carries everything the
// worker needs to persist the booking without touching the lock store; the
// seat locks stay live until their TTL passes, which covers the queue delay.
type BookingRequestedEvent struct {
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatIDs     []uint64 `json:"seat_ids"`
	AmountCents uint64   `json:"amount_cents"`
	HoldToken   string   `json:"hold_token"`
	RequestedAt string   `json:"requested_at"`
}
