package model

import "time"

// Booking statuses.  PENDING is only ever observed by clients when the
// broker hand-off is active; the worker persists the booking as CONFIRMED.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingFailed    = "FAILED"
)

// Booking is the unit of work created by a successful payment.  It is the
// object the seat locks and the idempotency ledger exist to protect: at most
// one booking per logical purchase, and no seat ever sold to two purchasers.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – purchaser.
//	ShowID      – show being booked.
//	Status      – PENDING, CONFIRMED or FAILED.
//	AmountCents – total price in cents across all seats.
//	SeatIDs     – seats contained in the booking (from booking_seats).
//	CreatedAt   – creation timestamp.
type Booking struct {
	ID          uint64    // bookings.id
	UserID      uint64    // bookings.user_id
	ShowID      uint64    // bookings.show_id
	Status      string    // bookings.status
	AmountCents uint64    // bookings.total_amount_cents
	SeatIDs     []uint64  // booking_seats.screen_seat_id
	CreatedAt   time.Time // bookings.booking_time
}
