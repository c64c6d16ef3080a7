package model

// Seat availability as shown on the seat map.  Reservation locks are not
// reflected here; they live in the lock store and expire on their own.
const (
	SeatAvailable = "AVAILABLE"
	SeatBooked    = "BOOKED"
)

// Seat is one physical seat in a screen, combined with its booking status
// for the seat-map listing.
type Seat struct {
	ID     uint64 `json:"id"`     // screen_seats.id
	Label  string `json:"label"`  // row code + seat number, e.g. "A12"
	Status string `json:"status"` // AVAILABLE or BOOKED
}
