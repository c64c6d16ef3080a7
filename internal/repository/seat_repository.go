package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/pool"
)

// SeatRepo reads the screen_seats table.  All queries run on the READ pool.
type SeatRepo struct {
	pools *pool.Manager
}

// NewSeatRepo returns a SeatRepo bound to the pool manager.
func NewSeatRepo(pools *pool.Manager) *SeatRepo { return &SeatRepo{pools: pools} }

// AllIDs returns the id of every seat in every screen.  It runs once at
// startup to populate the admission filter.
func (r *SeatRepo) AllIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.pools.With(ctx, pool.Read, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id FROM screen_seats`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id uint64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByScreen returns the seat map for one screen with each seat's booking
// status.  A seat is BOOKED when it is linked to a CONFIRMED booking.
func (r *SeatRepo) ListByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	const q = `SELECT s.id, CONCAT(s.row_code, s.seat_number),
                      CASE WHEN MAX(b.status = 'CONFIRMED') = 1 THEN 'BOOKED' ELSE 'AVAILABLE' END
               FROM screen_seats s
               LEFT JOIN booking_seats bs ON s.id = bs.screen_seat_id
               LEFT JOIN bookings b ON bs.booking_id = b.id
               WHERE s.screen_id = ?
               GROUP BY s.id, s.row_code, s.seat_number
               ORDER BY s.id ASC`
	var seats []model.Seat
	err := r.pools.With(ctx, pool.Read, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q, screenID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s model.Seat
			if err := rows.Scan(&s.ID, &s.Label, &s.Status); err != nil {
				return err
			}
			seats = append(seats, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}
