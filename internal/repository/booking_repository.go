package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/pool"
)

// BookingRepo persists bookings.  Creation runs the booking row and all its
// seat links in one transaction so partial bookings are never observable.
type BookingRepo struct {
	pools *pool.Manager
}

// NewBookingRepo returns a BookingRepo bound to the pool manager.
func NewBookingRepo(pools *pool.Manager) *BookingRepo { return &BookingRepo{pools: pools} }

// Create inserts a booking and its seat links atomically and returns the new
// booking id.  The WRITE pool serializes these transactions; seatIDs must be
// non-empty and already validated upstream (admission gate plus lock
// ownership).
func (r *BookingRepo) Create(ctx context.Context, userID, showID uint64, seatIDs []uint64, amountCents uint64, status string) (uint64, error) {
	var bookingID uint64
	err := r.pools.With(ctx, pool.Write, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (user_id, show_id, status, total_amount_cents) VALUES (?, ?, ?, ?)`,
			userID, showID, status, amountCents)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		query := `INSERT INTO booking_seats (booking_id, screen_seat_id) VALUES `
		args := make([]interface{}, 0, len(seatIDs)*2)
		for i, sid := range seatIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, id, sid)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			// 1062: a seat link already exists, so these seats were sold by a
			// competing write that slipped past the locks.
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == 1062 {
				return ErrConflict
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		bookingID = uint64(id)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return bookingID, nil
}

// ListByUser returns a user's bookings, newest first.  Seat links are not
// expanded here; the history listing only needs amount and status.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT id, user_id, show_id, status, total_amount_cents, booking_time
               FROM bookings WHERE user_id = ? ORDER BY id DESC`
	var bookings []model.Booking
	err := r.pools.With(ctx, pool.Read, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b model.Booking
			if err := rows.Scan(&b.ID, &b.UserID, &b.ShowID, &b.Status, &b.AmountCents, &b.CreatedAt); err != nil {
				return err
			}
			bookings = append(bookings, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateStatus transitions a booking's status, used by the worker when a
// PENDING booking completes or fails.
func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID uint64, status string) error {
	return r.pools.With(ctx, pool.Write, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`UPDATE bookings SET status = ? WHERE id = ?`, status, bookingID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
