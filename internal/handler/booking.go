package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-booking/internal/lockstore"
	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
)

// Gate is the admission filter consulted before any lock or database work.
// A false result is authoritative: the seat id cannot exist.
type Gate interface {
	MayContain(id string) bool
}

// Locks is the distributed-lock surface of the lock store.
type Locks interface {
	AcquireBulk(ctx context.Context, keys []string, owner string, ttl time.Duration) (bool, error)
	ReleaseOwned(ctx context.Context, keys []string, owner string) (int64, error)
	Owner(ctx context.Context, key string) (string, bool, error)
}

// Ledger guards the payment against duplicate execution.
type Ledger interface {
	Check(ctx context.Context, requestKey string) ([]byte, bool)
	Save(ctx context.Context, requestKey string, response []byte)
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, userID, showID uint64, seatIDs []uint64, amountCents uint64, status string) (uint64, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// EventPublisher is the broker hand-off; Enabled is false when no broker is
// configured and payment falls back to synchronous booking creation.
type EventPublisher interface {
	Enabled() bool
	PublishBookingRequested(ctx context.Context, event queue.BookingRequestedEvent) error
}

// BookingHandler implements the reservation protocol: admission gate, bulk
// seat lock, idempotent payment, and booking history.
type BookingHandler struct {
	Gate      Gate
	Locks     Locks
	Ledger    Ledger
	Bookings  BookingStore
	Publisher EventPublisher
	LockTTL   time.Duration
}

// NewBookingHandler constructs a BookingHandler.  Gate, Locks, Ledger and
// Bookings must be non-nil; Publisher may be a disabled publisher.
func NewBookingHandler(gate Gate, locks Locks, ledg Ledger, bookings BookingStore, pub EventPublisher, lockTTL time.Duration) *BookingHandler {
	if gate == nil || locks == nil || ledg == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if lockTTL <= 0 {
		lockTTL = 120 * time.Second
	}
	return &BookingHandler{
		Gate:      gate,
		Locks:     locks,
		Ledger:    ledg,
		Bookings:  bookings,
		Publisher: pub,
		LockTTL:   lockTTL,
	}
}

// reserveRequest accepts both the single seat_id form and the seat_ids
// array; the two are merged and deduplicated.
type reserveRequest struct {
	UserID  uint64   `json:"user_id"`
	SeatID  uint64   `json:"seat_id"`
	SeatIDs []uint64 `json:"seat_ids"`
}

func (r *reserveRequest) seats() []uint64 {
	all := r.SeatIDs
	if r.SeatID != 0 {
		all = append(all, r.SeatID)
	}
	unique := make([]uint64, 0, len(all))
	seen := make(map[uint64]struct{}, len(all))
	for _, id := range all {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}

// Reserve handles POST /api/reserve.  The admission gate rejects impossible
// seat ids with 404 before any lock-store round trip.  The remaining seats
// are locked all-or-nothing under a fresh hold token with the configured
// TTL: 200 returns the token, 409 means another purchaser holds at least one
// of the seats and nothing was locked.
func (h *BookingHandler) Reserve(c echo.Context) error {
	var body reserveRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := body.seats()
	if len(seatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	if body.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	for _, id := range seatIDs {
		if !h.Gate.MayContain(strconv.FormatUint(id, 10)) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid seat", "seat_id": id})
		}
	}

	token := uuid.NewString()
	ok, err := h.Locks.AcquireBulk(c.Request().Context(), lockstore.SeatKeys(seatIDs), token, h.LockTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock store error"})
	}
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat taken"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":     "RESERVED",
		"hold_token": token,
		"seat_ids":   seatIDs,
		"expires_in": int(h.LockTTL / time.Second),
	})
}

type payRequest struct {
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatID      uint64   `json:"seat_id"`
	SeatIDs     []uint64 `json:"seat_ids"`
	AmountCents uint64   `json:"amount_cents"`
	HoldToken   string   `json:"hold_token"`
}

// Pay handles POST /api/pay.  An Idempotency-Key header with a prior record
// replays the recorded response verbatim and skips the side effect entirely.
// Otherwise every seat lock must still resolve to the presented hold token
// (403 when the reservation expired), after which the booking is either
// handed to the broker (PENDING) or created synchronously (CONFIRMED),
// and the outcome is recorded under the key.
func (h *BookingHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	idemKey := c.Request().Header.Get("Idempotency-Key")

	if prior, ok := h.Ledger.Check(ctx, idemKey); ok {
		c.Response().Header().Set("X-Idempotency-Hit", "true")
		return c.JSONBlob(http.StatusOK, prior)
	}

	var body payRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := (&reserveRequest{SeatID: body.SeatID, SeatIDs: body.SeatIDs}).seats()
	if len(seatIDs) == 0 || body.UserID == 0 || body.ShowID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id, show_id and seat_ids are required"})
	}
	if body.HoldToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_token is required"})
	}

	// The reservation must still be live and ours.  An expired lock means the
	// seats may already be re-reserved; the purchaser has to start over.
	for _, id := range seatIDs {
		owner, held, err := h.Locks.Owner(ctx, lockstore.SeatKey(id))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock store error"})
		}
		if !held || owner != body.HoldToken {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "reservation expired", "seat_id": id})
		}
	}

	var response []byte
	if h.Publisher != nil && h.Publisher.Enabled() {
		ev := queue.BookingRequestedEvent{
			UserID:      body.UserID,
			ShowID:      body.ShowID,
			SeatIDs:     seatIDs,
			AmountCents: body.AmountCents,
			HoldToken:   body.HoldToken,
			RequestedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := h.Publisher.PublishBookingRequested(ctx, ev); err == nil {
			response = mustJSON(echo.Map{"status": model.BookingPending})
		}
		// Publish failure falls through to the synchronous path.
	}
	if response == nil {
		bookingID, err := h.Bookings.Create(ctx, body.UserID, body.ShowID, seatIDs, body.AmountCents, model.BookingConfirmed)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "seats already booked"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
		response = mustJSON(echo.Map{"status": model.BookingConfirmed, "booking_id": bookingID})
	}

	h.Ledger.Save(ctx, idemKey, response)
	return c.JSONBlob(http.StatusOK, response)
}

type releaseRequest struct {
	SeatID    uint64   `json:"seat_id"`
	SeatIDs   []uint64 `json:"seat_ids"`
	HoldToken string   `json:"hold_token"`
}

// Release handles POST /api/release.  It frees held seats before their TTL
// when the client abandons checkout.  Only locks still owned by the
// presented token are deleted, so an expired-and-reacquired seat is never
// released out from under its new holder.
func (h *BookingHandler) Release(c echo.Context) error {
	var body releaseRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := (&reserveRequest{SeatID: body.SeatID, SeatIDs: body.SeatIDs}).seats()
	if len(seatIDs) == 0 || body.HoldToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids and hold_token are required"})
	}
	released, err := h.Locks.ReleaseOwned(c.Request().Context(), lockstore.SeatKeys(seatIDs), body.HoldToken)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock store error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// MyBookings handles GET /api/my-bookings?user_id=N.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := strconv.ParseUint(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	bookings, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, echo.Map{
			"id":           b.ID,
			"show_id":      b.ShowID,
			"status":       b.Status,
			"amount_cents": b.AmountCents,
			"booked_at":    b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// echo.Map of scalars cannot fail to marshal.
		panic(err)
	}
	return b
}
