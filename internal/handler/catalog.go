package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-booking/internal/cache"
	"github.com/iliyamo/ticket-booking/internal/lockstore"
	"github.com/iliyamo/ticket-booking/internal/model"
)

// SeatLister serves the seat map.
type SeatLister interface {
	ListByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error)
}

// ShowLister is the miss-path loader behind the catalog cache.
type ShowLister interface {
	ListByTheater(ctx context.Context, theaterID uint64) ([]model.Show, error)
}

// ShowCache is the cache-aside layer; nil disables caching and every request
// hits the loader directly.
type ShowCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, cache.Source, error)
}

// CatalogHandler serves the read-heavy catalog endpoints: the per-screen
// seat map and the cached per-theater show listing.
type CatalogHandler struct {
	Seats    SeatLister
	Shows    ShowLister
	Cache    ShowCache
	CacheTTL time.Duration
}

// NewCatalogHandler constructs a CatalogHandler.  Cache may be nil when the
// cache backend is unavailable.
func NewCatalogHandler(seats SeatLister, shows ShowLister, showCache ShowCache, cacheTTL time.Duration) *CatalogHandler {
	if seats == nil || shows == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Seats: seats, Shows: shows, Cache: showCache, CacheTTL: cacheTTL}
}

// GetSeats handles GET /api/seats.  The optional screen_id query parameter
// defaults to 1.  Always served from the READ pool; reservation locks are
// deliberately not reflected here.
func (h *CatalogHandler) GetSeats(c echo.Context) error {
	screenID := uint64(1)
	if raw := c.QueryParam("screen_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen_id"})
		}
		screenID = id
	}
	seats, err := h.Seats.ListByScreen(c.Request().Context(), screenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return c.JSON(http.StatusOK, seats)
}

// GetTheaterShows handles GET /api/theaters/:id/shows through the cache-aside
// layer.  On a miss exactly one request loads from the database while the
// rest poll the cache; when the retry budget runs out the request fails with
// 503 so waiters back off instead of stampeding the backend.  The X-Source
// header reports whether the body came from the cache or the loader.
func (h *CatalogHandler) GetTheaterShows(c echo.Context) error {
	theaterID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || theaterID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	ctx := c.Request().Context()

	loader := func(ctx context.Context) ([]byte, error) {
		shows, err := h.Shows.ListByTheater(ctx, theaterID)
		if err != nil {
			return nil, err
		}
		if shows == nil {
			shows = []model.Show{}
		}
		return json.Marshal(shows)
	}

	if h.Cache == nil {
		body, err := loader(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		c.Response().Header().Set("X-Source", string(cache.SourceLoader))
		return c.JSONBlob(http.StatusOK, body)
	}

	body, src, err := h.Cache.GetOrLoad(ctx, lockstore.TheaterShowsKey(theaterID), h.CacheTTL, loader)
	if err != nil {
		if errors.Is(err, cache.ErrBusy) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "server busy, retry shortly"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	c.Response().Header().Set("X-Source", string(src))
	return c.JSONBlob(http.StatusOK, body)
}
