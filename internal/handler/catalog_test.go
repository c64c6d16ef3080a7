package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-booking/internal/cache"
	"github.com/iliyamo/ticket-booking/internal/model"
)

type fakeSeatLister struct {
	seats []model.Seat
	err   error
}

func (f *fakeSeatLister) ListByScreen(context.Context, uint64) ([]model.Seat, error) {
	return f.seats, f.err
}

type fakeShowLister struct {
	shows []model.Show
	calls int32
}

func (f *fakeShowLister) ListByTheater(context.Context, uint64) ([]model.Show, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.shows, nil
}

// passthroughCache either serves a canned value or runs the loader.
type passthroughCache struct {
	cached []byte
	busy   bool
}

func (p *passthroughCache) GetOrLoad(ctx context.Context, _ string, _ time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, cache.Source, error) {
	if p.busy {
		return nil, "", cache.ErrBusy
	}
	if p.cached != nil {
		return p.cached, cache.SourceCache, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return nil, "", err
	}
	return v, cache.SourceLoader, nil
}

func get(h echo.HandlerFunc, path, paramName, paramValue string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	_ = h(c)
	return rec
}

func TestGetSeats(t *testing.T) {
	seats := []model.Seat{{ID: 1, Label: "A1", Status: model.SeatAvailable}, {ID: 2, Label: "A2", Status: model.SeatBooked}}
	h := NewCatalogHandler(&fakeSeatLister{seats: seats}, &fakeShowLister{}, nil, time.Minute)

	rec := get(h.GetSeats, "/api/seats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Seat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, seats, got)

	rec = get(h.GetSeats, "/api/seats?screen_id=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSeatsDatabaseError(t *testing.T) {
	h := NewCatalogHandler(&fakeSeatLister{err: errors.New("down")}, &fakeShowLister{}, nil, time.Minute)
	rec := get(h.GetSeats, "/api/seats", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "down", "raw backend errors must not reach the client")
}

func TestTheaterShowsServedFromCache(t *testing.T) {
	cached := []byte(`[{"id":9,"movie":"cached","time":"t","price":1}]`)
	lister := &fakeShowLister{}
	h := NewCatalogHandler(&fakeSeatLister{}, lister, &passthroughCache{cached: cached}, time.Minute)

	rec := get(h.GetTheaterShows, "/api/theaters/3/shows", "id", "3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(cached), rec.Body.String())
	assert.Equal(t, "cache", rec.Header().Get("X-Source"))
	assert.EqualValues(t, 0, atomic.LoadInt32(&lister.calls))
}

func TestTheaterShowsLoadsOnMiss(t *testing.T) {
	lister := &fakeShowLister{shows: []model.Show{{ID: 1, MovieTitle: "m", StartTime: "t", Price: 10}}}
	h := NewCatalogHandler(&fakeSeatLister{}, lister, &passthroughCache{}, time.Minute)

	rec := get(h.GetTheaterShows, "/api/theaters/3/shows", "id", "3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loader", rec.Header().Get("X-Source"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&lister.calls))
}

func TestTheaterShowsBusy(t *testing.T) {
	h := NewCatalogHandler(&fakeSeatLister{}, &fakeShowLister{}, &passthroughCache{busy: true}, time.Minute)
	rec := get(h.GetTheaterShows, "/api/theaters/3/shows", "id", "3")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTheaterShowsInvalidID(t *testing.T) {
	h := NewCatalogHandler(&fakeSeatLister{}, &fakeShowLister{}, nil, time.Minute)
	rec := get(h.GetTheaterShows, "/api/theaters/x/shows", "id", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
