package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/pool"
)

// ShowRepo reads the show catalog.  ListByTheater is the expensive aggregate
// behind the cache-aside layer; it only ever runs as the single elected
// loader of a miss episode.
type ShowRepo struct {
	pools *pool.Manager
}

// NewShowRepo returns a ShowRepo bound to the pool manager.
func NewShowRepo(pools *pool.Manager) *ShowRepo { return &ShowRepo{pools: pools} }

// ListByTheater returns every show in every screen of a theater together
// with its movie title.
func (r *ShowRepo) ListByTheater(ctx context.Context, theaterID uint64) ([]model.Show, error) {
	const q = `SELECT s.id, m.title, s.start_time, s.price
               FROM shows s
               JOIN movies m ON s.movie_id = m.id
               WHERE s.screen_id IN (SELECT id FROM screens WHERE theater_id = ?)
               ORDER BY s.start_time ASC`
	var shows []model.Show
	err := r.pools.With(ctx, pool.Read, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q, theaterID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				s     model.Show
				start time.Time
			)
			if err := rows.Scan(&s.ID, &s.MovieTitle, &start, &s.Price); err != nil {
				return err
			}
			s.StartTime = start.UTC().Format(time.RFC3339)
			shows = append(shows, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return shows, nil
}
