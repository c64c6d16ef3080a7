package model

// Show is one screening of a movie, as served by the catalog listing.  The
// JSON shape is what gets cached, so field names are part of the client
// contract.
type Show struct {
	ID         uint64  `json:"id"`    // shows.id
	MovieTitle string  `json:"movie"` // movies.title
	StartTime  string  `json:"time"`  // shows.start_time, RFC 3339
	Price      float64 `json:"price"` // shows.price
}
