package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/ticket-booking/internal/handler" // handlers implementing the reservation protocol
)

// RegisterRoutes registers routes that do not belong to the booking API.
// Currently it exposes only a health check, used by load balancers and
// monitoring systems to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the booking API under /api.  Middleware such as the
// rate limiter is applied by the caller on the Echo instance so it also
// covers any future route groups.
func RegisterAPI(e *echo.Echo, catalog *handler.CatalogHandler, booking *handler.BookingHandler) {
	g := e.Group("/api")

	// Read-heavy catalog endpoints, served by the READ pool.
	g.GET("/seats", catalog.GetSeats)
	g.GET("/theaters/:id/shows", catalog.GetTheaterShows)

	// The reservation protocol: admission gate -> bulk seat lock -> payment.
	g.POST("/reserve", booking.Reserve)
	g.POST("/pay", booking.Pay)
	g.POST("/release", booking.Release)
	g.GET("/my-bookings", booking.MyBookings)
}
