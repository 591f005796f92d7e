// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/salon-appointment-booking/internal/config"
	"github.com/iliyamo/salon-appointment-booking/internal/handler"
	"github.com/iliyamo/salon-appointment-booking/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints.  Register, login and
// refresh are open; logout and me require a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh_token body or a bearer token and
	// resolves identity itself, so it stays outside the JWT group.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler) {
	e.GET("/v1/businesses", b.ListBusinesses)
	e.GET("/v1/businesses/:id/services", b.ListServices)
	e.GET("/v1/businesses/:id/staff", b.ListStaff)
	e.GET("/v1/staff/:id/availability", b.StaffAvailability)
}

// RegisterAppointments registers the booking endpoints.  Everything is
// behind JWT auth and the Redis token-bucket rate limiter; role checks
// are applied per route.
func RegisterAppointments(e *echo.Echo, h *handler.AppointmentHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER", "CUSTOMER"),
		middleware.NewTokenBucket(rl, rdb),
	)

	customer := middleware.RequireRole("CUSTOMER")
	owner := middleware.RequireRole("OWNER")

	g.POST("/appointments", h.Create, customer)
	g.GET("/appointments", h.ListMine, customer)
	// Static route before the :id route so "expired" never parses as an id.
	g.DELETE("/appointments/expired", h.DeleteExpired, owner)
	g.GET("/appointments/:id", h.GetByID)
	g.PUT("/appointments/:id", h.Update)
	g.PATCH("/appointments/:id/status", h.UpdateStatus)
	g.DELETE("/appointments/:id", h.Delete)

	g.GET("/businesses/:id/appointments", h.ListByBusiness, owner)
	g.GET("/staff/:id/appointments", h.ListByStaff, owner)
}
