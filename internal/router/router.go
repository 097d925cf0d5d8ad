// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/palakgarg19/Happening/internal/handler"
	"github.com/palakgarg19/Happening/internal/middleware"
	"github.com/palakgarg19/Happening/internal/model"
)

// Handlers collects every handler the router needs.
type Handlers struct {
	Auth     *handler.AuthHandler
	Events   *handler.EventHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
}

// Register mounts all routes on the Echo instance. rateLimit is applied
// to every /v1 route; pass a pass-through middleware to disable it.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	// Health check for load balancers, no auth and no rate limit.
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.Use(rateLimit)

	// Unauthenticated routes: account creation, login and event browsing.
	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/login", h.Auth.Login)
	v1.GET("/events", h.Events.List)
	v1.GET("/events/:id", h.Events.Get)

	// Everything below requires a valid access token.
	auth := v1.Group("")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/me", h.Auth.Me)

	auth.POST("/bookings", h.Bookings.Create)
	auth.GET("/bookings/mine", h.Bookings.ListMine)
	auth.GET("/bookings/cancellable", h.Bookings.ListCancellable)
	auth.POST("/bookings/:id/cancel-pending", h.Bookings.CancelPending)
	auth.POST("/bookings/:id/cancel", h.Bookings.Cancel)

	auth.POST("/payments/orders", h.Payments.CreateOrder)
	auth.POST("/payments/orders/resume", h.Payments.ResumeOrder)
	auth.POST("/payments/verify", h.Payments.Verify)
	auth.GET("/payments/status/:booking_id", h.Payments.Status)
	auth.GET("/refunds/:refund_id", h.Payments.RefundStatus)

	// Host-only management routes. Admins pass the role check too; the
	// per-event ownership check happens in the handlers.
	hosts := auth.Group("")
	hosts.Use(middleware.RequireRole(model.RoleHost, model.RoleAdmin))
	hosts.POST("/events", h.Events.Create)
	hosts.POST("/events/:id/cancel", h.Events.Cancel)
	hosts.GET("/events/:id/bookings", h.Bookings.ListByEvent)
}
