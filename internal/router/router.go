// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/config"
	"github.com/iliyamo/pilates-studio-booking/internal/handler"
	"github.com/iliyamo/pilates-studio-booking/internal/middleware"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// Deps are the handlers and shared clients the routes need.  Redis may be
// nil, which disables caching and rate limiting.
type Deps struct {
	JWTSecret    string
	Auth         *handler.AuthHandler
	Lessons      *handler.LessonHandler
	Reservations *handler.ReservationHandler
	Tickets      *handler.TicketHandler
	Waitlist     *handler.WaitlistHandler
	Ready        echo.HandlerFunc
	Redis        *redis.Client
	Cache        config.CacheConfig
	RateLimit    config.RateLimitConfig
	Log          *zap.Logger
}

// Register mounts every route.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Ready != nil {
		e.GET("/readyz", d.Ready)
	}
	limit := middleware.RateLimit(d.RateLimit, d.Redis, d.Log)

	RegisterAuth(e, d.Auth, limit)
	RegisterPublic(e, d, limit)
	RegisterMember(e, d, limit)
	RegisterAdmin(e, d)
}

// RegisterAuth mounts the token endpoints under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
}

// RegisterPublic mounts endpoints that need no account: the schedule,
// ticket categories and guest booking.
func RegisterPublic(e *echo.Echo, d Deps, limit echo.MiddlewareFunc) {
	cache := middleware.ResponseCache(d.Cache, d.Redis)
	e.GET("/v1/lessons", d.Lessons.List, cache)
	e.GET("/v1/lessons/:id", d.Lessons.Get, cache)
	e.GET("/v1/ticket-groups", d.Tickets.ListGroups, cache)
	e.POST("/v1/guest/reservations", d.Reservations.CreateGuest, limit)
}

// RegisterMember mounts endpoints for signed-in members.  Admins may use
// them too.
func RegisterMember(e *echo.Echo, d Deps, limit echo.MiddlewareFunc) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleMember, model.RoleAdmin),
	}
	writes := append(auth, limit)

	e.GET("/v1/me", d.Auth.Me, auth...)
	e.POST("/v1/me/consent", d.Auth.Consent, auth...)
	e.GET("/v1/me/tickets", d.Tickets.Mine, auth...)
	e.GET("/v1/me/waitlist", d.Waitlist.Mine, auth...)

	e.POST("/v1/reservations", d.Reservations.Create, writes...)
	e.GET("/v1/reservations", d.Reservations.ListMine, auth...)
	e.GET("/v1/reservations/:id", d.Reservations.Get, auth...)
	e.DELETE("/v1/reservations/:id", d.Reservations.Cancel, writes...)

	e.POST("/v1/lessons/:id/waitlist", d.Waitlist.Join, writes...)
	e.DELETE("/v1/lessons/:id/waitlist", d.Waitlist.Leave, writes...)
}
