package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pilates-studio-booking/internal/middleware"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// RegisterAdmin mounts studio management endpoints under /v1/admin.  All
// routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Lessons ----
	g.POST("/lessons", d.Lessons.Create)
	g.PUT("/lessons/:id", d.Lessons.Update)
	g.DELETE("/lessons/:id", d.Lessons.Delete)

	// ---- Tickets ----
	g.POST("/ticket-groups", d.Tickets.CreateGroup)
	g.POST("/tickets", d.Tickets.Grant)
	g.GET("/users/:id/tickets", d.Tickets.ListForUser)

	// ---- Reservations ----
	g.GET("/lessons/:id/reservations", d.Reservations.ListByLesson)
	g.GET("/reservations/:id", d.Reservations.AdminGet)
	g.POST("/reservations/:id/cancel", d.Reservations.AdminCancel)
	g.POST("/reservations/:id/mark-paid", d.Reservations.MarkPaid)
	g.DELETE("/reservations/:id", d.Reservations.AdminDelete)

	// ---- Waitlist ----
	g.GET("/lessons/:id/waitlist", d.Waitlist.ListByLesson)
	g.POST("/lessons/:id/promote", d.Waitlist.Promote)
}
