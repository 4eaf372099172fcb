package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/repository"
)

// TicketHandler serves ticket balances, grants and ticket groups.
type TicketHandler struct {
	Tickets TicketReader
	Groups  TicketGroupStore
	Booking BookingService
	Log     *zap.Logger
}

func NewTicketHandler(tickets TicketReader, groups TicketGroupStore, svc BookingService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{Tickets: tickets, Groups: groups, Booking: svc, Log: log}
}

type grantReq struct {
	UserID        uint64 `json:"user_id"`
	TicketGroupID uint64 `json:"ticket_group_id"`
	Count         int    `json:"count"`
}

// Mine lists the caller's tickets.
func (h *TicketHandler) Mine(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.list(c, uid)
}

// ListForUser lists another member's tickets.
func (h *TicketHandler) ListForUser(c echo.Context) error {
	uid, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	return h.list(c, uid)
}

func (h *TicketHandler) list(c echo.Context, userID uint64) error {
	items, err := h.Tickets.ListByUser(c.Request().Context(), userID, time.Now().UTC())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Grant issues a ticket to a member.
func (h *TicketHandler) Grant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	g, err := h.Booking.GrantTickets(c.Request().Context(), req.UserID, req.TicketGroupID, req.Count)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// ListGroups lists lesson categories.
func (h *TicketHandler) ListGroups(c echo.Context) error {
	groups, err := h.Groups.List(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": groups})
}

// CreateGroup adds a lesson category.
func (h *TicketHandler) CreateGroup(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "name required")
	}
	g, err := h.Groups.Create(c.Request().Context(), strings.TrimSpace(req.Name))
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket group already exists", "code": "conflict"})
	}
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, g)
}
