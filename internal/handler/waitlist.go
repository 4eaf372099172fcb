package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
)

// WaitlistHandler serves waitlist endpoints.
type WaitlistHandler struct {
	Booking  BookingService
	Waitlist WaitlistReader
	Log      *zap.Logger
}

func NewWaitlistHandler(svc BookingService, waitlist WaitlistReader, log *zap.Logger) *WaitlistHandler {
	return &WaitlistHandler{Booking: svc, Waitlist: waitlist, Log: log}
}

// Join puts the caller on a full lesson's waitlist.
func (h *WaitlistHandler) Join(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	var req struct {
		Consent bool `json:"consent"`
	}
	// an empty body means no consent given
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	entry, err := h.Booking.Join(c.Request().Context(), booking.JoinRequest{
		LessonID: id,
		UserID:   uid,
		Consent:  req.Consent,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// Leave removes the caller from a lesson's waitlist.
func (h *WaitlistHandler) Leave(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	if err := h.Booking.Leave(c.Request().Context(), id, uid); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine lists the caller's waitlist entries with their positions.
func (h *WaitlistHandler) Mine(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.Waitlist.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListByLesson lists a lesson's waitlist in promotion order.
func (h *WaitlistHandler) ListByLesson(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	items, err := h.Waitlist.ListByLesson(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Promote fills one free seat from the waitlist.
func (h *WaitlistHandler) Promote(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	res, err := h.Booking.PromoteNext(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}
