package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// ReservationHandler serves member, guest and admin reservation endpoints.
type ReservationHandler struct {
	Booking      BookingService
	Reservations ReservationReader
	Log          *zap.Logger
}

func NewReservationHandler(svc BookingService, reservations ReservationReader, log *zap.Logger) *ReservationHandler {
	if svc == nil || reservations == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Booking: svc, Reservations: reservations, Log: log}
}

type createReservationReq struct {
	LessonID        uint64 `json:"lesson_id"`
	ReservationType string `json:"reservation_type"`
	PaymentMethod   string `json:"payment_method"`
	Consent         bool   `json:"consent"`
}

type guestReservationReq struct {
	LessonID      uint64 `json:"lesson_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	PaymentMethod string `json:"payment_method"`
	Consent       bool   `json:"consent"`
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Create books a seat for the caller.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.Booking.Create(c.Request().Context(), booking.CreateRequest{
		LessonID:        req.LessonID,
		UserID:          uid,
		ReservationType: model.ReservationType(upper(req.ReservationType)),
		PaymentMethod:   model.PaymentMethod(upper(req.PaymentMethod)),
		Consent:         req.Consent,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// CreateGuest books a drop-in seat without an account.
func (h *ReservationHandler) CreateGuest(c echo.Context) error {
	var req guestReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	method := model.PaymentMethod(upper(req.PaymentMethod))
	if method == "" {
		method = model.PayAtStudio
	}
	res, err := h.Booking.Create(c.Request().Context(), booking.CreateRequest{
		LessonID:        req.LessonID,
		Guest:           &booking.Guest{Name: req.Name, Email: req.Email},
		ReservationType: model.ReservationDropIn,
		PaymentMethod:   method,
		Consent:         req.Consent,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMine lists the caller's reservations.  ?all=true includes cancelled ones.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	all, _ := strconv.ParseBool(c.QueryParam("all"))
	items, err := h.Reservations.ListByUser(c.Request().Context(), uid, all)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one of the caller's reservations.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	d, err := h.Reservations.GetByIDForUser(c.Request().Context(), id, uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel cancels one of the caller's reservations.  After the free
// cancellation deadline the first call answers 409 with the deadline; the
// client repeats it with ?force=true to accept losing the ticket.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.cancel(c, booking.Actor{UserID: uid})
}

// AdminCancel cancels any reservation; ticket reservations are always refunded.
func (h *ReservationHandler) AdminCancel(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.cancel(c, booking.Actor{UserID: uid, Admin: true})
}

func (h *ReservationHandler) cancel(c echo.Context, actor booking.Actor) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	res, err := h.Booking.Cancel(c.Request().Context(), booking.CancelRequest{
		ReservationID: id,
		Actor:         actor,
		Force:         force,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListByLesson lists every reservation of a lesson for the front desk.
func (h *ReservationHandler) ListByLesson(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	items, err := h.Reservations.ListByLesson(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// AdminGet returns any reservation.
func (h *ReservationHandler) AdminGet(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	d, err := h.Reservations.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// MarkPaid settles a pay-at-studio reservation.
func (h *ReservationHandler) MarkPaid(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Booking.MarkPaid(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// AdminDelete removes a reservation row.  Active reservations must be
// cancelled first so tickets and the waitlist are settled.
func (h *ReservationHandler) AdminDelete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx := c.Request().Context()
	d, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if d.Active() {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "reservation is active; cancel it first",
			"code":  "reservation_active",
		})
	}
	if err := h.Reservations.Delete(ctx, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
