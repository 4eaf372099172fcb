package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
	"github.com/iliyamo/pilates-studio-booking/internal/repository"
)

// LessonHandler serves the public schedule and admin lesson management.
type LessonHandler struct {
	Lessons LessonStore
	Booking BookingService
	Log     *zap.Logger
}

func NewLessonHandler(lessons LessonStore, svc BookingService, log *zap.Logger) *LessonHandler {
	if lessons == nil || svc == nil {
		panic("nil dependency passed to NewLessonHandler")
	}
	return &LessonHandler{Lessons: lessons, Booking: svc, Log: log}
}

type lessonReq struct {
	Title         string    `json:"title"`
	Instructor    string    `json:"instructor"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	MaxCapacity   int       `json:"max_capacity"`
	PriceCents    uint32    `json:"price_cents"`
	TicketGroupID *uint64   `json:"ticket_group_id"`
}

func (r lessonReq) lesson() model.Lesson {
	return model.Lesson{
		Title:         strings.TrimSpace(r.Title),
		Instructor:    strings.TrimSpace(r.Instructor),
		StartsAt:      r.StartsAt.UTC(),
		EndsAt:        r.EndsAt.UTC(),
		MaxCapacity:   r.MaxCapacity,
		PriceCents:    r.PriceCents,
		TicketGroupID: r.TicketGroupID,
	}
}

// List returns lessons with live availability.  Query parameters: from,
// to (RFC3339 or YYYY-MM-DD), group, instructor, page, page_size.
func (h *LessonHandler) List(c echo.Context) error {
	q := repository.LessonQuery{Instructor: strings.TrimSpace(c.QueryParam("instructor"))}
	var ok bool
	if q.From, ok = parseWhen(c.QueryParam("from")); !ok {
		return badRequest(c, "invalid from")
	}
	if q.To, ok = parseWhen(c.QueryParam("to")); !ok {
		return badRequest(c, "invalid to")
	}
	if q.From.IsZero() && q.To.IsZero() {
		q.From = time.Now().UTC()
	}
	if g := c.QueryParam("group"); g != "" {
		id, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return badRequest(c, "invalid group")
		}
		q.TicketGroupID = &id
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if q.PageSize > 200 {
		q.PageSize = 200
	}

	items, total, err := h.Lessons.Search(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

func parseWhen(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Get returns one lesson with its counts.
func (h *LessonHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	s, err := h.Lessons.Summary(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create adds a lesson to the schedule.
func (h *LessonHandler) Create(c echo.Context) error {
	var req lessonReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	l := req.lesson()
	if err := l.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.Lessons.Create(c.Request().Context(), &l); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// Update replaces a lesson's editable fields.  When capacity grows, the
// newly opened seats are offered to the waitlist.
func (h *LessonHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	var req lessonReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx := c.Request().Context()
	before, err := h.Lessons.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	l := req.lesson()
	l.ID = id
	if err := l.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.Lessons.Update(ctx, &l); err != nil {
		return fail(c, h.Log, err)
	}

	resp := echo.Map{"lesson": l}
	if l.MaxCapacity > before.MaxCapacity {
		promoted, err := h.Booking.FillOpenSeats(ctx, id)
		if err != nil {
			h.Log.Error("promotion after capacity increase failed",
				zap.Uint64("lesson_id", id), zap.Error(err))
		}
		resp["promoted"] = promoted
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete removes a lesson.  Lessons with active reservations are kept.
func (h *LessonHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lesson id")
	}
	err := h.Lessons.Delete(c.Request().Context(), id)
	if errors.Is(err, repository.ErrLessonHasReservations) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "lesson has active reservations; cancel them first",
			"code":  "lesson_has_reservations",
		})
	}
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
