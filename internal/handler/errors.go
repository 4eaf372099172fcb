package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/middleware"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		return http.StatusBadRequest
	case booking.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrConsentRequired):
		return http.StatusUnprocessableEntity
	case booking.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error","code"}.  A late cancellation also carries
// the deadline so the client can ask for confirmation.  Unexpected errors
// are logged and reported without detail.
func fail(c echo.Context, log *zap.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("route", c.Path()),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error", "code": "internal"})
	}
	body := echo.Map{"error": err.Error(), "code": booking.Code(err)}
	var late *booking.LateCancellationError
	if errors.As(err, &late) {
		body["reservation_id"] = late.ReservationID
		body["deadline"] = late.Deadline
		body["ticket_forfeits"] = late.TicketForfeits
		body["confirm_with"] = "force=true"
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// currentUser returns the authenticated user id set by JWTAuth.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
