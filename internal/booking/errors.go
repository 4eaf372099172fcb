package booking

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrNotFound                  = errors.New("not found")
	ErrLessonFull                = errors.New("lesson is full")
	ErrLessonNotFull             = errors.New("lesson still has free seats")
	ErrBookingWindowClosed       = errors.New("booking window closed")
	ErrTrialAlreadyUsed          = errors.New("trial already used")
	ErrInsufficientTicketBalance = errors.New("no usable ticket for this lesson")
	ErrConsentRequired           = errors.New("consent required")
	ErrAlreadyCancelled          = errors.New("reservation already cancelled")
	ErrForbidden                 = errors.New("forbidden")
	ErrTooLateToCancel           = errors.New("lesson already started")
	ErrDuplicateWaitlistEntry    = errors.New("already on the waitlist for this lesson")
	ErrAlreadyBooked             = errors.New("already booked for this lesson")
	ErrInvalidRequest            = errors.New("invalid request")

	// ErrLateCancellationConfirmationRequired is not a failure: the caller
	// must repeat the cancellation with force set to accept the fee.
	ErrLateCancellationConfirmationRequired = errors.New("late cancellation requires confirmation")
)

// LateCancellationError describes the consequence of cancelling after the
// free-cancellation deadline.  It matches
// ErrLateCancellationConfirmationRequired with errors.Is.
type LateCancellationError struct {
	ReservationID  uint64
	Deadline       time.Time
	TicketForfeits bool
}

func (e *LateCancellationError) Error() string {
	return fmt.Sprintf("reservation %d: free cancellation ended at %s; the ticket will not be returned",
		e.ReservationID, e.Deadline.Format(time.RFC3339))
}

func (e *LateCancellationError) Is(target error) bool {
	return target == ErrLateCancellationConfirmationRequired
}

// invalid wraps ErrInvalidRequest with a reason.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err means a referenced row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a business-rule rejection caused by the
// current state of the lesson, ticket or reservation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrLessonFull) ||
		errors.Is(err, ErrLessonNotFull) ||
		errors.Is(err, ErrBookingWindowClosed) ||
		errors.Is(err, ErrTrialAlreadyUsed) ||
		errors.Is(err, ErrInsufficientTicketBalance) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrTooLateToCancel) ||
		errors.Is(err, ErrDuplicateWaitlistEntry) ||
		errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrLateCancellationConfirmationRequired)
}

// Code returns a stable machine-readable code for err, or "internal" when
// err is not a domain error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLessonFull):
		return "lesson_full"
	case errors.Is(err, ErrLessonNotFull):
		return "lesson_not_full"
	case errors.Is(err, ErrBookingWindowClosed):
		return "booking_window_closed"
	case errors.Is(err, ErrTrialAlreadyUsed):
		return "trial_already_used"
	case errors.Is(err, ErrInsufficientTicketBalance):
		return "insufficient_ticket_balance"
	case errors.Is(err, ErrConsentRequired):
		return "consent_required"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrTooLateToCancel):
		return "too_late_to_cancel"
	case errors.Is(err, ErrLateCancellationConfirmationRequired):
		return "late_cancellation_confirmation_required"
	case errors.Is(err, ErrDuplicateWaitlistEntry):
		return "duplicate_waitlist_entry"
	case errors.Is(err, ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	}
	return "internal"
}
