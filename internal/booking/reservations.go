package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// Guest identifies a booking made without an account.
type Guest struct {
	Name  string
	Email string
}

// CreateRequest asks for one seat in a lesson.  Exactly one of UserID and
// Guest is set.
type CreateRequest struct {
	LessonID        uint64
	UserID          uint64
	Guest           *Guest
	ReservationType model.ReservationType
	PaymentMethod   model.PaymentMethod
	// Consent is the caller's affirmative acceptance of the consent form.
	Consent bool
}

// CreateResult is returned by Create.
type CreateResult struct {
	Reservation model.Reservation `json:"reservation"`
	Lesson      model.Lesson      `json:"lesson"`
	Ticket      *model.Ticket     `json:"ticket,omitempty"`
}

func (r CreateRequest) validate() error {
	if r.LessonID == 0 {
		return invalid("lesson id is required")
	}
	if !r.ReservationType.Valid() {
		return invalid("unknown reservation type %q", r.ReservationType)
	}
	if !r.PaymentMethod.Valid() {
		return invalid("unknown payment method %q", r.PaymentMethod)
	}
	if (r.ReservationType == model.ReservationTicket) != (r.PaymentMethod == model.PayTicket) {
		return invalid("ticket reservations must be paid with a ticket")
	}
	switch {
	case r.UserID != 0 && r.Guest != nil:
		return invalid("a reservation belongs to a member or a guest, not both")
	case r.UserID == 0 && r.Guest == nil:
		return invalid("user or guest details are required")
	case r.Guest != nil:
		if strings.TrimSpace(r.Guest.Email) == "" || strings.TrimSpace(r.Guest.Name) == "" {
			return invalid("guest name and email are required")
		}
		if r.ReservationType != model.ReservationDropIn {
			return invalid("guests can only book drop-in lessons")
		}
	}
	return nil
}

// Create admits a new reservation.  Preconditions are checked in a fixed
// order inside one transaction holding the lesson lock; the first failure
// is returned and nothing is written.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if err := req.validate(); err != nil {
		return CreateResult{}, err
	}
	var out CreateResult
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		now := s.now()
		lesson, err := tx.LockLesson(ctx, req.LessonID)
		if err != nil {
			return err
		}
		free, err := s.ledger.Available(ctx, tx, lesson)
		if err != nil {
			return err
		}
		if free == 0 {
			return ErrLessonFull
		}
		if !s.policy.BookingOpen(lesson.StartsAt, now) {
			return ErrBookingWindowClosed
		}
		if req.ReservationType == model.ReservationTrial {
			if err := s.checkTrialUnused(ctx, tx, req.UserID); err != nil {
				return err
			}
		}
		res := model.Reservation{
			LessonID:        lesson.ID,
			ReservationType: req.ReservationType,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   model.InitialStatus(req.PaymentMethod),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if req.ReservationType == model.ReservationTicket {
			ticket, err := s.tickets.SelectAndConsume(ctx, tx, req.UserID, lesson, now)
			if err != nil {
				return err
			}
			res.TicketID = &ticket.ID
			out.Ticket = &ticket
		}
		if req.Guest != nil {
			if s.policy.ConsentRequired && !req.Consent {
				return ErrConsentRequired
			}
			res.GuestName = strings.TrimSpace(req.Guest.Name)
			res.GuestEmail = strings.ToLower(strings.TrimSpace(req.Guest.Email))
		} else {
			if err := s.ensureConsent(ctx, tx, req.UserID, req.Consent, now); err != nil {
				return err
			}
			uid := req.UserID
			res.UserID = &uid
		}
		if err := tx.InsertReservation(ctx, &res); err != nil {
			return err
		}
		out.Reservation = res
		out.Lesson = lesson
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	n := Notification{
		Kind:           NotifyBookingConfirmed,
		LessonID:       out.Lesson.ID,
		LessonTitle:    out.Lesson.Title,
		LessonStartsAt: out.Lesson.StartsAt,
		ReservationID:  out.Reservation.ID,
	}
	if out.Reservation.UserID != nil {
		n.UserID = *out.Reservation.UserID
	} else {
		n.GuestEmail = out.Reservation.GuestEmail
	}
	s.notify(ctx, n)
	return out, nil
}

// checkTrialUnused enforces the lifetime trial rule: no active TRIAL
// reservation and no pending trial claim on any waitlist.  The user lock
// serializes trial checks of one user across lessons.
func (s *Service) checkTrialUnused(ctx context.Context, tx Tx, userID uint64) error {
	if err := tx.LockUser(ctx, userID); err != nil {
		return err
	}
	trials, err := tx.CountActiveTrials(ctx, userID)
	if err != nil {
		return err
	}
	claims, err := tx.CountTrialWaitlistEntries(ctx, userID)
	if err != nil {
		return err
	}
	if trials+claims > 0 {
		return ErrTrialAlreadyUsed
	}
	return nil
}

// ensureConsent rejects a member without recorded consent unless consent
// is given now, in which case it is stamped.
func (s *Service) ensureConsent(ctx context.Context, tx Tx, userID uint64, given bool, now time.Time) error {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasConsent() {
		return nil
	}
	if !given {
		if s.policy.ConsentRequired {
			return ErrConsentRequired
		}
		return nil
	}
	return tx.StampConsent(ctx, userID, now)
}

// CancelRequest asks to cancel a reservation.  Force accepts the late
// cancellation fee.
type CancelRequest struct {
	ReservationID uint64
	Actor         Actor
	Force         bool
}

// CancelResult is returned by a successful Cancel.
type CancelResult struct {
	Reservation    model.Reservation `json:"reservation"`
	TicketRefunded bool              `json:"ticket_refunded"`
	TicketForfeit  bool              `json:"ticket_forfeited"`
	Promotion      *PromotionResult  `json:"promotion,omitempty"`
}

// Cancel moves a reservation to CANCELLED.  Members cancelling a
// ticket-funded reservation after the deadline get a
// *LateCancellationError unless Force is set; admins always get the ticket
// back.  The freed seat is offered to the waitlist after commit.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (CancelResult, error) {
	var (
		out    CancelResult
		lesson model.Lesson
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		now := s.now()
		peek, err := tx.GetReservation(ctx, req.ReservationID)
		if err != nil {
			return err
		}
		// lesson before reservation: the same lock order as Create
		lesson, err = tx.LockLesson(ctx, peek.LessonID)
		if err != nil {
			return err
		}
		res, err := tx.LockReservation(ctx, req.ReservationID)
		if err != nil {
			return err
		}
		if res.PaymentStatus.Terminal() {
			return ErrAlreadyCancelled
		}
		if !req.Actor.Admin && !res.OwnedBy(req.Actor.UserID) {
			return ErrForbidden
		}
		if !lesson.StartsAt.After(now) {
			return ErrTooLateToCancel
		}

		refund := false
		if res.ReservationType == model.ReservationTicket && res.UserID != nil {
			deadline := s.policy.CancellationDeadline(lesson.StartsAt)
			switch {
			case req.Actor.Admin, !now.After(deadline):
				refund = true
			case !req.Force:
				return &LateCancellationError{
					ReservationID:  res.ID,
					Deadline:       deadline,
					TicketForfeits: true,
				}
			default:
				out.TicketForfeit = true
			}
		}

		if err := tx.SetReservationStatus(ctx, res.ID, model.StatusCancelled, now); err != nil {
			return err
		}
		res.PaymentStatus = model.StatusCancelled
		res.CancelledAt = &now
		res.UpdatedAt = now

		if refund {
			if _, err := s.tickets.Refund(ctx, tx, *res.UserID, lesson); err != nil {
				if !errors.Is(err, ErrNotFound) {
					return err
				}
				s.log.Warn("no ticket to refund",
					zap.Uint64("reservation_id", res.ID),
					zap.Uint64("user_id", *res.UserID))
			} else {
				out.TicketRefunded = true
			}
		}
		out.Reservation = res
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	promo, err := s.PromoteNext(ctx, lesson.ID)
	if err != nil {
		s.log.Error("waitlist promotion after cancellation failed",
			zap.Uint64("lesson_id", lesson.ID),
			zap.Uint64("reservation_id", out.Reservation.ID),
			zap.Error(err))
	} else if promo.Promoted {
		out.Promotion = &promo
	}

	n := Notification{
		Kind:           NotifyBookingCancelled,
		LessonID:       lesson.ID,
		LessonTitle:    lesson.Title,
		LessonStartsAt: lesson.StartsAt,
		ReservationID:  out.Reservation.ID,
		TicketRefunded: out.TicketRefunded,
	}
	if out.Reservation.UserID != nil {
		n.UserID = *out.Reservation.UserID
	} else {
		n.GuestEmail = out.Reservation.GuestEmail
	}
	s.notify(ctx, n)
	return out, nil
}

// MarkPaid settles a PAY_AT_STUDIO reservation once the studio has been paid.
func (s *Service) MarkPaid(ctx context.Context, reservationID uint64) (model.Reservation, error) {
	var out model.Reservation
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		peek, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if _, err := tx.LockLesson(ctx, peek.LessonID); err != nil {
			return err
		}
		res, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.PaymentStatus.Terminal() {
			return ErrAlreadyCancelled
		}
		if res.PaymentStatus != model.StatusPending {
			return invalid("reservation %d is not pending payment", res.ID)
		}
		now := s.now()
		if err := tx.SetReservationStatus(ctx, res.ID, model.StatusPaid, now); err != nil {
			return err
		}
		res.PaymentStatus = model.StatusPaid
		res.UpdatedAt = now
		out = res
		return nil
	})
	return out, err
}
