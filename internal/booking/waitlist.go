package booking

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// PromotionResult describes the outcome of PromoteNext.  Promoted is false
// when no seat was free before the lesson's start or when no waiting member
// could be funded.  A ticket claim is promoted into a PAID ticket
// reservation; a trial claim lands in PENDING as a PAY_AT_STUDIO trial.
type PromotionResult struct {
	Promoted    bool               `json:"promoted"`
	Reservation *model.Reservation `json:"reservation,omitempty"`
	UserID      uint64             `json:"user_id,omitempty"`
	// Skipped lists waiting members passed over because they could not pay.
	Skipped []uint64 `json:"skipped,omitempty"`
}

// PromoteNext fills one free seat of the lesson with the longest-waiting
// member who can still pay for it.  Members whose ticket expired or ran out
// since joining, or whose trial claim is no longer valid, are skipped and
// stay on the waitlist.  The whole step holds the lesson lock, so
// concurrent cancellations never promote two members into one seat.
func (s *Service) PromoteNext(ctx context.Context, lessonID uint64) (PromotionResult, error) {
	var (
		out    PromotionResult
		lesson model.Lesson
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		out = PromotionResult{}
		now := s.now()
		var err error
		lesson, err = tx.LockLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		free, err := s.ledger.Available(ctx, tx, lesson)
		if err != nil {
			return err
		}
		if free == 0 || !lesson.StartsAt.After(now) {
			return nil
		}
		entries, err := tx.WaitlistEntries(ctx, lessonID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			booked, err := tx.HasActiveReservation(ctx, lessonID, e.UserID)
			if err != nil {
				return err
			}
			if booked {
				// the member took a seat directly; the entry is stale
				if _, err := tx.DeleteWaitlistEntry(ctx, lessonID, e.UserID); err != nil {
					return err
				}
				continue
			}
			res, err := s.fundPromotion(ctx, tx, lesson, e)
			if errors.Is(err, ErrInsufficientTicketBalance) || errors.Is(err, ErrTrialAlreadyUsed) {
				out.Skipped = append(out.Skipped, e.UserID)
				continue
			}
			if err != nil {
				return err
			}
			if err := tx.InsertReservation(ctx, &res); err != nil {
				return err
			}
			if _, err := tx.DeleteWaitlistEntry(ctx, lessonID, e.UserID); err != nil {
				return err
			}
			out.Promoted = true
			out.Reservation = &res
			out.UserID = e.UserID
			return nil
		}
		return nil
	})
	if err != nil {
		return PromotionResult{}, err
	}
	if len(out.Skipped) > 0 {
		s.log.Info("waitlist members skipped: no way to pay",
			zap.Uint64("lesson_id", lessonID),
			zap.Uint64s("user_ids", out.Skipped))
	}
	if out.Promoted {
		s.notify(ctx, Notification{
			Kind:           NotifyWaitlistPromoted,
			UserID:         out.UserID,
			LessonID:       lesson.ID,
			LessonTitle:    lesson.Title,
			LessonStartsAt: lesson.StartsAt,
			ReservationID:  out.Reservation.ID,
		})
	}
	return out, nil
}

// fundPromotion builds the reservation for a waiting member, spending the
// member's ticket or trial claim.
func (s *Service) fundPromotion(ctx context.Context, tx Tx, lesson model.Lesson, e model.WaitlistEntry) (model.Reservation, error) {
	now := s.now()
	uid := e.UserID
	res := model.Reservation{
		LessonID:  lesson.ID,
		UserID:    &uid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if e.IsTrial {
		if err := tx.LockUser(ctx, e.UserID); err != nil {
			return res, err
		}
		trials, err := tx.CountActiveTrials(ctx, e.UserID)
		if err != nil {
			return res, err
		}
		if trials > 0 {
			return res, ErrTrialAlreadyUsed
		}
		res.ReservationType = model.ReservationTrial
		res.PaymentMethod = model.PayAtStudio
		res.PaymentStatus = model.InitialStatus(model.PayAtStudio)
		return res, nil
	}
	ticket, err := s.tickets.SelectAndConsume(ctx, tx, e.UserID, lesson, now)
	if err != nil {
		return res, err
	}
	res.ReservationType = model.ReservationTicket
	res.PaymentMethod = model.PayTicket
	res.PaymentStatus = model.InitialStatus(model.PayTicket)
	res.TicketID = &ticket.ID
	return res, nil
}

// FillOpenSeats promotes waiting members until the lesson is full or no
// one else can be promoted.  It is used after an admin raises capacity.
func (s *Service) FillOpenSeats(ctx context.Context, lessonID uint64) ([]PromotionResult, error) {
	var promoted []PromotionResult
	for {
		res, err := s.PromoteNext(ctx, lessonID)
		if err != nil {
			return promoted, err
		}
		if !res.Promoted {
			return promoted, nil
		}
		promoted = append(promoted, res)
	}
}

// JoinRequest asks to wait for a seat in a lesson.
type JoinRequest struct {
	LessonID uint64
	UserID   uint64
	Consent  bool
}

// Join puts a member on a full lesson's waitlist.  A member with no
// reservation history joins with their trial claim; everyone else needs a
// usable ticket for the lesson's category at join time.  While the lesson
// has free seats the member books directly instead.
func (s *Service) Join(ctx context.Context, req JoinRequest) (model.WaitlistEntry, error) {
	var (
		entry  model.WaitlistEntry
		lesson model.Lesson
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		now := s.now()
		var err error
		lesson, err = tx.LockLesson(ctx, req.LessonID)
		if err != nil {
			return err
		}
		if !s.policy.BookingOpen(lesson.StartsAt, now) {
			return ErrBookingWindowClosed
		}
		entries, err := tx.WaitlistEntries(ctx, lesson.ID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.UserID == req.UserID {
				return ErrDuplicateWaitlistEntry
			}
		}
		booked, err := tx.HasActiveReservation(ctx, lesson.ID, req.UserID)
		if err != nil {
			return err
		}
		if booked {
			return ErrAlreadyBooked
		}
		free, err := s.ledger.Available(ctx, tx, lesson)
		if err != nil {
			return err
		}
		if free > 0 {
			return ErrLessonNotFull
		}
		if err := tx.LockUser(ctx, req.UserID); err != nil {
			return err
		}
		history, err := tx.CountReservations(ctx, req.UserID)
		if err != nil {
			return err
		}
		trial := history == 0
		if trial {
			if err := s.checkTrialUnused(ctx, tx, req.UserID); err != nil {
				return err
			}
		} else if _, err := s.tickets.SelectForLesson(ctx, tx, req.UserID, lesson, now); err != nil {
			return err
		}
		if err := s.ensureConsent(ctx, tx, req.UserID, req.Consent, now); err != nil {
			return err
		}
		entry = model.WaitlistEntry{
			LessonID:  lesson.ID,
			UserID:    req.UserID,
			IsTrial:   trial,
			CreatedAt: now,
		}
		return tx.InsertWaitlistEntry(ctx, &entry)
	})
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	s.notify(ctx, Notification{
		Kind:           NotifyWaitlistJoined,
		UserID:         req.UserID,
		LessonID:       lesson.ID,
		LessonTitle:    lesson.Title,
		LessonStartsAt: lesson.StartsAt,
	})
	return entry, nil
}

// Leave removes the member from the lesson's waitlist.
func (s *Service) Leave(ctx context.Context, lessonID, userID uint64) error {
	var lesson model.Lesson
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		lesson, err = tx.LockLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		ok, err := tx.DeleteWaitlistEntry(ctx, lessonID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, Notification{
		Kind:           NotifyWaitlistLeft,
		UserID:         userID,
		LessonID:       lesson.ID,
		LessonTitle:    lesson.Title,
		LessonStartsAt: lesson.StartsAt,
	})
	return nil
}
