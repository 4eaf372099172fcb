package handler

import (
	"context"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
	"github.com/iliyamo/pilates-studio-booking/internal/repository"
)

// BookingService is the part of booking.Service the handlers call.
type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (booking.CreateResult, error)
	Cancel(ctx context.Context, req booking.CancelRequest) (booking.CancelResult, error)
	MarkPaid(ctx context.Context, reservationID uint64) (model.Reservation, error)
	Join(ctx context.Context, req booking.JoinRequest) (model.WaitlistEntry, error)
	Leave(ctx context.Context, lessonID, userID uint64) error
	PromoteNext(ctx context.Context, lessonID uint64) (booking.PromotionResult, error)
	FillOpenSeats(ctx context.Context, lessonID uint64) ([]booking.PromotionResult, error)
	GrantTickets(ctx context.Context, userID, groupID uint64, count int) (booking.TicketGrant, error)
}

var _ BookingService = (*booking.Service)(nil)

// ReservationReader serves reservation listings and admin corrections.
type ReservationReader interface {
	ListByUser(ctx context.Context, userID uint64, withCancelled bool) ([]repository.ReservationDetail, error)
	ListByLesson(ctx context.Context, lessonID uint64) ([]repository.ReservationDetail, error)
	GetByID(ctx context.Context, id uint64) (repository.ReservationDetail, error)
	GetByIDForUser(ctx context.Context, id, userID uint64) (repository.ReservationDetail, error)
	Delete(ctx context.Context, id uint64) error
}

// LessonStore is the lesson catalogue.
type LessonStore interface {
	Create(ctx context.Context, l *model.Lesson) error
	Update(ctx context.Context, l *model.Lesson) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.Lesson, error)
	Search(ctx context.Context, q repository.LessonQuery) ([]repository.LessonSummary, int64, error)
	Summary(ctx context.Context, id uint64) (repository.LessonSummary, error)
}

// TicketReader lists ticket balances.
type TicketReader interface {
	ListByUser(ctx context.Context, userID uint64, now time.Time) ([]repository.TicketBalance, error)
}

// TicketGroupStore manages lesson categories.
type TicketGroupStore interface {
	Create(ctx context.Context, name string) (model.TicketGroup, error)
	List(ctx context.Context) ([]model.TicketGroup, error)
}

// WaitlistReader lists waitlist entries with their positions.
type WaitlistReader interface {
	ListByLesson(ctx context.Context, lessonID uint64) ([]repository.WaitlistDetail, error)
	ListByUser(ctx context.Context, userID uint64) ([]repository.WaitlistDetail, error)
}

var (
	_ ReservationReader = (*repository.ReservationRepo)(nil)
	_ LessonStore       = (*repository.LessonRepo)(nil)
	_ TicketReader      = (*repository.TicketRepo)(nil)
	_ TicketGroupStore  = (*repository.TicketGroupRepo)(nil)
	_ WaitlistReader    = (*repository.WaitlistRepo)(nil)
)
