package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
	"github.com/iliyamo/pilates-studio-booking/internal/repository"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, req booking.CreateRequest) (booking.CreateResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(booking.CreateResult), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, req booking.CancelRequest) (booking.CancelResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(booking.CancelResult), args.Error(1)
}

func (m *MockBookingService) MarkPaid(ctx context.Context, reservationID uint64) (model.Reservation, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).(model.Reservation), args.Error(1)
}

func (m *MockBookingService) Join(ctx context.Context, req booking.JoinRequest) (model.WaitlistEntry, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.WaitlistEntry), args.Error(1)
}

func (m *MockBookingService) Leave(ctx context.Context, lessonID, userID uint64) error {
	args := m.Called(ctx, lessonID, userID)
	return args.Error(0)
}

func (m *MockBookingService) PromoteNext(ctx context.Context, lessonID uint64) (booking.PromotionResult, error) {
	args := m.Called(ctx, lessonID)
	return args.Get(0).(booking.PromotionResult), args.Error(1)
}

func (m *MockBookingService) FillOpenSeats(ctx context.Context, lessonID uint64) ([]booking.PromotionResult, error) {
	args := m.Called(ctx, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.PromotionResult), args.Error(1)
}

func (m *MockBookingService) GrantTickets(ctx context.Context, userID, groupID uint64, count int) (booking.TicketGrant, error) {
	args := m.Called(ctx, userID, groupID, count)
	return args.Get(0).(booking.TicketGrant), args.Error(1)
}

// MockReservationReader is a mock implementation of ReservationReader
type MockReservationReader struct {
	mock.Mock
}

func (m *MockReservationReader) ListByUser(ctx context.Context, userID uint64, withCancelled bool) ([]repository.ReservationDetail, error) {
	args := m.Called(ctx, userID, withCancelled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReservationDetail), args.Error(1)
}

func (m *MockReservationReader) ListByLesson(ctx context.Context, lessonID uint64) ([]repository.ReservationDetail, error) {
	args := m.Called(ctx, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReservationDetail), args.Error(1)
}

func (m *MockReservationReader) GetByID(ctx context.Context, id uint64) (repository.ReservationDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.ReservationDetail), args.Error(1)
}

func (m *MockReservationReader) GetByIDForUser(ctx context.Context, id, userID uint64) (repository.ReservationDetail, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(repository.ReservationDetail), args.Error(1)
}

func (m *MockReservationReader) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockLessonStore is a mock implementation of LessonStore
type MockLessonStore struct {
	mock.Mock
}

func (m *MockLessonStore) Create(ctx context.Context, l *model.Lesson) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLessonStore) Update(ctx context.Context, l *model.Lesson) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLessonStore) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLessonStore) GetByID(ctx context.Context, id uint64) (model.Lesson, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Lesson), args.Error(1)
}

func (m *MockLessonStore) Search(ctx context.Context, q repository.LessonQuery) ([]repository.LessonSummary, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.LessonSummary), args.Get(1).(int64), args.Error(2)
}

func (m *MockLessonStore) Summary(ctx context.Context, id uint64) (repository.LessonSummary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.LessonSummary), args.Error(1)
}

// MockTicketGroupStore is a mock implementation of TicketGroupStore
type MockTicketGroupStore struct {
	mock.Mock
}

func (m *MockTicketGroupStore) Create(ctx context.Context, name string) (model.TicketGroup, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(model.TicketGroup), args.Error(1)
}

func (m *MockTicketGroupStore) List(ctx context.Context) ([]model.TicketGroup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TicketGroup), args.Error(1)
}

// MockTicketReader is a mock implementation of TicketReader
type MockTicketReader struct {
	mock.Mock
}

func (m *MockTicketReader) ListByUser(ctx context.Context, userID uint64, now time.Time) ([]repository.TicketBalance, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.TicketBalance), args.Error(1)
}

var (
	_ BookingService    = (*MockBookingService)(nil)
	_ ReservationReader = (*MockReservationReader)(nil)
	_ LessonStore       = (*MockLessonStore)(nil)
	_ TicketGroupStore  = (*MockTicketGroupStore)(nil)
	_ TicketReader      = (*MockTicketReader)(nil)
)
