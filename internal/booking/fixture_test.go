package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
	"github.com/iliyamo/pilates-studio-booking/internal/store/memory"
)

// lessonStart is three days after the fixture's clock.
var (
	clockStart  = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lessonStart = time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *booking.Service
	group model.TicketGroup

	mu    sync.Mutex
	now   time.Time
	notes []booking.Notification
}

func newFixture(t *testing.T, opts ...booking.Option) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), store: memory.New(), now: clockStart}
	f.group = f.store.AddTicketGroup("Reformer")
	base := []booking.Option{
		booking.WithClock(f.clock),
		booking.WithNotifier(booking.NotifierFunc(f.record)),
	}
	f.svc = booking.NewService(f.store, append(base, opts...)...)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = at
}

func (f *fixture) record(_ context.Context, n booking.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return nil
}

func (f *fixture) notifications(kind booking.NotificationKind) []booking.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []booking.Notification
	for _, n := range f.notes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// member adds a user who already accepted the consent form.
func (f *fixture) member(email string) model.User {
	at := clockStart.Add(-24 * time.Hour)
	return f.store.AddUser(model.User{Email: email, Name: email, ConsentAt: &at})
}

func (f *fixture) lesson(capacity int) model.Lesson {
	g := f.group.ID
	return f.store.AddLesson(model.Lesson{
		Title:         "Reformer Flow",
		Instructor:    "Mina",
		StartsAt:      lessonStart,
		EndsAt:        lessonStart.Add(50 * time.Minute),
		MaxCapacity:   capacity,
		TicketGroupID: &g,
	})
}

func (f *fixture) ticket(userID uint64, count int, expires time.Time) model.Ticket {
	return f.store.AddTicket(model.Ticket{
		UserID:         userID,
		TicketGroupID:  f.group.ID,
		RemainingCount: count,
		ExpiresAt:      expires,
	})
}

func (f *fixture) remaining(ticketID uint64) int {
	t, ok := f.store.Ticket(ticketID)
	require.True(f.t, ok)
	return t.RemainingCount
}

func (f *fixture) book(lessonID, userID uint64, typ model.ReservationType) (booking.CreateResult, error) {
	method := model.PayNow
	if typ == model.ReservationTicket {
		method = model.PayTicket
	}
	return f.svc.Create(f.ctx, booking.CreateRequest{
		LessonID:        lessonID,
		UserID:          userID,
		ReservationType: typ,
		PaymentMethod:   method,
	})
}

func (f *fixture) mustBook(lessonID, userID uint64, typ model.ReservationType) model.Reservation {
	f.t.Helper()
	res, err := f.book(lessonID, userID, typ)
	require.NoError(f.t, err)
	return res.Reservation
}

func (f *fixture) activeCount(lessonID uint64) int {
	n := 0
	for _, r := range f.store.Reservations(lessonID) {
		if r.Active() {
			n++
		}
	}
	return n
}
