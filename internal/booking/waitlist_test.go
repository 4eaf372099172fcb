package booking_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// wait puts userID on the lesson's waitlist with a ticket claim at the
// given time, bypassing Join so tests control the queue order.
func (f *fixture) wait(lessonID, userID uint64, at time.Time) model.WaitlistEntry {
	return f.store.AddWaitlistEntry(model.WaitlistEntry{LessonID: lessonID, UserID: userID, CreatedAt: at})
}

func waitingUsers(entries []model.WaitlistEntry) []uint64 {
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.UserID)
	}
	return out
}

func TestCancel_PromotesLongestWaiting(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.member("a@studio.test"), f.member("b@studio.test"), f.member("c@studio.test")
	l := f.lesson(1)
	resA := f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	tkB := f.ticket(b.ID, 3, clockStart.AddDate(0, 2, 0))
	f.ticket(c.ID, 3, clockStart.AddDate(0, 2, 0))

	// C is stored first but B has waited longer
	f.wait(l.ID, c.ID, clockStart.Add(-time.Hour))
	f.wait(l.ID, b.ID, clockStart.Add(-2*time.Hour))

	out, err := f.svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: resA.ID, Actor: booking.Actor{UserID: a.ID}})
	require.NoError(t, err)
	require.NotNil(t, out.Promotion)
	assert.Equal(t, b.ID, out.Promotion.UserID)

	promoted := out.Promotion.Reservation
	require.NotNil(t, promoted)
	assert.Equal(t, model.ReservationTicket, promoted.ReservationType)
	assert.Equal(t, model.PayTicket, promoted.PaymentMethod)
	assert.Equal(t, model.StatusPaid, promoted.PaymentStatus)
	require.NotNil(t, promoted.TicketID)
	assert.Equal(t, tkB.ID, *promoted.TicketID)
	assert.Equal(t, 2, f.remaining(tkB.ID))

	assert.Equal(t, []uint64{c.ID}, waitingUsers(f.store.Waitlist(l.ID)))
	assert.Equal(t, 1, f.activeCount(l.ID))

	notes := f.notifications(booking.NotifyWaitlistPromoted)
	require.Len(t, notes, 1)
	assert.Equal(t, b.ID, notes[0].UserID)
	assert.Equal(t, promoted.ID, notes[0].ReservationID)
}

func TestJoin_TrialClaimBlocksTrialBooking(t *testing.T) {
	f := newFixture(t)
	a, d := f.member("a@studio.test"), f.member("d@studio.test")
	full := f.lesson(1)
	f.mustBook(full.ID, a.ID, model.ReservationDropIn)

	entry, err := f.svc.Join(f.ctx, booking.JoinRequest{LessonID: full.ID, UserID: d.ID})
	require.NoError(t, err)
	assert.True(t, entry.IsTrial)

	other := f.lesson(5)
	_, err = f.book(other.ID, d.ID, model.ReservationTrial)
	assert.ErrorIs(t, err, booking.ErrTrialAlreadyUsed)

	require.NoError(t, f.svc.Leave(f.ctx, full.ID, d.ID))
	f.mustBook(other.ID, d.ID, model.ReservationTrial)
}

func TestJoin_TicketHolder(t *testing.T) {
	f := newFixture(t)
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	full := f.lesson(1)
	f.mustBook(full.ID, a.ID, model.ReservationDropIn)
	// b has booked before, so joins with a ticket claim
	f.mustBook(f.lesson(5).ID, b.ID, model.ReservationDropIn)
	tk := f.ticket(b.ID, 1, clockStart.AddDate(0, 1, 0))

	entry, err := f.svc.Join(f.ctx, booking.JoinRequest{LessonID: full.ID, UserID: b.ID})
	require.NoError(t, err)
	assert.False(t, entry.IsTrial)
	assert.Equal(t, clockStart, entry.CreatedAt)
	// joining does not spend the ticket
	assert.Equal(t, 1, f.remaining(tk.ID))
	assert.Len(t, f.notifications(booking.NotifyWaitlistJoined), 1)
}

func TestJoin_Rejections(t *testing.T) {
	f := newFixture(t)
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	full := f.lesson(1)
	f.mustBook(full.ID, a.ID, model.ReservationDropIn)

	_, err := f.svc.Join(f.ctx, booking.JoinRequest{LessonID: full.ID, UserID: a.ID})
	assert.ErrorIs(t, err, booking.ErrAlreadyBooked)

	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: 999, UserID: b.ID})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: full.ID, UserID: b.ID})
	require.NoError(t, err)
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: full.ID, UserID: b.ID})
	assert.ErrorIs(t, err, booking.ErrDuplicateWaitlistEntry)

	// a has history and no ticket
	other := f.lesson(1)
	f.mustBook(other.ID, b.ID, model.ReservationDropIn)
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: other.ID, UserID: a.ID})
	assert.ErrorIs(t, err, booking.ErrInsufficientTicketBalance)

	noConsent := f.store.AddUser(model.User{Email: "n@studio.test"})
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: other.ID, UserID: noConsent.ID})
	assert.ErrorIs(t, err, booking.ErrConsentRequired)
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: other.ID, UserID: noConsent.ID, Consent: true})
	assert.NoError(t, err)

	f.setNow(lessonStart.Add(-10 * time.Minute))
	c := f.member("c@studio.test")
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: full.ID, UserID: c.ID})
	assert.ErrorIs(t, err, booking.ErrBookingWindowClosed)
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	a := f.member("a@studio.test")
	l := f.lesson(1)

	err := f.svc.Leave(f.ctx, l.ID, a.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	f.wait(l.ID, a.ID, clockStart)
	require.NoError(t, f.svc.Leave(f.ctx, l.ID, a.ID))
	assert.Empty(t, f.store.Waitlist(l.ID))
	assert.Len(t, f.notifications(booking.NotifyWaitlistLeft), 1)
}

func TestPromoteNext_SkipsUnfundedMember(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.member("a@studio.test"), f.member("b@studio.test"), f.member("c@studio.test")
	l := f.lesson(1)
	resA := f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	// b's ticket expires before the seat frees up
	expired := f.ticket(b.ID, 2, clockStart.Add(time.Hour))
	f.ticket(c.ID, 1, clockStart.AddDate(0, 1, 0))
	f.wait(l.ID, b.ID, clockStart.Add(-2*time.Hour))
	f.wait(l.ID, c.ID, clockStart.Add(-time.Hour))

	f.setNow(clockStart.Add(2 * time.Hour))
	out, err := f.svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: resA.ID, Actor: booking.Actor{UserID: a.ID}})
	require.NoError(t, err)
	require.NotNil(t, out.Promotion)
	assert.Equal(t, c.ID, out.Promotion.UserID)
	assert.Equal(t, []uint64{b.ID}, out.Promotion.Skipped)

	assert.Equal(t, 2, f.remaining(expired.ID))
	assert.Equal(t, []uint64{b.ID}, waitingUsers(f.store.Waitlist(l.ID)))
}

func TestPromoteNext_NobodyFundable(t *testing.T) {
	f := newFixture(t)
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	l := f.lesson(1)
	resA := f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	f.wait(l.ID, b.ID, clockStart)

	out, err := f.svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: resA.ID, Actor: booking.Actor{UserID: a.ID}})
	require.NoError(t, err)
	assert.Nil(t, out.Promotion)
	assert.Zero(t, f.activeCount(l.ID))
	assert.Len(t, f.store.Waitlist(l.ID), 1)
}

func TestPromoteNext_DropsStaleEntry(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.member("a@studio.test"), f.member("b@studio.test"), f.member("c@studio.test")
	l := f.lesson(2)
	resA := f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	f.mustBook(l.ID, b.ID, model.ReservationDropIn)
	f.ticket(c.ID, 1, clockStart.AddDate(0, 1, 0))
	f.wait(l.ID, b.ID, clockStart.Add(-2*time.Hour))
	f.wait(l.ID, c.ID, clockStart.Add(-time.Hour))

	out, err := f.svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: resA.ID, Actor: booking.Actor{UserID: a.ID}})
	require.NoError(t, err)
	require.NotNil(t, out.Promotion)
	assert.Equal(t, c.ID, out.Promotion.UserID)
	assert.Empty(t, f.store.Waitlist(l.ID))
	assert.Equal(t, 2, f.activeCount(l.ID))
}

func TestPromoteNext_TrialClaim(t *testing.T) {
	f := newFixture(t)
	a, d := f.member("a@studio.test"), f.member("d@studio.test")
	l := f.lesson(1)
	f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	_, err := f.svc.Join(f.ctx, booking.JoinRequest{LessonID: l.ID, UserID: d.ID})
	require.NoError(t, err)

	l.MaxCapacity = 2
	f.store.UpdateLesson(l)
	out, err := f.svc.PromoteNext(f.ctx, l.ID)
	require.NoError(t, err)
	require.True(t, out.Promoted)
	assert.Equal(t, model.ReservationTrial, out.Reservation.ReservationType)
	assert.Equal(t, model.PayAtStudio, out.Reservation.PaymentMethod)
	assert.Equal(t, model.StatusPending, out.Reservation.PaymentStatus)
	assert.Nil(t, out.Reservation.TicketID)
}

func TestPromoteNext_TrialAlreadySpent(t *testing.T) {
	f := newFixture(t)
	a, d := f.member("a@studio.test"), f.member("d@studio.test")
	l := f.lesson(1)
	f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	f.mustBook(f.lesson(5).ID, d.ID, model.ReservationTrial)
	f.store.AddWaitlistEntry(model.WaitlistEntry{LessonID: l.ID, UserID: d.ID, IsTrial: true, CreatedAt: clockStart})

	l.MaxCapacity = 2
	f.store.UpdateLesson(l)
	out, err := f.svc.PromoteNext(f.ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, out.Promoted)
	assert.Equal(t, []uint64{d.ID}, out.Skipped)
}

func TestPromoteNext_FullLesson(t *testing.T) {
	f := newFixture(t)
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	l := f.lesson(1)
	f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	f.ticket(b.ID, 1, clockStart.AddDate(0, 1, 0))
	f.wait(l.ID, b.ID, clockStart)

	out, err := f.svc.PromoteNext(f.ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, out.Promoted)
	assert.Len(t, f.store.Waitlist(l.ID), 1)
	assert.Empty(t, f.notifications(booking.NotifyWaitlistPromoted))
}

func TestFillOpenSeats(t *testing.T) {
	f := newFixture(t)
	a := f.member("a@studio.test")
	l := f.lesson(1)
	f.mustBook(l.ID, a.ID, model.ReservationDropIn)

	var waiting []model.User
	for i, email := range []string{"b@studio.test", "c@studio.test", "d@studio.test"} {
		u := f.member(email)
		f.ticket(u.ID, 1, clockStart.AddDate(0, 1, 0))
		f.wait(l.ID, u.ID, clockStart.Add(time.Duration(i)*time.Minute))
		waiting = append(waiting, u)
	}

	l.MaxCapacity = 3
	f.store.UpdateLesson(l)
	promoted, err := f.svc.FillOpenSeats(f.ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, promoted, 2)
	assert.Equal(t, waiting[0].ID, promoted[0].UserID)
	assert.Equal(t, waiting[1].ID, promoted[1].UserID)
	assert.Equal(t, 3, f.activeCount(l.ID))
	assert.Equal(t, []uint64{waiting[2].ID}, waitingUsers(f.store.Waitlist(l.ID)))

	// capacity reduced below the booked count: nothing to fill
	l.MaxCapacity = 1
	f.store.UpdateLesson(l)
	promoted, err = f.svc.FillOpenSeats(f.ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, promoted)
	free, err := f.svc.Availability(f.ctx, l.ID)
	require.NoError(t, err)
	assert.Zero(t, free)
}

func TestPromoteNext_LessonAlreadyStarted(t *testing.T) {
	f := newFixture(t)
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	l := f.lesson(1)
	f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	tk := f.ticket(b.ID, 1, clockStart.AddDate(0, 1, 0))
	f.wait(l.ID, b.ID, clockStart)

	l.MaxCapacity = 2
	f.store.UpdateLesson(l)
	for _, at := range []time.Time{lessonStart, lessonStart.Add(2 * time.Hour)} {
		f.setNow(at)
		promoted, err := f.svc.FillOpenSeats(f.ctx, l.ID)
		require.NoError(t, err)
		assert.Empty(t, promoted)
	}
	assert.Equal(t, 1, f.remaining(tk.ID))
	assert.Equal(t, 1, f.activeCount(l.ID))
	assert.Equal(t, []uint64{b.ID}, waitingUsers(f.store.Waitlist(l.ID)))
	assert.Empty(t, f.notifications(booking.NotifyWaitlistPromoted))
}

func TestJoin_LessonWithFreeSeats(t *testing.T) {
	f := newFixture(t)
	b, d := f.member("b@studio.test"), f.member("d@studio.test")
	open := f.lesson(5)
	f.mustBook(f.lesson(5).ID, b.ID, model.ReservationDropIn)
	f.ticket(b.ID, 1, clockStart.AddDate(0, 1, 0))

	_, err := f.svc.Join(f.ctx, booking.JoinRequest{LessonID: open.ID, UserID: b.ID})
	assert.ErrorIs(t, err, booking.ErrLessonNotFull)

	// d has no history; the rejected join must not hold the trial
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: open.ID, UserID: d.ID})
	assert.ErrorIs(t, err, booking.ErrLessonNotFull)
	assert.Empty(t, f.store.Waitlist(open.ID))
	f.mustBook(open.ID, d.ID, model.ReservationTrial)
}

func TestCancel_ConcurrentCancellationsPromoteOncePerSeat(t *testing.T) {
	f := newFixture(t)
	l := f.lesson(3)
	var booked []model.Reservation
	var holders []model.User
	for i := 0; i < 3; i++ {
		u := f.member("holder" + string(rune('a'+i)) + "@studio.test")
		holders = append(holders, u)
		booked = append(booked, f.mustBook(l.ID, u.ID, model.ReservationDropIn))
	}
	var waiting []model.User
	var tickets []model.Ticket
	for i := 0; i < 5; i++ {
		u := f.member("waiter" + string(rune('a'+i)) + "@studio.test")
		waiting = append(waiting, u)
		tickets = append(tickets, f.ticket(u.ID, 1, clockStart.AddDate(0, 1, 0)))
		f.wait(l.ID, u.ID, clockStart.Add(time.Duration(i)*time.Minute))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		promoted []uint64
	)
	for i, res := range booked {
		wg.Add(1)
		go func(resID, userID uint64) {
			defer wg.Done()
			out, err := f.svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: resID, Actor: booking.Actor{UserID: userID}})
			assert.NoError(t, err)
			if out.Promotion != nil {
				mu.Lock()
				promoted = append(promoted, out.Promotion.UserID)
				mu.Unlock()
			}
		}(res.ID, holders[i].ID)
	}
	wg.Wait()

	assert.ElementsMatch(t, []uint64{waiting[0].ID, waiting[1].ID, waiting[2].ID}, promoted)
	assert.Equal(t, 3, f.activeCount(l.ID))
	assert.Equal(t, []uint64{waiting[3].ID, waiting[4].ID}, waitingUsers(f.store.Waitlist(l.ID)))
	for i, tk := range tickets {
		want := 1
		if i < 3 {
			want = 0
		}
		assert.Equal(t, want, f.remaining(tk.ID), "ticket of waiter %d", i)
	}
}
