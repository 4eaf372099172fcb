package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

func TestWithinTx_DiscardsFailedWork(t *testing.T) {
	s := New()
	u := s.AddUser(model.User{Email: "a@studio.test"})
	l := s.AddLesson(model.Lesson{Title: "Mat", MaxCapacity: 2})
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(tx booking.Tx) error {
		uid := u.ID
		r := model.Reservation{LessonID: l.ID, UserID: &uid, PaymentStatus: model.StatusPaid}
		require.NoError(t, tx.InsertReservation(context.Background(), &r))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Reservations(l.ID))
}

func TestDecrementTicket_OnlyUsable(t *testing.T) {
	s := New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	live := s.AddTicket(model.Ticket{UserID: 1, TicketGroupID: 1, RemainingCount: 1, ExpiresAt: now.Add(time.Hour)})
	expired := s.AddTicket(model.Ticket{UserID: 1, TicketGroupID: 1, RemainingCount: 4, ExpiresAt: now.Add(-time.Hour)})

	err := s.WithinTx(context.Background(), func(tx booking.Tx) error {
		ctx := context.Background()
		ok, err := tx.DecrementTicket(ctx, live.ID, now)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.DecrementTicket(ctx, live.ID, now)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = tx.DecrementTicket(ctx, expired.ID, now)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, _ := s.Ticket(live.ID)
	assert.Zero(t, got.RemainingCount)
	got, _ = s.Ticket(expired.ID)
	assert.Equal(t, 4, got.RemainingCount)
}

func TestWaitlist_OrderAndUniqueness(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.AddWaitlistEntry(model.WaitlistEntry{LessonID: 1, UserID: 30, CreatedAt: base.Add(time.Minute)})
	s.AddWaitlistEntry(model.WaitlistEntry{LessonID: 1, UserID: 20, CreatedAt: base})
	s.AddWaitlistEntry(model.WaitlistEntry{LessonID: 2, UserID: 10, CreatedAt: base})

	got := s.Waitlist(1)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(20), got[0].UserID)
	assert.Equal(t, uint64(30), got[1].UserID)

	err := s.WithinTx(context.Background(), func(tx booking.Tx) error {
		return tx.InsertWaitlistEntry(context.Background(), &model.WaitlistEntry{LessonID: 1, UserID: 30, CreatedAt: base})
	})
	assert.ErrorIs(t, err, booking.ErrDuplicateWaitlistEntry)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.WithinTx(ctx, func(booking.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockUser(t *testing.T) {
	s := New()
	u := s.AddUser(model.User{Email: "a@studio.test"})

	err := s.WithinTx(context.Background(), func(tx booking.Tx) error {
		require.NoError(t, tx.LockUser(context.Background(), u.ID))
		return tx.LockUser(context.Background(), u.ID+100)
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}
