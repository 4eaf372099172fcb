package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
	"github.com/iliyamo/pilates-studio-booking/internal/store/memory"
)

func TestNotifierFailureDoesNotFailOperations(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	down := booking.NotifierFunc(func(context.Context, booking.Notification) error {
		return errors.New("smtp down")
	})
	f := newFixture(t, booking.WithNotifier(down), booking.WithLogger(zap.New(core)))
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	l := f.lesson(1)

	res, err := f.book(l.ID, a.ID, model.ReservationDropIn)
	require.NoError(t, err)
	_, err = f.svc.Join(f.ctx, booking.JoinRequest{LessonID: l.ID, UserID: b.ID})
	require.NoError(t, err)
	require.NoError(t, f.svc.Leave(f.ctx, l.ID, b.ID))
	out, err := f.svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: res.Reservation.ID, Actor: booking.Actor{UserID: a.ID}})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Reservation.PaymentStatus)

	failed := logs.FilterMessage("notification failed").All()
	require.Len(t, failed, 4)
	assert.Equal(t, "smtp down", failed[0].ContextMap()["error"])
}

// promotionOutage lets the first transaction through and fails every later
// one, which is where Cancel runs its promotion.
type promotionOutage struct {
	*memory.Store
	mu    sync.Mutex
	calls int
}

func (s *promotionOutage) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if n > 1 {
		return errors.New("lock wait timeout exceeded")
	}
	return s.Store.WithinTx(ctx, fn)
}

func TestCancel_PromotionFailureKeepsCancellation(t *testing.T) {
	f := newFixture(t)
	a, b := f.member("a@studio.test"), f.member("b@studio.test")
	l := f.lesson(1)
	resA := f.mustBook(l.ID, a.ID, model.ReservationDropIn)
	f.ticket(b.ID, 1, clockStart.AddDate(0, 1, 0))
	f.wait(l.ID, b.ID, clockStart)

	core, logs := observer.New(zapcore.ErrorLevel)
	svc := booking.NewService(&promotionOutage{Store: f.store},
		booking.WithClock(f.clock),
		booking.WithLogger(zap.New(core)))

	out, err := svc.Cancel(f.ctx, booking.CancelRequest{ReservationID: resA.ID, Actor: booking.Actor{UserID: a.ID}})
	require.NoError(t, err)
	assert.Nil(t, out.Promotion)
	assert.Equal(t, model.StatusCancelled, out.Reservation.PaymentStatus)

	stored, ok := f.store.Reservation(resA.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusCancelled, stored.PaymentStatus)
	assert.Zero(t, f.activeCount(l.ID))
	assert.Equal(t, []uint64{b.ID}, waitingUsers(f.store.Waitlist(l.ID)))
	assert.Equal(t, 1, logs.FilterMessage("waitlist promotion after cancellation failed").Len())
}
