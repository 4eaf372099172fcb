package booking

import (
	"context"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// Ledger answers how many seats of a lesson are free.  It keeps no counter
// of its own: the free count is derived from the active reservations read
// in the caller's transaction.
type Ledger struct{}

// Available returns max capacity minus active reservations, never below
// zero.  A lesson whose capacity was reduced under its booked count reports
// zero.
func (l *Ledger) Available(ctx context.Context, tx Tx, lesson model.Lesson) (int, error) {
	active, err := tx.CountActiveReservations(ctx, lesson.ID)
	if err != nil {
		return 0, err
	}
	return free(lesson.MaxCapacity, active), nil
}

func free(capacity, active int) int {
	if active >= capacity {
		return 0
	}
	return capacity - active
}
