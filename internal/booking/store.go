package booking

import (
	"context"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// Store is the persistence boundary of the booking core.  WithinTx runs fn
// in one transaction: fn returning an error rolls everything back, nil
// commits.  Implementations must make LockLesson a per-lesson exclusive
// lock held until the transaction ends so that admission, cancellation and
// promotion on the same lesson are serialized.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes the core performs inside a transaction.
// Lookups of missing rows return ErrNotFound.
type Tx interface {
	// LockLesson loads the lesson and holds its row lock until commit.
	LockLesson(ctx context.Context, lessonID uint64) (model.Lesson, error)
	CountActiveReservations(ctx context.Context, lessonID uint64) (int, error)
	HasActiveReservation(ctx context.Context, lessonID, userID uint64) (bool, error)

	// LockUser holds the user's row lock until commit.  Checks that span
	// several lessons of one user, such as the trial rule, take it first.
	LockUser(ctx context.Context, userID uint64) error
	GetUser(ctx context.Context, userID uint64) (model.User, error)
	StampConsent(ctx context.Context, userID uint64, at time.Time) error
	// CountReservations counts every reservation of the user, cancelled ones included.
	CountReservations(ctx context.Context, userID uint64) (int, error)
	CountActiveTrials(ctx context.Context, userID uint64) (int, error)

	// UsableTickets returns the user's tickets with credit left and not
	// expired at now, restricted to groupID when it is non-nil, ordered by
	// expiry ascending.
	UsableTickets(ctx context.Context, userID uint64, groupID *uint64, now time.Time) ([]model.Ticket, error)
	// MatchingTickets returns all tickets of the user for groupID (all
	// tickets when nil), expired or empty ones included.
	MatchingTickets(ctx context.Context, userID uint64, groupID *uint64) ([]model.Ticket, error)
	// DecrementTicket removes one credit only if the ticket still has credit
	// and is not expired at now.  It reports whether a row changed.
	DecrementTicket(ctx context.Context, ticketID uint64, now time.Time) (bool, error)
	IncrementTicket(ctx context.Context, ticketID uint64) error
	InsertTicket(ctx context.Context, t *model.Ticket) error
	TicketGroupExists(ctx context.Context, groupID uint64) (bool, error)

	InsertReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, reservationID uint64) (model.Reservation, error)
	LockReservation(ctx context.Context, reservationID uint64) (model.Reservation, error)
	SetReservationStatus(ctx context.Context, reservationID uint64, status model.PaymentStatus, at time.Time) error

	// WaitlistEntries returns the lesson's entries oldest first.
	WaitlistEntries(ctx context.Context, lessonID uint64) ([]model.WaitlistEntry, error)
	// InsertWaitlistEntry returns ErrDuplicateWaitlistEntry when the user
	// already waits for the lesson.
	InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error
	DeleteWaitlistEntry(ctx context.Context, lessonID, userID uint64) (bool, error)
	CountTrialWaitlistEntries(ctx context.Context, userID uint64) (int, error)
}
