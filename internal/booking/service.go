// Package booking implements the reservation lifecycle of the studio: seat
// admission against lesson capacity, ticket accounting, cancellation fees
// and waitlist promotion.  All state changes run inside a Store
// transaction that holds the lesson's lock.
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint64
	Admin  bool
}

// Service is the entry point of the booking core.
type Service struct {
	store    Store
	notifier Notifier
	policy   Policy
	log      *zap.Logger
	now      func() time.Time

	ledger  *Ledger
	tickets *TicketAccount
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the notification sender.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option { return func(s *Service) { s.policy = p } }

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService builds a Service on top of store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("nil store passed to NewService")
	}
	s := &Service{
		store:    store,
		notifier: nopNotifier{},
		policy:   DefaultPolicy(),
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = &Ledger{}
	s.tickets = &TicketAccount{policy: s.policy}
	return s
}

// Policy returns the rules the service applies.
func (s *Service) Policy() Policy { return s.policy }

// Availability returns the number of free seats of a lesson.
func (s *Service) Availability(ctx context.Context, lessonID uint64) (int, error) {
	var free int
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		lesson, err := tx.LockLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		free, err = s.ledger.Available(ctx, tx, lesson)
		return err
	})
	return free, err
}

// GrantTickets issues a ticket of count credits to a member.
func (s *Service) GrantTickets(ctx context.Context, userID, groupID uint64, count int) (TicketGrant, error) {
	var grant TicketGrant
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		grant, err = s.tickets.Grant(ctx, tx, userID, groupID, count, s.now())
		return err
	})
	return grant, err
}

// notify sends n and only logs a failure.
func (s *Service) notify(ctx context.Context, n Notification) {
	n.OccurredAt = s.now()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("notification failed",
			zap.String("kind", string(n.Kind)),
			zap.Uint64("user_id", n.UserID),
			zap.Uint64("lesson_id", n.LessonID),
			zap.Error(err))
	}
}
