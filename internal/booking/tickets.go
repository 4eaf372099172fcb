package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// TicketAccount enforces that ticket-funded reservations never spend
// credit that does not exist and that returned credit lands on a
// deterministic ticket.
type TicketAccount struct {
	policy Policy
}

// TicketGrant is the result of issuing tickets.
type TicketGrant struct {
	Ticket model.Ticket `json:"ticket"`
}

// SelectForLesson returns the user's usable tickets for the lesson's
// category, soonest expiry first.
func (a *TicketAccount) SelectForLesson(ctx context.Context, tx Tx, userID uint64, lesson model.Lesson, now time.Time) ([]model.Ticket, error) {
	tickets, err := tx.UsableTickets(ctx, userID, lesson.TicketGroupID, now)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrInsufficientTicketBalance
	}
	return tickets, nil
}

// Consume spends one credit of the first candidate that still has one at
// commit time.  The decrement is conditional in storage, so a ticket
// drained by a concurrent request is skipped instead of going negative.
func (a *TicketAccount) Consume(ctx context.Context, tx Tx, candidates []model.Ticket, now time.Time) (model.Ticket, error) {
	for _, t := range candidates {
		ok, err := tx.DecrementTicket(ctx, t.ID, now)
		if err != nil {
			return model.Ticket{}, err
		}
		if ok {
			t.RemainingCount--
			return t, nil
		}
	}
	return model.Ticket{}, ErrInsufficientTicketBalance
}

// SelectAndConsume combines SelectForLesson and Consume.
func (a *TicketAccount) SelectAndConsume(ctx context.Context, tx Tx, userID uint64, lesson model.Lesson, now time.Time) (model.Ticket, error) {
	candidates, err := a.SelectForLesson(ctx, tx, userID, lesson, now)
	if err != nil {
		return model.Ticket{}, err
	}
	return a.Consume(ctx, tx, candidates, now)
}

// Refund returns one credit to the user's ticket of the lesson's category
// with the latest expiry; ties go to the ticket with more credit left, then
// to the oldest ticket.  It returns the refunded ticket.
func (a *TicketAccount) Refund(ctx context.Context, tx Tx, userID uint64, lesson model.Lesson) (model.Ticket, error) {
	tickets, err := tx.MatchingTickets(ctx, userID, lesson.TicketGroupID)
	if err != nil {
		return model.Ticket{}, err
	}
	if len(tickets) == 0 {
		return model.Ticket{}, fmt.Errorf("refund for user %d: %w", userID, ErrNotFound)
	}
	target := refundTarget(tickets)
	if err := tx.IncrementTicket(ctx, target.ID); err != nil {
		return model.Ticket{}, err
	}
	target.RemainingCount++
	return target, nil
}

func refundTarget(tickets []model.Ticket) model.Ticket {
	sorted := append([]model.Ticket(nil), tickets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.After(b.ExpiresAt)
		}
		if a.RemainingCount != b.RemainingCount {
			return a.RemainingCount > b.RemainingCount
		}
		return a.ID < b.ID
	})
	return sorted[0]
}

// Grant creates a single ticket holding count credits, valid for the
// policy's validity period from now.
func (a *TicketAccount) Grant(ctx context.Context, tx Tx, userID, groupID uint64, count int, now time.Time) (TicketGrant, error) {
	if count <= 0 {
		return TicketGrant{}, invalid("count must be positive")
	}
	if _, err := tx.GetUser(ctx, userID); err != nil {
		return TicketGrant{}, err
	}
	ok, err := tx.TicketGroupExists(ctx, groupID)
	if err != nil {
		return TicketGrant{}, err
	}
	if !ok {
		return TicketGrant{}, fmt.Errorf("ticket group %d: %w", groupID, ErrNotFound)
	}
	t := model.Ticket{
		UserID:         userID,
		TicketGroupID:  groupID,
		RemainingCount: count,
		ExpiresAt:      a.policy.TicketExpiry(now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.InsertTicket(ctx, &t); err != nil {
		return TicketGrant{}, err
	}
	return TicketGrant{Ticket: t}, nil
}
