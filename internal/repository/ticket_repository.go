package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/database"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// TicketRepo lists ticket balances.  Credits are granted, spent and
// returned only through booking.Service.
type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// TicketBalance is a ticket with its group name and usability at read time.
type TicketBalance struct {
	model.Ticket
	GroupName string `json:"group_name"`
	Usable    bool   `json:"usable"`
}

// ListByUser returns all tickets of a member, latest expiry first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64, now time.Time) ([]TicketBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.ticket_group_id, t.remaining_count, t.expires_at, t.created_at, t.updated_at, g.name
		 FROM tickets t JOIN ticket_groups g ON g.id = t.ticket_group_id
		 WHERE t.user_id = ? ORDER BY t.expires_at DESC, t.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TicketBalance{}
	for rows.Next() {
		var b TicketBalance
		if err := rows.Scan(&b.ID, &b.UserID, &b.TicketGroupID, &b.RemainingCount, &b.ExpiresAt,
			&b.CreatedAt, &b.UpdatedAt, &b.GroupName); err != nil {
			return nil, err
		}
		b.Usable = b.Ticket.Usable(now)
		out = append(out, b)
	}
	return out, rows.Err()
}

// TicketGroupRepo manages lesson categories.
type TicketGroupRepo struct{ db *sql.DB }

func NewTicketGroupRepo(db *sql.DB) *TicketGroupRepo { return &TicketGroupRepo{db: db} }

// Create inserts a group; a taken name yields ErrConflict.
func (r *TicketGroupRepo) Create(ctx context.Context, name string) (model.TicketGroup, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO ticket_groups (name) VALUES (?)`, name)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return model.TicketGroup{}, ErrConflict
		}
		return model.TicketGroup{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TicketGroup{}, err
	}
	var g model.TicketGroup
	err = r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM ticket_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.CreatedAt)
	return g, err
}

// List returns all groups ordered by name.
func (r *TicketGroupRepo) List(ctx context.Context) ([]model.TicketGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM ticket_groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TicketGroup{}
	for rows.Next() {
		var g model.TicketGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
