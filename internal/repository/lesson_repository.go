package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// LessonRepo provides CRUD and schedule queries for lessons.  Seat
// admission itself goes through booking.Service; this repository only
// serves operator edits and read-only listings.
type LessonRepo struct {
	db *sql.DB
}

// NewLessonRepo returns a new LessonRepo bound to the given database.
func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{db: db} }

// DB exposes the underlying handle.
func (r *LessonRepo) DB() *sql.DB { return r.db }

// Create inserts a lesson and fills its ID.
func (r *LessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO lessons (title, instructor, starts_at, ends_at, max_capacity, price_cents, ticket_group_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Title, l.Instructor, l.StartsAt.UTC(), l.EndsAt.UTC(), l.MaxCapacity, l.PriceCents, l.TicketGroupID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	created, err := r.GetByID(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = created
	return nil
}

// Update overwrites the editable columns of a lesson.  Reducing capacity
// below the booked count is allowed; the lesson simply stays full.
func (r *LessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lessons SET title = ?, instructor = ?, starts_at = ?, ends_at = ?, max_capacity = ?, price_cents = ?, ticket_group_id = ? WHERE id = ?`,
		l.Title, l.Instructor, l.StartsAt.UTC(), l.EndsAt.UTC(), l.MaxCapacity, l.PriceCents, l.TicketGroupID, l.ID)
	if err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = updated
	return nil
}

// Delete removes a lesson without active reservations; cancelled
// reservations and waitlist entries cascade.  The lesson row is locked
// first, the same lock booking takes, so a reservation cannot commit
// between the check and the delete.
func (r *LessonRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM lessons WHERE id = ? FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return notFound(err)
	}
	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE lesson_id = ? AND payment_status <> 'CANCELLED'`,
		id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrLessonHasReservations
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID fetches one lesson.
func (r *LessonRepo) GetByID(ctx context.Context, id uint64) (model.Lesson, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	return l, notFound(err)
}

// LessonQuery filters the schedule.  Zero times leave that side open.
type LessonQuery struct {
	From          time.Time
	To            time.Time
	TicketGroupID *uint64
	Instructor    string
	Page          int
	PageSize      int
}

// LessonSummary is a lesson with its live seat and waitlist counts.
type LessonSummary struct {
	model.Lesson
	Booked    int `json:"booked"`
	Available int `json:"available"`
	Waiting   int `json:"waiting"`
}

const summarySelect = `SELECT l.id, l.title, l.instructor, l.starts_at, l.ends_at, l.max_capacity, l.price_cents, l.ticket_group_id, l.created_at, l.updated_at,
		(SELECT COUNT(*) FROM reservations r WHERE r.lesson_id = l.id AND r.payment_status <> 'CANCELLED') AS booked,
		(SELECT COUNT(*) FROM waiting_list w WHERE w.lesson_id = l.id) AS waiting
	FROM lessons l`

func scanSummary(row scanner) (LessonSummary, error) {
	var (
		s     LessonSummary
		group sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.Title, &s.Instructor, &s.StartsAt, &s.EndsAt, &s.MaxCapacity,
		&s.PriceCents, &group, &s.CreatedAt, &s.UpdatedAt, &s.Booked, &s.Waiting)
	if err != nil {
		return LessonSummary{}, err
	}
	if group.Valid {
		g := uint64(group.Int64)
		s.TicketGroupID = &g
	}
	s.Available = s.MaxCapacity - s.Booked
	if s.Available < 0 {
		s.Available = 0
	}
	return s, nil
}

// Search lists lessons matching q ordered by start time, with the total
// number of matches.
func (r *LessonRepo) Search(ctx context.Context, q LessonQuery) ([]LessonSummary, int64, error) {
	where := []string{}
	args := []any{}
	if !q.From.IsZero() {
		where = append(where, "l.starts_at >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "l.starts_at < ?")
		args = append(args, q.To.UTC())
	}
	if q.TicketGroupID != nil {
		where = append(where, "l.ticket_group_id = ?")
		args = append(args, *q.TicketGroupID)
	}
	if q.Instructor != "" {
		where = append(where, "LOWER(l.instructor) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Instructor)+"%")
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons l WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 50
	}
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.db.QueryContext(ctx, summarySelect+` WHERE `+cond+` ORDER BY l.starts_at ASC, l.id ASC LIMIT ? OFFSET ?`, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]LessonSummary, 0, q.PageSize)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Summary returns one lesson with its counts.
func (r *LessonRepo) Summary(ctx context.Context, id uint64) (LessonSummary, error) {
	row := r.db.QueryRowContext(ctx, summarySelect+` WHERE l.id = ?`, id)
	s, err := scanSummary(row)
	return s, notFound(err)
}
