package repository

import (
	"context"
	"database/sql"
	"time"
)

// WaitlistRepo lists waiting members.  Joining, leaving and promotion go
// through booking.Service.
type WaitlistRepo struct{ db *sql.DB }

func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// WaitlistDetail is an entry with its queue position and lesson.
type WaitlistDetail struct {
	ID             uint64    `json:"id"`
	LessonID       uint64    `json:"lesson_id"`
	LessonTitle    string    `json:"lesson_title"`
	LessonStartsAt time.Time `json:"lesson_starts_at"`
	UserID         uint64    `json:"user_id"`
	UserEmail      string    `json:"user_email,omitempty"`
	IsTrial        bool      `json:"is_trial"`
	Position       int       `json:"position"`
	CreatedAt      time.Time `json:"created_at"`
}

const waitlistSelect = `SELECT w.id, w.lesson_id, l.title, l.starts_at, w.user_id, u.email, w.is_trial,
		(SELECT COUNT(*) FROM waiting_list w2 WHERE w2.lesson_id = w.lesson_id
			AND (w2.created_at < w.created_at OR (w2.created_at = w.created_at AND w2.id <= w.id))) AS position,
		w.created_at
	FROM waiting_list w
	JOIN lessons l ON l.id = w.lesson_id
	JOIN users u ON u.id = w.user_id`

func (r *WaitlistRepo) list(ctx context.Context, q string, arg uint64) ([]WaitlistDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WaitlistDetail{}
	for rows.Next() {
		var d WaitlistDetail
		if err := rows.Scan(&d.ID, &d.LessonID, &d.LessonTitle, &d.LessonStartsAt, &d.UserID,
			&d.UserEmail, &d.IsTrial, &d.Position, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByLesson returns the lesson's queue in promotion order.
func (r *WaitlistRepo) ListByLesson(ctx context.Context, lessonID uint64) ([]WaitlistDetail, error) {
	return r.list(ctx, waitlistSelect+` WHERE w.lesson_id = ? ORDER BY w.created_at ASC, w.id ASC`, lessonID)
}

// ListByUser returns the member's entries, soonest lesson first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]WaitlistDetail, error) {
	return r.list(ctx, waitlistSelect+` WHERE w.user_id = ? ORDER BY l.starts_at ASC`, userID)
}
