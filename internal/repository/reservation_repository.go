package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// ReservationRepo serves reservation listings and admin corrections.
// State transitions (create, cancel, promote) belong to booking.Service.
// All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationDetail is a reservation together with the lesson it books.
// It is returned by the listing endpoints for members and admins.
type ReservationDetail struct {
	model.Reservation
	LessonTitle    string    `json:"lesson_title"`
	LessonStartsAt time.Time `json:"lesson_starts_at"`
	LessonEndsAt   time.Time `json:"lesson_ends_at"`
	Instructor     string    `json:"instructor"`
	UserEmail      string    `json:"user_email,omitempty"`
}

const detailSelect = `SELECT r.id, r.lesson_id, r.user_id, r.guest_name, r.guest_email, r.reservation_type,
		r.payment_method, r.payment_status, r.ticket_id, r.cancelled_at, r.created_at, r.updated_at,
		l.title, l.starts_at, l.ends_at, l.instructor, COALESCE(u.email, '')
	FROM reservations r
	JOIN lessons l ON l.id = r.lesson_id
	LEFT JOIN users u ON u.id = r.user_id`

func scanDetail(row scanner) (ReservationDetail, error) {
	var (
		d         ReservationDetail
		userID    sql.NullInt64
		ticketID  sql.NullInt64
		cancelled sql.NullTime
	)
	err := row.Scan(&d.ID, &d.LessonID, &userID, &d.GuestName, &d.GuestEmail, &d.ReservationType,
		&d.PaymentMethod, &d.PaymentStatus, &ticketID, &cancelled, &d.CreatedAt, &d.UpdatedAt,
		&d.LessonTitle, &d.LessonStartsAt, &d.LessonEndsAt, &d.Instructor, &d.UserEmail)
	if err != nil {
		return ReservationDetail{}, err
	}
	if userID.Valid {
		u := uint64(userID.Int64)
		d.UserID = &u
	}
	if ticketID.Valid {
		t := uint64(ticketID.Int64)
		d.TicketID = &t
	}
	if cancelled.Valid {
		c := cancelled.Time
		d.CancelledAt = &c
	}
	return d, nil
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ReservationDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByUser returns the member's reservations, upcoming lessons first.
// Cancelled reservations are included only when withCancelled is set.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, withCancelled bool) ([]ReservationDetail, error) {
	q := detailSelect + ` WHERE r.user_id = ?`
	if !withCancelled {
		q += ` AND r.payment_status <> 'CANCELLED'`
	}
	q += ` ORDER BY l.starts_at DESC, r.id DESC`
	return r.list(ctx, q, userID)
}

// ListByLesson returns every reservation of a lesson in booking order.
func (r *ReservationRepo) ListByLesson(ctx context.Context, lessonID uint64) ([]ReservationDetail, error) {
	return r.list(ctx, detailSelect+` WHERE r.lesson_id = ? ORDER BY r.created_at ASC, r.id ASC`, lessonID)
}

// GetByID returns one reservation with its lesson.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (ReservationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailSelect+` WHERE r.id = ?`, id))
	return d, notFound(err)
}

// GetByIDForUser returns a reservation only when it belongs to userID.
// A reservation owned by someone else yields booking.ErrForbidden.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (ReservationDetail, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return ReservationDetail{}, err
	}
	if !d.OwnedBy(userID) {
		return ReservationDetail{}, booking.ErrForbidden
	}
	return d, nil
}

// Delete physically removes a reservation.  It exists for admin
// corrections only; the normal flow cancels instead.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}
