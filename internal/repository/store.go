package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/database"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

// Store implements booking.Store on MySQL.  Transactions run at READ
// COMMITTED: the lesson row lock taken by LockLesson serializes writers of
// one lesson, and every later read in the transaction sees rows committed
// by the previous lock holder.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// WithinTx begins a transaction, runs fn and commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

const lessonColumns = `id, title, instructor, starts_at, ends_at, max_capacity, price_cents, ticket_group_id, created_at, updated_at`

func scanLesson(row scanner) (model.Lesson, error) {
	var (
		l     model.Lesson
		group sql.NullInt64
	)
	err := row.Scan(&l.ID, &l.Title, &l.Instructor, &l.StartsAt, &l.EndsAt,
		&l.MaxCapacity, &l.PriceCents, &group, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return model.Lesson{}, err
	}
	if group.Valid {
		g := uint64(group.Int64)
		l.TicketGroupID = &g
	}
	return l, nil
}

const reservationColumns = `id, lesson_id, user_id, guest_name, guest_email, reservation_type, payment_method, payment_status, ticket_id, cancelled_at, created_at, updated_at`

func scanReservation(row scanner) (model.Reservation, error) {
	var (
		r         model.Reservation
		userID    sql.NullInt64
		ticketID  sql.NullInt64
		cancelled sql.NullTime
	)
	err := row.Scan(&r.ID, &r.LessonID, &userID, &r.GuestName, &r.GuestEmail,
		&r.ReservationType, &r.PaymentMethod, &r.PaymentStatus, &ticketID,
		&cancelled, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	if userID.Valid {
		u := uint64(userID.Int64)
		r.UserID = &u
	}
	if ticketID.Valid {
		t := uint64(ticketID.Int64)
		r.TicketID = &t
	}
	if cancelled.Valid {
		c := cancelled.Time
		r.CancelledAt = &c
	}
	return r, nil
}

const ticketColumns = `id, user_id, ticket_group_id, remaining_count, expires_at, created_at, updated_at`

func scanTicket(row scanner) (model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.TicketGroupID, &t.RemainingCount, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// notFound maps sql.ErrNoRows to booking.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrNotFound
	}
	return err
}

func (t *sqlTx) LockLesson(ctx context.Context, lessonID uint64) (model.Lesson, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ? FOR UPDATE`, lessonID)
	l, err := scanLesson(row)
	return l, notFound(err)
}

func (t *sqlTx) CountActiveReservations(ctx context.Context, lessonID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE lesson_id = ? AND payment_status <> 'CANCELLED'`,
		lessonID).Scan(&n)
	return n, err
}

func (t *sqlTx) HasActiveReservation(ctx context.Context, lessonID, userID uint64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE lesson_id = ? AND user_id = ? AND payment_status <> 'CANCELLED'`,
		lessonID, userID).Scan(&n)
	return n > 0, err
}

func (t *sqlTx) LockUser(ctx context.Context, userID uint64) error {
	var id uint64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&id)
	return notFound(err)
}

func (t *sqlTx) GetUser(ctx context.Context, userID uint64) (model.User, error) {
	var (
		u       model.User
		consent sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, is_active, consent_at, created_at, updated_at FROM users WHERE id = ? LIMIT 1`,
		userID).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &consent, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	if consent.Valid {
		c := consent.Time
		u.ConsentAt = &c
	}
	return u, nil
}

func (t *sqlTx) StampConsent(ctx context.Context, userID uint64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE users SET consent_at = ? WHERE id = ? AND consent_at IS NULL`, at, userID)
	return err
}

func (t *sqlTx) CountReservations(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func (t *sqlTx) CountActiveTrials(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = ? AND reservation_type = 'TRIAL' AND payment_status <> 'CANCELLED'`,
		userID).Scan(&n)
	return n, err
}

func (t *sqlTx) queryTickets(ctx context.Context, q string, args ...any) ([]model.Ticket, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

func (t *sqlTx) UsableTickets(ctx context.Context, userID uint64, groupID *uint64, now time.Time) ([]model.Ticket, error) {
	return t.queryTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE user_id = ? AND (? IS NULL OR ticket_group_id = ?) AND remaining_count > 0 AND expires_at > ?
		 ORDER BY expires_at ASC, id ASC`,
		userID, groupID, groupID, now)
}

func (t *sqlTx) MatchingTickets(ctx context.Context, userID uint64, groupID *uint64) ([]model.Ticket, error) {
	return t.queryTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE user_id = ? AND (? IS NULL OR ticket_group_id = ?)
		 ORDER BY expires_at ASC, id ASC`,
		userID, groupID, groupID)
}

func (t *sqlTx) DecrementTicket(ctx context.Context, ticketID uint64, now time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tickets SET remaining_count = remaining_count - 1
		 WHERE id = ? AND remaining_count > 0 AND expires_at > ?`,
		ticketID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *sqlTx) IncrementTicket(ctx context.Context, ticketID uint64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tickets SET remaining_count = remaining_count + 1 WHERE id = ?`, ticketID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *sqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO tickets (user_id, ticket_group_id, remaining_count, expires_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		tk.UserID, tk.TicketGroupID, tk.RemainingCount, tk.ExpiresAt, tk.CreatedAt, tk.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tk.ID = uint64(id)
	return nil
}

func (t *sqlTx) TicketGroupExists(ctx context.Context, groupID uint64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticket_groups WHERE id = ?`, groupID).Scan(&n)
	return n > 0, err
}

func (t *sqlTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO reservations (lesson_id, user_id, guest_name, guest_email, reservation_type, payment_method, payment_status, ticket_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.LessonID, r.UserID, r.GuestName, r.GuestEmail, r.ReservationType, r.PaymentMethod,
		r.PaymentStatus, r.TicketID, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (t *sqlTx) GetReservation(ctx context.Context, reservationID uint64) (model.Reservation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, reservationID)
	r, err := scanReservation(row)
	return r, notFound(err)
}

func (t *sqlTx) LockReservation(ctx context.Context, reservationID uint64) (model.Reservation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, reservationID)
	r, err := scanReservation(row)
	return r, notFound(err)
}

func (t *sqlTx) SetReservationStatus(ctx context.Context, reservationID uint64, status model.PaymentStatus, at time.Time) error {
	var cancelledAt any
	if status == model.StatusCancelled {
		cancelledAt = at
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE reservations SET payment_status = ?, cancelled_at = COALESCE(?, cancelled_at), updated_at = ? WHERE id = ?`,
		status, cancelledAt, at, reservationID)
	return err
}

func (t *sqlTx) WaitlistEntries(ctx context.Context, lessonID uint64) ([]model.WaitlistEntry, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, lesson_id, user_id, is_trial, created_at FROM waiting_list WHERE lesson_id = ? ORDER BY created_at ASC, id ASC`,
		lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.LessonID, &e.UserID, &e.IsTrial, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqlTx) InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO waiting_list (lesson_id, user_id, is_trial, created_at) VALUES (?, ?, ?, ?)`,
		e.LessonID, e.UserID, e.IsTrial, e.CreatedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return booking.ErrDuplicateWaitlistEntry
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (t *sqlTx) DeleteWaitlistEntry(ctx context.Context, lessonID, userID uint64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM waiting_list WHERE lesson_id = ? AND user_id = ?`, lessonID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *sqlTx) CountTrialWaitlistEntries(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM waiting_list WHERE user_id = ? AND is_trial = 1`, userID).Scan(&n)
	return n, err
}
