// Package memory provides an in-memory booking.Store for tests and local
// experiments.  Every transaction runs under one mutex against a copy of
// the data, so transactions are serializable and a failed one leaves no
// trace.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
)

type state struct {
	users        map[uint64]model.User
	groups       map[uint64]model.TicketGroup
	lessons      map[uint64]model.Lesson
	tickets      map[uint64]model.Ticket
	reservations map[uint64]model.Reservation
	waitlist     map[uint64]model.WaitlistEntry
	nextID       uint64
}

func newState() *state {
	return &state{
		users:        make(map[uint64]model.User),
		groups:       make(map[uint64]model.TicketGroup),
		lessons:      make(map[uint64]model.Lesson),
		tickets:      make(map[uint64]model.Ticket),
		reservations: make(map[uint64]model.Reservation),
		waitlist:     make(map[uint64]model.WaitlistEntry),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.lessons {
		c.lessons[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.waitlist {
		c.waitlist[k] = v
	}
	c.nextID = s.nextID
	return c
}

func (s *state) id() uint64 {
	s.nextID++
	return s.nextID
}

// Store is an in-memory booking.Store.
type Store struct {
	mu   sync.Mutex
	data *state
}

// New returns an empty Store.
func New() *Store { return &Store{data: newState()} }

// WithinTx runs fn against a private copy and publishes it only when fn
// succeeds.
func (m *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.data.clone()
	if err := fn(&tx{s: work}); err != nil {
		return err
	}
	m.data = work
	return nil
}

// ---- seeding and inspection ----

// AddUser stores u and returns it with its ID.
func (m *Store) AddUser(u model.User) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.data.id()
	if u.Role == "" {
		u.Role = model.RoleMember
	}
	u.IsActive = true
	m.data.users[u.ID] = u
	return u
}

// AddTicketGroup stores a category named name.
func (m *Store) AddTicketGroup(name string) model.TicketGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := model.TicketGroup{ID: m.data.id(), Name: name}
	m.data.groups[g.ID] = g
	return g
}

// AddLesson stores l and returns it with its ID.
func (m *Store) AddLesson(l model.Lesson) model.Lesson {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.data.id()
	m.data.lessons[l.ID] = l
	return l
}

// UpdateLesson replaces a stored lesson.
func (m *Store) UpdateLesson(l model.Lesson) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.lessons[l.ID] = l
}

// AddTicket stores t and returns it with its ID.
func (m *Store) AddTicket(t model.Ticket) model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.data.id()
	m.data.tickets[t.ID] = t
	return t
}

// AddWaitlistEntry stores e as is, keeping its CreatedAt.
func (m *Store) AddWaitlistEntry(e model.WaitlistEntry) model.WaitlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.data.id()
	m.data.waitlist[e.ID] = e
	return e
}

// User returns a stored user.
func (m *Store) User(id uint64) (model.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data.users[id]
	return u, ok
}

// Ticket returns a stored ticket.
func (m *Store) Ticket(id uint64) (model.Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data.tickets[id]
	return t, ok
}

// Reservation returns a stored reservation.
func (m *Store) Reservation(id uint64) (model.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data.reservations[id]
	return r, ok
}

// Reservations returns the lesson's reservations in ID order.
func (m *Store) Reservations(lessonID uint64) []model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, r := range m.data.reservations {
		if r.LessonID == lessonID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Waitlist returns the lesson's waitlist oldest first.
func (m *Store) Waitlist(lessonID uint64) []model.WaitlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&tx{s: m.data}).entries(lessonID)
}

// ---- booking.Tx ----

type tx struct{ s *state }

func (t *tx) LockLesson(_ context.Context, lessonID uint64) (model.Lesson, error) {
	l, ok := t.s.lessons[lessonID]
	if !ok {
		return model.Lesson{}, booking.ErrNotFound
	}
	return l, nil
}

func (t *tx) CountActiveReservations(_ context.Context, lessonID uint64) (int, error) {
	n := 0
	for _, r := range t.s.reservations {
		if r.LessonID == lessonID && r.Active() {
			n++
		}
	}
	return n, nil
}

func (t *tx) HasActiveReservation(_ context.Context, lessonID, userID uint64) (bool, error) {
	for _, r := range t.s.reservations {
		if r.LessonID == lessonID && r.Active() && r.OwnedBy(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) LockUser(_ context.Context, userID uint64) error {
	if _, ok := t.s.users[userID]; !ok {
		return booking.ErrNotFound
	}
	return nil
}

func (t *tx) GetUser(_ context.Context, userID uint64) (model.User, error) {
	u, ok := t.s.users[userID]
	if !ok {
		return model.User{}, booking.ErrNotFound
	}
	return u, nil
}

func (t *tx) StampConsent(_ context.Context, userID uint64, at time.Time) error {
	u, ok := t.s.users[userID]
	if !ok {
		return booking.ErrNotFound
	}
	u.ConsentAt = &at
	t.s.users[userID] = u
	return nil
}

func (t *tx) CountReservations(_ context.Context, userID uint64) (int, error) {
	n := 0
	for _, r := range t.s.reservations {
		if r.OwnedBy(userID) {
			n++
		}
	}
	return n, nil
}

func (t *tx) CountActiveTrials(_ context.Context, userID uint64) (int, error) {
	n := 0
	for _, r := range t.s.reservations {
		if r.OwnedBy(userID) && r.Active() && r.ReservationType == model.ReservationTrial {
			n++
		}
	}
	return n, nil
}

func (t *tx) matching(userID uint64, groupID *uint64) []model.Ticket {
	var out []model.Ticket
	for _, tk := range t.s.tickets {
		if tk.UserID != userID {
			continue
		}
		if groupID != nil && tk.TicketGroupID != *groupID {
			continue
		}
		out = append(out, tk)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tx) UsableTickets(_ context.Context, userID uint64, groupID *uint64, now time.Time) ([]model.Ticket, error) {
	var out []model.Ticket
	for _, tk := range t.matching(userID, groupID) {
		if tk.Usable(now) {
			out = append(out, tk)
		}
	}
	return out, nil
}

func (t *tx) MatchingTickets(_ context.Context, userID uint64, groupID *uint64) ([]model.Ticket, error) {
	return t.matching(userID, groupID), nil
}

func (t *tx) DecrementTicket(_ context.Context, ticketID uint64, now time.Time) (bool, error) {
	tk, ok := t.s.tickets[ticketID]
	if !ok || !tk.Usable(now) {
		return false, nil
	}
	tk.RemainingCount--
	t.s.tickets[ticketID] = tk
	return true, nil
}

func (t *tx) IncrementTicket(_ context.Context, ticketID uint64) error {
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return booking.ErrNotFound
	}
	tk.RemainingCount++
	t.s.tickets[ticketID] = tk
	return nil
}

func (t *tx) InsertTicket(_ context.Context, tk *model.Ticket) error {
	tk.ID = t.s.id()
	t.s.tickets[tk.ID] = *tk
	return nil
}

func (t *tx) TicketGroupExists(_ context.Context, groupID uint64) (bool, error) {
	_, ok := t.s.groups[groupID]
	return ok, nil
}

func (t *tx) InsertReservation(_ context.Context, r *model.Reservation) error {
	r.ID = t.s.id()
	t.s.reservations[r.ID] = *r
	return nil
}

func (t *tx) GetReservation(_ context.Context, reservationID uint64) (model.Reservation, error) {
	r, ok := t.s.reservations[reservationID]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (t *tx) LockReservation(ctx context.Context, reservationID uint64) (model.Reservation, error) {
	return t.GetReservation(ctx, reservationID)
}

func (t *tx) SetReservationStatus(_ context.Context, reservationID uint64, status model.PaymentStatus, at time.Time) error {
	r, ok := t.s.reservations[reservationID]
	if !ok {
		return booking.ErrNotFound
	}
	r.PaymentStatus = status
	r.UpdatedAt = at
	if status == model.StatusCancelled {
		r.CancelledAt = &at
	}
	t.s.reservations[reservationID] = r
	return nil
}

func (t *tx) entries(lessonID uint64) []model.WaitlistEntry {
	var out []model.WaitlistEntry
	for _, e := range t.s.waitlist {
		if e.LessonID == lessonID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tx) WaitlistEntries(_ context.Context, lessonID uint64) ([]model.WaitlistEntry, error) {
	return t.entries(lessonID), nil
}

func (t *tx) InsertWaitlistEntry(_ context.Context, e *model.WaitlistEntry) error {
	for _, ex := range t.s.waitlist {
		if ex.LessonID == e.LessonID && ex.UserID == e.UserID {
			return booking.ErrDuplicateWaitlistEntry
		}
	}
	e.ID = t.s.id()
	t.s.waitlist[e.ID] = *e
	return nil
}

func (t *tx) DeleteWaitlistEntry(_ context.Context, lessonID, userID uint64) (bool, error) {
	for id, e := range t.s.waitlist {
		if e.LessonID == lessonID && e.UserID == userID {
			delete(t.s.waitlist, id)
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CountTrialWaitlistEntries(_ context.Context, userID uint64) (int, error) {
	n := 0
	for _, e := range t.s.waitlist {
		if e.UserID == userID && e.IsTrial {
			n++
		}
	}
	return n, nil
}
