// Package repository implements persistence on MySQL.  Store carries the
// transactional booking.Tx used by the booking core; the *Repo types serve
// listings and operator CRUD for the HTTP handlers.  Missing rows are
// reported as booking.ErrNotFound so handlers map every layer the same way.
package repository

import "errors"

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a write collides with existing data, such
// as a duplicate ticket group name.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrLessonHasReservations is returned when deleting a lesson that still
// has active reservations.
var ErrLessonHasReservations = errors.New("lesson has active reservations")
