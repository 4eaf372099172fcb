package model

import "time"

// ReservationType describes how a booking is priced.
type ReservationType string

const (
    ReservationTrial  ReservationType = "TRIAL"   // one discounted booking per account, lifetime
    ReservationDropIn ReservationType = "DROP_IN" // single full-price session
    ReservationTicket ReservationType = "TICKET"  // funded by one ticket credit
)

// Valid reports whether t is a known reservation type.
func (t ReservationType) Valid() bool {
    switch t {
    case ReservationTrial, ReservationDropIn, ReservationTicket:
        return true
    }
    return false
}

// PaymentMethod describes how a reservation is paid.
type PaymentMethod string

const (
    PayNow      PaymentMethod = "PAY_NOW"
    PayAtStudio PaymentMethod = "PAY_AT_STUDIO"
    PayTicket   PaymentMethod = "TICKET"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
    switch m {
    case PayNow, PayAtStudio, PayTicket:
        return true
    }
    return false
}

// PaymentStatus is the lifecycle state of a reservation.  CANCELLED and
// REFUNDED are terminal.
type PaymentStatus string

const (
    StatusPending   PaymentStatus = "PENDING"
    StatusPaid      PaymentStatus = "PAID"
    StatusCancelled PaymentStatus = "CANCELLED"
    StatusRefunded  PaymentStatus = "REFUNDED"
)

// Terminal reports whether no further transition is possible from s.
func (s PaymentStatus) Terminal() bool {
    return s == StatusCancelled || s == StatusRefunded
}

// InitialStatus returns the status a new reservation starts in for the
// given payment method.  Ticket and online payments settle synchronously.
func InitialStatus(m PaymentMethod) PaymentStatus {
    if m == PayAtStudio {
        return StatusPending
    }
    return StatusPaid
}

// Reservation records one seat in one lesson.  A reservation counts toward
// the lesson's capacity unless it is CANCELLED.
//
// Fields:
//  ID              – primary key identifier.
//  LessonID        – lesson the seat belongs to.
//  UserID          – owning member; nil for guest bookings.
//  GuestName       – contact name for guest bookings.
//  GuestEmail      – contact email for guest bookings.
//  ReservationType – TRIAL, DROP_IN or TICKET.
//  PaymentMethod   – PAY_NOW, PAY_AT_STUDIO or TICKET.
//  PaymentStatus   – PENDING, PAID, CANCELLED or REFUNDED.
//  TicketID        – ticket consumed at creation (audit only).
//  CancelledAt     – when the reservation was cancelled.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
    ID              uint64          `json:"id"`                    // reservations.id
    LessonID        uint64          `json:"lesson_id"`             // reservations.lesson_id
    UserID          *uint64         `json:"user_id,omitempty"`     // reservations.user_id (nullable)
    GuestName       string          `json:"guest_name,omitempty"`  // reservations.guest_name
    GuestEmail      string          `json:"guest_email,omitempty"` // reservations.guest_email
    ReservationType ReservationType `json:"reservation_type"`      // reservations.reservation_type
    PaymentMethod   PaymentMethod   `json:"payment_method"`        // reservations.payment_method
    PaymentStatus   PaymentStatus   `json:"payment_status"`        // reservations.payment_status
    TicketID        *uint64         `json:"ticket_id,omitempty"`   // reservations.ticket_id (nullable)
    CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
    CreatedAt       time.Time       `json:"created_at"`
    UpdatedAt       time.Time       `json:"updated_at"`
}

// Active reports whether the reservation occupies a seat.
func (r Reservation) Active() bool { return r.PaymentStatus != StatusCancelled }

// OwnedBy reports whether the reservation belongs to userID.
func (r Reservation) OwnedBy(userID uint64) bool {
    return r.UserID != nil && *r.UserID == userID
}
