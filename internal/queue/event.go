// Package queue carries booking notifications over RabbitMQ: a publisher
// that implements booking.Notifier and a consumer that records every
// delivered notification in a log file.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
)

// NotificationEvent is the message body published for every notification.
// EventID lets consumers drop redeliveries.
type NotificationEvent struct {
	EventID        string    `json:"event_id"`
	Kind           string    `json:"kind"`
	UserID         uint64    `json:"user_id,omitempty"`
	GuestEmail     string    `json:"guest_email,omitempty"`
	LessonID       uint64    `json:"lesson_id"`
	LessonTitle    string    `json:"lesson_title"`
	LessonStartsAt string    `json:"lesson_starts_at"`
	ReservationID  uint64    `json:"reservation_id,omitempty"`
	TicketRefunded bool      `json:"ticket_refunded,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewNotificationEvent converts a domain notification to its wire form.
func NewNotificationEvent(n booking.Notification) NotificationEvent {
	return NotificationEvent{
		EventID:        uuid.NewString(),
		Kind:           string(n.Kind),
		UserID:         n.UserID,
		GuestEmail:     n.GuestEmail,
		LessonID:       n.LessonID,
		LessonTitle:    n.LessonTitle,
		LessonStartsAt: n.LessonStartsAt.UTC().Format(time.RFC3339),
		ReservationID:  n.ReservationID,
		TicketRefunded: n.TicketRefunded,
		OccurredAt:     n.OccurredAt.UTC(),
	}
}

// Recipient returns the user id or guest email the event is addressed to.
func (e NotificationEvent) Recipient() string {
	if e.UserID != 0 {
		return "user:" + uintStr(e.UserID)
	}
	return "guest:" + e.GuestEmail
}
