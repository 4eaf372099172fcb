package booking

import (
	"context"
	"time"
)

// NotificationKind selects the message template sent to a member.
type NotificationKind string

const (
	NotifyBookingConfirmed NotificationKind = "booking_confirmed"
	NotifyBookingCancelled NotificationKind = "booking_cancelled"
	NotifyWaitlistJoined   NotificationKind = "waitlist_joined"
	NotifyWaitlistLeft     NotificationKind = "waitlist_left"
	NotifyWaitlistPromoted NotificationKind = "waitlist_promoted"
)

// Notification is the payload handed to a Notifier.  UserID is zero for
// guest bookings, in which case GuestEmail carries the recipient.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	UserID         uint64           `json:"user_id,omitempty"`
	GuestEmail     string           `json:"guest_email,omitempty"`
	LessonID       uint64           `json:"lesson_id"`
	LessonTitle    string           `json:"lesson_title"`
	LessonStartsAt time.Time        `json:"lesson_starts_at"`
	ReservationID  uint64           `json:"reservation_id,omitempty"`
	TicketRefunded bool             `json:"ticket_refunded,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// Notifier delivers member notifications.  Errors are logged by the caller
// and never fail the operation that triggered the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }
