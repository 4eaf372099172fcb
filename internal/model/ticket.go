package model

import "time"

// Ticket is a prepaid, category-scoped bundle of lesson credits.  A ticket
// is usable only while RemainingCount > 0 and ExpiresAt is in the future.
type Ticket struct {
    ID             uint64    `json:"id"`              // tickets.id
    UserID         uint64    `json:"user_id"`         // tickets.user_id
    TicketGroupID  uint64    `json:"ticket_group_id"` // tickets.ticket_group_id
    RemainingCount int       `json:"remaining_count"` // tickets.remaining_count
    ExpiresAt      time.Time `json:"expires_at"`      // tickets.expires_at
    CreatedAt      time.Time `json:"created_at"`      // tickets.created_at
    UpdatedAt      time.Time `json:"updated_at"`      // tickets.updated_at
}

// Usable reports whether the ticket can fund a reservation at now.
func (t Ticket) Usable(now time.Time) bool {
    return t.RemainingCount > 0 && t.ExpiresAt.After(now)
}
