package model

import (
    "errors"
    "strings"
    "time"
)

// Lesson is a scheduled pilates class with a fixed number of seats.  It
// corresponds to a row in the `lessons` table.
//
// Fields:
//  ID            – primary key identifier.
//  Title         – display title of the lesson.
//  Instructor    – instructor name shown to members.
//  StartsAt      – lesson start (UTC).
//  EndsAt        – lesson end (UTC); always after StartsAt.
//  MaxCapacity   – number of seats; active reservations may exceed it only
//                  after an admin reduced the capacity.
//  PriceCents    – drop-in price in minor currency units.
//  TicketGroupID – category whose tickets may pay for this lesson; nil
//                  means any ticket of the member is accepted.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Lesson struct {
    ID            uint64    `json:"id"`                        // lessons.id
    Title         string    `json:"title"`                     // lessons.title
    Instructor    string    `json:"instructor"`                // lessons.instructor
    StartsAt      time.Time `json:"starts_at"`                 // lessons.starts_at
    EndsAt        time.Time `json:"ends_at"`                   // lessons.ends_at
    MaxCapacity   int       `json:"max_capacity"`              // lessons.max_capacity
    PriceCents    uint32    `json:"price_cents"`               // lessons.price_cents
    TicketGroupID *uint64   `json:"ticket_group_id,omitempty"` // lessons.ticket_group_id (nullable)
    CreatedAt     time.Time `json:"created_at"`                // lessons.created_at
    UpdatedAt     time.Time `json:"updated_at"`                // lessons.updated_at
}

// TicketGroup is a lesson category.  Tickets are issued per group and can
// only pay for lessons of the same group.
type TicketGroup struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    CreatedAt time.Time `json:"created_at"`
}

// AcceptsTicketGroup reports whether a ticket of the given group may pay
// for the lesson.
func (l Lesson) AcceptsTicketGroup(groupID uint64) bool {
    return l.TicketGroupID == nil || *l.TicketGroupID == groupID
}

// Validate checks the invariants an admin edit must keep.
func (l Lesson) Validate() error {
    if strings.TrimSpace(l.Title) == "" {
        return errors.New("title is required")
    }
    if l.StartsAt.IsZero() || !l.EndsAt.After(l.StartsAt) {
        return errors.New("ends_at must be after starts_at")
    }
    if l.MaxCapacity < 1 {
        return errors.New("max_capacity must be at least 1")
    }
    return nil
}
