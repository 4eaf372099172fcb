package model

import "time"

// WaitlistEntry records that a member waits for a seat in a full lesson.
// (LessonID, UserID) is unique.  Entries are served in CreatedAt order.
// IsTrial marks an entry that holds the member's lifetime trial claim; it
// is promoted into a TRIAL reservation instead of consuming a ticket.
type WaitlistEntry struct {
    ID        uint64    `json:"id"`         // waiting_list.id
    LessonID  uint64    `json:"lesson_id"`  // waiting_list.lesson_id
    UserID    uint64    `json:"user_id"`    // waiting_list.user_id
    IsTrial   bool      `json:"is_trial"`   // waiting_list.is_trial
    CreatedAt time.Time `json:"created_at"` // waiting_list.created_at
}
