package booking

import "time"

// Policy holds the studio rules that depend on time.
type Policy struct {
	// BookingCutoff closes booking this long before the lesson starts.
	BookingCutoff time.Duration
	// LateCancelHour is the local hour on the day before the lesson after
	// which a member cancellation forfeits the ticket.
	LateCancelHour int
	// TicketValidityMonths is the lifetime of a granted ticket.
	TicketValidityMonths int
	// ConsentRequired makes the consent form mandatory before the first booking.
	ConsentRequired bool
	// Location is the studio's time zone used for the cancellation deadline.
	Location *time.Location
}

// DefaultPolicy returns the studio's standard rules.
func DefaultPolicy() Policy {
	return Policy{
		BookingCutoff:        30 * time.Minute,
		LateCancelHour:       21,
		TicketValidityMonths: 5,
		ConsentRequired:      true,
		Location:             time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// BookingOpen reports whether a lesson starting at start can still be
// booked at now.
func (p Policy) BookingOpen(start, now time.Time) bool {
	return !now.After(start.Add(-p.BookingCutoff))
}

// CancellationDeadline returns the last instant of free cancellation: the
// day before the lesson's local start date at LateCancelHour:00.
func (p Policy) CancellationDeadline(start time.Time) time.Time {
	local := start.In(p.location())
	y, m, d := local.Date()
	return time.Date(y, m, d-1, p.LateCancelHour, 0, 0, 0, p.location())
}

// TicketExpiry returns the expiry of a ticket granted at grantedAt.
func (p Policy) TicketExpiry(grantedAt time.Time) time.Time {
	return grantedAt.AddDate(0, p.TicketValidityMonths, 0)
}
