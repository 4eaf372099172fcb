package config

import (
	"fmt"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
)

// LoadBookingPolicy builds the studio rules from the environment:
//
//	BOOKING_CUTOFF          duration before start when booking closes (30m)
//	LATE_CANCEL_HOUR        hour of the previous day ending free cancellation (21)
//	TICKET_VALIDITY_MONTHS  lifetime of a granted ticket (5)
//	CONSENT_REQUIRED        require the consent form before booking (true)
//	STUDIO_TIMEZONE         IANA zone used for the deadline (UTC)
func LoadBookingPolicy() (booking.Policy, error) {
	p := booking.DefaultPolicy()
	p.BookingCutoff = envDur("BOOKING_CUTOFF", p.BookingCutoff)
	p.LateCancelHour = envInt("LATE_CANCEL_HOUR", p.LateCancelHour)
	p.TicketValidityMonths = envInt("TICKET_VALIDITY_MONTHS", p.TicketValidityMonths)
	p.ConsentRequired = envBool("CONSENT_REQUIRED", p.ConsentRequired)

	if p.BookingCutoff < 0 {
		return booking.Policy{}, fmt.Errorf("BOOKING_CUTOFF must not be negative, got %s", p.BookingCutoff)
	}
	if p.LateCancelHour < 0 || p.LateCancelHour > 23 {
		return booking.Policy{}, fmt.Errorf("LATE_CANCEL_HOUR must be within 0..23, got %d", p.LateCancelHour)
	}
	if p.TicketValidityMonths < 1 {
		return booking.Policy{}, fmt.Errorf("TICKET_VALIDITY_MONTHS must be positive, got %d", p.TicketValidityMonths)
	}
	if tz := envStr("STUDIO_TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return booking.Policy{}, fmt.Errorf("STUDIO_TIMEZONE: %w", err)
		}
		p.Location = loc
	}
	return p, nil
}
