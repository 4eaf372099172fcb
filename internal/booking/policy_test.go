package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
)

func TestPolicy_CancellationDeadline(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	p := booking.DefaultPolicy()
	p.Location = seoul

	tests := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{
			name:  "morning lesson",
			start: time.Date(2026, 3, 13, 10, 0, 0, 0, seoul),
			want:  time.Date(2026, 3, 12, 21, 0, 0, 0, seoul),
		},
		{
			// 20:00 UTC on the 12th is already the 13th in Seoul
			name:  "local date differs from UTC",
			start: time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 12, 21, 0, 0, 0, seoul),
		},
		{
			name:  "first of the month",
			start: time.Date(2026, 4, 1, 7, 0, 0, 0, seoul),
			want:  time.Date(2026, 3, 31, 21, 0, 0, 0, seoul),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(p.CancellationDeadline(tt.start)))
		})
	}
}

func TestPolicy_NilLocationIsUTC(t *testing.T) {
	p := booking.Policy{LateCancelHour: 18}
	got := p.CancellationDeadline(time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)))
}

func TestPolicy_BookingOpen(t *testing.T) {
	p := booking.DefaultPolicy()
	start := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)

	assert.True(t, p.BookingOpen(start, start.Add(-time.Hour)))
	assert.True(t, p.BookingOpen(start, start.Add(-30*time.Minute)))
	assert.False(t, p.BookingOpen(start, start.Add(-29*time.Minute)))
	assert.False(t, p.BookingOpen(start, start.Add(time.Minute)))
}

func TestPolicy_TicketExpiry(t *testing.T) {
	p := booking.DefaultPolicy()
	granted := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC), p.TicketExpiry(granted))

	p.TicketValidityMonths = 1
	assert.Equal(t, time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC), p.TicketExpiry(granted))
}
