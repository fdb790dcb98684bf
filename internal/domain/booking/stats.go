package booking

import (
	"sort"
	"time"
)

// GuestStays summarises a guest's bookings. It is derived on read, never stored.
type GuestStays struct {
	TotalStays int
	// LastStay is the latest check-out among the bookings.
	LastStay *time.Time
	// UpcomingStay is the earliest check-in after today.
	UpcomingStay *time.Time
}

// SummarizeStays aggregates bookings as of now.
func SummarizeStays(bookings []*Booking, now time.Time) GuestStays {
	today := StartOfDay(now)
	stats := GuestStays{TotalStays: len(bookings)}
	for _, b := range bookings {
		out := b.stay.CheckOut
		if stats.LastStay == nil || out.After(*stats.LastStay) {
			stats.LastStay = &out
		}
		in := b.stay.CheckIn
		if in.After(today) && (stats.UpcomingStay == nil || in.Before(*stats.UpcomingStay)) {
			stats.UpcomingStay = &in
		}
	}
	return stats
}

// CountInResidence counts bookings whose range contains the day of asOf.
func CountInResidence(bookings []*Booking, asOf time.Time) int {
	day := StartOfDay(asOf)
	n := 0
	for _, b := range bookings {
		if b.stay.Contains(day) {
			n++
		}
	}
	return n
}

// SortByCheckIn orders bookings by check-in, then check-out.
func SortByCheckIn(bookings []*Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i].stay, bookings[j].stay
		if !a.CheckIn.Equal(b.CheckIn) {
			return a.CheckIn.Before(b.CheckIn)
		}
		return a.CheckOut.Before(b.CheckOut)
	})
}
