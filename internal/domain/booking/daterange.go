package booking

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hostledger/service-rental/internal/common/domain"
)

// DateLayout is the wire format of check-in and check-out dates.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns UTC midnight of the
// date. An RFC 3339 value keeps only the UTC calendar day of its instant.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return StartOfDay(t), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is a half-open stay interval [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange truncates both ends to UTC midnight and validates that
// checkOut is at least one day after checkIn.
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return DateRange{}, domain.NewValidationError("check-in and check-out dates are required")
	}
	checkIn, checkOut = StartOfDay(checkIn), StartOfDay(checkOut)
	if !checkOut.After(checkIn) {
		return DateRange{}, domain.NewValidationError("check-out must be after check-in")
	}
	return DateRange{CheckIn: checkIn, CheckOut: checkOut}, nil
}

// ParseDateRange parses both ends and validates the range.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return DateRange{}, domain.NewValidationError("check-in: " + err.Error())
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return DateRange{}, domain.NewValidationError("check-out: " + err.Error())
	}
	return NewDateRange(in, out)
}

// Nights is the span in days, rounded up.
func (r DateRange) Nights() int {
	return nightsBetween(r.CheckIn, r.CheckOut)
}

// Overlaps reports whether two half-open ranges share at least one instant.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

// Contains reports whether t falls inside [CheckIn, CheckOut).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.CheckIn) && t.Before(r.CheckOut)
}

// Equal compares both ends as instants.
func (r DateRange) Equal(o DateRange) bool {
	return r.CheckIn.Equal(o.CheckIn) && r.CheckOut.Equal(o.CheckOut)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", FormatDate(r.CheckIn), FormatDate(r.CheckOut))
}

func nightsBetween(checkIn, checkOut time.Time) int {
	span := checkOut.Sub(checkIn)
	if span <= 0 {
		return 0
	}
	return int(math.Ceil(span.Hours() / 24))
}
