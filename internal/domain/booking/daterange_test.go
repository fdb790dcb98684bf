package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostledger/service-rental/internal/common/domain"
)

func mustRange(t *testing.T, in, out string) DateRange {
	t.Helper()
	r, err := ParseDateRange(in, out)
	require.NoError(t, err)
	return r
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-10T02:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-06-01T18:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("tomorrow")
	assert.Error(t, err)
}

func TestParseDateRange_RejectsNonPositiveSpan(t *testing.T) {
	_, err := ParseDateRange("2024-01-10", "2024-01-10")
	assert.True(t, domain.IsValidation(err))

	_, err = ParseDateRange("2024-01-11", "2024-01-10")
	assert.True(t, domain.IsValidation(err))

	_, err = ParseDateRange("nope", "2024-01-10")
	assert.True(t, domain.IsValidation(err))
}

func TestParseDateRange_TimestampsKeepOnlyTheDay(t *testing.T) {
	r, err := ParseDateRange("2024-06-01T18:00:00Z", "2024-06-03T06:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), r.CheckIn)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), r.CheckOut)
	assert.Equal(t, 2, r.Nights())

	assert.False(t, r.Overlaps(mustRange(t, "2024-06-03", "2024-06-05")))

	_, err = ParseDateRange("2024-06-01T06:00:00Z", "2024-06-01T20:00:00Z")
	assert.True(t, domain.IsValidation(err))
}

func TestNewDateRange_TruncatesToDays(t *testing.T) {
	r, err := NewDateRange(
		time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC),
		time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", FormatDate(r.CheckIn))
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), r.CheckOut)
}

func TestDateRange_Overlaps(t *testing.T) {
	base := mustRange(t, "2024-06-03", "2024-06-10")
	tests := []struct {
		name string
		in   string
		out  string
		want bool
	}{
		{"overlaps start", "2024-06-01", "2024-06-05", true},
		{"overlaps end", "2024-06-09", "2024-06-12", true},
		{"inside", "2024-06-04", "2024-06-05", true},
		{"covers", "2024-06-01", "2024-06-20", true},
		{"identical", "2024-06-03", "2024-06-10", true},
		{"ends on check-in", "2024-06-01", "2024-06-03", false},
		{"starts on check-out", "2024-06-10", "2024-06-12", false},
		{"disjoint", "2024-07-01", "2024-07-02", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := mustRange(t, tt.in, tt.out)
			assert.Equal(t, tt.want, base.Overlaps(other))
			assert.Equal(t, tt.want, other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestDateRange_ContainsIsHalfOpen(t *testing.T) {
	r := mustRange(t, "2024-06-03", "2024-06-05")
	assert.True(t, r.Contains(r.CheckIn))
	assert.True(t, r.Contains(time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(r.CheckOut))
	assert.False(t, r.Contains(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))
}

func TestDateRange_Nights(t *testing.T) {
	assert.Equal(t, 5, mustRange(t, "2024-01-10", "2024-01-15").Nights())
	assert.Equal(t, "[2024-01-10, 2024-01-15)", mustRange(t, "2024-01-10", "2024-01-15").String())
}
