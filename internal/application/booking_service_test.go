package application

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/common/domain"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/store"
)

func TestCreateBooking_PricesTheStay(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")

	b := env.mustCreate(t, p, g, "2024-01-10", "2024-01-15")
	assert.Equal(t, 5, b.TotalNights)
	assert.Equal(t, 500.0, b.TotalAmount)
	assert.Equal(t, "Sea View", b.PropertyName)
	assert.Equal(t, "Ana", b.GuestName)
	assert.Equal(t, int64(1), b.Version)

	events := env.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, bookingDomain.EventCreated, events[0].Type)
	assert.Equal(t, b.ID.String(), events[0].Key)
}

func TestCreateBooking_RejectsPropertyOverlap(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	env.mustCreate(t, p, env.guest(t, "Ana"), "2024-06-03", "2024-06-10")

	outcome := env.create(t, p, env.guest(t, "Ben"), "2024-06-01", "2024-06-05")
	assert.False(t, outcome.Applied())
	assert.Nil(t, outcome.Booking)
	assert.Equal(t, bookingDomain.ReasonPropertyUnavailable, outcome.Rejected)
	assert.Contains(t, string(outcome.Rejected), "property not available")

	all, err := env.store.Bookings().FindByOwnerID(context.Background(), env.ownerID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateBooking_RejectsGuestOverlap(t *testing.T) {
	env := newTestEnv(t)
	g := env.guest(t, "Ana")
	env.mustCreate(t, env.property(t, "Sea View", 100), g, "2024-06-03", "2024-06-10")

	outcome := env.create(t, env.property(t, "Hill Top", 80), g, "2024-06-09", "2024-06-12")
	assert.Equal(t, bookingDomain.ReasonGuestUnavailable, outcome.Rejected)
}

func TestCreateBooking_BackToBackStaysAreAllowed(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	env.mustCreate(t, p, env.guest(t, "Ana"), "2024-06-03", "2024-06-10")

	assert.True(t, env.create(t, p, env.guest(t, "Ben"), "2024-06-10", "2024-06-12").Applied())
	assert.True(t, env.create(t, p, env.guest(t, "Cy"), "2024-06-01", "2024-06-03").Applied())
}

func TestCreateBooking_TimestampsAreDayGranular(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)

	first := env.mustCreate(t, p, env.guest(t, "Ana"), "2024-06-01T18:00:00Z", "2024-06-03T06:00:00Z")
	assert.Equal(t, "2024-06-01", first.CheckIn)
	assert.Equal(t, "2024-06-03", first.CheckOut)
	assert.Equal(t, 2, first.TotalNights)

	second := env.create(t, p, env.guest(t, "Ben"), "2024-06-03", "2024-06-05")
	assert.True(t, second.Applied(), "unexpected rejection: %s", second.Rejected)
}

func TestCreateBooking_ValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateBookingRequest
	}{
		{"missing guest", CreateBookingRequest{PropertyID: p.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-02"}},
		{"missing property", CreateBookingRequest{GuestID: g.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-02"}},
		{"check-out before check-in", CreateBookingRequest{GuestID: g.ID(), PropertyID: p.ID(), CheckIn: "2024-06-05", CheckOut: "2024-06-02"}},
		{"zero nights", CreateBookingRequest{GuestID: g.ID(), PropertyID: p.ID(), CheckIn: "2024-06-05", CheckOut: "2024-06-05"}},
		{"bad date", CreateBookingRequest{GuestID: g.ID(), PropertyID: p.ID(), CheckIn: "June 5", CheckOut: "2024-06-07"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bookings.CreateBooking(ctx, env.ownerID, tt.req)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestCreateBooking_ForeignReferencesAreNotFound(t *testing.T) {
	env := newTestEnv(t)
	other := newTestEnv(t)
	p := other.property(t, "Elsewhere", 100)

	_, err := env.bookings.CreateBooking(context.Background(), env.ownerID, CreateBookingRequest{
		GuestID: env.guest(t, "Ana").ID(), PropertyID: p.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-02",
	})
	assert.True(t, domain.IsNotFound(err))
}

func TestCreateBooking_ConcurrentOverlappingCreatesAdmitOne(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)

	const n = 16
	guests := make([]uuid.UUID, n)
	for i := range guests {
		guests[i] = env.guest(t, fmt.Sprintf("Guest %d", i)).ID()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(guestID uuid.UUID) {
			defer wg.Done()
			outcome, err := env.bookings.CreateBooking(context.Background(), env.ownerID, CreateBookingRequest{
				GuestID: guestID, PropertyID: p.ID(), CheckIn: "2024-07-01", CheckOut: "2024-07-08",
			})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			if outcome.Applied() {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}(guests[i])
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	all, err := env.store.Bookings().FindByOwnerID(context.Background(), env.ownerID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBookings_NeverOverlapPerPropertyOrGuest(t *testing.T) {
	env := newTestEnv(t)
	rng := rand.New(rand.NewSource(7))
	props := []string{"A", "B", "C"}
	names := []string{"Ana", "Ben", "Cy", "Di"}

	properties := make([]interface{ ID() uuid.UUID }, len(props))
	for i, name := range props {
		properties[i] = env.property(t, name, 50)
	}
	guests := make([]interface{ ID() uuid.UUID }, len(names))
	for i, name := range names {
		guests[i] = env.guest(t, name)
	}

	base, err := bookingDomain.ParseDate("2024-01-01")
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		start := base.AddDate(0, 0, rng.Intn(60))
		end := start.AddDate(0, 0, 1+rng.Intn(6))
		_, err := env.bookings.CreateBooking(context.Background(), env.ownerID, CreateBookingRequest{
			PropertyID: properties[rng.Intn(len(properties))].ID(),
			GuestID:    guests[rng.Intn(len(guests))].ID(),
			CheckIn:    bookingDomain.FormatDate(start),
			CheckOut:   bookingDomain.FormatDate(end),
		})
		require.NoError(t, err)
	}

	all, err := env.store.Bookings().FindByOwnerID(context.Background(), env.ownerID)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if !a.Stay().Overlaps(b.Stay()) {
				continue
			}
			assert.NotEqual(t, a.Property().ID, b.Property().ID, "property double-booked: %s and %s", a.Stay(), b.Stay())
			assert.NotEqual(t, a.Guest().ID, b.Guest().ID, "guest double-booked: %s and %s", a.Stay(), b.Stay())
		}
	}
}

func TestUpdateBooking_InfoOnlySkipsAvailabilityCheck(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")
	x := env.mustCreate(t, p, g, "2024-06-03", "2024-06-10")

	before := env.store.OverlapQueries()
	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, x.ID, UpdateBookingRequest{
		AdditionalInfo: strPtr("late arrival"),
		CheckIn:        strPtr("2024-06-03"),
		PropertyID:     &x.PropertyID,
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	assert.Equal(t, before, env.store.OverlapQueries())
	assert.Equal(t, "late arrival", outcome.Booking.AdditionalInfo)
	assert.Equal(t, int64(2), outcome.Booking.Version)
}

func TestUpdateBooking_InfoOnlySucceedsWhileIndexIsDown(t *testing.T) {
	env := newTestEnv(t)
	x := env.mustCreate(t, env.property(t, "Sea View", 100), env.guest(t, "Ana"), "2024-06-03", "2024-06-10")
	env.store.IndexReady = func(string) bool { return false }

	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, x.ID, UpdateBookingRequest{
		AdditionalInfo: strPtr("towels"),
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied())
}

func TestUpdateBooking_ConflictLeavesBookingUnmodified(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	x := env.mustCreate(t, p, env.guest(t, "Ana"), "2024-06-01", "2024-06-03")
	env.mustCreate(t, p, env.guest(t, "Ben"), "2024-06-05", "2024-06-10")

	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, x.ID, UpdateBookingRequest{
		CheckOut:       strPtr("2024-06-07"),
		AdditionalInfo: strPtr("extend"),
	})
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.ReasonPropertyUnavailable, outcome.Rejected)

	stored, err := env.bookings.GetBooking(context.Background(), env.ownerID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", stored.CheckOut)
	assert.Empty(t, stored.AdditionalInfo)
	assert.Equal(t, x.Version, stored.Version)
}

func TestUpdateBooking_DoesNotConflictWithItself(t *testing.T) {
	env := newTestEnv(t)
	x := env.mustCreate(t, env.property(t, "Sea View", 100), env.guest(t, "Ana"), "2024-06-01", "2024-06-05")

	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, x.ID, UpdateBookingRequest{
		CheckIn:  strPtr("2024-06-02"),
		CheckOut: strPtr("2024-06-08"),
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	assert.Equal(t, 6, outcome.Booking.TotalNights)
	assert.Equal(t, 600.0, outcome.Booking.TotalAmount)
}

func TestUpdateBooking_DatesOfBookingWithDeletedReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")
	x := env.mustCreate(t, p, g, "2024-06-01", "2024-06-05")
	env.mustCreate(t, p, env.guest(t, "Ben"), "2024-06-10", "2024-06-12")

	require.NoError(t, env.guests.DeleteGuest(ctx, env.ownerID, g.ID()))
	require.NoError(t, env.props.DeleteProperty(ctx, env.ownerID, p.ID()))

	outcome, err := env.bookings.UpdateBooking(ctx, env.ownerID, x.ID, UpdateBookingRequest{
		CheckOut: strPtr("2024-06-07"),
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	assert.Equal(t, 6, outcome.Booking.TotalNights)
	assert.Equal(t, 600.0, outcome.Booking.TotalAmount)
	assert.Equal(t, "Ana", outcome.Booking.GuestName)
	assert.Equal(t, "Sea View", outcome.Booking.PropertyName)

	outcome, err = env.bookings.UpdateBooking(ctx, env.ownerID, x.ID, UpdateBookingRequest{
		CheckOut: strPtr("2024-06-11"),
	})
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.ReasonPropertyUnavailable, outcome.Rejected)
}

func TestUpdateBooking_MovingToDeletedGuestIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	x := env.mustCreate(t, env.property(t, "Sea View", 100), env.guest(t, "Ana"), "2024-06-01", "2024-06-05")
	ben := env.guest(t, "Ben")
	require.NoError(t, env.guests.DeleteGuest(ctx, env.ownerID, ben.ID()))

	benID := ben.ID()
	_, err := env.bookings.UpdateBooking(ctx, env.ownerID, x.ID, UpdateBookingRequest{GuestID: &benID})
	assert.True(t, domain.IsNotFound(err))
}

// countingTx records how often a transaction was opened.
type countingTx struct {
	bookingDomain.Transactor
	opened int
}

func (c *countingTx) WithinTx(ctx context.Context, lock bookingDomain.TxLock, fn func(ctx context.Context, repo bookingDomain.Repository) error) error {
	c.opened++
	return c.Transactor.WithinTx(ctx, lock, fn)
}

func TestCreateBooking_WaitsForIndexesBeforeLocking(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")

	tx := &countingTx{Transactor: env.store}
	checker := NewAvailabilityChecker(env.store.Bookings(), IndexRetryPolicy{Attempts: 2, Delay: time.Millisecond}, zap.NewNop())
	svc := NewBookingService(env.store.Bookings(), tx, env.store.Properties(), env.store.Guests(), checker,
		bookingDomain.NewNightlyPricingStrategy(), nil, nil, zap.NewNop())

	env.store.IndexReady = func(string) bool { return false }
	_, err := svc.CreateBooking(context.Background(), env.ownerID, CreateBookingRequest{
		GuestID: g.ID(), PropertyID: p.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-03",
	})
	assert.ErrorIs(t, err, store.ErrIndexNotReady)
	assert.Zero(t, tx.opened)

	env.store.IndexReady = nil
	outcome, err := svc.CreateBooking(context.Background(), env.ownerID, CreateBookingRequest{
		GuestID: g.ID(), PropertyID: p.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-03",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied())
	assert.Equal(t, 1, tx.opened)
}

func TestUpdateBooking_MissingBookingIsRejected(t *testing.T) {
	env := newTestEnv(t)

	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, uuid.New(), UpdateBookingRequest{
		AdditionalInfo: strPtr("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.ReasonNotFound, outcome.Rejected)
}

func TestUpdateBooking_MovingGuestSnapshotsNameAndInvalidatesBoth(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	ana := env.guest(t, "Ana")
	ben := env.guest(t, "Ben")
	x := env.mustCreate(t, p, ana, "2024-06-01", "2024-06-05")

	anaID, benID := ana.ID(), ben.ID()
	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, x.ID, UpdateBookingRequest{GuestID: &benID})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	assert.Equal(t, "Ben", outcome.Booking.GuestName)

	events := env.publisher.Events()
	require.Len(t, events, 2)
	evt, ok := events[1].Data.(bookingDomain.ChangedEvent)
	require.True(t, ok)
	assert.Equal(t, bookingDomain.EventUpdated, events[1].Type)
	require.NotNil(t, evt.PreviousGuestID)
	assert.Equal(t, anaID, *evt.PreviousGuestID)
	assert.ElementsMatch(t, []uuid.UUID{anaID, benID}, evt.AffectedGuests())
}

func TestUpdateBooking_ChangingPropertyRepricesAtItsDefault(t *testing.T) {
	env := newTestEnv(t)
	g := env.guest(t, "Ana")
	x := env.mustCreate(t, env.property(t, "Sea View", 100), g, "2024-06-01", "2024-06-05")
	hill := env.property(t, "Hill Top", 80)

	hillID := hill.ID()
	outcome, err := env.bookings.UpdateBooking(context.Background(), env.ownerID, x.ID, UpdateBookingRequest{PropertyID: &hillID})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	assert.Equal(t, "Hill Top", outcome.Booking.PropertyName)
	assert.Equal(t, 80.0, outcome.Booking.PricePerNight)
	assert.Equal(t, 320.0, outcome.Booking.TotalAmount)
}

func TestDeleteBooking_FreesTheDates(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	x := env.mustCreate(t, p, env.guest(t, "Ana"), "2024-06-01", "2024-06-05")

	require.NoError(t, env.bookings.DeleteBooking(context.Background(), env.ownerID, x.ID))
	assert.True(t, env.create(t, p, env.guest(t, "Ben"), "2024-06-02", "2024-06-04").Applied())

	err := env.bookings.DeleteBooking(context.Background(), env.ownerID, x.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestListBookings_FiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	sea := env.property(t, "Sea View", 100)
	hill := env.property(t, "Hill Top", 80)
	g := env.guest(t, "Ana")
	env.mustCreate(t, sea, g, "2024-06-01", "2024-06-03")
	env.mustCreate(t, hill, g, "2024-06-05", "2024-06-07")
	env.mustCreate(t, sea, g, "2024-07-01", "2024-07-03")

	seaID := sea.ID()
	page, err := env.bookings.ListBookings(context.Background(), env.ownerID, BookingFilter{PropertyID: &seaID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = env.bookings.ListBookings(context.Background(), env.ownerID, BookingFilter{From: "2024-06-02", To: "2024-06-30"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "2024-06-01", page.Items[0].CheckIn)
	assert.Equal(t, "2024-06-05", page.Items[1].CheckIn)

	page, err = env.bookings.ListBookings(context.Background(), env.ownerID, BookingFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2024-07-01", page.Items[0].CheckIn)

	_, err = env.bookings.ListBookings(context.Background(), env.ownerID, BookingFilter{From: "tomorrow"}, 1, 10)
	assert.True(t, domain.IsValidation(err))
}

func TestCalendar_ColoursByProperty(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	env.mustCreate(t, p, env.guest(t, "Ana"), "2024-06-28", "2024-07-02")
	env.mustCreate(t, p, env.guest(t, "Ben"), "2024-07-10", "2024-07-12")

	entries, err := env.bookings.Calendar(context.Background(), env.ownerID, "2024-06-01", "2024-07-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "#336699", entries[0].Color)
	assert.Equal(t, "Ana", entries[0].GuestName)
}

func TestCheckAvailability_PreviewsWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")
	x := env.mustCreate(t, p, g, "2024-06-03", "2024-06-10")

	res, err := env.bookings.CheckAvailability(context.Background(), env.ownerID, AvailabilityRequest{
		GuestID: env.guest(t, "Ben").ID(), PropertyID: p.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-05",
	})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, bookingDomain.ReasonPropertyUnavailable, res.Reason)
	assert.Equal(t, 4, res.Nights)
	assert.Equal(t, 400.0, res.TotalAmount)

	res, err = env.bookings.CheckAvailability(context.Background(), env.ownerID, AvailabilityRequest{
		GuestID: g.ID(), PropertyID: p.ID(), CheckIn: "2024-06-01", CheckOut: "2024-06-05", ExcludeBookingID: &x.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.Available)

	all, err := env.store.Bookings().FindByOwnerID(context.Background(), env.ownerID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
