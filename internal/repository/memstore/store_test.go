package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostledger/service-rental/internal/common/domain"
	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/domain/guest"
	"github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

type fixture struct {
	store    *Store
	ownerID  uuid.UUID
	property *property.Property
	guest    *guest.Guest
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := New()
	ownerID := uuid.New()

	p, err := property.NewProperty(ownerID, property.Details{Name: "Sea View"}, []property.Price{{Name: "Standard", Amount: 100}})
	require.NoError(t, err)
	require.NoError(t, s.Properties().Save(context.Background(), p))

	g, err := guest.NewGuest(ownerID, "Ana", "ana@example.com", "")
	require.NoError(t, err)
	require.NoError(t, s.Guests().Save(context.Background(), g))

	return fixture{store: s, ownerID: ownerID, property: p, guest: g}
}

func (f fixture) book(t *testing.T, in, out string) *booking.Booking {
	t.Helper()
	stay, err := booking.ParseDateRange(in, out)
	require.NoError(t, err)
	b, err := booking.NewBooking(f.ownerID,
		booking.PartyRef{ID: f.guest.ID(), Name: f.guest.Name()},
		booking.PartyRef{ID: f.property.ID(), Name: f.property.Name()},
		stay, booking.Rate{PricePerNight: 100}, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Bookings().Save(context.Background(), b))
	return b
}

func TestBookingRepository_FindOverlappingIsHalfOpen(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2024-06-03", "2024-06-10")
	repo := f.store.Bookings()

	tests := []struct {
		name    string
		in, out string
		want    int
	}{
		{"overlaps start", "2024-06-01", "2024-06-05", 1},
		{"inside", "2024-06-04", "2024-06-06", 1},
		{"ends at check-in", "2024-06-01", "2024-06-03", 0},
		{"starts at check-out", "2024-06-10", "2024-06-12", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stay, err := booking.ParseDateRange(tt.in, tt.out)
			require.NoError(t, err)
			got, err := repo.FindOverlapping(context.Background(), f.ownerID, booking.OverlapQuery{
				Scope: booking.ScopeProperty, RefID: f.property.ID(), Range: stay,
			})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestBookingRepository_OwnerScoped(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2024-06-03", "2024-06-10")

	_, err := f.store.Bookings().FindByID(context.Background(), uuid.New(), b.ID())
	assert.True(t, domain.IsNotFound(err))

	list, err := f.store.Bookings().FindByOwnerID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookingRepository_IndexNotReady(t *testing.T) {
	f := newFixture(t)
	f.store.IndexReady = func(index string) bool { return index != booking.IndexGuestStay }

	stay, err := booking.ParseDateRange("2024-06-01", "2024-06-02")
	require.NoError(t, err)

	_, err = f.store.Bookings().FindOverlapping(context.Background(), f.ownerID, booking.OverlapQuery{
		Scope: booking.ScopeProperty, RefID: f.property.ID(), Range: stay,
	})
	require.NoError(t, err)

	_, err = f.store.Bookings().FindOverlapping(context.Background(), f.ownerID, booking.OverlapQuery{
		Scope: booking.ScopeGuest, RefID: f.guest.ID(), Range: stay,
	})
	require.ErrorIs(t, err, store.ErrIndexNotReady)

	var notReady *store.IndexNotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, booking.IndexGuestStay, notReady.Index)
}

func TestBookingRepository_Filters(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2024-06-01", "2024-06-05")
	f.book(t, "2024-06-05", "2024-06-07")

	day, err := booking.ParseDate("2024-06-05")
	require.NoError(t, err)

	got, err := f.store.Bookings().FindByOwnerID(context.Background(), f.ownerID,
		store.Eq(store.FieldPropertyID, f.property.ID()),
		store.Lte(store.FieldCheckIn, day),
		store.Gt(store.FieldCheckOut, day),
	)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-05", booking.FormatDate(got[0].Stay().CheckIn))

	_, err = f.store.Bookings().FindByOwnerID(context.Background(), f.ownerID, store.Eq("color", "red"))
	assert.ErrorIs(t, err, store.ErrUnsupportedFilter)

	_, err = f.store.Bookings().FindByOwnerID(context.Background(), f.ownerID, store.Lt(store.FieldGuestID, f.guest.ID()))
	assert.ErrorIs(t, err, store.ErrUnsupportedFilter)
}

func TestBookingRepository_UpdateChecksVersion(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2024-06-01", "2024-06-05")

	stale, err := f.store.Bookings().FindByID(context.Background(), f.ownerID, b.ID())
	require.NoError(t, err)

	require.NoError(t, b.AttachContract("https://files/contract.pdf"))
	b.IncrementVersion()
	require.NoError(t, f.store.Bookings().Update(context.Background(), b))

	stale.IncrementVersion()
	err = f.store.Bookings().Update(context.Background(), stale)
	assert.True(t, domain.IsConflict(err))
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	lock := booking.TxLock{OwnerID: f.ownerID, PropertyID: f.property.ID(), GuestID: f.guest.ID()}
	boom := errors.New("boom")

	err := f.store.WithinTx(context.Background(), lock, func(ctx context.Context, repo booking.Repository) error {
		stay, err := booking.ParseDateRange("2024-06-01", "2024-06-05")
		require.NoError(t, err)
		b, err := booking.NewBooking(f.ownerID,
			booking.PartyRef{ID: f.guest.ID()}, booking.PartyRef{ID: f.property.ID()},
			stay, booking.Rate{}, "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, b))
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := f.store.Bookings().FindByOwnerID(context.Background(), f.ownerID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_WithinTxRequiresOwnedReferences(t *testing.T) {
	f := newFixture(t)
	lock := booking.TxLock{
		OwnerID:         f.ownerID,
		PropertyID:      uuid.New(),
		GuestID:         f.guest.ID(),
		RequireProperty: true,
		RequireGuest:    true,
	}

	called := false
	err := f.store.WithinTx(context.Background(), lock, func(ctx context.Context, repo booking.Repository) error {
		called = true
		return nil
	})
	assert.True(t, domain.IsNotFound(err))
	assert.False(t, called)
}

func TestStore_WithinTxLocksDeletedReferences(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Guests().Delete(context.Background(), f.ownerID, f.guest.ID()))
	lock := booking.TxLock{OwnerID: f.ownerID, PropertyID: f.property.ID(), GuestID: f.guest.ID()}

	called := false
	err := f.store.WithinTx(context.Background(), lock, func(ctx context.Context, repo booking.Repository) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestPropertyRepository_ReturnsCopies(t *testing.T) {
	f := newFixture(t)

	p, err := f.store.Properties().FindByID(context.Background(), f.ownerID, f.property.ID())
	require.NoError(t, err)
	require.NoError(t, p.Update(property.Details{Name: "Renamed"}, p.Prices()))

	again, err := f.store.Properties().FindByID(context.Background(), f.ownerID, f.property.ID())
	require.NoError(t, err)
	assert.Equal(t, "Sea View", again.Name())
}
