package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostledger/service-rental/internal/common/domain"
)

func TestEnrichGuest_LastStayIsLatestCheckOut(t *testing.T) {
	env := newTestEnv(t)
	env.guests.now = fixedNow("2024-02-01")
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")
	env.mustCreate(t, p, g, "2024-02-20", "2024-03-01")
	env.mustCreate(t, p, g, "2024-01-05", "2024-01-10")

	dto, err := env.guests.GetGuest(context.Background(), env.ownerID, g.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, dto.TotalStays)
	require.NotNil(t, dto.LastStay)
	assert.Equal(t, "2024-03-01", *dto.LastStay)
	require.NotNil(t, dto.UpcomingStay)
	assert.Equal(t, "2024-02-20", *dto.UpcomingStay)
}

func TestEnrichGuest_NoBookings(t *testing.T) {
	env := newTestEnv(t)

	dto, err := env.guests.CreateGuest(context.Background(), env.ownerID, CreateGuestRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Zero(t, dto.TotalStays)
	assert.Nil(t, dto.LastStay)
	assert.Nil(t, dto.UpcomingStay)
}

func TestEnrichGuest_BookingWritesInvalidateCachedStays(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t, "Sea View", 100)
	g := env.guest(t, "Ana")
	ctx := context.Background()

	dto, err := env.guests.GetGuest(ctx, env.ownerID, g.ID())
	require.NoError(t, err)
	assert.Zero(t, dto.TotalStays)

	b := env.mustCreate(t, p, g, "2024-06-01", "2024-06-05")
	dto, err = env.guests.GetGuest(ctx, env.ownerID, g.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, dto.TotalStays)

	outcome, err := env.bookings.UpdateBooking(ctx, env.ownerID, b.ID, UpdateBookingRequest{CheckOut: strPtr("2024-06-08")})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	dto, err = env.guests.GetGuest(ctx, env.ownerID, g.ID())
	require.NoError(t, err)
	assert.Equal(t, "2024-06-08", *dto.LastStay)

	require.NoError(t, env.bookings.DeleteBooking(ctx, env.ownerID, b.ID))
	dto, err = env.guests.GetGuest(ctx, env.ownerID, g.ID())
	require.NoError(t, err)
	assert.Zero(t, dto.TotalStays)
	assert.Nil(t, dto.LastStay)
}

func TestGuestService_UpdateKeepsBookingSnapshots(t *testing.T) {
	env := newTestEnv(t)
	g := env.guest(t, "Ana")
	b := env.mustCreate(t, env.property(t, "Sea View", 100), g, "2024-06-01", "2024-06-05")
	ctx := context.Background()

	dto, err := env.guests.UpdateGuest(ctx, env.ownerID, g.ID(), UpdateGuestRequest{Name: "Ana Maria"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", dto.Name)
	assert.Equal(t, int64(2), dto.Version)

	stored, err := env.bookings.GetBooking(ctx, env.ownerID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.GuestName)
}

func TestGuestService_NotesAndHistory(t *testing.T) {
	env := newTestEnv(t)
	g := env.guest(t, "Ana")
	p := env.property(t, "Sea View", 100)
	env.mustCreate(t, p, g, "2024-08-01", "2024-08-03")
	env.mustCreate(t, p, g, "2024-05-01", "2024-05-03")
	ctx := context.Background()

	note, err := env.guests.AddGuestNote(ctx, env.ownerID, g.ID(), AddNoteRequest{Content: "prefers top floor"})
	require.NoError(t, err)
	assert.Equal(t, "prefers top floor", note.Content)

	dto, err := env.guests.GetGuest(ctx, env.ownerID, g.ID())
	require.NoError(t, err)
	require.Len(t, dto.Notes, 1)

	history, err := env.guests.GuestHistory(ctx, env.ownerID, g.ID())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-05-01", history[0].CheckIn)

	_, err = env.guests.GuestHistory(ctx, env.ownerID, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestGuestService_DeleteKeepsBookings(t *testing.T) {
	env := newTestEnv(t)
	g := env.guest(t, "Ana")
	b := env.mustCreate(t, env.property(t, "Sea View", 100), g, "2024-06-01", "2024-06-05")
	ctx := context.Background()

	require.NoError(t, env.guests.DeleteGuest(ctx, env.ownerID, g.ID()))
	_, err := env.guests.GetGuest(ctx, env.ownerID, g.ID())
	assert.True(t, domain.IsNotFound(err))

	_, err = env.bookings.GetBooking(ctx, env.ownerID, b.ID)
	assert.NoError(t, err)
}
