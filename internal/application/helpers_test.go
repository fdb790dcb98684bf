package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/repository/memstore"
)

type recordedEvent struct {
	Type string
	Key  string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Key: key, Data: data})
	return nil
}

func (p *recordingPublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type testEnv struct {
	store     *memstore.Store
	ownerID   uuid.UUID
	publisher *recordingPublisher
	stays     *StayCache
	bookings  *BookingService
	guests    *GuestService
	props     *PropertyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := memstore.New()
	logger := zap.NewNop()
	publisher := &recordingPublisher{}
	stays := NewStayCache(100, time.Minute)
	t.Cleanup(stays.Stop)

	checker := NewAvailabilityChecker(s.Bookings(), IndexRetryPolicy{Attempts: 3, Delay: time.Millisecond}, logger)
	return &testEnv{
		store:     s,
		ownerID:   uuid.New(),
		publisher: publisher,
		stays:     stays,
		bookings: NewBookingService(s.Bookings(), s, s.Properties(), s.Guests(), checker,
			bookingDomain.NewNightlyPricingStrategy(), publisher, stays, logger),
		guests: NewGuestService(s.Guests(), s.Bookings(), stays, logger),
		props:  NewPropertyService(s.Properties(), s.Bookings(), logger),
	}
}

func (e *testEnv) property(t *testing.T, name string, amount float64) *propertyDomain.Property {
	t.Helper()
	p, err := propertyDomain.NewProperty(e.ownerID, propertyDomain.Details{Name: name, Color: "#336699"},
		[]propertyDomain.Price{{Name: "Standard", Amount: amount}})
	require.NoError(t, err)
	require.NoError(t, e.store.Properties().Save(context.Background(), p))
	return p
}

func (e *testEnv) guest(t *testing.T, name string) *guestDomain.Guest {
	t.Helper()
	g, err := guestDomain.NewGuest(e.ownerID, name, "", "")
	require.NoError(t, err)
	require.NoError(t, e.store.Guests().Save(context.Background(), g))
	return g
}

func (e *testEnv) create(t *testing.T, p *propertyDomain.Property, g *guestDomain.Guest, in, out string) Outcome {
	t.Helper()
	outcome, err := e.bookings.CreateBooking(context.Background(), e.ownerID, CreateBookingRequest{
		GuestID:    g.ID(),
		PropertyID: p.ID(),
		CheckIn:    in,
		CheckOut:   out,
	})
	require.NoError(t, err)
	return outcome
}

func (e *testEnv) mustCreate(t *testing.T, p *propertyDomain.Property, g *guestDomain.Guest, in, out string) *BookingDTO {
	t.Helper()
	outcome := e.create(t, p, g, in, out)
	require.True(t, outcome.Applied(), "unexpected rejection: %s", outcome.Rejected)
	return outcome.Booking
}

func strPtr(s string) *string { return &s }

func fixedNow(date string) func() time.Time {
	return func() time.Time {
		d, err := bookingDomain.ParseDate(date)
		if err != nil {
			panic(err)
		}
		return d.Add(10 * time.Hour)
	}
}
