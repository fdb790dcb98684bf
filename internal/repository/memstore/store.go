// Package memstore is an in-process record store used in development and
// tests. It keeps the same owner scoping, optimistic locking and index
// readiness semantics as the database backends.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/common/domain"
	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/domain/guest"
	"github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

// Store holds every collection. The zero value is not usable; call New.
type Store struct {
	mu         sync.RWMutex
	properties map[uuid.UUID]*property.Property
	guests     map[uuid.UUID]*guest.Guest
	bookings   map[uuid.UUID]booking.Snapshot

	// txMu serializes booking transactions and standalone booking writes.
	txMu sync.Mutex

	// IndexReady reports whether a composite index can serve queries.
	// Nil means every index is ready.
	IndexReady func(index string) bool

	overlapQueries atomic.Int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		properties: make(map[uuid.UUID]*property.Property),
		guests:     make(map[uuid.UUID]*guest.Guest),
		bookings:   make(map[uuid.UUID]booking.Snapshot),
	}
}

// OverlapQueries returns how many overlap queries have been served.
func (s *Store) OverlapQueries() int64 {
	return s.overlapQueries.Load()
}

// Properties returns a property.Repository over the store.
func (s *Store) Properties() *PropertyRepository { return &PropertyRepository{s: s} }

// Guests returns a guest.Repository over the store.
func (s *Store) Guests() *GuestRepository { return &GuestRepository{s: s} }

// Bookings returns a booking.Repository over the store.
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

// WithinTx implements booking.Transactor. Writes made by fn are discarded
// when it returns an error.
func (s *Store) WithinTx(ctx context.Context, lock booking.TxLock, fn func(ctx context.Context, repo booking.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	_, propertyOK := s.ownedProperty(lock.OwnerID, lock.PropertyID)
	_, guestOK := s.ownedGuest(lock.OwnerID, lock.GuestID)
	saved := make(map[uuid.UUID]booking.Snapshot, len(s.bookings))
	for id, b := range s.bookings {
		saved[id] = b
	}
	s.mu.RUnlock()

	if lock.RequireProperty && lock.PropertyID != uuid.Nil && !propertyOK {
		return domain.NewNotFoundError("Property", lock.PropertyID.String())
	}
	if lock.RequireGuest && lock.GuestID != uuid.Nil && !guestOK {
		return domain.NewNotFoundError("Guest", lock.GuestID.String())
	}

	if err := fn(ctx, &BookingRepository{s: s, inTx: true}); err != nil {
		s.mu.Lock()
		s.bookings = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) ownedProperty(ownerID, id uuid.UUID) (*property.Property, bool) {
	p, ok := s.properties[id]
	if !ok || p.OwnerID() != ownerID {
		return nil, false
	}
	return p, true
}

func (s *Store) ownedGuest(ownerID, id uuid.UUID) (*guest.Guest, bool) {
	g, ok := s.guests[id]
	if !ok || g.OwnerID() != ownerID {
		return nil, false
	}
	return g, true
}

func (s *Store) indexReady(index string) error {
	if s.IndexReady == nil || s.IndexReady(index) {
		return nil
	}
	return &store.IndexNotReadyError{Index: index, Reference: "in-memory index " + index + " is disabled"}
}

func copyProperty(p *property.Property) *property.Property {
	return property.Reconstruct(p.ID(), p.OwnerID(), p.Details(), p.Prices(), p.Version(), p.CreatedAt(), p.UpdatedAt())
}

func copyGuest(g *guest.Guest) *guest.Guest {
	return guest.Reconstruct(g.ID(), g.OwnerID(), g.Name(), g.Email(), g.Phone(), g.Notes(), g.Version(), g.CreatedAt(), g.UpdatedAt())
}
