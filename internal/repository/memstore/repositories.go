package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/common/domain"
	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/domain/guest"
	"github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

// PropertyRepository implements property.Repository.
type PropertyRepository struct{ s *Store }

func (r *PropertyRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*property.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.ownedProperty(ownerID, id)
	if !ok {
		return nil, domain.NewNotFoundError("Property", id.String())
	}
	return copyProperty(p), nil
}

func (r *PropertyRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*property.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*property.Property, 0)
	for _, p := range r.s.properties {
		if p.OwnerID() == ownerID {
			out = append(out, copyProperty(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name()) < strings.ToLower(out[j].Name()) })
	return out, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.properties[p.ID()]; exists {
		return domain.NewConflictError("property already exists")
	}
	r.s.properties[p.ID()] = copyProperty(p)
	return nil
}

func (r *PropertyRepository) Update(ctx context.Context, p *property.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.ownedProperty(p.OwnerID(), p.ID())
	if !ok {
		return domain.NewNotFoundError("Property", p.ID().String())
	}
	if current.Version() != p.Version()-1 {
		return domain.NewConflictError("property was modified by another request")
	}
	r.s.properties[p.ID()] = copyProperty(p)
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ownedProperty(ownerID, id); !ok {
		return domain.NewNotFoundError("Property", id.String())
	}
	delete(r.s.properties, id)
	return nil
}

// GuestRepository implements guest.Repository.
type GuestRepository struct{ s *Store }

func (r *GuestRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*guest.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.ownedGuest(ownerID, id)
	if !ok {
		return nil, domain.NewNotFoundError("Guest", id.String())
	}
	return copyGuest(g), nil
}

func (r *GuestRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*guest.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*guest.Guest, 0)
	for _, g := range r.s.guests {
		if g.OwnerID() == ownerID {
			out = append(out, copyGuest(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name()) < strings.ToLower(out[j].Name()) })
	return out, nil
}

func (r *GuestRepository) Save(ctx context.Context, g *guest.Guest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.guests[g.ID()]; exists {
		return domain.NewConflictError("guest already exists")
	}
	r.s.guests[g.ID()] = copyGuest(g)
	return nil
}

func (r *GuestRepository) Update(ctx context.Context, g *guest.Guest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.ownedGuest(g.OwnerID(), g.ID())
	if !ok {
		return domain.NewNotFoundError("Guest", g.ID().String())
	}
	if current.Version() != g.Version()-1 {
		return domain.NewConflictError("guest was modified by another request")
	}
	r.s.guests[g.ID()] = copyGuest(g)
	return nil
}

func (r *GuestRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ownedGuest(ownerID, id); !ok {
		return domain.NewNotFoundError("Guest", id.String())
	}
	delete(r.s.guests, id)
	return nil
}

// BookingRepository implements booking.Repository. Outside a transaction
// writes take the store's transaction lock so they never interleave with one.
type BookingRepository struct {
	s    *Store
	inTx bool
}

func (r *BookingRepository) lockWrite() func() {
	if r.inTx {
		return func() {}
	}
	r.s.txMu.Lock()
	return r.s.txMu.Unlock
}

func (r *BookingRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	snap, ok := r.s.bookings[id]
	if !ok || snap.OwnerID != ownerID {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return booking.ReconstructBooking(snap), nil
}

func (r *BookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filters ...store.Filter) ([]*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*booking.Booking, 0)
	for _, snap := range r.s.bookings {
		if snap.OwnerID != ownerID {
			continue
		}
		ok, err := matchesAll(snap, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, booking.ReconstructBooking(snap))
		}
	}
	booking.SortByCheckIn(out)
	return out, nil
}

// IndexReady implements booking.IndexReporter.
func (r *BookingRepository) IndexReady(_ context.Context, index string) error {
	return r.s.indexReady(index)
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, ownerID uuid.UUID, q booking.OverlapQuery) ([]*booking.Booking, error) {
	if err := r.s.indexReady(q.Scope.Index()); err != nil {
		return nil, err
	}
	r.s.overlapQueries.Add(1)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*booking.Booking, 0)
	for _, snap := range r.s.bookings {
		if snap.OwnerID != ownerID {
			continue
		}
		ref := snap.PropertyID
		if q.Scope == booking.ScopeGuest {
			ref = snap.GuestID
		}
		if ref != q.RefID {
			continue
		}
		if snap.CheckOut.After(q.Range.CheckIn) && snap.CheckIn.Before(q.Range.CheckOut) {
			out = append(out, booking.ReconstructBooking(snap))
		}
	}
	booking.SortByCheckIn(out)
	return out, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	defer r.lockWrite()()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.bookings[b.ID()]; exists {
		return domain.NewConflictError("booking already exists")
	}
	r.s.bookings[b.ID()] = b.Snapshot()
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	defer r.lockWrite()()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.bookings[b.ID()]
	if !ok || current.OwnerID != b.OwnerID() || current.Version != b.Version()-1 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.s.bookings[b.ID()] = b.Snapshot()
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	defer r.lockWrite()()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snap, ok := r.s.bookings[id]
	if !ok || snap.OwnerID != ownerID {
		return domain.NewNotFoundError("Booking", id.String())
	}
	delete(r.s.bookings, id)
	return nil
}
