package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/store"
)

// Repository defines the persistence contract for booking aggregates.
type Repository interface {
	// FindByID retrieves one of the owner's bookings.
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Booking, error)

	// FindByOwnerID returns the owner's bookings matching every filter,
	// ordered by check-in. Filter fields use the store.Field* names.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filters ...store.Filter) ([]*Booking, error)

	// FindOverlapping runs an overlap query through the scope's composite
	// index. It fails with *store.IndexNotReadyError while the index cannot serve it.
	FindOverlapping(ctx context.Context, ownerID uuid.UUID, q OverlapQuery) ([]*Booking, error)

	// Save persists a new booking.
	Save(ctx context.Context, b *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, b *Booking) error

	// Delete removes one of the owner's bookings.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// IndexReporter is implemented by repositories that can tell whether an
// overlap index is ready without running the query. IndexReady fails with
// *store.IndexNotReadyError while it is not.
type IndexReporter interface {
	IndexReady(ctx context.Context, index string) error
}

// TxLock names the references a transaction serializes on. Locks do not
// need the referenced record to exist. RequireProperty and RequireGuest
// additionally fail the transaction with a not-found error when the
// reference is gone, for references the write newly points at.
type TxLock struct {
	OwnerID         uuid.UUID
	PropertyID      uuid.UUID
	GuestID         uuid.UUID
	RequireProperty bool
	RequireGuest    bool
}

// Transactor runs fn in a store transaction in which no other transaction
// holding the same property or guest lock can interleave. fn may be invoked
// more than once when the store asks for a retry.
type Transactor interface {
	WithinTx(ctx context.Context, lock TxLock, fn func(ctx context.Context, repo Repository) error) error
}
