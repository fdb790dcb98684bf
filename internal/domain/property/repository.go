package property

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for properties. Every lookup
// is scoped to the owning user.
type Repository interface {
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Property, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*Property, error)
	Save(ctx context.Context, p *Property) error
	// Update persists changes with optimistic locking on the version.
	Update(ctx context.Context, p *Property) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
