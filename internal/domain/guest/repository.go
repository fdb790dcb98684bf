package guest

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for guests.
type Repository interface {
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Guest, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*Guest, error)
	Save(ctx context.Context, g *Guest) error
	Update(ctx context.Context, g *Guest) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
