package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

// PropertyRequest is the request DTO for creating or replacing a property.
type PropertyRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Type        string                 `json:"type"`
	Location    string                 `json:"location"`
	Bedrooms    int                    `json:"bedrooms" binding:"gte=0"`
	Bathrooms   int                    `json:"bathrooms" binding:"gte=0"`
	MaxGuests   int                    `json:"max_guests" binding:"gte=0"`
	Prices      []propertyDomain.Price `json:"prices"`
	Color       string                 `json:"color"`
	Description string                 `json:"description"`
}

func (r PropertyRequest) details() propertyDomain.Details {
	return propertyDomain.Details{
		Name:        r.Name,
		Type:        r.Type,
		Location:    r.Location,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		MaxGuests:   r.MaxGuests,
		Color:       r.Color,
		Description: r.Description,
	}
}

// PropertyDTO is the API response representation of a property.
// AssignedGuests counts the guests in residence today.
type PropertyDTO struct {
	ID             uuid.UUID              `json:"id"`
	OwnerID        uuid.UUID              `json:"owner_id"`
	Name           string                 `json:"name"`
	Type           string                 `json:"type,omitempty"`
	Location       string                 `json:"location,omitempty"`
	Bedrooms       int                    `json:"bedrooms"`
	Bathrooms      int                    `json:"bathrooms"`
	MaxGuests      int                    `json:"max_guests"`
	Prices         []propertyDomain.Price `json:"prices"`
	Color          string                 `json:"color,omitempty"`
	Description    string                 `json:"description,omitempty"`
	AssignedGuests int                    `json:"assigned_guests"`
	Version        int64                  `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// PropertyService implements use cases for property management.
type PropertyService struct {
	repo     propertyDomain.Repository
	bookings bookingDomain.Repository
	logger   *zap.Logger
	now      func() time.Time
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(repo propertyDomain.Repository, bookings bookingDomain.Repository, logger *zap.Logger) *PropertyService {
	return &PropertyService{repo: repo, bookings: bookings, logger: logger, now: time.Now}
}

// CreateProperty creates a new property for the given owner.
func (s *PropertyService) CreateProperty(ctx context.Context, ownerID uuid.UUID, req PropertyRequest) (*PropertyDTO, error) {
	p, err := propertyDomain.NewProperty(ownerID, req.details(), req.Prices)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("failed to create property", zap.Error(err))
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.logger.Info("property created",
		zap.String("property_id", p.ID().String()),
		zap.String("owner_id", ownerID.String()),
	)
	result := toPropertyDTO(p, 0)
	return &result, nil
}

// ListProperties returns the owner's properties with today's occupancy.
func (s *PropertyService) ListProperties(ctx context.Context, ownerID uuid.UUID) ([]PropertyDTO, error) {
	properties, err := s.repo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	today := s.now()
	dtos := make([]PropertyDTO, len(properties))
	for i, p := range properties {
		dtos[i] = toPropertyDTO(p, s.CountCurrentGuests(ctx, ownerID, p.ID(), today))
	}
	return dtos, nil
}

// GetProperty returns a single property with today's occupancy.
func (s *PropertyService) GetProperty(ctx context.Context, ownerID, propertyID uuid.UUID) (*PropertyDTO, error) {
	p, err := s.repo.FindByID(ctx, ownerID, propertyID)
	if err != nil {
		return nil, err
	}
	result := toPropertyDTO(p, s.CountCurrentGuests(ctx, ownerID, p.ID(), s.now()))
	return &result, nil
}

// UpdateProperty replaces a property's details and prices. Existing
// bookings keep the name and rate they were made with.
func (s *PropertyService) UpdateProperty(ctx context.Context, ownerID, propertyID uuid.UUID, req PropertyRequest) (*PropertyDTO, error) {
	p, err := s.repo.FindByID(ctx, ownerID, propertyID)
	if err != nil {
		return nil, err
	}
	if err := p.Update(req.details(), req.Prices); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("property updated", zap.String("property_id", propertyID.String()))
	result := toPropertyDTO(p, s.CountCurrentGuests(ctx, ownerID, p.ID(), s.now()))
	return &result, nil
}

// DeleteProperty removes a property. Its bookings are kept.
func (s *PropertyService) DeleteProperty(ctx context.Context, ownerID, propertyID uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, propertyID); err != nil {
		return err
	}
	s.logger.Info("property deleted", zap.String("property_id", propertyID.String()))
	return nil
}

// CountCurrentGuests counts bookings of the property with
// checkIn <= asOf < checkOut, taken at day granularity. It is a display
// figure: failures are logged and reported as 0.
func (s *PropertyService) CountCurrentGuests(ctx context.Context, ownerID, propertyID uuid.UUID, asOf time.Time) int {
	day := bookingDomain.StartOfDay(asOf)
	bookings, err := s.bookings.FindByOwnerID(ctx, ownerID,
		store.Eq(store.FieldPropertyID, propertyID),
		store.Lte(store.FieldCheckIn, day),
		store.Gt(store.FieldCheckOut, day),
	)
	if err != nil {
		s.logger.Warn("failed to count current guests",
			zap.String("property_id", propertyID.String()),
			zap.Error(err),
		)
		return 0
	}
	return len(bookings)
}

func toPropertyDTO(p *propertyDomain.Property, assignedGuests int) PropertyDTO {
	d := p.Details()
	return PropertyDTO{
		ID:             p.ID(),
		OwnerID:        p.OwnerID(),
		Name:           d.Name,
		Type:           d.Type,
		Location:       d.Location,
		Bedrooms:       d.Bedrooms,
		Bathrooms:      d.Bathrooms,
		MaxGuests:      d.MaxGuests,
		Prices:         p.Prices(),
		Color:          d.Color,
		Description:    d.Description,
		AssignedGuests: assignedGuests,
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
}
