package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostledger/service-rental/internal/common/domain"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
)

// PropertyModel is the GORM model for the properties table.
type PropertyModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Type        string          `gorm:"type:varchar(50)"`
	Location    string          `gorm:"type:varchar(300)"`
	Bedrooms    int             `gorm:"not null;default:0"`
	Bathrooms   int             `gorm:"not null;default:0"`
	MaxGuests   int             `gorm:"not null;default:0"`
	Prices      json.RawMessage `gorm:"type:jsonb;not null;default:'[]'"`
	Color       string          `gorm:"type:varchar(20)"`
	Description string          `gorm:"type:text"`
	Version     int64           `gorm:"not null;default:1"`
	CreatedAt   time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt   time.Time       `gorm:"type:timestamptz;not null"`
}

func (PropertyModel) TableName() string { return "properties" }

// GormPropertyRepository implements property.Repository using GORM.
type GormPropertyRepository struct {
	db *gorm.DB
}

func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

func (r *GormPropertyRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*propertyDomain.Property, error) {
	var model PropertyModel
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return toPropertyDomain(&model)
}

func (r *GormPropertyRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*propertyDomain.Property, error) {
	var models []PropertyModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	properties := make([]*propertyDomain.Property, 0, len(models))
	for i := range models {
		p, err := toPropertyDomain(&models[i])
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, nil
}

func (r *GormPropertyRepository) Save(ctx context.Context, p *propertyDomain.Property) error {
	model, err := toPropertyModel(p)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

func (r *GormPropertyRepository) Update(ctx context.Context, p *propertyDomain.Property) error {
	model, err := toPropertyModel(p)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&PropertyModel{}).
		Where("owner_id = ? AND id = ? AND version = ?", model.OwnerID, model.ID, p.Version()-1).
		Updates(map[string]interface{}{
			"name":        model.Name,
			"type":        model.Type,
			"location":    model.Location,
			"bedrooms":    model.Bedrooms,
			"bathrooms":   model.Bathrooms,
			"max_guests":  model.MaxGuests,
			"prices":      model.Prices,
			"color":       model.Color,
			"description": model.Description,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("property was modified by another request")
	}
	return nil
}

func (r *GormPropertyRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&PropertyModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Property", id.String())
	}
	return nil
}

func toPropertyDomain(m *PropertyModel) (*propertyDomain.Property, error) {
	var prices []propertyDomain.Price
	if len(m.Prices) > 0 {
		if err := json.Unmarshal(m.Prices, &prices); err != nil {
			return nil, fmt.Errorf("failed to decode prices of property %s: %w", m.ID, err)
		}
	}
	return propertyDomain.Reconstruct(
		m.ID, m.OwnerID,
		propertyDomain.Details{
			Name:        m.Name,
			Type:        m.Type,
			Location:    m.Location,
			Bedrooms:    m.Bedrooms,
			Bathrooms:   m.Bathrooms,
			MaxGuests:   m.MaxGuests,
			Color:       m.Color,
			Description: m.Description,
		},
		prices,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	), nil
}

func toPropertyModel(p *propertyDomain.Property) (*PropertyModel, error) {
	prices, err := json.Marshal(p.Prices())
	if err != nil {
		return nil, fmt.Errorf("failed to encode prices: %w", err)
	}
	d := p.Details()
	return &PropertyModel{
		ID:          p.ID(),
		OwnerID:     p.OwnerID(),
		Name:        d.Name,
		Type:        d.Type,
		Location:    d.Location,
		Bedrooms:    d.Bedrooms,
		Bathrooms:   d.Bathrooms,
		MaxGuests:   d.MaxGuests,
		Prices:      prices,
		Color:       d.Color,
		Description: d.Description,
		Version:     p.Version(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}, nil
}
