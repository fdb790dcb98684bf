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
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
)

// GuestModel is the GORM model for the guests table.
type GuestModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Email     string          `gorm:"type:varchar(254)"`
	Phone     string          `gorm:"type:varchar(50)"`
	Notes     json.RawMessage `gorm:"type:jsonb;not null;default:'[]'"`
	Version   int64           `gorm:"not null;default:1"`
	CreatedAt time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time       `gorm:"type:timestamptz;not null"`
}

func (GuestModel) TableName() string { return "guests" }

// GormGuestRepository implements guest.Repository using GORM.
type GormGuestRepository struct {
	db *gorm.DB
}

func NewGormGuestRepository(db *gorm.DB) *GormGuestRepository {
	return &GormGuestRepository{db: db}
}

func (r *GormGuestRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*guestDomain.Guest, error) {
	var model GuestModel
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Guest", id.String())
		}
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	return toGuestDomain(&model)
}

func (r *GormGuestRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*guestDomain.Guest, error) {
	var models []GuestModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}

	guests := make([]*guestDomain.Guest, 0, len(models))
	for i := range models {
		g, err := toGuestDomain(&models[i])
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, nil
}

func (r *GormGuestRepository) Save(ctx context.Context, g *guestDomain.Guest) error {
	model, err := toGuestModel(g)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save guest: %w", err)
	}
	return nil
}

func (r *GormGuestRepository) Update(ctx context.Context, g *guestDomain.Guest) error {
	model, err := toGuestModel(g)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&GuestModel{}).
		Where("owner_id = ? AND id = ? AND version = ?", model.OwnerID, model.ID, g.Version()-1).
		Updates(map[string]interface{}{
			"name":       model.Name,
			"email":      model.Email,
			"phone":      model.Phone,
			"notes":      model.Notes,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update guest: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("guest was modified by another request")
	}
	return nil
}

func (r *GormGuestRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&GuestModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete guest: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Guest", id.String())
	}
	return nil
}

func toGuestDomain(m *GuestModel) (*guestDomain.Guest, error) {
	var notes []guestDomain.Note
	if len(m.Notes) > 0 {
		if err := json.Unmarshal(m.Notes, &notes); err != nil {
			return nil, fmt.Errorf("failed to decode notes of guest %s: %w", m.ID, err)
		}
	}
	return guestDomain.Reconstruct(
		m.ID, m.OwnerID,
		m.Name, m.Email, m.Phone,
		notes,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	), nil
}

func toGuestModel(g *guestDomain.Guest) (*GuestModel, error) {
	notes, err := json.Marshal(g.Notes())
	if err != nil {
		return nil, fmt.Errorf("failed to encode notes: %w", err)
	}
	return &GuestModel{
		ID:        g.ID(),
		OwnerID:   g.OwnerID(),
		Name:      g.Name(),
		Email:     g.Email(),
		Phone:     g.Phone(),
		Notes:     notes,
		Version:   g.Version(),
		CreatedAt: g.CreatedAt(),
		UpdatedAt: g.UpdatedAt(),
	}, nil
}
