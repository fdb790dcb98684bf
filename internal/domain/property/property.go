package property

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/common/domain"
)

// Price is a named nightly rate. At most one price of a property is the default.
type Price struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	IsDefault bool      `json:"is_default"`
}

// Details are the descriptive, freely editable attributes of a property.
type Details struct {
	Name        string
	Type        string
	Location    string
	Bedrooms    int
	Bathrooms   int
	MaxGuests   int
	Color       string
	Description string
}

// Property is the aggregate root for a rentable unit.
type Property struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	details   Details
	prices    []Price
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewProperty validates details and prices and returns a new Property.
func NewProperty(ownerID uuid.UUID, details Details, prices []Price) (*Property, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	details, err := normalizeDetails(details)
	if err != nil {
		return nil, err
	}
	prices, err = normalizePrices(prices)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Property{
		id:        uuid.New(),
		ownerID:   ownerID,
		details:   details,
		prices:    prices,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Property from persistence data (no validation).
func Reconstruct(
	id, ownerID uuid.UUID,
	details Details,
	prices []Price,
	version int64,
	createdAt, updatedAt time.Time,
) *Property {
	return &Property{
		id:        id,
		ownerID:   ownerID,
		details:   details,
		prices:    prices,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (p *Property) ID() uuid.UUID        { return p.id }
func (p *Property) OwnerID() uuid.UUID   { return p.ownerID }
func (p *Property) Details() Details     { return p.details }
func (p *Property) Name() string         { return p.details.Name }
func (p *Property) Color() string        { return p.details.Color }
func (p *Property) Version() int64       { return p.version }
func (p *Property) CreatedAt() time.Time { return p.createdAt }
func (p *Property) UpdatedAt() time.Time { return p.updatedAt }

// Prices returns a copy of the price list.
func (p *Property) Prices() []Price {
	out := make([]Price, len(p.prices))
	copy(out, p.prices)
	return out
}

// IsOwnedBy checks if the property belongs to the given owner.
func (p *Property) IsOwnedBy(ownerID uuid.UUID) bool {
	return p.ownerID == ownerID
}

// DefaultPrice returns the price flagged as default.
func (p *Property) DefaultPrice() (Price, bool) {
	for _, pr := range p.prices {
		if pr.IsDefault {
			return pr, true
		}
	}
	return Price{}, false
}

// PriceByID looks up one of the property's prices.
func (p *Property) PriceByID(id uuid.UUID) (Price, bool) {
	for _, pr := range p.prices {
		if pr.ID == id {
			return pr, true
		}
	}
	return Price{}, false
}

// SelectPrice returns the price with priceID, or the default price when priceID is nil.
func (p *Property) SelectPrice(priceID *uuid.UUID) (Price, error) {
	if priceID != nil && *priceID != uuid.Nil {
		pr, ok := p.PriceByID(*priceID)
		if !ok {
			return Price{}, domain.NewValidationError(fmt.Sprintf("price %s does not belong to property %s", *priceID, p.id))
		}
		return pr, nil
	}
	pr, ok := p.DefaultPrice()
	if !ok {
		return Price{}, domain.NewValidationError(fmt.Sprintf("property %s has no price configured", p.details.Name))
	}
	return pr, nil
}

// Update replaces details and prices.
func (p *Property) Update(details Details, prices []Price) error {
	details, err := normalizeDetails(details)
	if err != nil {
		return err
	}
	prices, err = normalizePrices(prices)
	if err != nil {
		return err
	}
	p.details = details
	p.prices = prices
	p.version++
	p.updatedAt = time.Now().UTC()
	return nil
}

func normalizeDetails(d Details) (Details, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return Details{}, domain.NewValidationError("property name is required")
	}
	if d.Bedrooms < 0 || d.Bathrooms < 0 || d.MaxGuests < 0 {
		return Details{}, domain.NewValidationError("room and guest counts cannot be negative")
	}
	return d, nil
}

// normalizePrices assigns missing IDs and enforces a single default,
// promoting the first price when none is flagged.
func normalizePrices(prices []Price) ([]Price, error) {
	out := make([]Price, 0, len(prices))
	defaults := 0
	for _, pr := range prices {
		pr.Name = strings.TrimSpace(pr.Name)
		if pr.Name == "" {
			return nil, domain.NewValidationError("price name is required")
		}
		if pr.Amount < 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("price %q cannot be negative", pr.Name))
		}
		if pr.ID == uuid.Nil {
			pr.ID = uuid.New()
		}
		if pr.IsDefault {
			defaults++
		}
		out = append(out, pr)
	}
	if defaults > 1 {
		return nil, domain.NewValidationError("only one price can be the default")
	}
	if defaults == 0 && len(out) > 0 {
		out[0].IsDefault = true
	}
	return out, nil
}
