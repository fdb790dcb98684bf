package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/domain/guest"
	"github.com/hostledger/service-rental/internal/domain/property"
)

type priceDocument struct {
	ID        string  `bson:"id"`
	Name      string  `bson:"name"`
	Amount    float64 `bson:"amount"`
	IsDefault bool    `bson:"isDefault"`
}

type propertyDocument struct {
	ID          string          `bson:"_id"`
	OwnerID     string          `bson:"ownerId"`
	Name        string          `bson:"name"`
	Type        string          `bson:"type"`
	Location    string          `bson:"location"`
	Bedrooms    int             `bson:"bedrooms"`
	Bathrooms   int             `bson:"bathrooms"`
	MaxGuests   int             `bson:"maxGuests"`
	Prices      []priceDocument `bson:"prices"`
	Color       string          `bson:"color"`
	Description string          `bson:"description"`
	Version     int64           `bson:"version"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

type noteDocument struct {
	ID        string    `bson:"id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

type guestDocument struct {
	ID        string         `bson:"_id"`
	OwnerID   string         `bson:"ownerId"`
	Name      string         `bson:"name"`
	Email     string         `bson:"email"`
	Phone     string         `bson:"phone"`
	Notes     []noteDocument `bson:"notes"`
	Version   int64          `bson:"version"`
	CreatedAt time.Time      `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

type bookingDocument struct {
	ID             string    `bson:"_id"`
	OwnerID        string    `bson:"ownerId"`
	GuestID        string    `bson:"guestId"`
	GuestName      string    `bson:"guestName"`
	PropertyID     string    `bson:"propertyId"`
	PropertyName   string    `bson:"propertyName"`
	CheckIn        time.Time `bson:"checkIn"`
	CheckOut       time.Time `bson:"checkOut"`
	PriceID        string    `bson:"priceId,omitempty"`
	PricePerNight  float64   `bson:"pricePerNight"`
	TotalNights    int       `bson:"totalNights"`
	TotalAmount    float64   `bson:"totalAmount"`
	AdditionalInfo string    `bson:"additionalInfo"`
	Contract       string    `bson:"contract"`
	Version        int64     `bson:"version"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func toPropertyDocument(p *property.Property) propertyDocument {
	d := p.Details()
	prices := make([]priceDocument, 0, len(p.Prices()))
	for _, pr := range p.Prices() {
		prices = append(prices, priceDocument{ID: pr.ID.String(), Name: pr.Name, Amount: pr.Amount, IsDefault: pr.IsDefault})
	}
	return propertyDocument{
		ID:          p.ID().String(),
		OwnerID:     p.OwnerID().String(),
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
	}
}

func (d propertyDocument) toDomain() (*property.Property, error) {
	id, ownerID, err := parseIDs(d.ID, d.OwnerID)
	if err != nil {
		return nil, err
	}
	prices := make([]property.Price, 0, len(d.Prices))
	for _, pr := range d.Prices {
		priceID, err := uuid.Parse(pr.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid price id on property %s: %w", d.ID, err)
		}
		prices = append(prices, property.Price{ID: priceID, Name: pr.Name, Amount: pr.Amount, IsDefault: pr.IsDefault})
	}
	return property.Reconstruct(id, ownerID, property.Details{
		Name:        d.Name,
		Type:        d.Type,
		Location:    d.Location,
		Bedrooms:    d.Bedrooms,
		Bathrooms:   d.Bathrooms,
		MaxGuests:   d.MaxGuests,
		Color:       d.Color,
		Description: d.Description,
	}, prices, d.Version, d.CreatedAt.UTC(), d.UpdatedAt.UTC()), nil
}

func toGuestDocument(g *guest.Guest) guestDocument {
	notes := make([]noteDocument, 0, len(g.Notes()))
	for _, n := range g.Notes() {
		notes = append(notes, noteDocument{ID: n.ID.String(), Content: n.Content, CreatedAt: n.CreatedAt})
	}
	return guestDocument{
		ID:        g.ID().String(),
		OwnerID:   g.OwnerID().String(),
		Name:      g.Name(),
		Email:     g.Email(),
		Phone:     g.Phone(),
		Notes:     notes,
		Version:   g.Version(),
		CreatedAt: g.CreatedAt(),
		UpdatedAt: g.UpdatedAt(),
	}
}

func (d guestDocument) toDomain() (*guest.Guest, error) {
	id, ownerID, err := parseIDs(d.ID, d.OwnerID)
	if err != nil {
		return nil, err
	}
	notes := make([]guest.Note, 0, len(d.Notes))
	for _, n := range d.Notes {
		noteID, err := uuid.Parse(n.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid note id on guest %s: %w", d.ID, err)
		}
		notes = append(notes, guest.Note{ID: noteID, Content: n.Content, CreatedAt: n.CreatedAt.UTC()})
	}
	return guest.Reconstruct(id, ownerID, d.Name, d.Email, d.Phone, notes, d.Version, d.CreatedAt.UTC(), d.UpdatedAt.UTC()), nil
}

func toBookingDocument(b *booking.Booking) bookingDocument {
	s := b.Snapshot()
	doc := bookingDocument{
		ID:             s.ID.String(),
		OwnerID:        s.OwnerID.String(),
		GuestID:        s.GuestID.String(),
		GuestName:      s.GuestName,
		PropertyID:     s.PropertyID.String(),
		PropertyName:   s.PropertyName,
		CheckIn:        s.CheckIn,
		CheckOut:       s.CheckOut,
		PricePerNight:  s.PricePerNight,
		TotalNights:    s.TotalNights,
		TotalAmount:    s.TotalAmount,
		AdditionalInfo: s.AdditionalInfo,
		Contract:       s.Contract,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.PriceID != uuid.Nil {
		doc.PriceID = s.PriceID.String()
	}
	return doc
}

func (d bookingDocument) toDomain() (*booking.Booking, error) {
	id, ownerID, err := parseIDs(d.ID, d.OwnerID)
	if err != nil {
		return nil, err
	}
	guestID, err := uuid.Parse(d.GuestID)
	if err != nil {
		return nil, fmt.Errorf("invalid guest id on booking %s: %w", d.ID, err)
	}
	propertyID, err := uuid.Parse(d.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("invalid property id on booking %s: %w", d.ID, err)
	}
	var priceID uuid.UUID
	if d.PriceID != "" {
		if priceID, err = uuid.Parse(d.PriceID); err != nil {
			return nil, fmt.Errorf("invalid price id on booking %s: %w", d.ID, err)
		}
	}
	return booking.ReconstructBooking(booking.Snapshot{
		ID:             id,
		OwnerID:        ownerID,
		GuestID:        guestID,
		GuestName:      d.GuestName,
		PropertyID:     propertyID,
		PropertyName:   d.PropertyName,
		CheckIn:        d.CheckIn,
		CheckOut:       d.CheckOut,
		PriceID:        priceID,
		PricePerNight:  d.PricePerNight,
		TotalNights:    d.TotalNights,
		TotalAmount:    d.TotalAmount,
		AdditionalInfo: d.AdditionalInfo,
		Contract:       d.Contract,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}), nil
}

func parseIDs(id, ownerID string) (uuid.UUID, uuid.UUID, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid document id %q: %w", id, err)
	}
	parsedOwner, err := uuid.Parse(ownerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid owner id on %s: %w", id, err)
	}
	return parsedID, parsedOwner, nil
}
