package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/common/domain"
)

// PartyRef is a reference to a guest or property plus the display name
// snapshotted onto the booking.
type PartyRef struct {
	ID   uuid.UUID
	Name string
}

// Rate is the property price a booking was made at.
type Rate struct {
	PriceID       uuid.UUID
	PricePerNight float64
}

// Booking is the aggregate root for a guest's stay at a property.
type Booking struct {
	id             uuid.UUID
	ownerID        uuid.UUID
	guest          PartyRef
	property       PartyRef
	stay           DateRange
	rate           Rate
	totalNights    int
	totalAmount    float64
	additionalInfo string
	contract       string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a priced booking. Availability is the caller's concern.
func NewBooking(
	ownerID uuid.UUID,
	guest PartyRef,
	property PartyRef,
	stay DateRange,
	rate Rate,
	additionalInfo string,
	pricing PricingStrategy,
) (*Booking, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if guest.ID == uuid.Nil {
		return nil, domain.NewValidationError("guest is required")
	}
	if property.ID == uuid.Nil {
		return nil, domain.NewValidationError("property is required")
	}
	if !stay.CheckOut.After(stay.CheckIn) {
		return nil, domain.NewValidationError("check-out must be after check-in")
	}
	if rate.PricePerNight < 0 {
		return nil, domain.NewValidationError("price per night cannot be negative")
	}

	now := time.Now().UTC()
	b := &Booking{
		id:             uuid.New(),
		ownerID:        ownerID,
		guest:          guest,
		property:       property,
		stay:           stay,
		rate:           rate,
		additionalInfo: strings.TrimSpace(additionalInfo),
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}
	b.reprice(pricing)
	return b, nil
}

// Snapshot is the flat persistence form of a Booking.
type Snapshot struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	GuestID        uuid.UUID
	GuestName      string
	PropertyID     uuid.UUID
	PropertyName   string
	CheckIn        time.Time
	CheckOut       time.Time
	PriceID        uuid.UUID
	PricePerNight  float64
	TotalNights    int
	TotalAmount    float64
	AdditionalInfo string
	Contract       string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(s Snapshot) *Booking {
	return &Booking{
		id:             s.ID,
		ownerID:        s.OwnerID,
		guest:          PartyRef{ID: s.GuestID, Name: s.GuestName},
		property:       PartyRef{ID: s.PropertyID, Name: s.PropertyName},
		stay:           DateRange{CheckIn: s.CheckIn.UTC(), CheckOut: s.CheckOut.UTC()},
		rate:           Rate{PriceID: s.PriceID, PricePerNight: s.PricePerNight},
		totalNights:    s.TotalNights,
		totalAmount:    s.TotalAmount,
		additionalInfo: s.AdditionalInfo,
		contract:       s.Contract,
		version:        s.Version,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}
}

// Snapshot flattens the booking for persistence.
func (b *Booking) Snapshot() Snapshot {
	return Snapshot{
		ID:             b.id,
		OwnerID:        b.ownerID,
		GuestID:        b.guest.ID,
		GuestName:      b.guest.Name,
		PropertyID:     b.property.ID,
		PropertyName:   b.property.Name,
		CheckIn:        b.stay.CheckIn,
		CheckOut:       b.stay.CheckOut,
		PriceID:        b.rate.PriceID,
		PricePerNight:  b.rate.PricePerNight,
		TotalNights:    b.totalNights,
		TotalAmount:    b.totalAmount,
		AdditionalInfo: b.additionalInfo,
		Contract:       b.contract,
		Version:        b.version,
		CreatedAt:      b.createdAt,
		UpdatedAt:      b.updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// OwnerID returns the account the booking belongs to.
func (b *Booking) OwnerID() uuid.UUID { return b.ownerID }

// Guest returns the guest reference with the name captured at booking time.
func (b *Booking) Guest() PartyRef { return b.guest }

// Property returns the property reference with the name captured at booking time.
func (b *Booking) Property() PartyRef { return b.property }

// Stay returns the booked range.
func (b *Booking) Stay() DateRange { return b.stay }

// Rate returns the price the booking was made at.
func (b *Booking) Rate() Rate { return b.rate }

// TotalNights returns the derived night count.
func (b *Booking) TotalNights() int { return b.totalNights }

// TotalAmount returns TotalNights × PricePerNight.
func (b *Booking) TotalAmount() float64 { return b.totalAmount }

// AdditionalInfo returns the free-text remarks.
func (b *Booking) AdditionalInfo() string { return b.additionalInfo }

// Contract returns the URL of the uploaded contract, or "".
func (b *Booking) Contract() string { return b.contract }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Guest          *PartyRef
	Property       *PartyRef
	Stay           *DateRange
	Rate           *Rate
	AdditionalInfo *string
}

// AffectsAvailability reports whether applying c would move the booking to a
// different guest, property or date range.
func (b *Booking) AffectsAvailability(c Changes) bool {
	if c.Guest != nil && c.Guest.ID != b.guest.ID {
		return true
	}
	if c.Property != nil && c.Property.ID != b.property.ID {
		return true
	}
	if c.Stay != nil && !c.Stay.Equal(b.stay) {
		return true
	}
	return false
}

// Candidate returns the guest, property and range the booking would have after c.
func (b *Booking) Candidate(c Changes) (guestID, propertyID uuid.UUID, stay DateRange) {
	guestID, propertyID, stay = b.guest.ID, b.property.ID, b.stay
	if c.Guest != nil {
		guestID = c.Guest.ID
	}
	if c.Property != nil {
		propertyID = c.Property.ID
	}
	if c.Stay != nil {
		stay = *c.Stay
	}
	return guestID, propertyID, stay
}

// Apply validates and applies c, re-deriving totals when the range or rate changed.
func (b *Booking) Apply(c Changes, pricing PricingStrategy) error {
	if c.Stay != nil && !c.Stay.CheckOut.After(c.Stay.CheckIn) {
		return domain.NewValidationError("check-out must be after check-in")
	}
	if c.Rate != nil && c.Rate.PricePerNight < 0 {
		return domain.NewValidationError("price per night cannot be negative")
	}
	if c.Guest != nil && c.Guest.ID == uuid.Nil {
		return domain.NewValidationError("guest is required")
	}
	if c.Property != nil && c.Property.ID == uuid.Nil {
		return domain.NewValidationError("property is required")
	}

	if c.Guest != nil && c.Guest.ID != b.guest.ID {
		b.guest = *c.Guest
	}
	if c.Property != nil && c.Property.ID != b.property.ID {
		b.property = *c.Property
	}
	if c.Stay != nil {
		b.stay = *c.Stay
	}
	if c.Rate != nil {
		b.rate = *c.Rate
	}
	if c.AdditionalInfo != nil {
		b.additionalInfo = strings.TrimSpace(*c.AdditionalInfo)
	}
	if c.Stay != nil || c.Rate != nil {
		b.reprice(pricing)
	}
	b.updatedAt = time.Now().UTC()
	return nil
}

// AttachContract records the URL of an uploaded contract document.
func (b *Booking) AttachContract(url string) error {
	if strings.TrimSpace(url) == "" {
		return domain.NewValidationError("contract URL is required")
	}
	b.contract = url
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

func (b *Booking) reprice(pricing PricingStrategy) {
	if pricing == nil {
		pricing = NightlyPricingStrategy{}
	}
	stay := pricing.Price(b.stay, b.rate.PricePerNight)
	b.totalNights = b.stay.Nights()
	b.totalAmount = stay.TotalAmount
}
