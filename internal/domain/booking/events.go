package booking

import (
	"time"

	"github.com/google/uuid"
)

// TopicBookingEvents is the topic (or routing-key prefix) booking events go to.
const TopicBookingEvents = "booking.events"

// Event types.
const (
	EventCreated          = "booking.created"
	EventUpdated          = "booking.updated"
	EventDeleted          = "booking.deleted"
	EventContractUploaded = "booking.contract_uploaded"
)

// ChangedEvent is the payload of every booking event. PreviousGuestID is set
// when an update moved the booking to another guest.
type ChangedEvent struct {
	BookingID       uuid.UUID  `json:"booking_id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	GuestID         uuid.UUID  `json:"guest_id"`
	PreviousGuestID *uuid.UUID `json:"previous_guest_id,omitempty"`
	PropertyID      uuid.UUID  `json:"property_id"`
	CheckIn         string     `json:"check_in"`
	CheckOut        string     `json:"check_out"`
	TotalAmount     float64    `json:"total_amount"`
	Contract        string     `json:"contract,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// NewChangedEvent builds the event payload for b.
func NewChangedEvent(b *Booking) ChangedEvent {
	return ChangedEvent{
		BookingID:   b.id,
		OwnerID:     b.ownerID,
		GuestID:     b.guest.ID,
		PropertyID:  b.property.ID,
		CheckIn:     FormatDate(b.stay.CheckIn),
		CheckOut:    FormatDate(b.stay.CheckOut),
		TotalAmount: b.totalAmount,
		Contract:    b.contract,
		OccurredAt:  time.Now().UTC(),
	}
}

// AffectedGuests lists every guest whose stay summary the event changes.
func (e ChangedEvent) AffectedGuests() []uuid.UUID {
	ids := []uuid.UUID{e.GuestID}
	if e.PreviousGuestID != nil && *e.PreviousGuestID != e.GuestID {
		ids = append(ids, *e.PreviousGuestID)
	}
	return ids
}
