package booking

import "github.com/google/uuid"

// Reason explains why a booking write was not applied.
type Reason string

const (
	ReasonPropertyUnavailable Reason = "property not available for selected dates"
	ReasonGuestUnavailable    Reason = "guest already has a booking in that period"
	ReasonNotFound            Reason = "booking not found"
)

// Availability is the result of checking a candidate stay.
type Availability struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`
}

// Available returns a positive Availability.
func Available() Availability { return Availability{Available: true} }

// Unavailable returns a negative Availability with reason.
func Unavailable(reason Reason) Availability {
	return Availability{Available: false, Reason: reason}
}

// OverlapScope selects which reference an overlap query is keyed on.
type OverlapScope string

const (
	ScopeProperty OverlapScope = "property"
	ScopeGuest    OverlapScope = "guest"
)

// Composite indexes backing the overlap queries.
const (
	IndexPropertyStay = "idx_bookings_property_stay"
	IndexGuestStay    = "idx_bookings_guest_stay"
)

// Index returns the composite index that serves the scope.
func (s OverlapScope) Index() string {
	if s == ScopeGuest {
		return IndexGuestStay
	}
	return IndexPropertyStay
}

// OverlapQuery finds bookings keyed on RefID whose range intersects Range:
// existing.checkOut > Range.CheckIn AND existing.checkIn < Range.CheckOut.
type OverlapQuery struct {
	Scope OverlapScope
	RefID uuid.UUID
	Range DateRange
}
