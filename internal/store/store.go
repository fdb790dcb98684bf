// Package store defines the record-store vocabulary shared by every
// persistence backend: per-owner collections, equality and range filters,
// and the error raised when a composite index cannot serve a query yet.
package store

import (
	"errors"
	"fmt"
)

// Collection names. Records are always partitioned by owner.
const (
	CollectionProperties = "properties"
	CollectionGuests     = "guests"
	CollectionBookings   = "bookings"
)

// Booking fields that filters may reference.
const (
	FieldPropertyID = "propertyId"
	FieldGuestID    = "guestId"
	FieldCheckIn    = "checkIn"
	FieldCheckOut   = "checkOut"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpGt  Op = "gt"
	OpGte Op = "gte"
)

// Valid reports whether o is a known operator.
func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Filter is one predicate in a conjunctive query.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter { return Filter{Field: field, Op: OpEq, Value: value} }

// Lt builds a strict less-than filter.
func Lt(field string, value any) Filter { return Filter{Field: field, Op: OpLt, Value: value} }

// Lte builds a less-than-or-equal filter.
func Lte(field string, value any) Filter { return Filter{Field: field, Op: OpLte, Value: value} }

// Gt builds a strict greater-than filter.
func Gt(field string, value any) Filter { return Filter{Field: field, Op: OpGt, Value: value} }

// Gte builds a greater-than-or-equal filter.
func Gte(field string, value any) Filter { return Filter{Field: field, Op: OpGte, Value: value} }

// ErrUnsupportedFilter is wrapped when a filter names an unknown field or operator.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// UnsupportedFilter returns an error for f wrapping ErrUnsupportedFilter.
func UnsupportedFilter(f Filter) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFilter, f)
}

// ErrIndexNotReady matches any *IndexNotReadyError via errors.Is.
var ErrIndexNotReady = errors.New("index not ready")

// IndexNotReadyError reports that the composite index a query needs is
// missing or still building. Reference says how to create it.
type IndexNotReadyError struct {
	Index     string
	Reference string
	Cause     error
}

func (e *IndexNotReadyError) Error() string {
	msg := fmt.Sprintf("index %s is not ready", e.Index)
	if e.Reference != "" {
		msg += " (" + e.Reference + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrIndexNotReady) match.
func (e *IndexNotReadyError) Is(target error) bool { return target == ErrIndexNotReady }

func (e *IndexNotReadyError) Unwrap() error { return e.Cause }
