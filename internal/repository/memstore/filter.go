package memstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/store"
)

func matchesAll(snap booking.Snapshot, filters []store.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(snap, f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matches(snap booking.Snapshot, f store.Filter) (bool, error) {
	if !f.Op.Valid() {
		return false, store.UnsupportedFilter(f)
	}
	switch f.Field {
	case store.FieldPropertyID:
		return compareID(snap.PropertyID, f)
	case store.FieldGuestID:
		return compareID(snap.GuestID, f)
	case store.FieldCheckIn:
		return compareTime(snap.CheckIn, f)
	case store.FieldCheckOut:
		return compareTime(snap.CheckOut, f)
	}
	return false, store.UnsupportedFilter(f)
}

func compareID(have uuid.UUID, f store.Filter) (bool, error) {
	var want uuid.UUID
	switch v := f.Value.(type) {
	case uuid.UUID:
		want = v
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return false, fmt.Errorf("%w: %v", store.ErrUnsupportedFilter, err)
		}
		want = id
	default:
		return false, store.UnsupportedFilter(f)
	}
	switch f.Op {
	case store.OpEq:
		return have == want, nil
	case store.OpNe:
		return have != want, nil
	}
	return false, store.UnsupportedFilter(f)
}

func compareTime(have time.Time, f store.Filter) (bool, error) {
	var want time.Time
	switch v := f.Value.(type) {
	case time.Time:
		want = v
	case string:
		t, err := booking.ParseDate(v)
		if err != nil {
			return false, fmt.Errorf("%w: %v", store.ErrUnsupportedFilter, err)
		}
		want = t
	default:
		return false, store.UnsupportedFilter(f)
	}
	switch f.Op {
	case store.OpEq:
		return have.Equal(want), nil
	case store.OpNe:
		return !have.Equal(want), nil
	case store.OpLt:
		return have.Before(want), nil
	case store.OpLte:
		return !have.After(want), nil
	case store.OpGt:
		return have.After(want), nil
	case store.OpGte:
		return !have.Before(want), nil
	}
	return false, store.UnsupportedFilter(f)
}
