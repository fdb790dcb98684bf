package mongostore

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/store"
)

var mongoOperators = map[store.Op]string{
	store.OpEq:  "$eq",
	store.OpNe:  "$ne",
	store.OpLt:  "$lt",
	store.OpLte: "$lte",
	store.OpGt:  "$gt",
	store.OpGte: "$gte",
}

// bookingFilter turns owner scope plus filters into a query document.
// Several predicates on one field are merged into a single sub-document.
func bookingFilter(ownerID uuid.UUID, filters []store.Filter) (bson.M, error) {
	query := bson.M{"ownerId": ownerID.String()}
	for _, f := range filters {
		op, ok := mongoOperators[f.Op]
		if !ok {
			return nil, store.UnsupportedFilter(f)
		}
		value, err := filterValue(f)
		if err != nil {
			return nil, err
		}
		predicates, ok := query[f.Field].(bson.M)
		if !ok {
			predicates = bson.M{}
			query[f.Field] = predicates
		}
		predicates[op] = value
	}
	return query, nil
}

func filterValue(f store.Filter) (interface{}, error) {
	switch f.Field {
	case store.FieldPropertyID, store.FieldGuestID:
		if f.Op != store.OpEq && f.Op != store.OpNe {
			return nil, store.UnsupportedFilter(f)
		}
		switch v := f.Value.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			if _, err := uuid.Parse(v); err != nil {
				return nil, store.UnsupportedFilter(f)
			}
			return v, nil
		}
	case store.FieldCheckIn, store.FieldCheckOut:
		switch v := f.Value.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			t, err := booking.ParseDate(v)
			if err != nil {
				return nil, store.UnsupportedFilter(f)
			}
			return t, nil
		}
	}
	return nil, store.UnsupportedFilter(f)
}
