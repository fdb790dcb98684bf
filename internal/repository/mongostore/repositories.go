package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hostledger/service-rental/internal/common/domain"
	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/domain/guest"
	"github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

const hintMissingIndex = "hint provided does not correspond to an existing index"

func ownedFilter(ownerID, id uuid.UUID) bson.M {
	return bson.M{"_id": id.String(), "ownerId": ownerID.String()}
}

func versionFilter(ownerID, id uuid.UUID, version int64) bson.M {
	return bson.M{"_id": id.String(), "ownerId": ownerID.String(), "version": version - 1}
}

var byName = options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

// PropertyRepository implements property.Repository on MongoDB.
type PropertyRepository struct{ coll *mongo.Collection }

func (r *PropertyRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.coll.FindOne(ctx, ownedFilter(ownerID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return doc.toDomain()
}

func (r *PropertyRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*property.Property, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"ownerId": ownerID.String()}, byName)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	var docs []propertyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	out := make([]*property.Property, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	if _, err := r.coll.InsertOne(ctx, toPropertyDocument(p)); err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

func (r *PropertyRepository) Update(ctx context.Context, p *property.Property) error {
	res, err := r.coll.ReplaceOne(ctx, versionFilter(p.OwnerID(), p.ID(), p.Version()), toPropertyDocument(p))
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewConflictError("property was modified by another request")
	}
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("Property", id.String())
	}
	return nil
}

// GuestRepository implements guest.Repository on MongoDB.
type GuestRepository struct{ coll *mongo.Collection }

func (r *GuestRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*guest.Guest, error) {
	var doc guestDocument
	if err := r.coll.FindOne(ctx, ownedFilter(ownerID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("Guest", id.String())
		}
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	return doc.toDomain()
}

func (r *GuestRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*guest.Guest, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"ownerId": ownerID.String()}, byName)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	var docs []guestDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode guests: %w", err)
	}
	out := make([]*guest.Guest, 0, len(docs))
	for _, d := range docs {
		g, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *GuestRepository) Save(ctx context.Context, g *guest.Guest) error {
	if _, err := r.coll.InsertOne(ctx, toGuestDocument(g)); err != nil {
		return fmt.Errorf("failed to save guest: %w", err)
	}
	return nil
}

func (r *GuestRepository) Update(ctx context.Context, g *guest.Guest) error {
	res, err := r.coll.ReplaceOne(ctx, versionFilter(g.OwnerID(), g.ID(), g.Version()), toGuestDocument(g))
	if err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewConflictError("guest was modified by another request")
	}
	return nil
}

func (r *GuestRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("Guest", id.String())
	}
	return nil
}

// BookingRepository implements booking.Repository on MongoDB. Inside a
// transaction the session travels in ctx.
type BookingRepository struct {
	s    *Store
	coll *mongo.Collection
}

func (r *BookingRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*booking.Booking, error) {
	var doc bookingDocument
	if err := r.coll.FindOne(ctx, ownedFilter(ownerID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return doc.toDomain()
}

func (r *BookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filters ...store.Filter) ([]*booking.Booking, error) {
	query, err := bookingFilter(ownerID, filters)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "checkIn", Value: 1}, {Key: "checkOut", Value: 1}})
	return r.find(ctx, query, opts)
}

// IndexReady implements booking.IndexReporter.
func (r *BookingRepository) IndexReady(_ context.Context, index string) error {
	return r.s.indexReady(index)
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, ownerID uuid.UUID, q booking.OverlapQuery) ([]*booking.Booking, error) {
	index := q.Scope.Index()
	if err := r.s.indexReady(index); err != nil {
		return nil, err
	}

	refField := store.FieldPropertyID
	if q.Scope == booking.ScopeGuest {
		refField = store.FieldGuestID
	}
	query := bson.M{
		"ownerId":           ownerID.String(),
		refField:            q.RefID.String(),
		store.FieldCheckOut: bson.M{"$gt": q.Range.CheckIn},
		store.FieldCheckIn:  bson.M{"$lt": q.Range.CheckOut},
	}
	opts := options.Find().SetHint(index).SetSort(bson.D{{Key: "checkIn", Value: 1}})

	bookings, err := r.find(ctx, query, opts)
	if err != nil {
		var se mongo.ServerError
		if errors.As(err, &se) && se.HasErrorMessage(hintMissingIndex) {
			r.s.ready.Delete(index)
			return nil, r.s.notReady(index, err)
		}
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*booking.Booking, error) {
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	out := make([]*booking.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	if _, err := r.coll.InsertOne(ctx, toBookingDocument(b)); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	res, err := r.coll.ReplaceOne(ctx, versionFilter(b.OwnerID(), b.ID(), b.Version()), toBookingDocument(b))
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}
