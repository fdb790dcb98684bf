// Package mongostore implements the record store on MongoDB. Booking
// writes run in multi-document transactions and therefore need a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/common/domain"
	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/store"
)

const (
	collectionLocks = "booking_locks"

	codeNamespaceExists = 48
	indexCheckTimeout   = 5 * time.Second
)

var overlapIndexes = map[string]bson.D{
	booking.IndexPropertyStay: {{Key: "ownerId", Value: 1}, {Key: "propertyId", Value: 1}, {Key: "checkIn", Value: 1}, {Key: "checkOut", Value: 1}},
	booking.IndexGuestStay:    {{Key: "ownerId", Value: 1}, {Key: "guestId", Value: 1}, {Key: "checkIn", Value: 1}, {Key: "checkOut", Value: 1}},
}

// Store wraps a MongoDB database holding the rental collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger

	ready sync.Map
}

// New creates a Store over database on client.
func New(client *mongo.Client, database string, logger *zap.Logger) *Store {
	return &Store{client: client, db: client.Database(database), logger: logger}
}

// Properties returns a property.Repository over the store.
func (s *Store) Properties() *PropertyRepository {
	return &PropertyRepository{coll: s.db.Collection(store.CollectionProperties)}
}

// Guests returns a guest.Repository over the store.
func (s *Store) Guests() *GuestRepository {
	return &GuestRepository{coll: s.db.Collection(store.CollectionGuests)}
}

// Bookings returns a booking.Repository over the store.
func (s *Store) Bookings() *BookingRepository {
	return &BookingRepository{s: s, coll: s.db.Collection(store.CollectionBookings)}
}

// EnsureIndexes creates the collections and indexes the repositories rely
// on. Index builds run in the background on the server; until they finish
// overlap queries report the index as not ready.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, name := range []string{store.CollectionProperties, store.CollectionGuests, store.CollectionBookings, collectionLocks} {
		if err := s.db.CreateCollection(ctx, name); err != nil {
			var cmdErr mongo.CommandError
			if !errors.As(err, &cmdErr) || cmdErr.Code != codeNamespaceExists {
				return fmt.Errorf("failed to create collection %s: %w", name, err)
			}
		}
	}

	owner := mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}}}
	for _, name := range []string{store.CollectionProperties, store.CollectionGuests} {
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, owner); err != nil {
			return fmt.Errorf("failed to create owner index on %s: %w", name, err)
		}
	}

	models := make([]mongo.IndexModel, 0, len(overlapIndexes))
	for name, keys := range overlapIndexes {
		models = append(models, mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)})
	}
	if _, err := s.db.Collection(store.CollectionBookings).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	s.logger.Info("mongo indexes ensured", zap.String("database", s.db.Name()))
	return nil
}

// WithinTx implements booking.Transactor. The transaction bumps one lock
// document per property and guest, so concurrent transactions on either
// reference hit a write conflict and are retried by the driver.
func (s *Store) WithinTx(ctx context.Context, lock booking.TxLock, fn func(ctx context.Context, repo booking.Repository) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := s.lockReference(sc, "property", lock.PropertyID); err != nil {
			return nil, err
		}
		if err := s.lockReference(sc, "guest", lock.GuestID); err != nil {
			return nil, err
		}
		if lock.RequireProperty {
			if err := s.requireOwned(sc, store.CollectionProperties, "Property", lock.OwnerID, lock.PropertyID); err != nil {
				return nil, err
			}
		}
		if lock.RequireGuest {
			if err := s.requireOwned(sc, store.CollectionGuests, "Guest", lock.OwnerID, lock.GuestID); err != nil {
				return nil, err
			}
		}
		return nil, fn(sc, s.Bookings())
	})
	return err
}

func (s *Store) lockReference(ctx context.Context, kind string, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	_, err := s.db.Collection(collectionLocks).UpdateOne(ctx,
		bson.M{"_id": kind + ":" + id.String()},
		bson.M{"$inc": bson.M{"seq": 1}, "$currentDate": bson.M{"lockedAt": true}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to lock %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) requireOwned(ctx context.Context, collection, entity string, ownerID, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	err := s.db.Collection(collection).FindOne(ctx,
		bson.M{"_id": id.String(), "ownerId": ownerID.String()},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NewNotFoundError(entity, id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", entity, id, err)
	}
	return nil
}

// indexReady lists the bookings indexes outside any session, since
// listIndexes is not allowed inside a transaction.
func (s *Store) indexReady(name string) error {
	if _, ok := s.ready.Load(name); ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexCheckTimeout)
	defer cancel()

	cursor, err := s.db.Collection(store.CollectionBookings).Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list booking indexes: %w", err)
	}
	var specs []bson.M
	if err := cursor.All(ctx, &specs); err != nil {
		return fmt.Errorf("failed to decode booking indexes: %w", err)
	}

	for _, spec := range specs {
		if spec["name"] != name {
			continue
		}
		if _, building := spec["buildUUID"]; building {
			break
		}
		s.ready.Store(name, struct{}{})
		return nil
	}
	return s.notReady(name, nil)
}

func (s *Store) notReady(name string, cause error) error {
	return &store.IndexNotReadyError{
		Index:     name,
		Reference: indexReference(name),
		Cause:     cause,
	}
}

func indexReference(name string) string {
	keys := overlapIndexes[name]
	spec := ""
	for i, k := range keys {
		if i > 0 {
			spec += ", "
		}
		spec += fmt.Sprintf("%s: %v", k.Key, k.Value)
	}
	return fmt.Sprintf("db.%s.createIndex({%s}, {name: %q})", store.CollectionBookings, spec, name)
}
