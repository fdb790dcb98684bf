package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostledger/service-rental/internal/common/domain"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/store"
)

// BookingModel is the GORM model for the bookings table. The two composite
// indexes serve the property and guest overlap queries.
type BookingModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_bookings_property_stay,priority:1;index:idx_bookings_guest_stay,priority:1"`
	PropertyID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_bookings_property_stay,priority:2"`
	PropertyName   string     `gorm:"type:varchar(200);not null"`
	GuestID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_bookings_guest_stay,priority:2"`
	GuestName      string     `gorm:"type:varchar(200);not null"`
	CheckIn        time.Time  `gorm:"type:timestamptz;not null;index:idx_bookings_property_stay,priority:3;index:idx_bookings_guest_stay,priority:3"`
	CheckOut       time.Time  `gorm:"type:timestamptz;not null;index:idx_bookings_property_stay,priority:4;index:idx_bookings_guest_stay,priority:4"`
	PriceID        *uuid.UUID `gorm:"type:uuid"`
	PricePerNight  float64    `gorm:"type:numeric(12,2);not null;default:0"`
	TotalNights    int        `gorm:"not null;default:0"`
	TotalAmount    float64    `gorm:"type:numeric(12,2);not null;default:0"`
	AdditionalInfo string     `gorm:"type:text"`
	Contract       string     `gorm:"type:text"`
	Version        int64      `gorm:"not null;default:1"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// indexDDL is handed to operators when an overlap index is missing.
var indexDDL = map[string]string{
	bookingDomain.IndexPropertyStay: "CREATE INDEX CONCURRENTLY idx_bookings_property_stay ON bookings (owner_id, property_id, check_in, check_out)",
	bookingDomain.IndexGuestStay:    "CREATE INDEX CONCURRENTLY idx_bookings_guest_stay ON bookings (owner_id, guest_id, check_in, check_out)",
}

var bookingColumns = map[string]string{
	store.FieldPropertyID: "property_id",
	store.FieldGuestID:    "guest_id",
	store.FieldCheckIn:    "check_in",
	store.FieldCheckOut:   "check_out",
}

var sqlOperators = map[store.Op]string{
	store.OpEq:  "=",
	store.OpNe:  "<>",
	store.OpLt:  "<",
	store.OpLte: "<=",
	store.OpGt:  ">",
	store.OpGte: ">=",
}

// indexCatalog remembers indexes already seen valid so the catalog is read
// at most once per index and process.
type indexCatalog struct {
	ready sync.Map
}

func (p *indexCatalog) ensureReady(ctx context.Context, db *gorm.DB, name string) error {
	if _, ok := p.ready.Load(name); ok {
		return nil
	}

	var rows []struct{ Ready bool }
	if err := db.WithContext(ctx).Raw(
		`SELECT (i.indisvalid AND i.indisready) AS ready
		   FROM pg_index i
		   JOIN pg_class c ON c.oid = i.indexrelid
		  WHERE c.relname = ?`, name,
	).Scan(&rows).Error; err != nil {
		return fmt.Errorf("failed to inspect index %s: %w", name, err)
	}
	if len(rows) == 0 || !rows[0].Ready {
		return &store.IndexNotReadyError{Index: name, Reference: indexDDL[name]}
	}

	p.ready.Store(name, struct{}{})
	return nil
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db      *gorm.DB
	catalog *indexCatalog
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db, catalog: &indexCatalog{}}
}

// withDB returns a repository bound to tx that shares the index catalog.
func (r *GormBookingRepository) withDB(tx *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: tx, catalog: r.catalog}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model), nil
}

// FindByOwnerID retrieves the owner's bookings matching every filter.
func (r *GormBookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filters ...store.Filter) ([]*bookingDomain.Booking, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	for _, f := range filters {
		column, ok := bookingColumns[f.Field]
		op, known := sqlOperators[f.Op]
		if !ok || !known {
			return nil, store.UnsupportedFilter(f)
		}
		query = query.Where(column+" "+op+" ?", f.Value)
	}

	var models []BookingModel
	if err := query.Order("check_in ASC, check_out ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find owner bookings: %w", err)
	}
	return toDomainBookings(models), nil
}

// FindOverlapping returns bookings keyed on q.RefID intersecting q.Range.
func (r *GormBookingRepository) FindOverlapping(ctx context.Context, ownerID uuid.UUID, q bookingDomain.OverlapQuery) ([]*bookingDomain.Booking, error) {
	if err := r.catalog.ensureReady(ctx, r.db, q.Scope.Index()); err != nil {
		return nil, err
	}

	column := "property_id"
	if q.Scope == bookingDomain.ScopeGuest {
		column = "guest_id"
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND "+column+" = ? AND check_out > ? AND check_in < ?",
			ownerID, q.RefID, q.Range.CheckIn, q.Range.CheckOut).
		Order("check_in ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return toDomainBookings(models), nil
}

// IndexReady implements booking.IndexReporter.
func (r *GormBookingRepository) IndexReady(ctx context.Context, index string) error {
	return r.catalog.ensureReady(ctx, r.db, index)
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// IncrementVersion was called before Update, so the stored row is one behind.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("owner_id = ? AND id = ? AND version = ?", model.OwnerID, model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"property_id":     model.PropertyID,
			"property_name":   model.PropertyName,
			"guest_id":        model.GuestID,
			"guest_name":      model.GuestName,
			"check_in":        model.CheckIn,
			"check_out":       model.CheckOut,
			"price_id":        model.PriceID,
			"price_per_night": model.PricePerNight,
			"total_nights":    model.TotalNights,
			"total_amount":    model.TotalAmount,
			"additional_info": model.AdditionalInfo,
			"contract":        model.Contract,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// Delete removes one of the owner's bookings.
func (r *GormBookingRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

func toDomainBookings(models []BookingModel) []*bookingDomain.Booking {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toDomainBooking(&models[i])
	}
	return bookings
}

func toDomainBooking(m *BookingModel) *bookingDomain.Booking {
	var priceID uuid.UUID
	if m.PriceID != nil {
		priceID = *m.PriceID
	}
	return bookingDomain.ReconstructBooking(bookingDomain.Snapshot{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		GuestID:        m.GuestID,
		GuestName:      m.GuestName,
		PropertyID:     m.PropertyID,
		PropertyName:   m.PropertyName,
		CheckIn:        m.CheckIn,
		CheckOut:       m.CheckOut,
		PriceID:        priceID,
		PricePerNight:  m.PricePerNight,
		TotalNights:    m.TotalNights,
		TotalAmount:    m.TotalAmount,
		AdditionalInfo: m.AdditionalInfo,
		Contract:       m.Contract,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	})
}

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	s := bk.Snapshot()
	var priceID *uuid.UUID
	if s.PriceID != uuid.Nil {
		id := s.PriceID
		priceID = &id
	}
	return &BookingModel{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		PropertyID:     s.PropertyID,
		PropertyName:   s.PropertyName,
		GuestID:        s.GuestID,
		GuestName:      s.GuestName,
		CheckIn:        s.CheckIn,
		CheckOut:       s.CheckOut,
		PriceID:        priceID,
		PricePerNight:  s.PricePerNight,
		TotalNights:    s.TotalNights,
		TotalAmount:    s.TotalAmount,
		AdditionalInfo: s.AdditionalInfo,
		Contract:       s.Contract,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
