package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/common/domain"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

// CreateBookingRequest holds the data needed to create a new booking.
// PriceID selects one of the property's prices; nil means the default one.
type CreateBookingRequest struct {
	GuestID        uuid.UUID  `json:"guest_id"`
	PropertyID     uuid.UUID  `json:"property_id"`
	CheckIn        string     `json:"check_in" binding:"required"`
	CheckOut       string     `json:"check_out" binding:"required"`
	PriceID        *uuid.UUID `json:"price_id"`
	AdditionalInfo string     `json:"additional_info"`
}

// UpdateBookingRequest is a partial update. Nil fields are left untouched.
type UpdateBookingRequest struct {
	GuestID        *uuid.UUID `json:"guest_id"`
	PropertyID     *uuid.UUID `json:"property_id"`
	CheckIn        *string    `json:"check_in"`
	CheckOut       *string    `json:"check_out"`
	PriceID        *uuid.UUID `json:"price_id"`
	AdditionalInfo *string    `json:"additional_info"`
}

// AvailabilityRequest asks whether a stay could be booked, without booking it.
type AvailabilityRequest struct {
	GuestID          uuid.UUID  `json:"guest_id"`
	PropertyID       uuid.UUID  `json:"property_id"`
	CheckIn          string     `json:"check_in" binding:"required"`
	CheckOut         string     `json:"check_out" binding:"required"`
	PriceID          *uuid.UUID `json:"price_id"`
	ExcludeBookingID *uuid.UUID `json:"exclude_booking_id"`
}

// BookingFilter narrows ListBookings. From and To are YYYY-MM-DD; a booking
// matches when its stay intersects [From, To).
type BookingFilter struct {
	PropertyID *uuid.UUID
	GuestID    *uuid.UUID
	From       string
	To         string
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	GuestID        uuid.UUID  `json:"guest_id"`
	GuestName      string     `json:"guest_name"`
	PropertyID     uuid.UUID  `json:"property_id"`
	PropertyName   string     `json:"property_name"`
	CheckIn        string     `json:"check_in"`
	CheckOut       string     `json:"check_out"`
	PriceID        *uuid.UUID `json:"price_id,omitempty"`
	PricePerNight  float64    `json:"price_per_night"`
	TotalNights    int        `json:"total_nights"`
	TotalAmount    float64    `json:"total_amount"`
	AdditionalInfo string     `json:"additional_info,omitempty"`
	Contract       string     `json:"contract,omitempty"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AvailabilityDTO answers an availability request with a price preview.
type AvailabilityDTO struct {
	Available   bool                 `json:"available"`
	Reason      bookingDomain.Reason `json:"reason,omitempty"`
	Nights      int                  `json:"nights"`
	TotalAmount float64              `json:"total_amount"`
}

// CalendarEntry is one booking placed on the calendar, coloured by property.
type CalendarEntry struct {
	BookingID    uuid.UUID `json:"booking_id"`
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyName string    `json:"property_name"`
	GuestID      uuid.UUID `json:"guest_id"`
	GuestName    string    `json:"guest_name"`
	CheckIn      string    `json:"check_in"`
	CheckOut     string    `json:"check_out"`
	Color        string    `json:"color,omitempty"`
}

// Outcome is the result of a booking write. Exactly one of Booking and
// Rejected is set.
type Outcome struct {
	Booking  *BookingDTO          `json:"booking,omitempty"`
	Rejected bookingDomain.Reason `json:"rejected,omitempty"`
}

// Applied reports whether the write went through.
func (o Outcome) Applied() bool { return o.Rejected == "" }

func rejected(reason bookingDomain.Reason) Outcome { return Outcome{Rejected: reason} }

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	bookings   bookingDomain.Repository
	tx         bookingDomain.Transactor
	properties propertyDomain.Repository
	guests     guestDomain.Repository
	checker    *AvailabilityChecker
	pricing    bookingDomain.PricingStrategy
	publisher  EventPublisher
	stays      *StayCache
	logger     *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.Repository,
	tx bookingDomain.Transactor,
	properties propertyDomain.Repository,
	guests guestDomain.Repository,
	checker *AvailabilityChecker,
	pricing bookingDomain.PricingStrategy,
	publisher EventPublisher,
	stays *StayCache,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:   bookings,
		tx:         tx,
		properties: properties,
		guests:     guests,
		checker:    checker,
		pricing:    pricing,
		publisher:  publisher,
		stays:      stays,
		logger:     logger,
	}
}

// CreateBooking books a stay for the owner. A conflicting stay is returned
// as a rejected Outcome with a nil error.
func (s *BookingService) CreateBooking(ctx context.Context, ownerID uuid.UUID, req CreateBookingRequest) (Outcome, error) {
	if req.GuestID == uuid.Nil {
		return Outcome{}, domain.NewValidationError("guest_id is required")
	}
	if req.PropertyID == uuid.Nil {
		return Outcome{}, domain.NewValidationError("property_id is required")
	}
	stay, err := bookingDomain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return Outcome{}, err
	}

	prop, err := s.properties.FindByID(ctx, ownerID, req.PropertyID)
	if err != nil {
		return Outcome{}, err
	}
	g, err := s.guests.FindByID(ctx, ownerID, req.GuestID)
	if err != nil {
		return Outcome{}, err
	}
	price, err := prop.SelectPrice(req.PriceID)
	if err != nil {
		return Outcome{}, err
	}

	bk, err := bookingDomain.NewBooking(
		ownerID,
		bookingDomain.PartyRef{ID: g.ID(), Name: g.Name()},
		bookingDomain.PartyRef{ID: prop.ID(), Name: prop.Name()},
		stay,
		bookingDomain.Rate{PriceID: price.ID, PricePerNight: price.Amount},
		req.AdditionalInfo,
		s.pricing,
	)
	if err != nil {
		return Outcome{}, err
	}

	if err := s.checker.AwaitIndexes(ctx); err != nil {
		return Outcome{}, err
	}

	var availability bookingDomain.Availability
	lock := bookingDomain.TxLock{
		OwnerID:         ownerID,
		PropertyID:      prop.ID(),
		GuestID:         g.ID(),
		RequireProperty: true,
		RequireGuest:    true,
	}
	err = s.tx.WithinTx(ctx, lock, func(ctx context.Context, repo bookingDomain.Repository) error {
		var err error
		availability, err = s.checker.WithRepository(repo).Check(ctx, ownerID, AvailabilityQuery{
			PropertyID: prop.ID(),
			GuestID:    g.ID(),
			Stay:       stay,
		})
		if err != nil || !availability.Available {
			return err
		}
		return repo.Save(ctx, bk)
	})
	if err != nil {
		s.logger.Error("failed to create booking",
			zap.String("owner_id", ownerID.String()),
			zap.String("property_id", prop.ID().String()),
			zap.Error(err),
		)
		return Outcome{}, err
	}
	if !availability.Available {
		s.logger.Info("booking rejected",
			zap.String("property_id", prop.ID().String()),
			zap.String("guest_id", g.ID().String()),
			zap.String("stay", stay.String()),
			zap.String("reason", string(availability.Reason)),
		)
		return rejected(availability.Reason), nil
	}

	s.stays.Invalidate(ownerID, g.ID())
	publishEvent(ctx, s.publisher, s.logger, bookingDomain.EventCreated, bk.ID().String(), bookingDomain.NewChangedEvent(bk))

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("stay", stay.String()),
		zap.Float64("total_amount", bk.TotalAmount()),
	)
	result := toBookingDTO(bk)
	return Outcome{Booking: &result}, nil
}

// UpdateBooking applies a partial update. The availability check runs only
// when the guest, the property or the dates change. A missing booking is a
// rejected Outcome.
func (s *BookingService) UpdateBooking(ctx context.Context, ownerID, bookingID uuid.UUID, req UpdateBookingRequest) (Outcome, error) {
	bk, err := s.bookings.FindByID(ctx, ownerID, bookingID)
	if domain.IsNotFound(err) {
		return rejected(bookingDomain.ReasonNotFound), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	previousGuest := bk.Guest().ID

	changes, err := s.buildChanges(ctx, ownerID, bk, req)
	if err != nil {
		return Outcome{}, err
	}

	if !bk.AffectsAvailability(changes) {
		if err := bk.Apply(changes, s.pricing); err != nil {
			return Outcome{}, err
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			return Outcome{}, err
		}
		return s.updated(ctx, bk, previousGuest), nil
	}

	guestID, propertyID, stay := bk.Candidate(changes)
	if err := s.checker.AwaitIndexes(ctx); err != nil {
		return Outcome{}, err
	}
	var (
		availability bookingDomain.Availability
		missing      bool
		result       *bookingDomain.Booking
	)
	// A booking keeps its guest and property after they are deleted, so
	// only references the update moves to must still exist.
	lock := bookingDomain.TxLock{
		OwnerID:         ownerID,
		PropertyID:      propertyID,
		GuestID:         guestID,
		RequireProperty: changes.Property != nil,
		RequireGuest:    changes.Guest != nil,
	}
	err = s.tx.WithinTx(ctx, lock, func(ctx context.Context, repo bookingDomain.Repository) error {
		availability, missing, result = bookingDomain.Availability{}, false, nil

		current, err := repo.FindByID(ctx, ownerID, bookingID)
		if domain.IsNotFound(err) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}

		availability, err = s.checker.WithRepository(repo).Check(ctx, ownerID, AvailabilityQuery{
			PropertyID:       propertyID,
			GuestID:          guestID,
			Stay:             stay,
			ExcludeBookingID: bookingID,
		})
		if err != nil || !availability.Available {
			return err
		}

		if err := current.Apply(changes, s.pricing); err != nil {
			return err
		}
		current.IncrementVersion()
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update booking",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		return Outcome{}, err
	}
	if missing {
		return rejected(bookingDomain.ReasonNotFound), nil
	}
	if !availability.Available {
		s.logger.Info("booking update rejected",
			zap.String("booking_id", bookingID.String()),
			zap.String("stay", stay.String()),
			zap.String("reason", string(availability.Reason)),
		)
		return rejected(availability.Reason), nil
	}
	return s.updated(ctx, result, previousGuest), nil
}

func (s *BookingService) updated(ctx context.Context, bk *bookingDomain.Booking, previousGuest uuid.UUID) Outcome {
	evt := bookingDomain.NewChangedEvent(bk)
	if previousGuest != bk.Guest().ID {
		evt.PreviousGuestID = &previousGuest
	}
	s.stays.Invalidate(bk.OwnerID(), evt.AffectedGuests()...)
	publishEvent(ctx, s.publisher, s.logger, bookingDomain.EventUpdated, bk.ID().String(), evt)

	s.logger.Info("booking updated",
		zap.String("booking_id", bk.ID().String()),
		zap.Int64("version", bk.Version()),
	)
	result := toBookingDTO(bk)
	return Outcome{Booking: &result}
}

// buildChanges resolves request references into snapshots. Names are only
// re-read when a reference actually changes.
func (s *BookingService) buildChanges(ctx context.Context, ownerID uuid.UUID, bk *bookingDomain.Booking, req UpdateBookingRequest) (bookingDomain.Changes, error) {
	var changes bookingDomain.Changes

	if req.CheckIn != nil || req.CheckOut != nil {
		in, out := bk.Stay().CheckIn, bk.Stay().CheckOut
		var err error
		if req.CheckIn != nil {
			if in, err = bookingDomain.ParseDate(*req.CheckIn); err != nil {
				return changes, domain.NewValidationError("check-in: " + err.Error())
			}
		}
		if req.CheckOut != nil {
			if out, err = bookingDomain.ParseDate(*req.CheckOut); err != nil {
				return changes, domain.NewValidationError("check-out: " + err.Error())
			}
		}
		stay, err := bookingDomain.NewDateRange(in, out)
		if err != nil {
			return changes, err
		}
		changes.Stay = &stay
	}

	if req.GuestID != nil && *req.GuestID != bk.Guest().ID {
		g, err := s.guests.FindByID(ctx, ownerID, *req.GuestID)
		if err != nil {
			return changes, err
		}
		changes.Guest = &bookingDomain.PartyRef{ID: g.ID(), Name: g.Name()}
	}

	propertyChanged := req.PropertyID != nil && *req.PropertyID != bk.Property().ID
	if propertyChanged || req.PriceID != nil {
		propertyID := bk.Property().ID
		if propertyChanged {
			propertyID = *req.PropertyID
		}
		prop, err := s.properties.FindByID(ctx, ownerID, propertyID)
		if err != nil {
			return changes, err
		}
		price, err := prop.SelectPrice(req.PriceID)
		if err != nil {
			return changes, err
		}
		if propertyChanged {
			changes.Property = &bookingDomain.PartyRef{ID: prop.ID(), Name: prop.Name()}
		}
		changes.Rate = &bookingDomain.Rate{PriceID: price.ID, PricePerNight: price.Amount}
	}

	changes.AdditionalInfo = req.AdditionalInfo
	return changes, nil
}

// DeleteBooking removes one of the owner's bookings.
func (s *BookingService) DeleteBooking(ctx context.Context, ownerID, bookingID uuid.UUID) error {
	bk, err := s.bookings.FindByID(ctx, ownerID, bookingID)
	if err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, ownerID, bookingID); err != nil {
		return err
	}

	s.stays.Invalidate(ownerID, bk.Guest().ID)
	publishEvent(ctx, s.publisher, s.logger, bookingDomain.EventDeleted, bookingID.String(), bookingDomain.NewChangedEvent(bk))

	s.logger.Info("booking deleted", zap.String("booking_id", bookingID.String()))
	return nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, ownerID, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings returns a page of the owner's bookings ordered by check-in.
func (s *BookingService) ListBookings(ctx context.Context, ownerID uuid.UUID, filter BookingFilter, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	filters := make([]store.Filter, 0, 4)
	if filter.PropertyID != nil {
		filters = append(filters, store.Eq(store.FieldPropertyID, *filter.PropertyID))
	}
	if filter.GuestID != nil {
		filters = append(filters, store.Eq(store.FieldGuestID, *filter.GuestID))
	}
	if filter.From != "" {
		from, err := bookingDomain.ParseDate(filter.From)
		if err != nil {
			return nil, domain.NewValidationError("from: " + err.Error())
		}
		filters = append(filters, store.Gt(store.FieldCheckOut, from))
	}
	if filter.To != "" {
		to, err := bookingDomain.ParseDate(filter.To)
		if err != nil {
			return nil, domain.NewValidationError("to: " + err.Error())
		}
		filters = append(filters, store.Lt(store.FieldCheckIn, to))
	}

	bookings, err := s.bookings.FindByOwnerID(ctx, ownerID, filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	result := domain.Paginate(toBookingDTOs(bookings), page, limit)
	return &result, nil
}

// Calendar returns the bookings whose stay intersects [from, to), each
// carrying its property's colour.
func (s *BookingService) Calendar(ctx context.Context, ownerID uuid.UUID, from, to string) ([]CalendarEntry, error) {
	window, err := bookingDomain.ParseDateRange(from, to)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.FindByOwnerID(ctx, ownerID,
		store.Gt(store.FieldCheckOut, window.CheckIn),
		store.Lt(store.FieldCheckIn, window.CheckOut),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar bookings: %w", err)
	}
	properties, err := s.properties.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar properties: %w", err)
	}
	colors := make(map[uuid.UUID]string, len(properties))
	for _, p := range properties {
		colors[p.ID()] = p.Color()
	}

	entries := make([]CalendarEntry, len(bookings))
	for i, bk := range bookings {
		entries[i] = CalendarEntry{
			BookingID:    bk.ID(),
			PropertyID:   bk.Property().ID,
			PropertyName: bk.Property().Name,
			GuestID:      bk.Guest().ID,
			GuestName:    bk.Guest().Name,
			CheckIn:      bookingDomain.FormatDate(bk.Stay().CheckIn),
			CheckOut:     bookingDomain.FormatDate(bk.Stay().CheckOut),
			Color:        colors[bk.Property().ID],
		}
	}
	return entries, nil
}

// CheckAvailability answers whether a stay could be booked right now and
// previews its price. Nothing is written.
func (s *BookingService) CheckAvailability(ctx context.Context, ownerID uuid.UUID, req AvailabilityRequest) (*AvailabilityDTO, error) {
	if req.GuestID == uuid.Nil || req.PropertyID == uuid.Nil {
		return nil, domain.NewValidationError("guest_id and property_id are required")
	}
	stay, err := bookingDomain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	prop, err := s.properties.FindByID(ctx, ownerID, req.PropertyID)
	if err != nil {
		return nil, err
	}
	price, err := prop.SelectPrice(req.PriceID)
	if err != nil {
		return nil, err
	}

	q := AvailabilityQuery{PropertyID: req.PropertyID, GuestID: req.GuestID, Stay: stay}
	if req.ExcludeBookingID != nil {
		q.ExcludeBookingID = *req.ExcludeBookingID
	}
	availability, err := s.checker.Check(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}

	preview := bookingDomain.ComputeStay(req.CheckIn, req.CheckOut, price.Amount)
	return &AvailabilityDTO{
		Available:   availability.Available,
		Reason:      availability.Reason,
		Nights:      preview.Nights,
		TotalAmount: preview.TotalAmount,
	}, nil
}

// --- Helpers ---

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	var priceID *uuid.UUID
	if id := bk.Rate().PriceID; id != uuid.Nil {
		priceID = &id
	}
	return BookingDTO{
		ID:             bk.ID(),
		OwnerID:        bk.OwnerID(),
		GuestID:        bk.Guest().ID,
		GuestName:      bk.Guest().Name,
		PropertyID:     bk.Property().ID,
		PropertyName:   bk.Property().Name,
		CheckIn:        bookingDomain.FormatDate(bk.Stay().CheckIn),
		CheckOut:       bookingDomain.FormatDate(bk.Stay().CheckOut),
		PriceID:        priceID,
		PricePerNight:  bk.Rate().PricePerNight,
		TotalNights:    bk.TotalNights(),
		TotalAmount:    bk.TotalAmount(),
		AdditionalInfo: bk.AdditionalInfo(),
		Contract:       bk.Contract(),
		Version:        bk.Version(),
		CreatedAt:      bk.CreatedAt(),
		UpdatedAt:      bk.UpdatedAt(),
	}
}
