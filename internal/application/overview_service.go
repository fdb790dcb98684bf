package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/store"
)

// UpcomingWindow is how far ahead the overview lists check-ins.
const UpcomingWindow = 7 * 24 * time.Hour

// OverviewDTO is the owner's dashboard summary.
type OverviewDTO struct {
	Properties         int          `json:"properties"`
	Guests             int          `json:"guests"`
	Bookings           int          `json:"bookings"`
	GuestsInResidence  int          `json:"guests_in_residence"`
	OccupiedProperties int          `json:"occupied_properties"`
	OccupancyRate      float64      `json:"occupancy_rate"`
	MonthRevenue       float64      `json:"month_revenue"`
	UpcomingCheckIns   []BookingDTO `json:"upcoming_check_ins"`
}

// OverviewService aggregates dashboard figures for an owner.
type OverviewService struct {
	properties propertyDomain.Repository
	guests     guestDomain.Repository
	bookings   bookingDomain.Repository
	logger     *zap.Logger
	now        func() time.Time
}

// NewOverviewService creates a new OverviewService.
func NewOverviewService(properties propertyDomain.Repository, guests guestDomain.Repository, bookings bookingDomain.Repository, logger *zap.Logger) *OverviewService {
	return &OverviewService{properties: properties, guests: guests, bookings: bookings, logger: logger, now: time.Now}
}

// Overview computes today's occupancy, the revenue of stays checking in this
// month and the check-ins of the coming week.
func (s *OverviewService) Overview(ctx context.Context, ownerID uuid.UUID) (*OverviewDTO, error) {
	properties, err := s.properties.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}
	guests, err := s.guests.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guests: %w", err)
	}
	bookings, err := s.bookings.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	today := bookingDomain.StartOfDay(s.now())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	horizon := today.Add(UpcomingWindow)

	occupied := make(map[uuid.UUID]struct{})
	upcoming := make([]*bookingDomain.Booking, 0)
	var revenue float64
	for _, bk := range bookings {
		stay := bk.Stay()
		if stay.Contains(today) {
			occupied[bk.Property().ID] = struct{}{}
		}
		if !stay.CheckIn.Before(monthStart) && stay.CheckIn.Before(monthEnd) {
			revenue += bk.TotalAmount()
		}
		if !stay.CheckIn.Before(today) && stay.CheckIn.Before(horizon) {
			upcoming = append(upcoming, bk)
		}
	}
	bookingDomain.SortByCheckIn(upcoming)

	result := &OverviewDTO{
		Properties:         len(properties),
		Guests:             len(guests),
		Bookings:           len(bookings),
		GuestsInResidence:  bookingDomain.CountInResidence(bookings, today),
		OccupiedProperties: len(occupied),
		MonthRevenue:       revenue,
		UpcomingCheckIns:   toBookingDTOs(upcoming),
	}
	if len(properties) > 0 {
		result.OccupancyRate = float64(len(occupied)) / float64(len(properties))
	}
	return result, nil
}

// Arrivals lists the bookings checking in on the given day.
func (s *OverviewService) Arrivals(ctx context.Context, ownerID uuid.UUID, day time.Time) ([]BookingDTO, error) {
	start := bookingDomain.StartOfDay(day)
	bookings, err := s.bookings.FindByOwnerID(ctx, ownerID,
		store.Gte(store.FieldCheckIn, start),
		store.Lt(store.FieldCheckIn, start.AddDate(0, 0, 1)),
	)
	if err != nil {
		s.logger.Error("failed to load arrivals", zap.Error(err))
		return nil, fmt.Errorf("failed to load arrivals: %w", err)
	}
	return toBookingDTOs(bookings), nil
}
