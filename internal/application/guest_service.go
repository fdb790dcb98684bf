package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
	"github.com/hostledger/service-rental/internal/store"
)

// CreateGuestRequest is the request DTO for creating a guest.
type CreateGuestRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

// UpdateGuestRequest is the request DTO for updating a guest. Empty fields
// are left unchanged.
type UpdateGuestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

// AddNoteRequest is the request DTO for adding a note to a guest.
type AddNoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// GuestDTO is the API response representation of a guest, enriched with
// stay figures derived from the guest's bookings.
type GuestDTO struct {
	ID           uuid.UUID          `json:"id"`
	OwnerID      uuid.UUID          `json:"owner_id"`
	Name         string             `json:"name"`
	Email        string             `json:"email,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Notes        []guestDomain.Note `json:"notes"`
	TotalStays   int                `json:"total_stays"`
	LastStay     *string            `json:"last_stay"`
	UpcomingStay *string            `json:"upcoming_stay"`
	Version      int64              `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// GuestService implements use cases for guest management.
type GuestService struct {
	repo     guestDomain.Repository
	bookings bookingDomain.Repository
	stays    *StayCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewGuestService creates a new GuestService.
func NewGuestService(repo guestDomain.Repository, bookings bookingDomain.Repository, stays *StayCache, logger *zap.Logger) *GuestService {
	return &GuestService{repo: repo, bookings: bookings, stays: stays, logger: logger, now: time.Now}
}

// CreateGuest creates a new guest for the given owner.
func (s *GuestService) CreateGuest(ctx context.Context, ownerID uuid.UUID, req CreateGuestRequest) (*GuestDTO, error) {
	g, err := guestDomain.NewGuest(ownerID, req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, g); err != nil {
		s.logger.Error("failed to create guest", zap.Error(err))
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}

	s.logger.Info("guest created",
		zap.String("guest_id", g.ID().String()),
		zap.String("owner_id", ownerID.String()),
	)
	return s.EnrichGuest(ctx, ownerID, g)
}

// ListGuests returns every guest of the owner with stay figures.
func (s *GuestService) ListGuests(ctx context.Context, ownerID uuid.UUID) ([]GuestDTO, error) {
	guests, err := s.repo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	dtos := make([]GuestDTO, 0, len(guests))
	for _, g := range guests {
		dto, err := s.EnrichGuest(ctx, ownerID, g)
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}

// GetGuest returns a single guest with stay figures.
func (s *GuestService) GetGuest(ctx context.Context, ownerID, guestID uuid.UUID) (*GuestDTO, error) {
	g, err := s.repo.FindByID(ctx, ownerID, guestID)
	if err != nil {
		return nil, err
	}
	return s.EnrichGuest(ctx, ownerID, g)
}

// UpdateGuest applies a partial update. Bookings keep the name they were
// made under.
func (s *GuestService) UpdateGuest(ctx context.Context, ownerID, guestID uuid.UUID, req UpdateGuestRequest) (*GuestDTO, error) {
	g, err := s.repo.FindByID(ctx, ownerID, guestID)
	if err != nil {
		return nil, err
	}
	g.Update(req.Name, req.Email, req.Phone)
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("guest updated", zap.String("guest_id", guestID.String()))
	return s.EnrichGuest(ctx, ownerID, g)
}

// DeleteGuest removes a guest. Their bookings are kept.
func (s *GuestService) DeleteGuest(ctx context.Context, ownerID, guestID uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, guestID); err != nil {
		return err
	}
	s.stays.Invalidate(ownerID, guestID)
	s.logger.Info("guest deleted", zap.String("guest_id", guestID.String()))
	return nil
}

// AddGuestNote appends a note to the guest.
func (s *GuestService) AddGuestNote(ctx context.Context, ownerID, guestID uuid.UUID, req AddNoteRequest) (*guestDomain.Note, error) {
	g, err := s.repo.FindByID(ctx, ownerID, guestID)
	if err != nil {
		return nil, err
	}
	note, err := g.AddNote(req.Content)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}
	return &note, nil
}

// GuestHistory lists the guest's bookings ordered by check-in.
func (s *GuestService) GuestHistory(ctx context.Context, ownerID, guestID uuid.UUID) ([]BookingDTO, error) {
	if _, err := s.repo.FindByID(ctx, ownerID, guestID); err != nil {
		return nil, err
	}
	bookings, err := s.guestBookings(ctx, ownerID, guestID)
	if err != nil {
		return nil, err
	}
	bookingDomain.SortByCheckIn(bookings)
	return toBookingDTOs(bookings), nil
}

// EnrichGuest derives TotalStays, LastStay and UpcomingStay from the
// owner's bookings of the guest. Nothing is stored on the guest.
func (s *GuestService) EnrichGuest(ctx context.Context, ownerID uuid.UUID, g *guestDomain.Guest) (*GuestDTO, error) {
	stays, err := s.stays.Fetch(ownerID, g.ID(), func() (bookingDomain.GuestStays, error) {
		bookings, err := s.guestBookings(ctx, ownerID, g.ID())
		if err != nil {
			return bookingDomain.GuestStays{}, err
		}
		return bookingDomain.SummarizeStays(bookings, s.now()), nil
	})
	if err != nil {
		return nil, err
	}

	return &GuestDTO{
		ID:           g.ID(),
		OwnerID:      g.OwnerID(),
		Name:         g.Name(),
		Email:        g.Email(),
		Phone:        g.Phone(),
		Notes:        g.Notes(),
		TotalStays:   stays.TotalStays,
		LastStay:     formatOptionalDate(stays.LastStay),
		UpcomingStay: formatOptionalDate(stays.UpcomingStay),
		Version:      g.Version(),
		CreatedAt:    g.CreatedAt(),
		UpdatedAt:    g.UpdatedAt(),
	}, nil
}

func (s *GuestService) guestBookings(ctx context.Context, ownerID, guestID uuid.UUID) ([]*bookingDomain.Booking, error) {
	bookings, err := s.bookings.FindByOwnerID(ctx, ownerID, store.Eq(store.FieldGuestID, guestID))
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings of guest %s: %w", guestID, err)
	}
	return bookings, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := bookingDomain.FormatDate(*t)
	return &s
}
