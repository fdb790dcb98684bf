package application

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/common/domain"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/storage"
)

// DefaultMaxContractBytes caps an uploaded contract at 10 MiB.
const DefaultMaxContractBytes = 10 << 20

var contractTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ContractDTO is returned after a successful upload.
type ContractDTO struct {
	BookingID uuid.UUID `json:"booking_id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Size      int       `json:"size"`
}

// ContractService stores signed rental contracts and attaches them to bookings.
type ContractService struct {
	bookings  bookingDomain.Repository
	files     storage.FileStorage
	maxBytes  int
	publisher EventPublisher
	stays     *StayCache
	logger    *zap.Logger
}

// NewContractService creates a new ContractService.
func NewContractService(bookings bookingDomain.Repository, files storage.FileStorage, maxBytes int, publisher EventPublisher, stays *StayCache, logger *zap.Logger) *ContractService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContractBytes
	}
	return &ContractService{
		bookings:  bookings,
		files:     files,
		maxBytes:  maxBytes,
		publisher: publisher,
		stays:     stays,
		logger:    logger,
	}
}

// MaxBytes returns the upload size limit.
func (s *ContractService) MaxBytes() int { return s.maxBytes }

// UploadContract validates the document by content, stores it and records
// its URL on the booking. A previous contract is replaced.
func (s *ContractService) UploadContract(ctx context.Context, ownerID, bookingID uuid.UUID, data []byte) (*ContractDTO, error) {
	if len(data) == 0 {
		return nil, domain.NewValidationError("contract file is empty")
	}
	if len(data) > s.maxBytes {
		return nil, domain.NewValidationError(fmt.Sprintf("contract exceeds %d bytes", s.maxBytes))
	}
	mt := detectContractType(data)
	if mt == nil {
		return nil, domain.NewValidationError("contract must be a PDF, DOC or DOCX document")
	}

	bk, err := s.bookings.FindByID(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}

	objectPath := fmt.Sprintf("contracts/%s/%s/%s%s", ownerID, bookingID, uuid.New(), mt.Extension())
	url, err := s.files.Store(ctx, objectPath, data)
	if err != nil {
		s.logger.Error("failed to store contract",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	if err := bk.AttachContract(url); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.stays.Invalidate(ownerID, bk.Guest().ID)
	publishEvent(ctx, s.publisher, s.logger, bookingDomain.EventContractUploaded, bookingID.String(), bookingDomain.NewChangedEvent(bk))

	s.logger.Info("contract uploaded",
		zap.String("booking_id", bookingID.String()),
		zap.String("mime_type", mt.String()),
		zap.Int("size", len(data)),
	)
	return &ContractDTO{BookingID: bookingID, URL: url, MimeType: mt.String(), Size: len(data)}, nil
}

func detectContractType(data []byte) *mimetype.MIME {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), contractTypes...) {
			return m
		}
	}
	return nil
}
