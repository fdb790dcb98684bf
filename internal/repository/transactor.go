package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hostledger/service-rental/internal/common/domain"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// GormTransactor runs booking writes in a transaction that first takes a
// transaction-scoped advisory lock on the property and then on the guest, so
// two transactions touching the same property or guest queue behind each
// other. Advisory locks are keyed on the ids and do not need the rows to
// exist.
type GormTransactor struct {
	db       *gorm.DB
	bookings *GormBookingRepository
	retries  uint64
	delay    time.Duration
	logger   *zap.Logger
}

// NewGormTransactor creates a GormTransactor. Serialization failures and
// deadlocks are retried up to retries times, delay apart.
func NewGormTransactor(db *gorm.DB, bookings *GormBookingRepository, retries int, delay time.Duration, logger *zap.Logger) *GormTransactor {
	if retries < 0 {
		retries = 0
	}
	return &GormTransactor{
		db:       db,
		bookings: bookings,
		retries:  uint64(retries),
		delay:    delay,
		logger:   logger,
	}
}

// WithinTx implements booking.Transactor.
func (t *GormTransactor) WithinTx(ctx context.Context, lock bookingDomain.TxLock, fn func(ctx context.Context, repo bookingDomain.Repository) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := advisoryLock(tx, "property", lock.PropertyID); err != nil {
				return err
			}
			if err := advisoryLock(tx, "guest", lock.GuestID); err != nil {
				return err
			}
			if lock.RequireProperty {
				if err := requireRow(tx, &PropertyModel{}, "Property", lock.OwnerID, lock.PropertyID); err != nil {
					return err
				}
			}
			if lock.RequireGuest {
				if err := requireRow(tx, &GuestModel{}, "Guest", lock.OwnerID, lock.GuestID); err != nil {
					return err
				}
			}
			return fn(ctx, t.bookings.withDB(tx))
		})
		if err == nil || isRetryableTxError(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(t.delay), t.retries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		t.logger.Warn("booking transaction contended, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	})
}

// advisoryLock takes pg_advisory_xact_lock on kind:id. A nil id is skipped.
func advisoryLock(tx *gorm.DB, kind string, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", kind+":"+id.String()).Error; err != nil {
		return fmt.Errorf("failed to lock %s %s: %w", kind, id, err)
	}
	return nil
}

// requireRow fails with a not-found error unless the owner-scoped row exists.
// A nil id is skipped.
func requireRow(tx *gorm.DB, model interface{}, entity string, ownerID, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	err := tx.Select("id").
		Where("owner_id = ? AND id = ?", ownerID, id).
		Take(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(entity, id.String())
	}
	return err
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}
