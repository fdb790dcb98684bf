package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/store"
)

// Default index retry policy.
const (
	DefaultIndexRetryAttempts = 3
	DefaultIndexRetryDelay    = 2 * time.Second
)

// IndexRetryPolicy bounds how long the checker waits for a composite index.
type IndexRetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// AvailabilityQuery is a candidate stay. ExcludeBookingID, when set, is the
// booking being edited and never conflicts with itself.
type AvailabilityQuery struct {
	PropertyID       uuid.UUID
	GuestID          uuid.UUID
	Stay             booking.DateRange
	ExcludeBookingID uuid.UUID
}

// AvailabilityChecker decides whether a stay conflicts with existing
// bookings of the same property or the same guest.
type AvailabilityChecker struct {
	repo   booking.Repository
	retry  IndexRetryPolicy
	logger *zap.Logger
}

// NewAvailabilityChecker creates an AvailabilityChecker reading through repo.
func NewAvailabilityChecker(repo booking.Repository, retry IndexRetryPolicy, logger *zap.Logger) *AvailabilityChecker {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	if retry.Delay < 0 {
		retry.Delay = 0
	}
	return &AvailabilityChecker{repo: repo, retry: retry, logger: logger}
}

// WithRepository returns a copy reading through repo, typically a
// transaction-bound repository. The copy makes a single attempt per query:
// callers wait for the indexes with AwaitIndexes before taking locks.
func (c *AvailabilityChecker) WithRepository(repo booking.Repository) *AvailabilityChecker {
	cp := *c
	cp.repo = repo
	cp.retry.Attempts = 1
	return &cp
}

// AwaitIndexes waits, under the retry policy, until both overlap indexes
// can serve queries. Repositories that cannot report readiness are assumed
// ready.
func (c *AvailabilityChecker) AwaitIndexes(ctx context.Context) error {
	reporter, ok := c.repo.(booking.IndexReporter)
	if !ok {
		return nil
	}
	for _, scope := range []booking.OverlapScope{booking.ScopeProperty, booking.ScopeGuest} {
		index := scope.Index()
		if err := c.retryIndex(ctx, scope, func() error {
			return reporter.IndexReady(ctx, index)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Check runs the property overlap query, then the guest overlap query.
// A conflict is a negative result, not an error. An index that stays
// unavailable after every retry yields an error matching store.ErrIndexNotReady.
func (c *AvailabilityChecker) Check(ctx context.Context, ownerID uuid.UUID, q AvailabilityQuery) (booking.Availability, error) {
	conflicts, err := c.conflicts(ctx, ownerID, booking.OverlapQuery{
		Scope: booking.ScopeProperty,
		RefID: q.PropertyID,
		Range: q.Stay,
	}, q.ExcludeBookingID)
	if err != nil {
		return booking.Availability{}, err
	}
	if conflicts > 0 {
		return booking.Unavailable(booking.ReasonPropertyUnavailable), nil
	}

	conflicts, err = c.conflicts(ctx, ownerID, booking.OverlapQuery{
		Scope: booking.ScopeGuest,
		RefID: q.GuestID,
		Range: q.Stay,
	}, q.ExcludeBookingID)
	if err != nil {
		return booking.Availability{}, err
	}
	if conflicts > 0 {
		return booking.Unavailable(booking.ReasonGuestUnavailable), nil
	}

	return booking.Available(), nil
}

func (c *AvailabilityChecker) conflicts(ctx context.Context, ownerID uuid.UUID, q booking.OverlapQuery, exclude uuid.UUID) (int, error) {
	var found []*booking.Booking
	err := c.retryIndex(ctx, q.Scope, func() error {
		var err error
		found, err = c.repo.FindOverlapping(ctx, ownerID, q)
		return err
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, b := range found {
		if b.ID() != exclude {
			n++
		}
	}
	return n, nil
}

// retryIndex runs fn until it succeeds, fails with anything other than
// store.ErrIndexNotReady, or the attempts run out.
func (c *AvailabilityChecker) retryIndex(ctx context.Context, scope booking.OverlapScope, fn func() error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil || errors.Is(err, store.ErrIndexNotReady) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retry.Delay), uint64(c.retry.Attempts-1)),
		ctx,
	)
	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("overlap index not ready, retrying",
			zap.String("scope", string(scope)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retry.Attempts),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		var notReady *store.IndexNotReadyError
		if errors.As(err, &notReady) {
			c.logger.Error("overlap index still not ready",
				zap.String("index", notReady.Index),
				zap.String("reference", notReady.Reference),
				zap.Int("attempts", attempt),
			)
		}
		return err
	}
	return nil
}
