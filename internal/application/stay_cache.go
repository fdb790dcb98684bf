package application

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"

	"github.com/hostledger/service-rental/internal/domain/booking"
)

// StayCache is a read-through cache of guest stay summaries keyed by owner
// and guest. Booking writes invalidate the affected entries. A nil
// *StayCache disables caching.
type StayCache struct {
	cache *ccache.Cache[booking.GuestStays]
	ttl   time.Duration

	// mu orders Invalidate against storing a finished load.
	mu      sync.Mutex
	pending map[string]*pendingLoad
}

// pendingLoad tracks the loads in flight for one key. gen is bumped by
// every invalidation of the key; a load only stores its result when gen is
// unchanged.
type pendingLoad struct {
	refs int
	gen  uint64
}

// NewStayCache creates a StayCache holding at most maxSize entries for ttl.
func NewStayCache(maxSize int64, ttl time.Duration) *StayCache {
	return &StayCache{
		cache:   ccache.New(ccache.Configure[booking.GuestStays]().MaxSize(maxSize)),
		ttl:     ttl,
		pending: make(map[string]*pendingLoad),
	}
}

func stayKey(ownerID, guestID uuid.UUID) string {
	return ownerID.String() + ":" + guestID.String()
}

// Fetch returns the cached summary or calls load and caches its result.
// Errors are not cached, nor are results of loads that an invalidation
// overtook.
func (c *StayCache) Fetch(ownerID, guestID uuid.UUID, load func() (booking.GuestStays, error)) (booking.GuestStays, error) {
	if c == nil {
		return load()
	}
	key := stayKey(ownerID, guestID)
	if item := c.cache.Get(key); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	c.mu.Lock()
	p := c.pending[key]
	if p == nil {
		p = &pendingLoad{}
		c.pending[key] = p
	}
	p.refs++
	gen := p.gen
	c.mu.Unlock()

	stays, err := load()

	c.mu.Lock()
	defer c.mu.Unlock()
	p.refs--
	if p.refs == 0 {
		delete(c.pending, key)
	}
	if err != nil {
		return booking.GuestStays{}, err
	}
	if p.gen == gen {
		c.cache.Set(key, stays, c.ttl)
	}
	return stays, nil
}

// Invalidate drops the entries of the given guests.
func (c *StayCache) Invalidate(ownerID uuid.UUID, guestIDs ...uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range guestIDs {
		key := stayKey(ownerID, id)
		if p := c.pending[key]; p != nil {
			p.gen++
		}
		c.cache.Delete(key)
	}
}

// InvalidateOwner drops every entry of one owner.
func (c *StayCache) InvalidateOwner(ownerID uuid.UUID) {
	if c == nil {
		return
	}
	prefix := ownerID.String() + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.pending {
		if strings.HasPrefix(key, prefix) {
			p.gen++
		}
	}
	c.cache.DeletePrefix(prefix)
}

// Stop releases the cache's background worker.
func (c *StayCache) Stop() {
	if c == nil {
		return
	}
	c.cache.Stop()
}
