package quote

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// UnavailableText is returned when no snapshot has ever been fetched and the
// provider cannot be reached.
const UnavailableText = "Real-time Bitcoin data is currently unavailable."

// MarketSource provides one reading of the Bitcoin market metrics.
type MarketSource interface {
	SimplePrice(ctx context.Context) (Market, error)
}

// Cache holds at most one market snapshot for a TTL and serves the last
// known-good snapshot when a refresh fails. Concurrent misses collapse into a
// single upstream call via singleflight.
type Cache struct {
	src          MarketSource
	ttl          time.Duration
	fetchTimeout time.Duration
	log          *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	current *Snapshot

	now func() time.Time
}

func NewCache(src MarketSource, ttl, fetchTimeout time.Duration, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		src:          src,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		log:          log,
		now:          time.Now,
	}
}

// Data returns the freshest affordable rendered snapshot and a note describing
// degradation, if any. A fresh cache hit issues no network call. On a miss,
// exactly one fetch is attempted (no retries); a failed fetch falls back to the
// previous snapshot with a "stale:" note, or to a fixed placeholder when no
// snapshot exists yet. Data never returns an error past this boundary.
func (c *Cache) Data(ctx context.Context) (string, string) {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()

	// Equal-to-TTL age counts as expired.
	if cur != nil && c.now().Sub(cur.FetchedAt) < c.ttl {
		return cur.Rendered, ""
	}

	v, err, _ := c.group.Do("bitcoin", func() (any, error) {
		fctx := ctx
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()
		}
		m, err := c.src.SimplePrice(fctx)
		if err != nil {
			return nil, err
		}
		// A reading with every field absent still counts as a success and
		// resets the clock; stale avoidance wins over content checks here.
		snap := NewSnapshot(m, c.now())
		c.mu.Lock()
		c.current = &snap
		c.mu.Unlock()
		return snap, nil
	})
	if err == nil {
		return v.(Snapshot).Rendered, ""
	}

	// A flight that completed between the read above and the failed fetch may
	// have installed a snapshot; fall back to the newest one.
	c.mu.RLock()
	cur = c.current
	c.mu.RUnlock()

	if cur != nil {
		if c.now().Sub(cur.FetchedAt) < c.ttl {
			return cur.Rendered, ""
		}
		c.log.Warn("price refresh failed, serving stale snapshot",
			zap.Error(err), zap.Time("fetched_at", cur.FetchedAt))
		return cur.Rendered, "stale: " + err.Error()
	}
	c.log.Warn("price fetch failed with no snapshot to fall back on", zap.Error(err))
	return UnavailableText, err.Error()
}
