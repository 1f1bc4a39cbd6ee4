package quote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls  int
	market Market
	err    error
}

func (f *fakeSource) SimplePrice(_ context.Context) (Market, error) {
	f.calls++
	if f.err != nil {
		return Market{}, f.err
	}
	return f.market, nil
}

func toPtr[T any](v T) *T { return &v }

func scenarioMarket() Market {
	ts := time.Unix(1700000000, 0).UTC()
	return Market{
		Price:         toPtr(65000.5),
		MarketCap:     toPtr(1.2e12),
		Volume24h:     toPtr(3.0e10),
		LastUpdatedAt: &ts,
	}
}

// newTestCache returns a cache with a controllable clock.
func newTestCache(src MarketSource, ttl time.Duration) (*Cache, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(src, ttl, 10*time.Second, nil)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestData_ScenarioRendering(t *testing.T) {
	t.Parallel()

	// Arrange: an empty cache over a provider returning the full reading
	src := &fakeSource{market: scenarioMarket()}
	c, _ := newTestCache(src, 300*time.Second)

	// Act
	text, note := c.Data(context.Background())

	// Assert: deterministic formatting of all three fields plus the UTC date
	require.Empty(t, note)
	require.Contains(t, text, "$65,000.50")
	require.Contains(t, text, "$1,200,000,000,000.00")
	require.Contains(t, text, "$30,000,000,000.00")
	require.Contains(t, text, "2023-11-14 22:13:20 UTC")
	require.Equal(t, 1, src.calls)
}

func TestData_FreshHit_NoNetworkCall(t *testing.T) {
	t.Parallel()

	src := &fakeSource{market: scenarioMarket()}
	c, now := newTestCache(src, 300*time.Second)

	first, note := c.Data(context.Background())
	require.Empty(t, note)

	// Act: every call within the TTL returns identical text with no fetch
	base := *now
	for _, age := range []time.Duration{time.Second, 150 * time.Second, 299 * time.Second} {
		*now = base.Add(age)
		text, note := c.Data(context.Background())
		require.Equal(t, first, text)
		require.Empty(t, note)
	}
	require.Equal(t, 1, src.calls)
}

func TestData_ExpiredAtBoundary_Refetches(t *testing.T) {
	t.Parallel()

	src := &fakeSource{market: scenarioMarket()}
	c, now := newTestCache(src, 300*time.Second)

	_, _ = c.Data(context.Background())
	require.Equal(t, 1, src.calls)

	// Act: age exactly equal to the TTL counts as expired
	*now = now.Add(300 * time.Second)
	_, note := c.Data(context.Background())

	require.Empty(t, note)
	require.Equal(t, 2, src.calls)
}

func TestData_FetchError_ServesStale(t *testing.T) {
	t.Parallel()

	src := &fakeSource{market: scenarioMarket()}
	c, now := newTestCache(src, 300*time.Second)

	first, _ := c.Data(context.Background())

	// Act: the refresh fails after expiry
	*now = now.Add(301 * time.Second)
	src.err = fmt.Errorf("connection refused")
	text, note := c.Data(context.Background())

	// Assert: prior snapshot served with a staleness note, one fetch attempted
	require.Equal(t, first, text)
	require.Equal(t, "stale: connection refused", note)
	require.Equal(t, 2, src.calls)
}

func TestData_FetchError_NoSnapshot(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: fmt.Errorf("context deadline exceeded")}
	c, _ := newTestCache(src, 300*time.Second)

	text, note := c.Data(context.Background())

	require.Equal(t, UnavailableText, text)
	require.Equal(t, "context deadline exceeded", note)
	require.Equal(t, 1, src.calls)
}

func TestData_AllFieldsAbsent_StillSuccess(t *testing.T) {
	t.Parallel()

	// A reading with every field missing still resets the clock.
	src := &fakeSource{market: Market{}}
	c, now := newTestCache(src, 300*time.Second)

	text, note := c.Data(context.Background())
	require.Empty(t, note)
	require.Contains(t, text, "Price (USD): N/A")
	require.Contains(t, text, "Last Updated: N/A")

	*now = now.Add(10 * time.Second)
	_, note = c.Data(context.Background())
	require.Empty(t, note)
	require.Equal(t, 1, src.calls)
}

type blockingSource struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	market  Market
}

func (b *blockingSource) SimplePrice(_ context.Context) (Market, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return b.market, nil
}

func TestData_ConcurrentMisses_CollapseToOneFetch(t *testing.T) {
	t.Parallel()

	src := &blockingSource{release: make(chan struct{}), market: scenarioMarket()}
	c, _ := newTestCache(src, 300*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, note := c.Data(context.Background())
			require.Empty(t, note)
			require.Contains(t, text, "$65,000.50")
		}()
	}

	// Let all callers reach the refresh gate before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	require.Equal(t, 1, src.calls)
}

// installThenFailSource stands in for a refresh that loses a race: another
// flight installs a snapshot while this fetch is in flight, then this fetch
// fails.
type installThenFailSource struct {
	c     *Cache
	calls int
}

func (s *installThenFailSource) SimplePrice(_ context.Context) (Market, error) {
	s.calls++
	snap := NewSnapshot(scenarioMarket(), s.c.now())
	s.c.mu.Lock()
	s.c.current = &snap
	s.c.mu.Unlock()
	return Market{}, fmt.Errorf("rate limited")
}

func TestData_FetchError_ServesSnapshotInstalledMidFlight(t *testing.T) {
	t.Parallel()

	src := &installThenFailSource{}
	c, _ := newTestCache(src, 300*time.Second)
	src.c = c

	// Act: the failed refresh falls back to the snapshot that appeared while
	// it was running, not to the placeholder
	text, note := c.Data(context.Background())

	require.Empty(t, note)
	require.Contains(t, text, "$65,000.50")
	require.Equal(t, 1, src.calls)
}

func TestNewSnapshot_RenderIdempotent(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewSnapshot(scenarioMarket(), fetched)
	b := NewSnapshot(scenarioMarket(), fetched)

	require.Equal(t, a.Rendered, b.Rendered)
}

func TestFormatUSD(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{toPtr(0.0), "$0.00"},
		{toPtr(999.9), "$999.90"},
		{toPtr(65000.5), "$65,000.50"},
		{toPtr(1.2e12), "$1,200,000,000,000.00"},
		{toPtr(-12345.678), "-$12,345.68"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, formatUSD(tc.in))
	}
}
