package resolve_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/zakat-engine/cache"
	"github.com/warp/zakat-engine/hawl"
	"github.com/warp/zakat-engine/resolve"
)

// =============================================================================
// FAKE CONVERTER
// =============================================================================

// fakeConverter records calls and detects overlapping invocations.
type fakeConverter struct {
	mu      sync.Mutex
	calls   []hawl.MonthKey
	active  int32
	overlap int32 // set to 1 if two conversions ever ran concurrently

	delay time.Duration
	fail  error // returned for every call when non-nil
}

func (f *fakeConverter) Convert(_ context.Context, month, year int) (hawl.HijriDate, error) {
	if atomic.AddInt32(&f.active, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.active, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, hawl.MonthKey{Month: month, Year: year})
	f.mu.Unlock()

	if f.fail != nil {
		return hawl.HijriDate{}, f.fail
	}
	// Deterministic mapping: lunar year 1444, same month number.
	return hawl.NewHijriDate(month, 1444), nil
}

func (f *fakeConverter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newDateResolver(t *testing.T, conv resolve.HijriConverter) (*resolve.DateResolver, *cache.Cache) {
	c := cache.New(cache.NewMemory(), 24*time.Hour)
	r := resolve.NewDateResolver(c, conv, 0) // zero pacing interval for tests
	r.Start()
	t.Cleanup(r.Stop)
	return r, c
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestDateResolver_ResolvesAndCaches(t *testing.T) {
	// GIVEN: An empty cache
	// WHEN: Resolving the same month twice
	// THEN: The upstream is called exactly once; the second hit is cached

	conv := &fakeConverter{}
	r, _ := newDateResolver(t, conv)
	ctx := context.Background()
	key := hawl.MonthKey{Month: 1, Year: 2023}

	first := r.Resolve(ctx, key)
	second := r.Resolve(ctx, key)

	require.True(t, first.Resolved())
	assert.Equal(t, hawl.NewHijriDate(1, 1444), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, conv.callCount(), "second resolve must be served from cache")
}

func TestDateResolver_UnconvertibleDegradesToNA(t *testing.T) {
	// GIVEN: An upstream that recognizes but cannot convert the date
	// WHEN: Resolving
	// THEN: The N/A sentinel is returned, and it is NOT cached

	conv := &fakeConverter{fail: resolve.ErrUnconvertible}
	r, _ := newDateResolver(t, conv)
	ctx := context.Background()
	key := hawl.MonthKey{Month: 2, Year: 2023}

	d := r.Resolve(ctx, key)
	assert.False(t, d.Resolved())
	assert.Equal(t, hawl.HijriNotAvailable, d.String())

	r.Resolve(ctx, key)
	assert.Equal(t, 2, conv.callCount(), "sentinels must not be cached")
}

func TestDateResolver_TransportFailureDegradesToError(t *testing.T) {
	conv := &fakeConverter{fail: errors.New("connection refused")}
	r, _ := newDateResolver(t, conv)

	d := r.Resolve(context.Background(), hawl.MonthKey{Month: 3, Year: 2023})
	assert.False(t, d.Resolved())
	assert.Equal(t, hawl.HijriError, d.String())
}

// =============================================================================
// QUEUE DISCIPLINE
// =============================================================================

func TestDateResolver_ConcurrentCallsAreSerialized(t *testing.T) {
	// GIVEN: Many concurrent resolutions for distinct months
	// WHEN: The upstream takes measurable time per call
	// THEN: No two upstream calls ever overlap (single worker, FIFO)

	conv := &fakeConverter{delay: 5 * time.Millisecond}
	r, _ := newDateResolver(t, conv)
	ctx := context.Background()

	var wg sync.WaitGroup
	for m := 1; m <= 8; m++ {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			d := r.Resolve(ctx, hawl.MonthKey{Month: m, Year: 2023})
			assert.True(t, d.Resolved())
		}(m)
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&conv.overlap), "upstream calls overlapped")
	assert.Equal(t, 8, conv.callCount())
}

func TestDateResolver_DuplicateQueuedKeyServedFromCache(t *testing.T) {
	// GIVEN: Two concurrent requests for the same uncached month
	// WHEN: Both enqueue before the first resolves
	// THEN: The second is answered from the write-through, one upstream call

	conv := &fakeConverter{delay: 10 * time.Millisecond}
	r, _ := newDateResolver(t, conv)
	ctx := context.Background()
	key := hawl.MonthKey{Month: 6, Year: 2023}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Resolve(ctx, key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, conv.callCount())
}

func TestDateResolver_PacingDelaysBetweenDequeues(t *testing.T) {
	// GIVEN: A 30ms pacing interval
	// WHEN: Resolving three uncached months back to back
	// THEN: The first is immediate; the run takes at least two intervals

	conv := &fakeConverter{}
	c := cache.New(cache.NewMemory(), 24*time.Hour)
	r := resolve.NewDateResolver(c, conv, 30*time.Millisecond)
	r.Start()
	t.Cleanup(r.Stop)
	ctx := context.Background()

	start := time.Now()
	r.Resolve(ctx, hawl.MonthKey{Month: 1, Year: 2023})
	firstDone := time.Since(start)

	r.Resolve(ctx, hawl.MonthKey{Month: 2, Year: 2023})
	r.Resolve(ctx, hawl.MonthKey{Month: 3, Year: 2023})
	total := time.Since(start)

	assert.Less(t, firstDone, 25*time.Millisecond, "first dequeue must not wait the interval")
	assert.GreaterOrEqual(t, total, 60*time.Millisecond, "later dequeues must be paced")
}

func TestDateResolver_CanceledContextReturnsErrorSentinel(t *testing.T) {
	conv := &fakeConverter{delay: 50 * time.Millisecond}
	r, _ := newDateResolver(t, conv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	d := r.Resolve(ctx, hawl.MonthKey{Month: 9, Year: 2023})
	assert.Equal(t, hawl.HijriError, d.String())
}
