package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/zakat-engine/cache"
)

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*cache.Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)}
	c := cache.New(cache.NewMemory(), ttl).WithClock(clock.now)
	return c, clock
}

func TestCache_RoundTrip(t *testing.T) {
	// GIVEN: A saved value
	// WHEN: Loading it back within the TTL
	// THEN: The value is returned unchanged

	c, _ := newTestCache(24 * time.Hour)
	ctx := context.Background()

	require.True(t, c.Save(ctx, "nisab-2023", 5000.0))

	var got float64
	require.True(t, c.Load(ctx, "nisab-2023", &got))
	assert.Equal(t, 5000.0, got)
}

func TestCache_MissOnAbsentKey(t *testing.T) {
	c, _ := newTestCache(24 * time.Hour)

	var got float64
	assert.False(t, c.Load(context.Background(), "never-written", &got))
}

func TestCache_TTLBoundary(t *testing.T) {
	// GIVEN: A value written at time T with a 24h TTL
	// WHEN: Reading just before and just after T+TTL
	// THEN: Hit before the boundary, miss after it

	c, clock := newTestCache(24 * time.Hour)
	ctx := context.Background()

	require.True(t, c.Save(ctx, "key", "value"))

	var got string
	clock.advance(24*time.Hour - time.Second)
	assert.True(t, c.Load(ctx, "key", &got), "read at T+TTL-eps should hit")
	assert.Equal(t, "value", got)

	clock.advance(2 * time.Second)
	assert.False(t, c.Load(ctx, "key", new(string)), "read at T+TTL+eps should miss")
}

func TestCache_UnparseablePayloadIsMiss(t *testing.T) {
	// GIVEN: A stored payload that does not decode into the caller's type
	// WHEN: Loading
	// THEN: Treated as a miss, not an error

	store := cache.NewMemory()
	c := cache.New(store, 24*time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", cache.Entry{
		Data:      []byte(`{"not":"a number"}`),
		Timestamp: time.Now(),
	}))

	var got float64
	assert.False(t, c.Load(ctx, "key", &got))
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("disk on fire")
}
func (failingStore) Put(context.Context, string, cache.Entry) error {
	return errors.New("disk on fire")
}

func TestCache_StoreFailuresDegradeSoftly(t *testing.T) {
	// GIVEN: A store whose reads and writes fail
	// WHEN: Loading and saving
	// THEN: Load misses and Save reports false; nothing panics

	c := cache.New(failingStore{}, 24*time.Hour)
	ctx := context.Background()

	assert.False(t, c.Load(ctx, "key", new(string)))
	assert.False(t, c.Save(ctx, "key", "value"))
}

func TestCache_UnserializableValueFailsSave(t *testing.T) {
	c, _ := newTestCache(24 * time.Hour)

	assert.False(t, c.Save(context.Background(), "key", make(chan int)))
}
