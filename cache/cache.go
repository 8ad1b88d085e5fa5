/*
Package cache provides the TTL cache backing all external lookups.

PURPOSE:
  Both resolvers (Hijri dates, Nisab thresholds) write through to this
  cache so repeated calculations never re-hit the upstream services
  within the retention window.

CONTRACT:
  Load(key, dest) -> hit | miss
    A key that is absent, unparseable, or older than the TTL is a miss.
  Save(key, value) -> ok
    Fails softly: serialization or storage errors are logged and
    reported as false, never surfaced as an error to the caller.

DESIGN:
  The Cache is a thin expiry layer over a pluggable Store. Stores only
  persist (key -> payload, timestamp); all TTL arithmetic lives here so
  every backend gets identical staleness semantics. The clock is
  injectable for tests.

IMPLEMENTATIONS:
  - cache/memory.go:      In-memory store for testing/dev
  - store/sqlite/sqlite.go: Durable SQLite-backed store

SEE ALSO:
  - resolve/date.go:  Hijri date cache consumer (24h TTL)
  - resolve/nisab.go: Nisab threshold cache consumer (24h TTL)
*/
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// DefaultTTL bounds staleness for both the Hijri date and Nisab caches.
const DefaultTTL = 24 * time.Hour

// Entry is the stored wrapper: an opaque payload plus its write time.
// The read path validates now - Timestamp < TTL.
type Entry struct {
	Data      json.RawMessage
	Timestamp time.Time
}

// Store persists entries. Implementations must be safe for concurrent
// use; they never interpret the payload or the timestamp.
type Store interface {
	// Get returns the entry for key. found is false when absent.
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)

	// Put writes or replaces the entry for key.
	Put(ctx context.Context, key string, entry Entry) error
}

// Cache wraps a Store with TTL expiry and JSON (de)serialization.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache over store. A non-positive ttl falls back to
// DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests use this to step across
// the expiry boundary deterministically.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Load reads key into dest. It returns false — leaving dest untouched —
// when the key is absent, expired, unparseable, or the store read
// fails. Every failure mode degrades to a cache miss.
func (c *Cache) Load(ctx context.Context, key string, dest any) bool {
	entry, found, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("[Cache] read %q failed: %v", key, err)
		return false
	}
	if !found {
		return false
	}
	if c.now().Sub(entry.Timestamp) >= c.ttl {
		return false
	}
	if err := json.Unmarshal(entry.Data, dest); err != nil {
		log.Printf("[Cache] payload for %q unparseable: %v", key, err)
		return false
	}
	return true
}

// Save writes value under key with the current timestamp. It returns
// false on serialization or storage errors; it never panics or returns
// an error into the caller's control flow.
func (c *Cache) Save(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[Cache] serialize %q failed: %v", key, err)
		return false
	}
	if err := c.store.Put(ctx, key, Entry{Data: data, Timestamp: c.now()}); err != nil {
		log.Printf("[Cache] write %q failed: %v", key, err)
		return false
	}
	return true
}
