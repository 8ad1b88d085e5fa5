/*
date.go - Serialized Hijri date resolver

PURPOSE:
  Converts a Gregorian (month, year) to the corresponding Hijri
  (month, year). Conversions are delegated to an external service
  behind the TTL cache and a single FIFO queue: exactly one upstream
  call is in flight at any time, with a fixed pacing interval between
  dequeues, to respect the service's rate limit.

QUEUE DISCIPLINE:
  - Requests are served strictly FIFO by one worker goroutine.
  - The pacing interval elapses BETWEEN dequeues, never before the
    first (the limiter starts with a full token).
  - The serialization is a throughput cap for the upstream, not a
    correctness requirement, but it must hold globally across callers.

FAILURE POLICY:
  Resolve never returns an error. A recognized-but-unconvertible date
  degrades to the "N/A" sentinel, a transport/parse failure to the
  "Error" sentinel. Both render in reports; neither joins lunar-month
  arithmetic. Sentinels are not cached, so a later run may retry.

LIFECYCLE:
  resolver := resolve.NewDateResolver(cache, client, time.Second)
  resolver.Start()
  defer resolver.Stop()

SEE ALSO:
  - aladhan.go: The HTTP conversion client
  - zakat/calculator.go: Fans unique month keys into this resolver
*/
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/warp/zakat-engine/cache"
	"github.com/warp/zakat-engine/hawl"
)

// HijriConverter is the upstream date-conversion contract. A return of
// ErrUnconvertible means the service recognized but could not convert
// the date; any other error is a transport/parse failure.
type HijriConverter interface {
	Convert(ctx context.Context, month, year int) (hawl.HijriDate, error)
}

type dateRequest struct {
	key   hawl.MonthKey
	reply chan hawl.HijriDate
}

// DateResolver serializes all conversion requests through one paced
// worker, writing successful resolutions through to the cache.
type DateResolver struct {
	cache     *cache.Cache
	converter HijriConverter
	limiter   *rate.Limiter

	queue chan dateRequest
	stop  chan struct{}
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewDateResolver creates a resolver pacing upstream calls one per
// interval. A zero interval disables pacing (tests use this).
func NewDateResolver(c *cache.Cache, converter HijriConverter, interval time.Duration) *DateResolver {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &DateResolver{
		cache:     c,
		converter: converter,
		limiter:   rate.NewLimiter(limit, 1),
		queue:     make(chan dateRequest, 256),
		stop:      make(chan struct{}),
	}
}

// Start launches the queue worker.
func (r *DateResolver) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run()
	})
}

// Stop terminates the worker. Requests still queued receive the
// "Error" sentinel as the worker drains on shutdown.
func (r *DateResolver) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		r.wg.Wait()
	})
}

// Resolve returns the Hijri date for a Gregorian month. Cache hits
// return immediately; misses join the FIFO queue. Never errors: see
// the failure policy above.
func (r *DateResolver) Resolve(ctx context.Context, key hawl.MonthKey) hawl.HijriDate {
	if d, ok := r.cached(ctx, key); ok {
		return d
	}

	req := dateRequest{key: key, reply: make(chan hawl.HijriDate, 1)}
	select {
	case r.queue <- req:
	case <-ctx.Done():
		return hawl.Unresolvable(hawl.HijriError)
	case <-r.stop:
		return hawl.Unresolvable(hawl.HijriError)
	}

	select {
	case d := <-req.reply:
		return d
	case <-ctx.Done():
		return hawl.Unresolvable(hawl.HijriError)
	}
}

func (r *DateResolver) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stop:
			r.drain()
			return
		case req := <-r.queue:
			if err := r.limiter.Wait(context.Background()); err != nil {
				req.reply <- hawl.Unresolvable(hawl.HijriError)
				continue
			}
			req.reply <- r.resolveNow(req.key)
		}
	}
}

// drain answers queued requests with the Error sentinel so no caller
// blocks past Stop.
func (r *DateResolver) drain() {
	for {
		select {
		case req := <-r.queue:
			req.reply <- hawl.Unresolvable(hawl.HijriError)
		default:
			return
		}
	}
}

func (r *DateResolver) resolveNow(key hawl.MonthKey) hawl.HijriDate {
	ctx := context.Background()

	// A duplicate request may have been queued behind the one that
	// already resolved this key.
	if d, ok := r.cached(ctx, key); ok {
		return d
	}

	d, err := r.converter.Convert(ctx, key.Month, key.Year)
	if errors.Is(err, ErrUnconvertible) {
		log.Printf("[DateResolver] %s not convertible", key)
		return hawl.Unresolvable(hawl.HijriNotAvailable)
	}
	if err != nil {
		log.Printf("[DateResolver] %s failed: %v", key, err)
		return hawl.Unresolvable(hawl.HijriError)
	}

	r.cache.Save(ctx, dateCacheKey(key), cachedHijri{Month: d.Month, Year: d.Year})
	return d
}

func (r *DateResolver) cached(ctx context.Context, key hawl.MonthKey) (hawl.HijriDate, bool) {
	var c cachedHijri
	if !r.cache.Load(ctx, dateCacheKey(key), &c) {
		return hawl.HijriDate{}, false
	}
	return hawl.NewHijriDate(c.Month, c.Year), true
}

// cachedHijri is the cache payload. Sentinels are never cached.
type cachedHijri struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func dateCacheKey(key hawl.MonthKey) string {
	return fmt.Sprintf("hijri:%d-%02d", key.Year, key.Month)
}
