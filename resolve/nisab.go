/*
nisab.go - Nisab threshold resolver with request coalescing

PURPOSE:
  Resolves the Nisab monetary threshold for a period: the price of one
  gram of fine gold times the canonical 85 grams. Thresholds come from
  the TTL cache when possible; otherwise at most ONE upstream price
  call is in flight per key, shared by every concurrent caller.

RESOLUTION ORDER:
  1. Cached value for the (year[, month]) key — no network call.
  2. Join an in-flight resolution for that exact key, if any.
  3. No credential configured -> authorization error.
  4. Upstream call; classify the response (see errors.go); on success
     threshold = gram price x 85, write through, return.

COALESCING:
  singleflight keys the in-flight table and releases the key when the
  shared call returns, success or failure, so retries never deadlock.

SEE ALSO:
  - goldapi.go: The HTTP price client
  - errors.go:  Kind taxonomy these failures carry
*/
package resolve

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/warp/zakat-engine/cache"
	"github.com/warp/zakat-engine/hawl"
)

// PriceSource is the upstream gold-price contract: the current price
// of one gram of 24k gold in the configured currency. Implementations
// return *Error values with the Kind already set.
type PriceSource interface {
	GramPrice(ctx context.Context) (decimal.Decimal, error)
}

// ThresholdKey identifies a Nisab period: a year, optionally narrowed
// to a month. Month 0 means yearly granularity.
type ThresholdKey struct {
	Year  int
	Month int
}

func (k ThresholdKey) String() string {
	if k.Month > 0 {
		return fmt.Sprintf("%d-%02d", k.Year, k.Month)
	}
	return fmt.Sprintf("%d", k.Year)
}

// NisabResolver resolves thresholds with per-key single-flight
// coalescing over the TTL cache.
type NisabResolver struct {
	cache  *cache.Cache
	source PriceSource // nil when no credential is configured
	flight singleflight.Group
}

// NewNisabResolver creates a resolver. Pass a nil source when no
// price-source credential is configured; cached values still resolve,
// anything else fails with an authorization-class error.
func NewNisabResolver(c *cache.Cache, source PriceSource) *NisabResolver {
	return &NisabResolver{cache: c, source: source}
}

// Resolve returns the Nisab threshold for key.
func (r *NisabResolver) Resolve(ctx context.Context, key ThresholdKey) (decimal.Decimal, error) {
	if v, ok := r.cached(ctx, key); ok {
		return v, nil
	}

	v, err, _ := r.flight.Do(key.String(), func() (any, error) {
		// The winner of a coalesced burst may have cached the value
		// after this caller's miss.
		if v, ok := r.cached(ctx, key); ok {
			return v, nil
		}

		if r.source == nil {
			return nil, &Error{
				Kind:    KindAuthorization,
				Message: "cannot resolve nisab threshold",
				Err:     ErrNoCredential,
			}
		}

		price, err := r.source.GramPrice(ctx)
		if err != nil {
			return nil, err
		}

		threshold := price.Mul(decimal.NewFromInt(hawl.NisabGoldGrams))
		r.cache.Save(ctx, thresholdCacheKey(key), threshold)
		return threshold, nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return v.(decimal.Decimal), nil
}

func (r *NisabResolver) cached(ctx context.Context, key ThresholdKey) (decimal.Decimal, bool) {
	var v decimal.Decimal
	if !r.cache.Load(ctx, thresholdCacheKey(key), &v) {
		return decimal.Decimal{}, false
	}
	return v, true
}

func thresholdCacheKey(key ThresholdKey) string {
	return "nisab:" + key.String()
}
