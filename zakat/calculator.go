/*
Package zakat composes the calculation pipeline.

PURPOSE:
  The Calculator is the orchestrator over the three lower layers: it
  normalizes the caller's wealth ledger, fans unique lookups out to the
  Hijri date resolver and the Nisab threshold resolver, and runs the
  Hawl engine once over the resolved maps.

PIPELINE:
  raw entries
    -> filter (keep strictly positive totals) + validate + sort
    -> unique (month, year) keys      -> DateResolver (serialized queue)
    -> unique years not in the table  -> NisabResolver (coalesced, bounded)
    -> merged lookup maps
    -> hawl.Engine.Evaluate (pure sequential scan)
    -> report rows

FAILURE POLICY:
  Date failures degrade to sentinels inside the resolver and never
  abort a run. Any threshold resolution error aborts the whole run
  atomically - no partial report is ever returned.

SEE ALSO:
  - hawl/engine.go: The state machine this feeds
  - resolve/:       Both resolvers
  - api/handlers.go: The ingestion boundary calling Calculate
*/
package zakat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/zakat-engine/hawl"
	"github.com/warp/zakat-engine/resolve"
)

// thresholdFanout bounds concurrent threshold resolutions. The date
// resolver needs no bound here; its queue is globally serialized.
const thresholdFanout = 4

// Input is the ingested ledger shape: entries, an externally supplied
// threshold-by-year table, and (implicitly, via resolver wiring) an
// optional price-source credential.
type Input struct {
	Entries []hawl.LedgerEntry

	// Thresholds pre-seeds Nisab values by Gregorian year. Years
	// covered here never hit the threshold resolver.
	Thresholds map[int]decimal.Decimal
}

// Calculator orchestrates one calculation run.
type Calculator struct {
	Dates  *resolve.DateResolver
	Nisab  *resolve.NisabResolver
	Engine hawl.Engine
}

func NewCalculator(dates *resolve.DateResolver, nisab *resolve.NisabResolver) *Calculator {
	return &Calculator{Dates: dates, Nisab: nisab}
}

// Calculate produces one report row per qualifying entry. It fails
// atomically when an entry carries an invalid date or when threshold
// resolution raises an unrecoverable error.
func (c *Calculator) Calculate(ctx context.Context, input Input) ([]hawl.ReportRow, error) {
	entries, err := normalize(input.Entries)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []hawl.ReportRow{}, nil
	}

	months := uniqueMonths(entries)
	years := uniqueYears(months, input.Thresholds)

	hijriByMonth := make(map[hawl.MonthKey]hawl.HijriDate, len(months))
	nisabByYear := make(map[int]decimal.Decimal, len(years)+len(input.Thresholds))
	for year, v := range input.Thresholds {
		nisabByYear[year] = v
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	// Dates: the resolver serializes upstream calls internally, so one
	// feeding goroutine is enough and preserves enqueue order.
	g.Go(func() error {
		for _, key := range months {
			d := c.Dates.Resolve(gctx, key)
			mu.Lock()
			hijriByMonth[key] = d
			mu.Unlock()
		}
		return nil
	})

	// Thresholds: bounded fan-out, per-key coalescing in the resolver.
	tg, tctx := errgroup.WithContext(gctx)
	tg.SetLimit(thresholdFanout)
	g.Go(func() error {
		for _, year := range years {
			year := year
			tg.Go(func() error {
				v, err := c.Nisab.Resolve(tctx, resolve.ThresholdKey{Year: year})
				if err != nil {
					return fmt.Errorf("nisab threshold for %d: %w", year, err)
				}
				mu.Lock()
				nisabByYear[year] = v
				mu.Unlock()
				return nil
			})
		}
		return tg.Wait()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	nisabByMonth := make(map[hawl.MonthKey]decimal.Decimal, len(months))
	for _, key := range months {
		nisabByMonth[key] = nisabByYear[key.Year]
	}

	return c.Engine.Evaluate(entries, hijriByMonth, nisabByMonth), nil
}

// normalize copies the caller's entries into a working set: invalid
// dates fail the run, non-positive totals are dropped, and the rest is
// sorted ascending by Gregorian date.
func normalize(raw []hawl.LedgerEntry) ([]hawl.LedgerEntry, error) {
	entries := make([]hawl.LedgerEntry, 0, len(raw))
	for _, e := range raw {
		if !e.Date.Valid() {
			return nil, fmt.Errorf("entry has unresolvable date %s", e.Date)
		}
		if !e.Total().IsPositive() {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

func uniqueMonths(entries []hawl.LedgerEntry) []hawl.MonthKey {
	seen := make(map[hawl.MonthKey]bool, len(entries))
	months := make([]hawl.MonthKey, 0, len(entries))
	for _, e := range entries {
		if !seen[e.Date] {
			seen[e.Date] = true
			months = append(months, e.Date)
		}
	}
	return months
}

// uniqueYears returns the years needing resolution: those not covered
// by the externally supplied threshold table.
func uniqueYears(months []hawl.MonthKey, provided map[int]decimal.Decimal) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, key := range months {
		if _, ok := provided[key.Year]; ok {
			continue
		}
		if !seen[key.Year] {
			seen[key.Year] = true
			years = append(years, key.Year)
		}
	}
	return years
}
