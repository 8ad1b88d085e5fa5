/*
engine.go - The Hawl state machine

PURPOSE:
  Scans a chronologically sorted wealth ledger and decides, per entry,
  whether the Hawl qualifying period begins, continues, resets, or
  completes with a Zakat charge.

TRANSITION TABLE (per entry, total = amount - interest):

  inactive, total >= nisab  -> active, start here, 1 month elapsed  "hawl begins"
  inactive, total <  nisab  -> inactive                              "below nisab"
  active,   total <  nisab  -> inactive, full reset                  "below nisab"
  active,   total >= nisab, elapsed < 12  -> elapsed advances        "hawl continues"
  active,   total >= nisab, elapsed >= 12 -> reset + charge 2.5%     "zakat due"

MONTH COUNTING:
  Months elapsed are LUNAR months. When both the previous and current
  qualifying entries have resolved Hijri dates, the engine advances by
  the explicit Hijri month delta between them, so gapped ledgers count
  the real lunar distance. When either side is an unresolved sentinel
  (or the delta is non-positive), it falls back to advancing by one,
  which reproduces the monthly-spaced behavior exactly.

PURITY:
  Evaluate never suspends and performs no I/O. Hijri dates and Nisab
  thresholds arrive fully resolved in lookup maps; missing map entries
  degrade to the sentinel date and a zero threshold respectively.

SEE ALSO:
  - types.go:          Domain types and constants
  - zakat/calculator.go: Resolution pipeline feeding this engine
*/
package hawl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine evaluates a sorted ledger against resolved Hijri dates and
// Nisab thresholds. The zero value is ready to use.
type Engine struct{}

// Evaluate runs the Hawl state machine over entries, which MUST be
// sorted ascending by Gregorian date and contain only strictly positive
// totals (the orchestrator enforces both). One ReportRow is produced
// per entry.
func (Engine) Evaluate(entries []LedgerEntry, hijri map[MonthKey]HijriDate, nisab map[MonthKey]decimal.Decimal) []ReportRow {
	rows := make([]ReportRow, 0, len(entries))

	var state HawlState
	var prevHijri HijriDate // Hijri date of the previous qualifying entry

	for _, entry := range entries {
		hijriDate, ok := hijri[entry.Date]
		if !ok {
			hijriDate = Unresolvable(HijriNotAvailable)
		}
		threshold := nisab[entry.Date]

		row := ReportRow{
			Date:     entry.Date,
			Hijri:    hijriDate,
			Amount:   entry.Amount,
			Interest: entry.Interest,
			Total:    entry.Total(),
			Nisab:    threshold,
		}

		switch {
		case row.Total.LessThan(threshold):
			// Below Nisab: any running Hawl is broken.
			state.reset()
			row.Note = NoteBelowNisab
			row.RowClass = ClassBelowNisab

		case !state.Active:
			state.begin(entry.Date)
			prevHijri = hijriDate
			row.Note = NoteHawlBegins
			row.RowClass = ClassHawlStart

		default:
			state.MonthsElapsed += lunarAdvance(prevHijri, hijriDate)
			prevHijri = hijriDate

			if state.MonthsElapsed >= HawlMonths {
				zakat := row.Total.Mul(ZakatRate).Round(2)
				row.Zakat = &zakat
				row.Note = fmt.Sprintf("zakat due since %s", state.StartDate)
				row.RowClass = ClassZakatDue
				state.reset()
			} else {
				row.Note = NoteHawlContinues
			}
		}

		rows = append(rows, row)
	}

	return rows
}

// lunarAdvance returns how many lunar months elapsed between two
// consecutive qualifying entries. Sentinel dates and out-of-order
// deltas advance by one, the monthly-spaced default.
func lunarAdvance(prev, current HijriDate) int {
	if !prev.Resolved() || !current.Resolved() {
		return 1
	}
	if delta := current.MonthsSince(prev); delta > 0 {
		return delta
	}
	return 1
}
