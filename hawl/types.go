/*
Package hawl provides the core Zakat qualification engine.

PURPOSE:
  This package contains the domain types and the pure state machine that
  decides, month by month, whether a wealth ledger has sustained a Hawl —
  the continuous lunar-year qualifying period of Islamic finance — and
  computes the 2.5% Zakat levy when the Hawl completes.

KEY CONCEPTS IN THIS FILE (types.go):
  - LedgerEntry: One month of declared wealth (amount minus interest)
  - MonthKey:    A Gregorian (month, year) pair used as a lookup key
  - HijriDate:   The lunar-calendar date a MonthKey resolves to
  - ReportRow:   The per-entry verdict produced by the engine

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all monetary values
  2. Purity: Nothing in this package performs I/O; resolved Hijri dates
     and Nisab thresholds are supplied as maps by the orchestrator
  3. Immutability: LedgerEntries and ReportRows are never mutated after
     creation; HawlState is owned by exactly one engine run

DOMAIN CONSTANTS:
  - ZakatRate:       2.5% of qualifying net wealth
  - HawlMonths:      12 lunar months above Nisab
  - NisabGoldGrams:  85 grams of fine gold defines the Nisab threshold

SEE ALSO:
  - engine.go: The Hawl state machine
  - resolve/:  Hijri date and Nisab threshold resolution
  - zakat/:    The orchestrator that feeds this engine
*/
package hawl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DOMAIN CONSTANTS
// =============================================================================

// ZakatRate is the fixed levy rate applied when a Hawl completes.
var ZakatRate = decimal.NewFromFloat(0.025)

const (
	// HawlMonths is the number of lunar months wealth must remain at or
	// above Nisab before Zakat becomes due.
	HawlMonths = 12

	// NisabGoldGrams is the canonical Nisab weight in grams of fine gold.
	// Threshold = gold gram price x NisabGoldGrams.
	NisabGoldGrams = 85
)

// =============================================================================
// MONTH KEY - Gregorian (month, year) pair
// =============================================================================

// MonthKey identifies one Gregorian month. It is the key type for every
// per-period lookup: Hijri dates, Nisab thresholds, ledger deduplication.
type MonthKey struct {
	Month int // 1-12
	Year  int
}

func (k MonthKey) Valid() bool {
	return k.Month >= 1 && k.Month <= 12 && k.Year > 0
}

// Before reports chronological order. Used to sort ledgers ascending.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%d/%d", k.Month, k.Year)
}

// =============================================================================
// HIJRI DATE - Lunar calendar date, possibly a sentinel
// =============================================================================

// Hijri sentinel labels. The date resolver degrades to these instead of
// propagating errors; both render in reports but are excluded from any
// lunar-month arithmetic.
const (
	HijriNotAvailable = "N/A"   // recognized date that could not be converted
	HijriError        = "Error" // transport or parse failure during conversion
)

// HijriDate is a lunar-calendar (month, year). A non-empty Sentinel marks
// an unresolved date; Month/Year are zero in that case.
type HijriDate struct {
	Month    int // 1-12
	Year     int
	Sentinel string
}

func NewHijriDate(month, year int) HijriDate {
	return HijriDate{Month: month, Year: year}
}

// Unresolvable returns the sentinel date for a given failure label.
func Unresolvable(sentinel string) HijriDate {
	return HijriDate{Sentinel: sentinel}
}

// Resolved reports whether the date carries real lunar coordinates.
func (d HijriDate) Resolved() bool { return d.Sentinel == "" && d.Month > 0 }

// MonthsSince returns the lunar-month distance from earlier to d.
// Both dates must be resolved; callers check Resolved() first.
func (d HijriDate) MonthsSince(earlier HijriDate) int {
	return (d.Year-earlier.Year)*12 + (d.Month - earlier.Month)
}

func (d HijriDate) String() string {
	if !d.Resolved() {
		if d.Sentinel != "" {
			return d.Sentinel
		}
		return HijriNotAvailable
	}
	return fmt.Sprintf("%d/%d", d.Month, d.Year)
}

// =============================================================================
// LEDGER ENTRY - One month of declared wealth
// =============================================================================

// LedgerEntry is one month of the caller's wealth ledger. Interest is
// non-halal income and is excluded from the qualifying total.
type LedgerEntry struct {
	Date     MonthKey
	Amount   decimal.Decimal
	Interest decimal.Decimal
}

// Total is the qualifying net value: amount minus interest.
// Only entries with a strictly positive total participate in Hawl
// evaluation.
func (e LedgerEntry) Total() decimal.Decimal {
	return e.Amount.Sub(e.Interest)
}

// =============================================================================
// HAWL STATE - Mutable scan state, one instance per engine run
// =============================================================================

// HawlState tracks the qualifying period during a sequential scan.
// It is owned exclusively by one Evaluate call and never shared.
type HawlState struct {
	Active        bool
	StartDate     *MonthKey // Gregorian date the current Hawl began
	MonthsElapsed int       // lunar months at/above Nisab; 0 when inactive
}

func (s *HawlState) begin(at MonthKey) {
	s.Active = true
	start := at
	s.StartDate = &start
	s.MonthsElapsed = 1
}

func (s *HawlState) reset() {
	s.Active = false
	s.StartDate = nil
	s.MonthsElapsed = 0
}

// =============================================================================
// REPORT ROW - Per-entry verdict
// =============================================================================

// Row classification tags. RowClass is a stable status key the rendering
// layer maps to presentation; Note is the human-readable verdict.
const (
	ClassHawlStart  = "hawl-start"
	ClassBelowNisab = "below-nisab"
	ClassZakatDue   = "zakat-due"
)

const (
	NoteHawlBegins    = "hawl begins"
	NoteHawlContinues = "hawl continues"
	NoteBelowNisab    = "below nisab"
)

// ReportRow is the engine's verdict for one ledger entry. Zakat is nil
// except on the row where a completed Hawl makes the levy due.
type ReportRow struct {
	Date     MonthKey
	Hijri    HijriDate
	Amount   decimal.Decimal
	Interest decimal.Decimal
	Total    decimal.Decimal
	Nisab    decimal.Decimal
	Zakat    *decimal.Decimal
	Note     string
	RowClass string
}
