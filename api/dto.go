/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for the ingestion boundary. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

PRECISION:
  Monetary request fields are decimal.Decimal (accepts JSON numbers and
  strings); monetary response fields are rendered as strings so clients
  never round-trip through floats.

SEE ALSO:
  - handlers.go: Uses these types
  - zakat/calculator.go: The Input shape these map onto
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/zakat-engine/hawl"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LedgerEntryDTO is one month of the uploaded wealth ledger.
type LedgerEntryDTO struct {
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Amount   decimal.Decimal `json:"amount"`
	Interest decimal.Decimal `json:"interest"`
}

// CalculationRequest is the only ingested ledger shape the engine
// accepts: entries, an optional threshold-by-year table, and an
// optional price-source credential.
type CalculationRequest struct {
	Entries     []LedgerEntryDTO           `json:"entries"`
	NisabByYear map[string]decimal.Decimal `json:"nisab_by_year,omitempty"`
	Credential  string                     `json:"credential,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ReportRowDTO is the per-entry verdict returned to clients.
type ReportRowDTO struct {
	Date     string  `json:"date"`
	Hijri    string  `json:"hijri_date"`
	Amount   string  `json:"amount"`
	Interest string  `json:"interest"`
	Total    string  `json:"total"`
	Nisab    string  `json:"nisab_threshold"`
	Zakat    *string `json:"zakat_due"`
	Note     string  `json:"note"`
	RowClass string  `json:"row_class"`
}

// CalculationResponse wraps the report rows.
type CalculationResponse struct {
	Rows []ReportRowDTO `json:"rows"`
}

func toReportRowDTO(row hawl.ReportRow) ReportRowDTO {
	dto := ReportRowDTO{
		Date:     row.Date.String(),
		Hijri:    row.Hijri.String(),
		Amount:   row.Amount.String(),
		Interest: row.Interest.String(),
		Total:    row.Total.String(),
		Nisab:    row.Nisab.String(),
		Note:     row.Note,
		RowClass: row.RowClass,
	}
	if row.Zakat != nil {
		s := row.Zakat.StringFixed(2)
		dto.Zakat = &s
	}
	return dto
}
