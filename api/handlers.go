/*
handlers.go - HTTP handlers for the calculation API

PURPOSE:
  The ingestion boundary. Validates the uploaded ledger shape, maps it
  onto the orchestrator's Input, and renders report rows or a
  classified error.

ERROR MAPPING:
  Authorization-kind resolution errors -> 401 with a credential-specific
  message (never a generic failure), everything else from the resolvers
  -> 502, structural validation -> 400. The UI renders any 5xx as its
  generic "data could not be loaded" state.

SEE ALSO:
  - dto.go:    Request/response shapes
  - server.go: Router wiring
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/zakat-engine/cache"
	"github.com/warp/zakat-engine/hawl"
	"github.com/warp/zakat-engine/resolve"
	"github.com/warp/zakat-engine/zakat"
)

// Handler serves the calculation endpoints.
type Handler struct {
	dates      *resolve.DateResolver
	nisabCache *cache.Cache
	goldAPIURL string

	// defaultNisab is the process-wide resolver (shared in-flight
	// table) built from the server's configured credential. Requests
	// carrying their own credential get a request-scoped resolver over
	// the same cache.
	defaultNisab *resolve.NisabResolver
}

// NewHandler wires the handler. credential may be empty; calculations
// whose years are fully covered by the request's threshold table still
// succeed without one.
func NewHandler(dates *resolve.DateResolver, nisabCache *cache.Cache, goldAPIURL, credential string) *Handler {
	var source resolve.PriceSource
	if credential != "" {
		source = resolve.NewGoldAPIClient(goldAPIURL, credential)
	}
	return &Handler{
		dates:        dates,
		nisabCache:   nisabCache,
		goldAPIURL:   goldAPIURL,
		defaultNisab: resolve.NewNisabResolver(nisabCache, source),
	}
}

func (h *Handler) calculator(credential string) *zakat.Calculator {
	nisab := h.defaultNisab
	if credential != "" {
		nisab = resolve.NewNisabResolver(h.nisabCache, resolve.NewGoldAPIClient(h.goldAPIURL, credential))
	}
	return zakat.NewCalculator(h.dates, nisab)
}

// Calculate runs a Hawl evaluation over an uploaded ledger.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "No ledger entries provided", nil)
		return
	}

	input, err := toInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ledger", err)
		return
	}

	rows, err := h.calculator(req.Credential).Calculate(r.Context(), input)
	if err != nil {
		switch {
		case resolve.IsAuthorization(err):
			writeError(w, http.StatusUnauthorized, "Nisab price source rejected the request: check your credential", err)
		default:
			writeError(w, http.StatusBadGateway, "Calculation data could not be loaded", err)
		}
		return
	}

	dtos := make([]ReportRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toReportRowDTO(row)
	}
	writeJSON(w, http.StatusOK, CalculationResponse{Rows: dtos})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toInput(req CalculationRequest) (zakat.Input, error) {
	input := zakat.Input{
		Entries:    make([]hawl.LedgerEntry, len(req.Entries)),
		Thresholds: make(map[int]decimal.Decimal, len(req.NisabByYear)),
	}

	for i, e := range req.Entries {
		input.Entries[i] = hawl.LedgerEntry{
			Date:     hawl.MonthKey{Month: e.Month, Year: e.Year},
			Amount:   e.Amount,
			Interest: e.Interest,
		}
	}

	for yearStr, v := range req.NisabByYear {
		year, err := strconv.Atoi(yearStr)
		if err != nil || year <= 0 {
			return zakat.Input{}, strconvErr(yearStr)
		}
		input.Thresholds[year] = v
	}

	return input, nil
}

func strconvErr(year string) error {
	return &jsonFieldError{field: "nisab_by_year", value: year}
}

type jsonFieldError struct {
	field string
	value string
}

func (e *jsonFieldError) Error() string {
	return "invalid " + e.field + " key: " + strconv.Quote(e.value)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
