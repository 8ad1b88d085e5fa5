/*
aladhan.go - HTTP client for the Gregorian-to-Hijri conversion service

CONTRACT (spec'd at the boundary):
  GET {base}/gToH/{DD-MM-YYYY}   (day fixed at 1)
  -> 200 {"code": 200, "data": {"hijri": {"date": "YYYY-MM-DD"}}}

  Only the Hijri month and year are retained. A response whose code is
  not 200 means "recognized but unconvertible" (ErrUnconvertible);
  transport and parse failures return plain errors. The date resolver
  maps the two cases to the N/A and Error sentinels respectively.
*/
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/warp/zakat-engine/hawl"
)

// DefaultAladhanBaseURL is the public conversion endpoint.
const DefaultAladhanBaseURL = "https://api.aladhan.com/v1"

// AladhanClient implements HijriConverter against an Aladhan-style API.
type AladhanClient struct {
	BaseURL string
	Client  *http.Client
}

func NewAladhanClient(baseURL string) *AladhanClient {
	if baseURL == "" {
		baseURL = DefaultAladhanBaseURL
	}
	return &AladhanClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type aladhanResponse struct {
	Code int `json:"code"`
	Data struct {
		Hijri struct {
			Date string `json:"date"` // "YYYY-MM-DD"
		} `json:"hijri"`
	} `json:"data"`
}

// Convert resolves the Hijri date for the first day of the given
// Gregorian month.
func (c *AladhanClient) Convert(ctx context.Context, month, year int) (hawl.HijriDate, error) {
	url := fmt.Sprintf("%s/gToH/01-%02d-%d", c.BaseURL, month, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return hawl.HijriDate{}, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return hawl.HijriDate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hawl.HijriDate{}, fmt.Errorf("date source returned status %d", resp.StatusCode)
	}

	var payload aladhanResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return hawl.HijriDate{}, fmt.Errorf("date source payload: %w", err)
	}

	if payload.Code != http.StatusOK {
		return hawl.HijriDate{}, ErrUnconvertible
	}

	return parseHijriDate(payload.Data.Hijri.Date)
}

// parseHijriDate extracts (month, year) from a "YYYY-MM-DD" date
// string, reversing it into the internal (month, year) order.
func parseHijriDate(s string) (hawl.HijriDate, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return hawl.HijriDate{}, fmt.Errorf("malformed hijri date %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return hawl.HijriDate{}, fmt.Errorf("malformed hijri year in %q", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return hawl.HijriDate{}, fmt.Errorf("malformed hijri month in %q", s)
	}

	return hawl.NewHijriDate(month, year), nil
}
