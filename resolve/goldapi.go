/*
goldapi.go - HTTP client for the gold price source

CONTRACT (spec'd at the boundary):
  GET {base}  with header "x-access-token: <credential>"
  -> 200 {"price_gram_24k": 68.12, ...}

  Status classification (tagged at creation, see errors.go):
    401 -> authorization ("invalid credential")
    403 -> authorization ("insufficient rights")
    404 -> configuration ("endpoint not found")
    other non-2xx -> upstream error carrying the status
    missing price_gram_24k -> data-format error
*/
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultGoldAPIBaseURL serves the 24k gram price in USD.
const DefaultGoldAPIBaseURL = "https://www.goldapi.io/api/XAU/USD"

// GoldAPIClient implements PriceSource against a goldapi.io-style API.
type GoldAPIClient struct {
	BaseURL    string
	Credential string
	Client     *http.Client
}

func NewGoldAPIClient(baseURL, credential string) *GoldAPIClient {
	if baseURL == "" {
		baseURL = DefaultGoldAPIBaseURL
	}
	return &GoldAPIClient{
		BaseURL:    baseURL,
		Credential: credential,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type goldAPIResponse struct {
	PriceGram24K *float64 `json:"price_gram_24k"`
}

// GramPrice returns the current 24k gold gram price.
func (c *GoldAPIClient) GramPrice(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("x-access-token", c.Credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price source: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return decimal.Decimal{}, err
	}

	var payload goldAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, &Error{
			Kind:    KindDataFormat,
			Message: "price source payload unparseable",
			Err:     err,
		}
	}
	if payload.PriceGram24K == nil {
		return decimal.Decimal{}, &Error{
			Kind:    KindDataFormat,
			Message: "price source payload missing price_gram_24k",
		}
	}

	return decimal.NewFromFloat(*payload.PriceGram24K), nil
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuthorization, Status: status, Message: "invalid credential"}
	case status == http.StatusForbidden:
		return &Error{Kind: KindAuthorization, Status: status, Message: "insufficient rights"}
	case status == http.StatusNotFound:
		return &Error{Kind: KindConfiguration, Status: status, Message: "price endpoint not found"}
	default:
		return &Error{Kind: KindUpstream, Status: status, Message: "price source failed"}
	}
}
