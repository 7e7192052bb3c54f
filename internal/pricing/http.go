package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
)

// HTTPClient is implemented by *http.Client and by any test double.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HistoricalPriceProvider queries a single upstream REST API for an
// asset's USD price at a point in time. Price lookups are single-shot
// point queries, not the paginated, resumable streams the provider
// manager (C8) drives, so this wraps a plain HTTPClient directly
// rather than going through registry/failover machinery.
type HistoricalPriceProvider struct {
	BaseURL string
	APIKey  string
	Client  HTTPClient
}

// NewHistoricalPriceProvider builds a provider with a 30s per-request
// timeout.
func NewHistoricalPriceProvider(baseURL, apiKey string) *HistoricalPriceProvider {
	return &HistoricalPriceProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type historicalPriceResponse struct {
	USD json.Number `json:"usd"`
}

// Price implements PriceProvider.
func (p *HistoricalPriceProvider) Price(ctx context.Context, asset string, at time.Time) (money.Decimal, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/history", p.BaseURL, url.PathEscape(asset))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return money.Decimal{}, apperr.Wrap(apperr.CodeInternal, "building price request", err)
	}
	q := req.URL.Query()
	q.Set("date", at.Format("02-01-2006"))
	if p.APIKey != "" {
		q.Set("x_cg_api_key", p.APIKey)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := p.Client.Do(req)
	if err != nil {
		return money.Decimal{}, apperr.Wrap(apperr.CodeProviderTimeout, "fetching historical price", err)
	}
	defer resp.Body.Close()

	if err := statusToAppErr(resp.StatusCode); err != nil {
		return money.Decimal{}, err
	}

	var body struct {
		MarketData struct {
			CurrentPrice historicalPriceResponse `json:"current_price"`
		} `json:"market_data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return money.Decimal{}, apperr.Wrap(apperr.CodeProviderServer, "decoding price response", err)
	}

	return money.NewDecimal(body.MarketData.CurrentPrice.USD.String())
}

// ExchangeRateProvider queries a single upstream FX API for a
// currency-to-USD rate at a point in time.
type ExchangeRateProvider struct {
	BaseURL string
	APIKey  string
	Client  HTTPClient
}

// NewExchangeRateProvider builds an FX rate provider with the same
// request timeout discipline as HistoricalPriceProvider.
func NewExchangeRateProvider(baseURL, apiKey string) *ExchangeRateProvider {
	return &ExchangeRateProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Rate implements FxRateProvider.
func (p *ExchangeRateProvider) Rate(ctx context.Context, currency string, at time.Time) (money.Decimal, error) {
	currency = strings.ToLower(currency)
	endpoint := fmt.Sprintf("%s/%s/%s.json", p.BaseURL, at.Format("2006-01-02"), url.PathEscape(currency))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return money.Decimal{}, apperr.Wrap(apperr.CodeInternal, "building fx rate request", err)
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return money.Decimal{}, apperr.Wrap(apperr.CodeProviderTimeout, "fetching fx rate", err)
	}
	defer resp.Body.Close()

	if err := statusToAppErr(resp.StatusCode); err != nil {
		return money.Decimal{}, err
	}

	var body map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return money.Decimal{}, apperr.Wrap(apperr.CodeProviderServer, "decoding fx rate response", err)
	}
	rates, ok := body[currency]
	if !ok {
		return money.Decimal{}, apperr.New(apperr.CodeNotFound, fmt.Sprintf("no fx rate for %s", currency))
	}
	rate, ok := rates["usd"]
	if !ok {
		return money.Decimal{}, apperr.New(apperr.CodeNotFound, fmt.Sprintf("no usd leg for %s", currency))
	}
	return money.NewDecimal(rate.String())
}

func statusToAppErr(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return apperr.New(apperr.CodeRateLimited, "price provider rate limited the request")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.New(apperr.CodeAuthentication, "price provider rejected credentials")
	case status == http.StatusNotFound:
		return apperr.New(apperr.CodeNotFound, "price provider has no data for this query")
	case status >= 500:
		return apperr.New(apperr.CodeProviderServer, fmt.Sprintf("price provider returned %d", status))
	case status >= 400:
		return apperr.New(apperr.CodeProviderClient, fmt.Sprintf("price provider returned %d", status))
	default:
		return nil
	}
}
