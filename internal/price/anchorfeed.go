package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/apierr"
)

// HTTPAnchorFetcher fetches anchor token USD prices from a CoinGecko-shaped
// simple-price endpoint, the same minimal single-purpose HTTP client shape
// the teacher's provider clients use (one base URL, one GET, JSON in).
type HTTPAnchorFetcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPAnchorFetcher builds a fetcher against baseURL (e.g.
// "https://api.coingecko.com/api/v3").
func NewHTTPAnchorFetcher(baseURL string) *HTTPAnchorFetcher {
	return &HTTPAnchorFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// FetchUSD retrieves the current USD price for a CoinGecko-style
// coin id (the anchor token's external_price_id).
func (f *HTTPAnchorFetcher) FetchUSD(ctx context.Context, externalPriceID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", f.baseURL, url.QueryEscape(externalPriceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, apierr.Wrap(apierr.KindInternal, "build anchor price request", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, apierr.Wrap(apierr.KindUnavailable, "fetch anchor price", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, apierr.New(apierr.KindUnavailable, fmt.Sprintf("anchor price feed status %d", resp.StatusCode))
	}

	var body map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Decimal{}, apierr.Wrap(apierr.KindUnavailable, "decode anchor price response", err)
	}

	entry, ok := body[externalPriceID]
	if !ok {
		return decimal.Decimal{}, apierr.New(apierr.KindUnavailable, "anchor price feed returned no entry for "+externalPriceID)
	}
	usd, ok := entry["usd"]
	if !ok {
		return decimal.Decimal{}, apierr.New(apierr.KindUnavailable, "anchor price feed response missing usd field")
	}
	return usd, nil
}
