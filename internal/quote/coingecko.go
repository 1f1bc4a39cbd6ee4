package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const baseURL = "https://api.coingecko.com/api/v3"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=quote_test -destination=mock_http_client_test.go -source=coingecko.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Market is one reading of the Bitcoin market metrics as reported by the
// provider. Any field may be absent from the response.
type Market struct {
	Price         *float64
	MarketCap     *float64
	Volume24h     *float64
	LastUpdatedAt *time.Time
}

// CoinGeckoClient is a client for the CoinGecko simple price API.
type CoinGeckoClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// currency is the vs_currency the quote is requested in.
	currency string
	// httpClient is the HTTP client used for requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// CoinGeckoClientOption is a configuration option for the CoinGecko client.
type CoinGeckoClientOption func(*CoinGeckoClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) CoinGeckoClientOption {
	return func(c *CoinGeckoClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) CoinGeckoClientOption {
	return func(c *CoinGeckoClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) CoinGeckoClientOption {
	return func(c *CoinGeckoClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewCoinGeckoClient creates a new CoinGecko client. The public simple price
// endpoint needs no API key.
func NewCoinGeckoClient(currency string, options ...CoinGeckoClientOption) *CoinGeckoClient {
	var client = &CoinGeckoClient{
		baseURL:    baseURL,
		currency:   "usd",
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	if currency != "" {
		client.currency = currency
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// SimplePrice retrieves the current Bitcoin price, market cap and 24h volume.
func (c *CoinGeckoClient) SimplePrice(ctx context.Context) (Market, error) {
	query := url.Values{}
	query.Set("ids", "bitcoin")
	query.Set("vs_currencies", c.currency)
	query.Set("include_market_cap", "true")
	query.Set("include_24hr_vol", "true")
	query.Set("include_last_updated_at", "true")

	u := fmt.Sprintf("%s/simple/price?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Market{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Market{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return Market{}, fmt.Errorf("rate limited")

	default:
		return Market{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	// {
	//   "bitcoin": {
	//     "usd": 65000.5,
	//     "usd_market_cap": 1.2e12,
	//     "usd_24h_vol": 3.0e10,
	//     "last_updated_at": 1700000000
	//   }
	// }
	var body map[string]map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Market{}, fmt.Errorf("decoding price response: %w", err)
	}

	coin, ok := body["bitcoin"]
	if !ok {
		return Market{}, fmt.Errorf("response missing bitcoin key")
	}

	price, err := parseNullableValue[float64](coin, c.currency)
	if err != nil {
		return Market{}, fmt.Errorf("decoding price: %w", err)
	}
	marketCap, err := parseNullableValue[float64](coin, c.currency+"_market_cap")
	if err != nil {
		return Market{}, fmt.Errorf("decoding market cap: %w", err)
	}
	volume, err := parseNullableValue[float64](coin, c.currency+"_24h_vol")
	if err != nil {
		return Market{}, fmt.Errorf("decoding 24h volume: %w", err)
	}
	updatedUnix, err := parseNullableValue[float64](coin, "last_updated_at")
	if err != nil {
		return Market{}, fmt.Errorf("decoding last_updated_at: %w", err)
	}
	var updatedAt *time.Time
	if updatedUnix != nil {
		t := time.Unix(int64(*updatedUnix), 0).UTC()
		updatedAt = &t
	}

	return Market{
		Price:         price,
		MarketCap:     marketCap,
		Volume24h:     volume,
		LastUpdatedAt: updatedAt,
	}, nil
}

// parseNullableValue is a helper function to parse a nullable value.
func parseNullableValue[T any](data map[string]any, key string) (*T, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, nil
	}
	if v, ok := v.(T); ok {
		return &v, nil
	}
	return nil, fmt.Errorf("unexpected type: %T", v)
}
