// Package polygon provides the Polygon.io REST client used for quotes,
// options-chain snapshots, and daily aggregates.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chartkit/chartwatch/internal/core/domain"
	"github.com/chartkit/chartwatch/internal/shell/metrics"
)

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the upstream market-data operations.
type Client interface {
	// LastTrade returns the most recent trade price for a ticker.
	LastTrade(ctx context.Context, ticker string) (float64, error)

	// OptionsChain returns the current options-chain snapshot for an
	// underlying ticker.
	OptionsChain(ctx context.Context, underlying string) ([]domain.Contract, error)

	// DailyCandles returns daily OHLCV aggregates for the date range,
	// oldest first. An empty series means the range had no data.
	DailyCandles(ctx context.Context, ticker string, from, to time.Time) (domain.Series, error)
}

// =============================================================================
// API Error
// =============================================================================

// APIError describes a failed upstream call.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polygon %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// =============================================================================
// HTTP Client Implementation
// =============================================================================

// snapshotLimit matches the upstream page size used for chain snapshots.
const snapshotLimit = 100

// Config holds configuration for the Polygon client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns default Polygon client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.polygon.io",
		Timeout: 10 * time.Second,
	}
}

// HTTPClient implements Client against the Polygon.io REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a Polygon REST client.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// lastTradeResponse is the /v2/last/trade payload.
type lastTradeResponse struct {
	Results *struct {
		Price float64 `json:"p"`
	} `json:"results"`
}

// LastTrade returns the most recent trade price for a ticker.
func (c *HTTPClient) LastTrade(ctx context.Context, ticker string) (float64, error) {
	endpoint := "/v2/last/trade/" + ticker

	var payload lastTradeResponse
	if err := c.get(ctx, endpoint, "", &payload); err != nil {
		return 0, err
	}
	if payload.Results == nil {
		return 0, &APIError{StatusCode: http.StatusOK, Endpoint: endpoint, Message: "response has no results"}
	}
	return payload.Results.Price, nil
}

// chainResponse is the /v3/snapshot/options payload.
type chainResponse struct {
	Results []chainOption `json:"results"`
}

type chainOption struct {
	Details struct {
		Ticker         string  `json:"ticker"`
		StrikePrice    float64 `json:"strike_price"`
		ContractType   string  `json:"contract_type"`
		ExpirationDate string  `json:"expiration_date"`
	} `json:"details"`
	Day *struct {
		Volume *float64 `json:"volume"`
		Close  *float64 `json:"close"`
	} `json:"day"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
	UnderlyingAsset   *struct {
		Ticker string `json:"ticker"`
	} `json:"underlying_asset"`
}

// OptionsChain returns the chain snapshot for an underlying ticker.
// Fields missing from the snapshot stay nil on the contract.
func (c *HTTPClient) OptionsChain(ctx context.Context, underlying string) ([]domain.Contract, error) {
	endpoint := "/v3/snapshot/options/" + underlying

	var payload chainResponse
	if err := c.get(ctx, endpoint, fmt.Sprintf("limit=%d", snapshotLimit), &payload); err != nil {
		return nil, err
	}

	contracts := make([]domain.Contract, 0, len(payload.Results))
	for _, opt := range payload.Results {
		contract := domain.Contract{
			Ticker:            opt.Details.Ticker,
			Underlying:        underlying,
			Type:              domain.ContractType(opt.Details.ContractType),
			StrikePrice:       opt.Details.StrikePrice,
			ExpirationDate:    opt.Details.ExpirationDate,
			ImpliedVolatility: opt.ImpliedVolatility,
		}
		if opt.UnderlyingAsset != nil && opt.UnderlyingAsset.Ticker != "" {
			contract.Underlying = opt.UnderlyingAsset.Ticker
		}
		if opt.Day != nil {
			contract.Volume = opt.Day.Volume
			contract.LastPrice = opt.Day.Close
		}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}

// aggsResponse is the /v2/aggs payload.
type aggsResponse struct {
	Results []struct {
		Timestamp int64   `json:"t"`
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

// DailyCandles returns daily aggregates for [from, to], oldest first.
func (c *HTTPClient) DailyCandles(ctx context.Context, ticker string, from, to time.Time) (domain.Series, error) {
	endpoint := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var payload aggsResponse
	if err := c.get(ctx, endpoint, "adjusted=true&sort=asc&limit=50000", &payload); err != nil {
		return nil, err
	}

	series := make(domain.Series, 0, len(payload.Results))
	for _, bar := range payload.Results {
		series = append(series, domain.Candle{
			Time:   time.UnixMilli(bar.Timestamp).UTC(),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	return series, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *HTTPClient) get(ctx context.Context, endpoint, query string, out any) error {
	url := c.baseURL + endpoint
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(endpointLabel(endpoint), 0, time.Since(start))
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(endpointLabel(endpoint), resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// endpointLabel collapses a request path to a bounded metric label.
func endpointLabel(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "/v2/last/trade/"):
		return "last_trade"
	case strings.HasPrefix(endpoint, "/v3/snapshot/options/"):
		return "options_chain"
	case strings.HasPrefix(endpoint, "/v2/aggs/ticker/"):
		return "daily_candles"
	default:
		return "other"
	}
}

// =============================================================================
// No-Op Client (for development/testing)
// =============================================================================

// NoOpClient is a market-data client that returns empty data.
type NoOpClient struct{}

// NewNoOpClient creates a no-op market-data client.
func NewNoOpClient() *NoOpClient {
	return &NoOpClient{}
}

// LastTrade returns zero.
func (c *NoOpClient) LastTrade(ctx context.Context, ticker string) (float64, error) {
	return 0, nil
}

// OptionsChain returns an empty chain.
func (c *NoOpClient) OptionsChain(ctx context.Context, underlying string) ([]domain.Contract, error) {
	return nil, nil
}

// DailyCandles returns an empty series.
func (c *NoOpClient) DailyCandles(ctx context.Context, ticker string, from, to time.Time) (domain.Series, error) {
	return nil, nil
}
