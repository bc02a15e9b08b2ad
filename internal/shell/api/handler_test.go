package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartkit/chartwatch/internal/core/domain"
	"github.com/chartkit/chartwatch/internal/core/patterns"
	"github.com/chartkit/chartwatch/internal/shell/marketdata"
	"github.com/chartkit/chartwatch/internal/shell/polygon"
	"github.com/chartkit/chartwatch/internal/shell/store"
	"github.com/chartkit/chartwatch/internal/shell/workers"
)

// =============================================================================
// Test Helpers
// =============================================================================

// stubStore implements store.Store for testing.
type stubStore struct {
	watchlists map[string]*domain.Watchlist
	scans      map[string]*domain.Scan
	detections []domain.Detection
	pingErr    error
	err        error // If set, all operations return this error
}

func newStubStore() *stubStore {
	return &stubStore{
		watchlists: make(map[string]*domain.Watchlist),
		scans:      make(map[string]*domain.Scan),
	}
}

func (s *stubStore) CreateWatchlist(ctx context.Context, w *domain.Watchlist) error {
	if s.err != nil {
		return s.err
	}
	if _, exists := s.watchlists[w.ID]; exists {
		return store.NewStoreError("CreateWatchlist", "watchlist", w.ID, "already exists", store.ErrDuplicateID)
	}
	for _, existing := range s.watchlists {
		if existing.Slug == w.Slug {
			return store.NewStoreError("CreateWatchlist", "watchlist", w.ID, "slug taken", store.ErrDuplicateSlug)
		}
	}
	s.watchlists[w.ID] = w
	return nil
}

func (s *stubStore) GetWatchlist(ctx context.Context, id string) (*domain.Watchlist, error) {
	if s.err != nil {
		return nil, s.err
	}
	w, ok := s.watchlists[id]
	if !ok {
		return nil, store.NewStoreError("GetWatchlist", "watchlist", id, "not found", store.ErrNotFound)
	}
	return w, nil
}

func (s *stubStore) GetWatchlistBySlug(ctx context.Context, slug string) (*domain.Watchlist, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, w := range s.watchlists {
		if w.Slug == slug {
			return w, nil
		}
	}
	return nil, store.NewStoreError("GetWatchlistBySlug", "watchlist", slug, "not found", store.ErrNotFound)
}

func (s *stubStore) UpdateWatchlist(ctx context.Context, w *domain.Watchlist) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.watchlists[w.ID]; !ok {
		return store.NewStoreError("UpdateWatchlist", "watchlist", w.ID, "not found", store.ErrNotFound)
	}
	s.watchlists[w.ID] = w
	return nil
}

func (s *stubStore) DeleteWatchlist(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.watchlists[id]; !ok {
		return store.NewStoreError("DeleteWatchlist", "watchlist", id, "not found", store.ErrNotFound)
	}
	delete(s.watchlists, id)
	return nil
}

func (s *stubStore) ListWatchlists(ctx context.Context, opts store.ListOptions) ([]domain.Watchlist, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []domain.Watchlist
	for _, w := range s.watchlists {
		result = append(result, *w)
	}
	return result, nil
}

func (s *stubStore) ListActiveWatchlists(ctx context.Context) ([]domain.Watchlist, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []domain.Watchlist
	for _, w := range s.watchlists {
		if w.Active {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (s *stubStore) CreateScan(ctx context.Context, scan *domain.Scan) error {
	if s.err != nil {
		return s.err
	}
	if _, exists := s.scans[scan.ID]; exists {
		return store.NewStoreError("CreateScan", "scan", scan.ID, "already exists", store.ErrDuplicateID)
	}
	s.scans[scan.ID] = scan
	return nil
}

func (s *stubStore) GetScan(ctx context.Context, id string) (*domain.Scan, error) {
	if s.err != nil {
		return nil, s.err
	}
	scan, ok := s.scans[id]
	if !ok {
		return nil, store.NewStoreError("GetScan", "scan", id, "not found", store.ErrNotFound)
	}
	return scan, nil
}

func (s *stubStore) UpdateScan(ctx context.Context, scan *domain.Scan) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.scans[scan.ID]; !ok {
		return store.NewStoreError("UpdateScan", "scan", scan.ID, "not found", store.ErrNotFound)
	}
	s.scans[scan.ID] = scan
	return nil
}

func (s *stubStore) ListScans(ctx context.Context, opts store.ListOptions) ([]domain.Scan, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []domain.Scan
	for _, scan := range s.scans {
		result = append(result, *scan)
	}
	return result, nil
}

func (s *stubStore) CreateDetections(ctx context.Context, detections []domain.Detection) error {
	if s.err != nil {
		return s.err
	}
	s.detections = append(s.detections, detections...)
	return nil
}

func (s *stubStore) ListDetectionsByScan(ctx context.Context, scanID string, opts store.ListOptions) ([]domain.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []domain.Detection
	for _, d := range s.detections {
		if d.ScanID == scanID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *stubStore) ListDetectionsBySymbol(ctx context.Context, symbol string, opts store.ListOptions) ([]domain.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []domain.Detection
	for _, d := range s.detections {
		if d.Symbol == symbol {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *stubStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *stubStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *stubStore) Close() error {
	return nil
}

// stubPolygon implements polygon.Client for testing.
type stubPolygon struct {
	price     float64
	priceErr  error
	contracts []domain.Contract
	chainErr  error
	series    domain.Series
	seriesErr error
}

func (c *stubPolygon) LastTrade(ctx context.Context, ticker string) (float64, error) {
	if c.priceErr != nil {
		return 0, c.priceErr
	}
	return c.price, nil
}

func (c *stubPolygon) OptionsChain(ctx context.Context, underlying string) ([]domain.Contract, error) {
	if c.chainErr != nil {
		return nil, c.chainErr
	}
	return c.contracts, nil
}

func (c *stubPolygon) DailyCandles(ctx context.Context, ticker string, from, to time.Time) (domain.Series, error) {
	if c.seriesErr != nil {
		return nil, c.seriesErr
	}
	return c.series, nil
}

// stubTrigger implements ScanTrigger for testing.
type stubTrigger struct {
	scanID string
	err    error
}

func (s *stubTrigger) TriggerScan(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.scanID, nil
}

// newTestHandler creates a handler with stub dependencies.
func newTestHandler() (*Handler, *stubStore, *stubPolygon) {
	s := newStubStore()
	p := &stubPolygon{}
	market := marketdata.NewService(p, nil, marketdata.DefaultConfig(), nil)
	h := NewHandler(Config{Version: "test", UpstreamConfigured: true}, s, market, nil, &stubTrigger{scanID: "scan_test0001"}, nil)
	return h, s, p
}

// jsonBody encodes a value to JSON and returns a reader.
func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, json.NewEncoder(buf).Encode(v))
	return buf
}

// parseResponse parses a JSON response body into the given type.
func parseResponse[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var result T
	require.NoError(t, json.NewDecoder(body).Decode(&result))
	return result
}

// floatPtr returns a pointer to the given float.
func floatPtr(v float64) *float64 {
	return &v
}

// testChain returns a small call chain around an underlying price of 100.
func testChain() []domain.Contract {
	return []domain.Contract{
		{Ticker: "O:AAPL240119C00090000", Underlying: "AAPL", Type: domain.ContractTypeCall, StrikePrice: 90, ExpirationDate: "2024-01-19", Volume: floatPtr(500), LastPrice: floatPtr(11.2), ImpliedVolatility: floatPtr(0.31)},
		{Ticker: "O:AAPL240119C00095000", Underlying: "AAPL", Type: domain.ContractTypeCall, StrikePrice: 95, ExpirationDate: "2024-01-19", Volume: floatPtr(1200), LastPrice: floatPtr(6.4)},
		{Ticker: "O:AAPL240119C00098000", Underlying: "AAPL", Type: domain.ContractTypeCall, StrikePrice: 98, ExpirationDate: "2024-01-19", Volume: floatPtr(800)},
		{Ticker: "O:AAPL240119C00110000", Underlying: "AAPL", Type: domain.ContractTypeCall, StrikePrice: 110, ExpirationDate: "2024-01-19", Volume: floatPtr(2000)},
		{Ticker: "O:AAPL240216C00090000", Underlying: "AAPL", Type: domain.ContractTypeCall, StrikePrice: 90, ExpirationDate: "2024-02-16", Volume: floatPtr(300)},
	}
}

// testSeries returns count daily candles starting at a fixed date.
func testSeries(count int) domain.Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, count)
	for i := range series {
		base := 100 + float64(i%5)
		series[i] = domain.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   base,
			High:   base + 2,
			Low:    base - 2,
			Close:  base + 1,
			Volume: 1000,
		}
	}
	return series
}

// createTestWatchlist stores a watchlist directly in the stub.
func createTestWatchlist(t *testing.T, s *stubStore, name string, symbols []string) *domain.Watchlist {
	t.Helper()
	w, err := domain.NewWatchlist(name, symbols)
	require.NoError(t, err)
	require.NoError(t, s.CreateWatchlist(context.Background(), w))
	return w
}

// =============================================================================
// Health Endpoint Tests
// =============================================================================

func TestHealth_Success(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[HealthResponse](t, w.Body)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestReady_AllHealthy(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ReadyResponse](t, w.Body)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "disabled", resp.Checks["cache"])
	assert.Equal(t, "configured", resp.Checks["upstream"])
}

func TestReady_DatabaseFailed(t *testing.T) {
	h, s, _ := newTestHandler()
	s.pingErr = store.ErrConnectionFailed

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := parseResponse[ReadyResponse](t, w.Body)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Contains(t, resp.Checks["database"], "error")
}

func TestOpenAPISpec_Served(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[map[string]any](t, w.Body)
	assert.Equal(t, "3.0.3", resp["openapi"])
}

// =============================================================================
// Options Analysis Tests
// =============================================================================

func TestOptionsAnalysis_Success(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 100
	p.contracts = testChain()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "aapl"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[OptionsAnalysisResponse](t, w.Body)
	assert.Equal(t, "AAPL", resp.Ticker)
	assert.Equal(t, 100.0, resp.UnderlyingPrice)
	// Nearest expiration wins, then top two ITM contracts by volume.
	assert.Equal(t, "2024-01-19", resp.ExpirationDate)
	require.Len(t, resp.Options, 2)
	assert.Equal(t, "O:AAPL240119C00095000", resp.Options[0].Ticker)
	assert.Equal(t, "O:AAPL240119C00098000", resp.Options[1].Ticker)
}

func TestOptionsAnalysis_NullableFields(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 100
	p.contracts = testChain()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// The 98 strike has no last trade or IV; both must serialize as null.
	raw := parseResponse[map[string]any](t, w.Body)
	contracts, ok := raw["options"].([]any)
	require.True(t, ok)
	require.Len(t, contracts, 2)
	second := contracts[1].(map[string]any)
	assert.Nil(t, second["last_trade_price"])
	assert.Nil(t, second["implied_volatility"])
	assert.Equal(t, 800.0, second["volume"])
}

func TestOptionsAnalysis_ExplicitExpiration(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 100
	p.contracts = testChain()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL", ExpirationDate: "2024-02-16"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[OptionsAnalysisResponse](t, w.Body)
	assert.Equal(t, "2024-02-16", resp.ExpirationDate)
	require.Len(t, resp.Options, 1)
	assert.Equal(t, "O:AAPL240216C00090000", resp.Options[0].Ticker)
}

func TestOptionsAnalysis_PlaceholderExpiration(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 100
	p.contracts = testChain()

	// Interactive docs submit the literal "string" when the field is left
	// untouched; it must behave like an empty value.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL", ExpirationDate: "String"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[OptionsAnalysisResponse](t, w.Body)
	assert.Equal(t, "2024-01-19", resp.ExpirationDate)
}

func TestOptionsAnalysis_InvalidExpiration(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 100
	p.contracts = testChain()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL", ExpirationDate: "01/19/2024"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "Invalid expiration date format. Use YYYY-MM-DD.", resp.Error)
}

func TestOptionsAnalysis_NoContractsForExpiration(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 100
	p.contracts = testChain()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL", ExpirationDate: "2030-01-01"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "No options contracts found for the given expiration date.", resp.Error)
}

func TestOptionsAnalysis_NoITMContracts(t *testing.T) {
	h, _, p := newTestHandler()
	p.price = 50 // Every strike in the chain is above the underlying
	p.contracts = testChain()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "No ITM options found.", resp.Error)
}

func TestOptionsAnalysis_MissingTicker(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptionsAnalysis_UpstreamRejection(t *testing.T) {
	h, _, p := newTestHandler()
	p.priceErr = &polygon.APIError{StatusCode: 404, Endpoint: "/v2/last/trade/XXXX", Message: "not found"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "XXXX"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "upstream_error", resp.Code)
	assert.Contains(t, resp.Error, "not found")
}

func TestOptionsAnalysis_UpstreamUnavailable(t *testing.T) {
	h, _, p := newTestHandler()
	p.priceErr = assert.AnError

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/options",
		jsonBody(t, OptionsAnalysisRequest{Ticker: "AAPL"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "upstream_unavailable", resp.Code)
}

// =============================================================================
// Pattern Analysis Tests
// =============================================================================

func TestPatternAnalysis_Success(t *testing.T) {
	h, _, p := newTestHandler()
	p.series = testSeries(30)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "spy", From: "2024-01-02", To: "2024-01-31"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[PatternAnalysisResponse](t, w.Body)
	assert.Equal(t, "SPY", resp.Ticker)
	assert.Equal(t, "2024-01-02", resp.From)
	assert.Equal(t, "2024-01-31", resp.To)
	assert.Equal(t, 30, resp.Candles)
	assert.NotNil(t, resp.Detections)
	assert.Nil(t, resp.Levels)
}

func TestPatternAnalysis_WithLevels(t *testing.T) {
	h, _, p := newTestHandler()
	p.series = testSeries(30)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "SPY", From: "2024-01-02", To: "2024-01-31", IncludeLevels: true}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[PatternAnalysisResponse](t, w.Body)
	require.NotNil(t, resp.Levels)
	require.Len(t, resp.Levels.Support, 30)
	require.Len(t, resp.Levels.Resistance, 30)
	// Incomplete windows at the start serialize as null.
	assert.Nil(t, resp.Levels.Support[0])
	assert.NotNil(t, resp.Levels.Support[29])
}

func TestPatternAnalysis_SelectedDetectors(t *testing.T) {
	h, _, p := newTestHandler()
	p.series = testSeries(30)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{
			Ticker:    "SPY",
			Detectors: []string{patterns.DetectorPivots},
			From:      "2024-01-02",
			To:        "2024-01-31",
		}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[PatternAnalysisResponse](t, w.Body)
	for _, d := range resp.Detections {
		assert.Equal(t, patterns.DetectorPivots, d.Detector)
	}
}

func TestPatternAnalysis_UnknownDetector(t *testing.T) {
	h, _, p := newTestHandler()
	p.series = testSeries(30)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "SPY", Detectors: []string{"astrology"}}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Contains(t, resp.Error, "unknown detector")
}

func TestPatternAnalysis_WindowTooSmall(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "SPY", Window: 1}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatternAnalysis_InvalidRange(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "SPY", From: "2024-03-01", To: "2024-01-01"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "from must not be after to", resp.Error)
}

func TestPatternAnalysis_NoData(t *testing.T) {
	h, _, p := newTestHandler()
	p.series = domain.Series{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "SPY"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "no_data", resp.Code)
}

func TestPatternAnalysis_DetectionPricesMatchBars(t *testing.T) {
	h, _, p := newTestHandler()
	series := testSeries(30)
	p.series = series

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/patterns",
		jsonBody(t, PatternAnalysisRequest{Ticker: "SPY", From: "2024-01-02", To: "2024-01-31"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[PatternAnalysisResponse](t, w.Body)
	for _, d := range resp.Detections {
		require.Less(t, d.Index, len(series))
		assert.Equal(t, series[d.Index].Close, d.Price)
		assert.False(t, math.IsNaN(d.Price))
	}
}

func TestListDetectors(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/detectors", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[map[string][]string](t, w.Body)
	assert.Equal(t, patterns.Names(), resp["detectors"])
}

// =============================================================================
// Watchlist Endpoint Tests
// =============================================================================

func TestCreateWatchlist_Success(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlists",
		jsonBody(t, CreateWatchlistRequest{Name: "Tech Majors", Symbols: []string{"aapl", "MSFT"}}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := parseResponse[WatchlistResponse](t, w.Body)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Tech Majors", resp.Name)
	assert.Equal(t, "tech-majors", resp.Slug)
	assert.Equal(t, []string{"AAPL", "MSFT"}, resp.Symbols)
	assert.True(t, resp.Active)
}

func TestCreateWatchlist_ValidationError(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlists",
		jsonBody(t, CreateWatchlistRequest{Name: "Empty"}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "validation_error", resp.Code)
}

func TestCreateWatchlist_DuplicateName(t *testing.T) {
	h, s, _ := newTestHandler()
	createTestWatchlist(t, s, "Tech Majors", []string{"AAPL"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlists",
		jsonBody(t, CreateWatchlistRequest{Name: "Tech Majors", Symbols: []string{"MSFT"}}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "duplicate_watchlist", resp.Code)
}

func TestGetWatchlist_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	created := createTestWatchlist(t, s, "Index Funds", []string{"SPY", "QQQ"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists/"+created.ID, nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[WatchlistResponse](t, w.Body)
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, []string{"SPY", "QQQ"}, resp.Symbols)
}

func TestGetWatchlist_NotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists/wl_missing", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "watchlist_not_found", resp.Code)
}

func TestListWatchlists_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	createTestWatchlist(t, s, "One", []string{"AAPL"})
	createTestWatchlist(t, s, "Two", []string{"MSFT"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ListWatchlistsResponse](t, w.Body)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Watchlists, 2)
	assert.Equal(t, 100, resp.Limit)
}

func TestUpdateWatchlist_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	created := createTestWatchlist(t, s, "Old Name", []string{"AAPL"})

	name := "New Name"
	active := false
	req := httptest.NewRequest(http.MethodPut, "/api/v1/watchlists/"+created.ID,
		jsonBody(t, UpdateWatchlistRequest{Name: &name, Symbols: []string{"NVDA", "AMD"}, Active: &active}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[WatchlistResponse](t, w.Body)
	assert.Equal(t, "New Name", resp.Name)
	assert.Equal(t, "new-name", resp.Slug)
	assert.Equal(t, []string{"NVDA", "AMD"}, resp.Symbols)
	assert.False(t, resp.Active)
}

func TestUpdateWatchlist_PartialUpdate(t *testing.T) {
	h, s, _ := newTestHandler()
	created := createTestWatchlist(t, s, "Keep Name", []string{"AAPL"})

	active := false
	req := httptest.NewRequest(http.MethodPut, "/api/v1/watchlists/"+created.ID,
		jsonBody(t, UpdateWatchlistRequest{Active: &active}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[WatchlistResponse](t, w.Body)
	assert.Equal(t, "Keep Name", resp.Name)
	assert.Equal(t, []string{"AAPL"}, resp.Symbols)
	assert.False(t, resp.Active)
}

func TestUpdateWatchlist_ValidationError(t *testing.T) {
	h, s, _ := newTestHandler()
	created := createTestWatchlist(t, s, "Valid", []string{"AAPL"})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/watchlists/"+created.ID,
		jsonBody(t, UpdateWatchlistRequest{Symbols: []string{"not a symbol!"}}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateWatchlist_NotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	name := "Anything"
	req := httptest.NewRequest(http.MethodPut, "/api/v1/watchlists/wl_missing",
		jsonBody(t, UpdateWatchlistRequest{Name: &name}))
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteWatchlist_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	created := createTestWatchlist(t, s, "Doomed", []string{"AAPL"})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/watchlists/"+created.ID, nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.watchlists)
}

func TestDeleteWatchlist_NotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/watchlists/wl_missing", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// Scan Endpoint Tests
// =============================================================================

func TestTriggerScan_Success(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	resp := parseResponse[TriggerScanResponse](t, w.Body)
	assert.Equal(t, "scan_test0001", resp.ScanID)
	assert.Equal(t, "running", resp.Status)
}

func TestTriggerScan_AlreadyRunning(t *testing.T) {
	h, _, _ := newTestHandler()
	h.scanner = &stubTrigger{err: workers.ErrScanRunning}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "scan_running", resp.Code)
}

func TestTriggerScan_ScannerDisabled(t *testing.T) {
	h, _, _ := newTestHandler()
	h.scanner = nil

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "scanner_disabled", resp.Code)
}

func TestGetScan_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	scan := domain.NewScan()
	scan.Complete(5, 12)
	require.NoError(t, s.CreateScan(context.Background(), scan))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+scan.ID, nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ScanResponse](t, w.Body)
	assert.Equal(t, scan.ID, resp.ID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 5, resp.SymbolsScanned)
	assert.Equal(t, 12, resp.DetectionsFound)
}

func TestGetScan_NotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan_missing", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListScans_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	require.NoError(t, s.CreateScan(context.Background(), domain.NewScan()))
	require.NoError(t, s.CreateScan(context.Background(), domain.NewScan()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ListScansResponse](t, w.Body)
	assert.Equal(t, 2, resp.Total)
}

func TestListScanDetections_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	scan := domain.NewScan()
	require.NoError(t, s.CreateScan(context.Background(), scan))
	barTime := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateDetections(context.Background(), []domain.Detection{
		*domain.NewDetection(scan.ID, "AAPL", patterns.DetectorPivots, patterns.PatternHigherHigh, barTime, 187.5),
		*domain.NewDetection("scan_other", "MSFT", patterns.DetectorWedge, patterns.PatternWedgeUp, barTime, 402.1),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+scan.ID+"/detections", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ListDetectionsResponse](t, w.Body)
	require.Len(t, resp.Detections, 1)
	assert.Equal(t, "AAPL", resp.Detections[0].Symbol)
	assert.Equal(t, patterns.PatternHigherHigh, resp.Detections[0].Pattern)
}

func TestListScanDetections_ScanNotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan_missing/detections", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "scan_not_found", resp.Code)
}

func TestListSymbolDetections_Success(t *testing.T) {
	h, s, _ := newTestHandler()
	barTime := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateDetections(context.Background(), []domain.Detection{
		*domain.NewDetection("scan_1", "AAPL", patterns.DetectorPivots, patterns.PatternHigherHigh, barTime, 187.5),
		*domain.NewDetection("scan_2", "AAPL", patterns.DetectorChannel, patterns.PatternChannelUp, barTime, 190.2),
		*domain.NewDetection("scan_1", "MSFT", patterns.DetectorWedge, patterns.PatternWedgeUp, barTime, 402.1),
	}))

	// Lowercase path parameter is normalized before lookup.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/symbols/aapl/detections", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse[ListDetectionsResponse](t, w.Body)
	assert.Equal(t, 2, resp.Total)
	for _, d := range resp.Detections {
		assert.Equal(t, "AAPL", d.Symbol)
	}
}

func TestListSymbolDetections_InvalidSymbol(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/symbols/not%20a%20symbol/detections", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := parseResponse[ErrorResponse](t, w.Body)
	assert.Equal(t, "invalid_symbol", resp.Code)
}

// =============================================================================
// Middleware Tests
// =============================================================================

func TestCORS_Preflight(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/watchlists", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ConfiguredOrigin(t *testing.T) {
	s := newStubStore()
	market := marketdata.NewService(&stubPolygon{}, nil, marketdata.DefaultConfig(), nil)
	h := NewHandler(Config{CORSOrigins: []string{"https://charts.example.com"}}, s, market, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://charts.example.com")
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://charts.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// Unlisted origins get no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponseHeaders(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
