package api

import (
	"time"

	"github.com/chartkit/chartwatch/internal/core/domain"
)

// =============================================================================
// Request Types
// =============================================================================

// OptionsAnalysisRequest is the request body for POST /api/v1/analysis/options.
// ExpirationDate is optional; empty or the literal "string" placeholder means
// the nearest expiration in the chain is used.
type OptionsAnalysisRequest struct {
	Ticker         string `json:"ticker"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// PatternAnalysisRequest is the request body for POST /api/v1/analysis/patterns.
// Zero values fall back to defaults: all detectors, window 3, and a date
// range ending today covering the configured lookback.
type PatternAnalysisRequest struct {
	Ticker        string   `json:"ticker"`
	Detectors     []string `json:"detectors,omitempty"`
	Window        int      `json:"window,omitempty"`
	From          string   `json:"from,omitempty"`
	To            string   `json:"to,omitempty"`
	IncludeLevels bool     `json:"include_levels,omitempty"`
}

// CreateWatchlistRequest is the request body for creating a watchlist.
type CreateWatchlistRequest struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// UpdateWatchlistRequest is the request body for updating a watchlist.
// Nil fields are left unchanged.
type UpdateWatchlistRequest struct {
	Name    *string  `json:"name,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	Active  *bool    `json:"active,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// OptionContractResponse is one contract in an options analysis result.
// Volume, last trade price, and implied volatility are null when the
// upstream snapshot did not include them.
type OptionContractResponse struct {
	Ticker            string   `json:"ticker"`
	ContractType      string   `json:"contract_type"`
	StrikePrice       float64  `json:"strike_price"`
	ExpirationDate    string   `json:"expiration_date"`
	Volume            *float64 `json:"volume"`
	LastTradePrice    *float64 `json:"last_trade_price"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
}

// OptionsAnalysisResponse is the result of an options chain analysis.
type OptionsAnalysisResponse struct {
	Ticker          string                   `json:"ticker"`
	ExpirationDate  string                   `json:"expiration_date"`
	UnderlyingPrice float64                  `json:"underlying_price"`
	Options         []OptionContractResponse `json:"options"`
}

// DetectionEventResponse is one pattern occurrence in an on-demand analysis.
type DetectionEventResponse struct {
	Detector string    `json:"detector"`
	Pattern  string    `json:"pattern"`
	Index    int       `json:"index"`
	Time     time.Time `json:"time"`
	Price    float64   `json:"price"`
}

// LevelsResponse holds per-bar support and resistance values. Entries are
// null where the rolling window is incomplete.
type LevelsResponse struct {
	Support    []*float64 `json:"support"`
	Resistance []*float64 `json:"resistance"`
}

// PatternAnalysisResponse is the result of an on-demand pattern analysis.
type PatternAnalysisResponse struct {
	Ticker     string                   `json:"ticker"`
	From       string                   `json:"from"`
	To         string                   `json:"to"`
	Candles    int                      `json:"candles"`
	Detections []DetectionEventResponse `json:"detections"`
	Levels     *LevelsResponse          `json:"levels,omitempty"`
}

// WatchlistResponse represents a watchlist in API responses.
type WatchlistResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Symbols   []string  `json:"symbols"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListWatchlistsResponse is the response for listing watchlists.
type ListWatchlistsResponse struct {
	Watchlists []WatchlistResponse `json:"watchlists"`
	Total      int                 `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// ScanResponse represents a scan in API responses.
type ScanResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	SymbolsScanned  int        `json:"symbols_scanned"`
	DetectionsFound int        `json:"detections_found"`
	Error           string     `json:"error,omitempty"`
}

// ListScansResponse is the response for listing scans.
type ListScansResponse struct {
	Scans  []ScanResponse `json:"scans"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// TriggerScanResponse is returned when an on-demand scan is accepted.
type TriggerScanResponse struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}

// DetectionResponse represents a stored detection in API responses.
type DetectionResponse struct {
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id"`
	Symbol     string    `json:"symbol"`
	Detector   string    `json:"detector"`
	Pattern    string    `json:"pattern"`
	BarTime    time.Time `json:"bar_time"`
	Price      float64   `json:"price"`
	DetectedAt time.Time `json:"detected_at"`
}

// ListDetectionsResponse is the response for listing detections.
type ListDetectionsResponse struct {
	Detections []DetectionResponse `json:"detections"`
	Total      int                 `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the response for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadyResponse is the response for readiness checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// =============================================================================
// Converters
// =============================================================================

// watchlistToResponse converts a domain watchlist to its API representation.
func watchlistToResponse(w *domain.Watchlist) WatchlistResponse {
	return WatchlistResponse{
		ID:        w.ID,
		Name:      w.Name,
		Slug:      w.Slug,
		Symbols:   w.Symbols,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// scanToResponse converts a domain scan to its API representation.
func scanToResponse(s *domain.Scan) ScanResponse {
	return ScanResponse{
		ID:              s.ID,
		Status:          string(s.Status),
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		SymbolsScanned:  s.SymbolsScanned,
		DetectionsFound: s.DetectionsFound,
		Error:           s.Error,
	}
}

// detectionToResponse converts a stored detection to its API representation.
func detectionToResponse(d *domain.Detection) DetectionResponse {
	return DetectionResponse{
		ID:         d.ID,
		ScanID:     d.ScanID,
		Symbol:     d.Symbol,
		Detector:   d.Detector,
		Pattern:    d.Pattern,
		BarTime:    d.BarTime,
		Price:      d.Price,
		DetectedAt: d.DetectedAt,
	}
}

// contractToResponse converts a domain contract to its API representation.
func contractToResponse(c domain.Contract) OptionContractResponse {
	return OptionContractResponse{
		Ticker:            c.Ticker,
		ContractType:      string(c.Type),
		StrikePrice:       c.StrikePrice,
		ExpirationDate:    c.ExpirationDate,
		Volume:            c.Volume,
		LastTradePrice:    c.LastPrice,
		ImpliedVolatility: c.ImpliedVolatility,
	}
}
