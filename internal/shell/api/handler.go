// Package api provides the HTTP surface: options analysis, on-demand
// pattern analysis, watchlist management, and scan inspection.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chartkit/chartwatch/internal/core/domain"
	"github.com/chartkit/chartwatch/internal/core/options"
	"github.com/chartkit/chartwatch/internal/core/patterns"
	"github.com/chartkit/chartwatch/internal/shell/api/openapi"
	"github.com/chartkit/chartwatch/internal/shell/cache"
	"github.com/chartkit/chartwatch/internal/shell/marketdata"
	"github.com/chartkit/chartwatch/internal/shell/metrics"
	"github.com/chartkit/chartwatch/internal/shell/polygon"
	"github.com/chartkit/chartwatch/internal/shell/store"
	"github.com/chartkit/chartwatch/internal/shell/workers"
)

// topOptionsCount is how many in-the-money contracts an options analysis
// returns, ranked by day volume.
const topOptionsCount = 2

// dateLayout is the wire format for analysis date ranges.
const dateLayout = "2006-01-02"

// =============================================================================
// Handler
// =============================================================================

// ScanTrigger starts an on-demand scanner cycle.
type ScanTrigger interface {
	// TriggerScan starts a cycle and returns the scan ID, or
	// workers.ErrScanRunning when one is already in flight.
	TriggerScan(ctx context.Context) (string, error)
}

// Config holds HTTP handler configuration.
type Config struct {
	// Version is the build version reported by /health.
	Version string

	// CORSOrigins lists allowed origins. Default: all origins.
	CORSOrigins []string

	// LookbackDays is the default pattern-analysis date range.
	// Default: 120.
	LookbackDays int

	// UpstreamConfigured reports whether a market data API key is set.
	UpstreamConfigured bool
}

// Handler handles HTTP API requests.
type Handler struct {
	store   store.Store
	market  *marketdata.Service
	cache   cache.Cache
	scanner ScanTrigger
	spec    *openapi.Generator
	logger  *slog.Logger

	version            string
	corsOrigins        []string
	lookbackDays       int
	upstreamConfigured bool
	startTime          time.Time
}

// NewHandler creates a new API handler. The cache and scanner may be nil
// when those subsystems are disabled.
func NewHandler(cfg Config, st store.Store, market *marketdata.Service, c cache.Cache, scanner ScanTrigger, logger *slog.Logger) *Handler {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 120
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		store:              st,
		market:             market,
		cache:              c,
		scanner:            scanner,
		spec:               newSpecGenerator(cfg.Version),
		logger:             logger.With("component", "api"),
		version:            cfg.Version,
		corsOrigins:        cfg.CORSOrigins,
		lookbackDays:       cfg.LookbackDays,
		upstreamConfigured: cfg.UpstreamConfigured,
		startTime:          time.Now(),
	}
}

// Routes returns the HTTP router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(h.corsHeaders)
	r.Use(jsonContentType)
	r.Use(requestIDHeader)

	// Health checks
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API documentation
	r.Get("/openapi.json", h.spec.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analysis", func(r chi.Router) {
			r.Post("/options", h.handleOptionsAnalysis)
			r.Post("/patterns", h.handlePatternAnalysis)
		})

		r.Route("/watchlists", func(r chi.Router) {
			r.Post("/", h.handleCreateWatchlist)
			r.Get("/", h.handleListWatchlists)
			r.Get("/{id}", h.handleGetWatchlist)
			r.Put("/{id}", h.handleUpdateWatchlist)
			r.Delete("/{id}", h.handleDeleteWatchlist)
		})

		r.Route("/scans", func(r chi.Router) {
			r.Post("/", h.handleTriggerScan)
			r.Get("/", h.handleListScans)
			r.Get("/{id}", h.handleGetScan)
			r.Get("/{id}/detections", h.handleListScanDetections)
		})

		r.Get("/symbols/{symbol}/detections", h.handleListSymbolDetections)

		r.Get("/detectors", h.handleListDetectors)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets the JSON content type on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader echoes the request ID back to the client.
func requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-Id", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// corsHeaders applies the configured CORS policy and short-circuits
// preflight requests.
func (h *Handler) corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := h.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowedOrigin resolves the Access-Control-Allow-Origin value for a
// request origin, or "" when the origin is not allowed.
func (h *Handler) allowedOrigin(origin string) string {
	for _, allowed := range h.corsOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	// Database must answer for the service to accept traffic.
	if err := h.store.Ping(r.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
	}

	// The cache is advisory: a failure is reported but does not gate
	// readiness, the service falls through to the upstream API.
	if h.cache == nil {
		checks["cache"] = "disabled"
	} else if err := h.cache.Ping(r.Context()); err != nil {
		checks["cache"] = "error: " + err.Error()
	} else {
		checks["cache"] = "ok"
	}

	if h.upstreamConfigured {
		checks["upstream"] = "configured"
	} else {
		checks["upstream"] = "not configured"
	}

	resp := ReadyResponse{Status: "ready", Checks: checks}
	status := http.StatusOK
	if !ready {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, resp)
}

// =============================================================================
// Analysis Handlers
// =============================================================================

func (h *Handler) handleOptionsAnalysis(w http.ResponseWriter, r *http.Request) {
	var req OptionsAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required", "invalid_request")
		return
	}
	if err := domain.ValidateSymbol(ticker); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	expiration, err := normalizeExpiration(req.ExpirationDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid expiration date format. Use YYYY-MM-DD.", "invalid_expiration")
		return
	}

	price, err := h.market.UnderlyingPrice(r.Context(), ticker)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	contracts, err := h.market.OptionsChain(r.Context(), ticker)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	analysis, err := options.Analyze(contracts, price, expiration, topOptionsCount)
	if err != nil {
		switch {
		case errors.Is(err, options.ErrNoContractsForExpiration):
			h.writeError(w, http.StatusNotFound, "No options contracts found for the given expiration date.", "no_contracts")
		case errors.Is(err, options.ErrNoITMContracts):
			h.writeError(w, http.StatusNotFound, "No ITM options found.", "no_itm_contracts")
		default:
			h.logger.Error("options analysis failed", "ticker", ticker, "error", err)
			h.writeError(w, http.StatusInternalServerError, "analysis failed", "internal_error")
		}
		return
	}

	resp := OptionsAnalysisResponse{
		Ticker:          ticker,
		ExpirationDate:  analysis.ExpirationDate,
		UnderlyingPrice: analysis.UnderlyingPrice,
		Options:         make([]OptionContractResponse, 0, len(analysis.Contracts)),
	}
	for _, c := range analysis.Contracts {
		resp.Options = append(resp.Options, contractToResponse(c))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePatternAnalysis(w http.ResponseWriter, r *http.Request) {
	var req PatternAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required", "invalid_request")
		return
	}
	if err := domain.ValidateSymbol(ticker); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	window := req.Window
	if window == 0 {
		window = patterns.DefaultWindow
	}
	if window < 2 {
		h.writeError(w, http.StatusBadRequest, "window must be at least 2", "invalid_request")
		return
	}

	var specs []patterns.Spec
	if len(req.Detectors) > 0 {
		specs = make([]patterns.Spec, 0, len(req.Detectors))
		for _, name := range req.Detectors {
			if !patterns.IsValidDetector(name) {
				h.writeError(w, http.StatusBadRequest, "unknown detector: "+name, "invalid_request")
				return
			}
			specs = append(specs, patterns.Spec{Name: name, Window: window})
		}
	} else {
		specs = patterns.DefaultSpecs()
		for i := range specs {
			specs[i].Window = window
		}
	}

	from, to, err := h.analysisRange(req.From, req.To)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.", "invalid_request")
		return
	}
	if to.Before(from) {
		h.writeError(w, http.StatusBadRequest, "from must not be after to", "invalid_request")
		return
	}

	series, err := h.market.DailyCandles(r.Context(), ticker, from, to)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if len(series) == 0 {
		h.writeError(w, http.StatusNotFound, "no candle data for "+ticker+" in the requested range", "no_data")
		return
	}

	matches, err := patterns.Run(series, specs)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	resp := PatternAnalysisResponse{
		Ticker:     ticker,
		From:       from.Format(dateLayout),
		To:         to.Format(dateLayout),
		Candles:    len(series),
		Detections: make([]DetectionEventResponse, 0, len(matches)),
	}
	for _, m := range matches {
		bar := series[m.Index]
		resp.Detections = append(resp.Detections, DetectionEventResponse{
			Detector: m.Detector,
			Pattern:  m.Pattern,
			Index:    m.Index,
			Time:     bar.Time,
			Price:    bar.Close,
		})
	}

	if req.IncludeLevels {
		levels := patterns.SupportResistance(series, window)
		resp.Levels = &LevelsResponse{
			Support:    floatsToPtrs(levels.Support),
			Resistance: floatsToPtrs(levels.Resistance),
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListDetectors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{"detectors": patterns.Names()})
}

// normalizeExpiration resolves an expiration date input. Empty values and
// the "string" placeholder that interactive API docs submit mean no
// expiration filter; anything else must be a YYYY-MM-DD date.
func normalizeExpiration(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "string") {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return "", err
	}
	return value, nil
}

// analysisRange resolves a requested date range, defaulting to the
// configured lookback ending today.
func (h *Handler) analysisRange(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -h.lookbackDays)
	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	return from, to, nil
}

// floatsToPtrs converts values to pointers, mapping NaN to nil so it
// serializes as JSON null.
func floatsToPtrs(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		value := v
		out[i] = &value
	}
	return out
}

// =============================================================================
// Watchlist Handlers
// =============================================================================

func (h *Handler) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req CreateWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	watchlist, err := domain.NewWatchlist(req.Name, req.Symbols)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	if err := h.store.CreateWatchlist(r.Context(), watchlist); err != nil {
		if isDuplicate(err) {
			h.writeError(w, http.StatusConflict, "watchlist with this name already exists", "duplicate_watchlist")
			return
		}
		h.logger.Error("failed to create watchlist", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create watchlist", "internal_error")
		return
	}

	h.logger.Info("watchlist created", "watchlist_id", watchlist.ID, "slug", watchlist.Slug)

	h.writeJSON(w, http.StatusCreated, watchlistToResponse(watchlist))
}

func (h *Handler) handleListWatchlists(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)

	watchlists, err := h.store.ListWatchlists(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list watchlists", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list watchlists", "internal_error")
		return
	}

	resp := ListWatchlistsResponse{
		Watchlists: make([]WatchlistResponse, 0, len(watchlists)),
		Total:      len(watchlists),
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	}
	for i := range watchlists {
		resp.Watchlists = append(resp.Watchlists, watchlistToResponse(&watchlists[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	watchlist, err := h.store.GetWatchlist(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "watchlist not found", "watchlist_not_found")
			return
		}
		h.logger.Error("failed to get watchlist", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get watchlist", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, watchlistToResponse(watchlist))
}

func (h *Handler) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	watchlist, err := h.store.GetWatchlist(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "watchlist not found", "watchlist_not_found")
			return
		}
		h.logger.Error("failed to get watchlist", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get watchlist", "internal_error")
		return
	}

	if req.Name != nil {
		if err := watchlist.Rename(*req.Name); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
			return
		}
	}
	if req.Symbols != nil {
		if err := watchlist.SetSymbols(req.Symbols); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
			return
		}
	}
	if req.Active != nil {
		watchlist.Active = *req.Active
		watchlist.UpdatedAt = time.Now().UTC()
	}

	if err := h.store.UpdateWatchlist(r.Context(), watchlist); err != nil {
		if isDuplicate(err) {
			h.writeError(w, http.StatusConflict, "watchlist with this name already exists", "duplicate_watchlist")
			return
		}
		h.logger.Error("failed to update watchlist", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update watchlist", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, watchlistToResponse(watchlist))
}

func (h *Handler) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteWatchlist(r.Context(), id); err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "watchlist not found", "watchlist_not_found")
			return
		}
		h.logger.Error("failed to delete watchlist", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete watchlist", "internal_error")
		return
	}

	h.logger.Info("watchlist deleted", "watchlist_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Scan Handlers
// =============================================================================

func (h *Handler) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		h.writeError(w, http.StatusServiceUnavailable, "scanner is not enabled", "scanner_disabled")
		return
	}

	scanID, err := h.scanner.TriggerScan(r.Context())
	if err != nil {
		if errors.Is(err, workers.ErrScanRunning) {
			h.writeError(w, http.StatusConflict, "a scan is already running", "scan_running")
			return
		}
		h.logger.Error("failed to trigger scan", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to trigger scan", "internal_error")
		return
	}

	h.logger.Info("scan triggered", "scan_id", scanID)

	h.writeJSON(w, http.StatusAccepted, TriggerScanResponse{
		ScanID: scanID,
		Status: string(domain.ScanStatusRunning),
	})
}

func (h *Handler) handleListScans(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)

	scans, err := h.store.ListScans(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list scans", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list scans", "internal_error")
		return
	}

	resp := ListScansResponse{
		Scans:  make([]ScanResponse, 0, len(scans)),
		Total:  len(scans),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for i := range scans {
		resp.Scans = append(resp.Scans, scanToResponse(&scans[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	scan, err := h.store.GetScan(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "scan not found", "scan_not_found")
			return
		}
		h.logger.Error("failed to get scan", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get scan", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, scanToResponse(scan))
}

func (h *Handler) handleListScanDetections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetScan(r.Context(), id); err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "scan not found", "scan_not_found")
			return
		}
		h.logger.Error("failed to get scan", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get scan", "internal_error")
		return
	}

	opts := listOptions(r)

	detections, err := h.store.ListDetectionsByScan(r.Context(), id, opts)
	if err != nil {
		h.logger.Error("failed to list detections", "scan_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list detections", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, detectionsToListResponse(detections, opts))
}

func (h *Handler) handleListSymbolDetections(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	if err := domain.ValidateSymbol(symbol); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_symbol")
		return
	}

	opts := listOptions(r)

	detections, err := h.store.ListDetectionsBySymbol(r.Context(), symbol, opts)
	if err != nil {
		h.logger.Error("failed to list detections", "symbol", symbol, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list detections", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, detectionsToListResponse(detections, opts))
}

// =============================================================================
// Helpers
// =============================================================================

// listOptions parses limit and offset query parameters.
func listOptions(r *http.Request) store.ListOptions {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}

	return opts
}

// detectionsToListResponse assembles the shared detection list envelope.
func detectionsToListResponse(detections []domain.Detection, opts store.ListOptions) ListDetectionsResponse {
	resp := ListDetectionsResponse{
		Detections: make([]DetectionResponse, 0, len(detections)),
		Total:      len(detections),
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	}
	for i := range detections {
		resp.Detections = append(resp.Detections, detectionToResponse(&detections[i]))
	}
	return resp
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeUpstreamError maps market data failures: upstream API rejections
// keep their detail as 400s, transport failures become 502s.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *polygon.APIError
	if errors.As(err, &apiErr) {
		h.writeError(w, http.StatusBadRequest, apiErr.Error(), "upstream_error")
		return
	}
	h.logger.Error("market data request failed", "error", err)
	h.writeError(w, http.StatusBadGateway, "market data unavailable: "+err.Error(), "upstream_unavailable")
}

// isNotFound checks if an error is a not-found store error.
func isNotFound(err error) bool {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return errors.Is(storeErr.Err, store.ErrNotFound)
	}
	return errors.Is(err, store.ErrNotFound)
}

// isDuplicate checks if an error is a duplicate-key store error.
func isDuplicate(err error) bool {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return errors.Is(storeErr.Err, store.ErrDuplicateID) || errors.Is(storeErr.Err, store.ErrDuplicateSlug)
	}
	return errors.Is(err, store.ErrDuplicateID) || errors.Is(err, store.ErrDuplicateSlug)
}

// =============================================================================
// OpenAPI Registration
// =============================================================================

// newSpecGenerator registers every route with the spec generator.
func newSpecGenerator(version string) *openapi.Generator {
	gen := openapi.NewGenerator(
		openapi.WithTitle("chartwatch API"),
		openapi.WithVersion(version),
		openapi.WithDescription("Options analysis and chart pattern detection API"),
		openapi.WithServer("/"),
	)

	for _, op := range []openapi.OperationInfo{
		{Method: http.MethodGet, Path: "/health", OperationID: "getHealth", Summary: "Liveness check", Tag: "system", Response: HealthResponse{}},
		{Method: http.MethodGet, Path: "/ready", OperationID: "getReady", Summary: "Readiness check", Tag: "system", Response: ReadyResponse{}},
		{Method: http.MethodPost, Path: "/api/v1/analysis/options", OperationID: "analyzeOptions", Summary: "Select the most active in-the-money contracts", Tag: "analysis", Request: OptionsAnalysisRequest{}, Response: OptionsAnalysisResponse{}},
		{Method: http.MethodPost, Path: "/api/v1/analysis/patterns", OperationID: "analyzePatterns", Summary: "Run chart pattern detectors over daily candles", Tag: "analysis", Request: PatternAnalysisRequest{}, Response: PatternAnalysisResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/detectors", OperationID: "listDetectors", Summary: "List available pattern detectors", Tag: "analysis"},
		{Method: http.MethodPost, Path: "/api/v1/watchlists", OperationID: "createWatchlist", Summary: "Create a watchlist", Tag: "watchlists", Request: CreateWatchlistRequest{}, Response: WatchlistResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/v1/watchlists", OperationID: "listWatchlists", Summary: "List watchlists", Tag: "watchlists", Response: ListWatchlistsResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/watchlists/{id}", OperationID: "getWatchlist", Summary: "Get a watchlist", Tag: "watchlists", Response: WatchlistResponse{}},
		{Method: http.MethodPut, Path: "/api/v1/watchlists/{id}", OperationID: "updateWatchlist", Summary: "Update a watchlist", Tag: "watchlists", Request: UpdateWatchlistRequest{}, Response: WatchlistResponse{}},
		{Method: http.MethodDelete, Path: "/api/v1/watchlists/{id}", OperationID: "deleteWatchlist", Summary: "Delete a watchlist", Tag: "watchlists", Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/v1/scans", OperationID: "triggerScan", Summary: "Trigger an immediate scan", Tag: "scans", Response: TriggerScanResponse{}, Status: http.StatusAccepted},
		{Method: http.MethodGet, Path: "/api/v1/scans", OperationID: "listScans", Summary: "List scans", Tag: "scans", Response: ListScansResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/scans/{id}", OperationID: "getScan", Summary: "Get a scan", Tag: "scans", Response: ScanResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/scans/{id}/detections", OperationID: "listScanDetections", Summary: "List detections for a scan", Tag: "scans", Response: ListDetectionsResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/symbols/{symbol}/detections", OperationID: "listSymbolDetections", Summary: "List detections for a symbol", Tag: "scans", Response: ListDetectionsResponse{}},
	} {
		gen.RegisterOperation(op)
	}

	return gen
}
