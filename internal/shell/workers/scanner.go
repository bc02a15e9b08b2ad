// Package workers contains background workers for chartwatch.
package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chartkit/chartwatch/internal/core/domain"
	"github.com/chartkit/chartwatch/internal/core/patterns"
	"github.com/chartkit/chartwatch/internal/shell/marketdata"
	"github.com/chartkit/chartwatch/internal/shell/metrics"
	"github.com/chartkit/chartwatch/internal/shell/store"
)

// ErrScanRunning is returned by TriggerScan when a cycle is already in
// flight. Cycles never overlap.
var ErrScanRunning = errors.New("a scan is already running")

// ScannerConfig configures the pattern scanner worker.
type ScannerConfig struct {
	// Interval is the time between scan cycles.
	// Default: 15 minutes.
	Interval time.Duration

	// MaxConcurrent is the maximum number of symbols scanned concurrently.
	// Default: 4.
	MaxConcurrent int

	// Window is the rolling window passed to every detector.
	// Default: 3.
	Window int

	// LookbackDays is the daily-candle range fetched per symbol.
	// Default: 120.
	LookbackDays int

	// Specs overrides the detector set, typically resolved from a rules
	// file. Default: every registered detector with Window applied.
	Specs []patterns.Spec
}

// DefaultScannerConfig returns the default configuration.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Interval:      15 * time.Minute,
		MaxConcurrent: 4,
		Window:        patterns.DefaultWindow,
		LookbackDays:  120,
	}
}

// Scanner periodically runs every registered pattern detector over the
// symbols of all active watchlists and records what was found.
type Scanner struct {
	store  store.Store
	market *marketdata.Service
	config ScannerConfig
	logger *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	busy   atomic.Bool
}

// NewScanner creates a new pattern scanner worker.
func NewScanner(
	s store.Store,
	market *marketdata.Service,
	config ScannerConfig,
	logger *slog.Logger,
) *Scanner {
	if config.Interval == 0 {
		config.Interval = 15 * time.Minute
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 4
	}
	if config.Window == 0 {
		config.Window = patterns.DefaultWindow
	}
	if config.LookbackDays == 0 {
		config.LookbackDays = 120
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		store:  s,
		market: market,
		config: config,
		logger: logger.With("component", "scanner"),
	}
}

// Start begins the scanner background goroutine. It runs one cycle
// immediately and then on the configured interval.
func (s *Scanner) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scanner started",
		"interval", s.config.Interval,
		"max_concurrent", s.config.MaxConcurrent,
		"lookback_days", s.config.LookbackDays,
	)
}

// Stop gracefully stops the scanner.
// It waits for an in-progress cycle to complete.
func (s *Scanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scanner stopped")
}

// run is the main loop that runs scan cycles periodically.
func (s *Scanner) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.runCycle()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// TriggerScan starts a cycle on demand and returns its scan ID without
// waiting for the cycle to finish. Returns ErrScanRunning when a cycle
// is already in flight.
func (s *Scanner) TriggerScan(ctx context.Context) (string, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrScanRunning
	}

	scan := domain.NewScan()
	if err := s.store.CreateScan(ctx, scan); err != nil {
		s.busy.Store(false)
		return "", err
	}

	// The cycle outlives the request; it runs on the scanner lifecycle.
	runCtx := s.ctx
	if runCtx == nil {
		runCtx = context.Background()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)

		scanCtx, cancel := context.WithTimeout(runCtx, s.config.Interval)
		defer cancel()
		s.runScan(scanCtx, scan)
	}()

	return scan.ID, nil
}

// runCycle executes a single scheduled scan cycle. A cycle still in
// flight, whether triggered or scheduled, is never overlapped.
func (s *Scanner) runCycle() {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous scan still running, skipping cycle")
		return
	}
	defer s.busy.Store(false)

	ctx, cancel := context.WithTimeout(s.ctx, s.config.Interval)
	defer cancel()

	scan := domain.NewScan()
	if err := s.store.CreateScan(ctx, scan); err != nil {
		s.logger.Error("failed to create scan", "error", err)
		return
	}

	s.runScan(ctx, scan)
}

// runScan performs one full pass: collect symbols, fan out candle
// fetches and detectors, store the detections, finalize the scan row.
func (s *Scanner) runScan(ctx context.Context, scan *domain.Scan) {
	start := time.Now()
	logger := s.logger.With("scan_id", scan.ID)

	symbols, err := s.activeSymbols(ctx)
	if err != nil {
		logger.Error("failed to collect symbols", "error", err)
		s.finalizeScan(ctx, scan, 0, 0, err)
		metrics.RecordScanRun("failed", time.Since(start))
		return
	}

	if len(symbols) == 0 {
		logger.Debug("no active symbols to scan")
		s.finalizeScan(ctx, scan, 0, 0, nil)
		metrics.RecordScanRun("completed", time.Since(start))
		return
	}

	logger.Debug("starting scan cycle", "symbol_count", len(symbols))

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -s.config.LookbackDays)

	specs := s.config.Specs
	if len(specs) == 0 {
		specs = patterns.DefaultSpecs()
		for i := range specs {
			specs[i].Window = s.config.Window
		}
	}

	// Use a semaphore to limit concurrent symbol fetches
	sem := make(chan struct{}, s.config.MaxConcurrent)
	var wg sync.WaitGroup

	var (
		mu         sync.Mutex
		detections []domain.Detection
		scanned    int
	)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			found, err := s.scanSymbol(ctx, scan.ID, symbol, from, to, specs)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One bad symbol never fails the cycle.
				logger.Warn("symbol scan failed", "symbol", symbol, "error", err)
				return
			}
			scanned++
			detections = append(detections, found...)
		}(symbol)
	}

	wg.Wait()

	if len(detections) > 0 {
		if err := s.store.CreateDetections(ctx, detections); err != nil {
			logger.Error("failed to store detections", "error", err)
			s.finalizeScan(ctx, scan, scanned, 0, err)
			metrics.RecordScanRun("failed", time.Since(start))
			return
		}

		perDetector := make(map[string]int)
		for i := range detections {
			perDetector[detections[i].Detector]++
		}
		for detector, count := range perDetector {
			metrics.RecordDetections(detector, count)
		}
	}

	s.finalizeScan(ctx, scan, scanned, len(detections), nil)
	metrics.RecordScanRun("completed", time.Since(start))

	logger.Info("scan completed",
		"symbols_scanned", scanned,
		"symbols_total", len(symbols),
		"detections", len(detections),
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// scanSymbol fetches the candle range for one symbol and runs the
// detectors over it.
func (s *Scanner) scanSymbol(ctx context.Context, scanID, symbol string, from, to time.Time, specs []patterns.Spec) ([]domain.Detection, error) {
	series, err := s.market.DailyCandles(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}

	matches, err := patterns.Run(series, specs)
	if err != nil {
		return nil, err
	}

	detections := make([]domain.Detection, 0, len(matches))
	for _, m := range matches {
		bar := series[m.Index]
		detections = append(detections, *domain.NewDetection(scanID, symbol, m.Detector, m.Pattern, bar.Time, bar.Close))
	}
	return detections, nil
}

// activeSymbols collects the deduplicated symbols of all active
// watchlists, preserving first-seen order.
func (s *Scanner) activeSymbols(ctx context.Context) ([]string, error) {
	watchlists, err := s.store.ListActiveWatchlists(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, w := range watchlists {
		for _, symbol := range w.Symbols {
			if seen[symbol] {
				continue
			}
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	return symbols, nil
}

// finalizeScan records the scan outcome.
func (s *Scanner) finalizeScan(ctx context.Context, scan *domain.Scan, symbols, detections int, scanErr error) {
	if scanErr != nil {
		scan.Fail(scanErr.Error())
	} else {
		scan.Complete(symbols, detections)
	}
	if err := s.store.UpdateScan(ctx, scan); err != nil {
		s.logger.Error("failed to update scan", "scan_id", scan.ID, "error", err)
	}
}
