package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chartkit/chartwatch/internal/core/patterns"
	"github.com/chartkit/chartwatch/internal/core/rules"
	"github.com/chartkit/chartwatch/internal/shell/api"
	"github.com/chartkit/chartwatch/internal/shell/cache"
	"github.com/chartkit/chartwatch/internal/shell/marketdata"
	"github.com/chartkit/chartwatch/internal/shell/ops"
	"github.com/chartkit/chartwatch/internal/shell/polygon"
	"github.com/chartkit/chartwatch/internal/shell/store"
	"github.com/chartkit/chartwatch/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitOK          = 0
	ExitConfigError = 1
	ExitServerError = 2
	ExitStoreError  = 3
)

// =============================================================================
// Server
// =============================================================================

// Server represents the chartwatch application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	opsServer  *ops.Server
	opsHTTP    *http.Server
	store      store.Store
	cache      cache.Cache
	scanner    *workers.Scanner
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Connect to database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitStoreError,
		}
	}

	// Connect the cache when enabled. The cache is advisory: when Redis
	// is unreachable the service runs against the upstream directly.
	var c cache.Cache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Warn("cache unavailable, continuing without it",
				"addr", cfg.Cache.Addr,
				"error", err,
			)
		} else {
			c = redisCache
			logger.Info("cache enabled", "addr", cfg.Cache.Addr)
		}
	} else {
		logger.Info("cache disabled")
	}

	// Create upstream client and market-data service
	client := polygon.NewHTTPClient(polygon.Config{
		BaseURL: cfg.Polygon.BaseURL,
		APIKey:  cfg.Polygon.APIKey,
		Timeout: cfg.Polygon.Timeout,
	})

	market := marketdata.NewService(client, c, marketdata.Config{
		QuoteTTL:  cfg.Cache.QuoteTTL,
		ChainTTL:  cfg.Cache.ChainTTL,
		CandleTTL: cfg.Cache.CandleTTL,
	}, logger)

	// Resolve detector specs from the optional rules file
	var specs []patterns.Spec
	if cfg.Scanner.RulesFile != "" {
		content, err := os.ReadFile(cfg.Scanner.RulesFile)
		if err != nil {
			s.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitConfigError,
			}
		}
		parsed, err := rules.Parse(string(content))
		if err != nil {
			s.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitConfigError,
			}
		}
		specs = parsed.Specs()
		logger.Info("detector rules loaded",
			"file", cfg.Scanner.RulesFile,
			"detectors", len(specs),
		)
	}

	// Create the pattern scanner worker
	var scanner *workers.Scanner
	if cfg.Scanner.Enabled {
		scanner = workers.NewScanner(s, market, workers.ScannerConfig{
			Interval:      cfg.Scanner.Interval,
			MaxConcurrent: cfg.Scanner.Workers,
			Window:        cfg.Scanner.Window,
			LookbackDays:  cfg.Scanner.LookbackDays,
			Specs:         specs,
		}, logger)
	} else {
		logger.Info("scanner disabled")
	}

	// Create HTTP handler
	var trigger api.ScanTrigger
	if scanner != nil {
		trigger = scanner
	}
	handler := api.NewHandler(api.Config{
		Version:            Version,
		LookbackDays:       cfg.Scanner.LookbackDays,
		UpstreamConfigured: cfg.Polygon.APIKey != "",
	}, s, market, c, trigger, logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.KeepAliveTimeout,
	}

	// Create ops listener (metrics/pprof) when a port is configured
	var opsServer *ops.Server
	if cfg.Server.OpsPort != 0 {
		opsCfg := ops.DefaultConfig()
		opsCfg.Address = cfg.Server.OpsAddress()
		opsServer = ops.NewServer(opsCfg, Version, logger)
	} else {
		logger.Info("ops listener disabled")
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		opsServer:  opsServer,
		store:      s,
		cache:      c,
		scanner:    scanner,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the pattern scanner in background
	if s.scanner != nil {
		s.scanner.Start()
	}

	// Start ops listener
	if s.opsServer != nil {
		s.opsHTTP = s.opsServer.Start()
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.Shutdown(context.Background())
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server: listeners first so no
// request sees a closing store, then the scanner, cache, and store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP servers
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
	if s.opsHTTP != nil {
		if err := s.opsHTTP.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("ops server shutdown error", "error", err)
		}
	}

	// Stop the scanner, waiting for an in-flight cycle
	if s.scanner != nil {
		s.scanner.Stop()
	}

	// Close cache connections
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("cache close error", "error", err)
		}
	}

	// Close database
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
