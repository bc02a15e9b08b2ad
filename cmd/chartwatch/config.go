package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Polygon  PolygonConfig  `mapstructure:"polygon"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// OpsPort is the metrics/pprof listener port. 0 disables it.
	OpsPort int `mapstructure:"ops_port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// KeepAliveTimeout is the idle keep-alive window for client
	// connections.
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OpsAddress returns the ops listener address in host:port format.
func (c ServerConfig) OpsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OpsPort)
}

// PolygonConfig holds Polygon.io client configuration.
type PolygonConfig struct {
	BaseURL string `mapstructure:"base_url"`

	// APIKey is required. Set via CHARTWATCH_POLYGON_API_KEY.
	APIKey string `mapstructure:"api_key"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// CacheConfig holds Redis cache configuration.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// TTLs for the three cached upstream payloads.
	QuoteTTL  time.Duration `mapstructure:"quote_ttl"`
	ChainTTL  time.Duration `mapstructure:"chain_ttl"`
	CandleTTL time.Duration `mapstructure:"candle_ttl"`
}

// ScannerConfig holds background scanner configuration.
type ScannerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	Workers      int           `mapstructure:"workers"`
	Window       int           `mapstructure:"window"`
	LookbackDays int           `mapstructure:"lookback_days"`

	// RulesFile is an optional detectors.yaml tuning file.
	RulesFile string `mapstructure:"rules_file"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 80)
	v.SetDefault("server.ops_port", 9090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.keep_alive_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("polygon.base_url", "https://api.polygon.io")
	v.SetDefault("polygon.api_key", "")
	v.SetDefault("polygon.timeout", "10s")
	v.SetDefault("database.dsn", "data/chartwatch.db")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.quote_ttl", "5s")
	v.SetDefault("cache.chain_ttl", "30s")
	v.SetDefault("cache.candle_ttl", "10m")
	v.SetDefault("scanner.enabled", true)
	v.SetDefault("scanner.interval", "15m")
	v.SetDefault("scanner.workers", 4)
	v.SetDefault("scanner.window", 3)
	v.SetDefault("scanner.lookback_days", 120)
	v.SetDefault("scanner.rules_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("CHARTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Platform port bridge: CHARTWATCH_SERVER_PORT wins over the bare
	// PORT variable, which wins over the default.
	v.BindEnv("server.port", "CHARTWATCH_SERVER_PORT", "PORT")

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Polygon.APIKey == "" {
		return errors.New("polygon.api_key is required (set CHARTWATCH_POLYGON_API_KEY)")
	}
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be at least 1, got %d", c.Scanner.Workers)
	}
	if c.Scanner.Interval < time.Minute {
		return fmt.Errorf("scanner.interval must be at least 1m, got %s", c.Scanner.Interval)
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
