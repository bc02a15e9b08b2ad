package store

import (
	"context"

	"github.com/chartkit/chartwatch/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for chartwatch entities.
type Store interface {
	// Watchlist operations
	CreateWatchlist(ctx context.Context, watchlist *domain.Watchlist) error
	GetWatchlist(ctx context.Context, id string) (*domain.Watchlist, error)
	GetWatchlistBySlug(ctx context.Context, slug string) (*domain.Watchlist, error)
	UpdateWatchlist(ctx context.Context, watchlist *domain.Watchlist) error
	DeleteWatchlist(ctx context.Context, id string) error
	ListWatchlists(ctx context.Context, opts ListOptions) ([]domain.Watchlist, error)
	ListActiveWatchlists(ctx context.Context) ([]domain.Watchlist, error)

	// Scan operations
	CreateScan(ctx context.Context, scan *domain.Scan) error
	GetScan(ctx context.Context, id string) (*domain.Scan, error)
	UpdateScan(ctx context.Context, scan *domain.Scan) error
	ListScans(ctx context.Context, opts ListOptions) ([]domain.Scan, error)

	// Detection operations
	CreateDetections(ctx context.Context, detections []domain.Detection) error
	ListDetectionsByScan(ctx context.Context, scanID string, opts ListOptions) ([]domain.Detection, error)
	ListDetectionsBySymbol(ctx context.Context, symbol string, opts ListOptions) ([]domain.Detection, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination and filtering options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
