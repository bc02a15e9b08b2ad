package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Watchlist validation errors
	ErrWatchlistNameRequired  = errors.New("watchlist name is required")
	ErrWatchlistNameTooLong   = errors.New("watchlist name must be at most 100 characters")
	ErrWatchlistNoSymbols     = errors.New("watchlist must contain at least one symbol")
	ErrWatchlistTooManySymbols = errors.New("watchlist must contain at most 100 symbols")

	// Symbol validation errors
	ErrSymbolRequired = errors.New("symbol is required")
	ErrSymbolTooLong  = errors.New("symbol must be at most 32 characters")
	ErrSymbolInvalid  = errors.New("symbol can only contain uppercase letters, digits, dots, colons, and hyphens")
)

// =============================================================================
// Watchlist
// =============================================================================

// Watchlist is a named set of symbols scanned for chart patterns.
type Watchlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Symbols   []string  `json:"symbols"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWatchlist creates a watchlist with the given name and symbols.
// Symbols are normalized to uppercase and deduplicated, preserving order.
// Returns an error if validation fails.
func NewWatchlist(name string, symbols []string) (*Watchlist, error) {
	if err := ValidateWatchlistName(name); err != nil {
		return nil, err
	}
	normalized, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Watchlist{
		ID:        "wl_" + uuid.New().String()[:8],
		Name:      name,
		Slug:      Slugify(name),
		Symbols:   normalized,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename changes the watchlist name and regenerates the slug.
func (w *Watchlist) Rename(name string) error {
	if err := ValidateWatchlistName(name); err != nil {
		return err
	}
	w.Name = name
	w.Slug = Slugify(name)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// SetSymbols replaces the symbol set after normalization.
func (w *Watchlist) SetSymbols(symbols []string) error {
	normalized, err := NormalizeSymbols(symbols)
	if err != nil {
		return err
	}
	w.Symbols = normalized
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// Validation Functions (Pure)
// =============================================================================

var symbolRegex = regexp.MustCompile(`^[A-Z0-9.:\-]+$`)

// ValidateWatchlistName validates a watchlist name.
func ValidateWatchlistName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrWatchlistNameRequired
	}
	if len(name) > 100 {
		return ErrWatchlistNameTooLong
	}
	return nil
}

// ValidateSymbol validates a single ticker symbol. Symbols are expected
// to already be uppercase (e.g. "AAPL", "BRK.A", "O:SPY251219C00650000").
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrSymbolRequired
	}
	if len(symbol) > 32 {
		return ErrSymbolTooLong
	}
	if !symbolRegex.MatchString(symbol) {
		return ErrSymbolInvalid
	}
	return nil
}

// NormalizeSymbols trims, uppercases, validates, and deduplicates symbols,
// preserving first-seen order.
func NormalizeSymbols(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, ErrWatchlistNoSymbols
	}
	if len(symbols) > 100 {
		return nil, ErrWatchlistTooManySymbols
	}

	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if err := ValidateSymbol(sym); err != nil {
			return nil, err
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out, nil
}

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify converts a name to a URL-safe slug: lowercase letters, digits,
// and hyphens are kept, uppercase is lowered, spaces become hyphens, and
// everything else is dropped.
func Slugify(name string) string {
	slug := ""
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			slug += string(r)
		} else if r >= 'A' && r <= 'Z' {
			slug += string(r + 32)
		} else if r == ' ' {
			slug += "-"
		}
	}
	return slug
}
