// Package options provides pure functions for options-chain analysis.
// Following ADR-002: Values as Boundaries - this package contains NO I/O.
package options

import (
	"errors"
	"sort"

	"github.com/chartkit/chartwatch/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoContractsForExpiration is returned when a requested expiration
	// date matches no contract in the chain.
	ErrNoContractsForExpiration = errors.New("no options contracts found for the given expiration date")

	// ErrNoITMContracts is returned when no contract in the selected
	// expiration is in the money.
	ErrNoITMContracts = errors.New("no ITM options found")
)

// =============================================================================
// Analysis Result
// =============================================================================

// Analysis is the outcome of selecting the most active in-the-money
// contracts for one expiration of an options chain.
type Analysis struct {
	UnderlyingPrice float64
	ExpirationDate  string
	Contracts       []domain.Contract
}

// =============================================================================
// Chain Selection (Pure Functions)
// =============================================================================

// FilterInTheMoney returns the contracts that are in the money at the
// given underlying price. Order is preserved.
func FilterInTheMoney(contracts []domain.Contract, underlying float64) []domain.Contract {
	out := make([]domain.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.InTheMoney(underlying) {
			out = append(out, c)
		}
	}
	return out
}

// SortByVolume returns a copy of contracts sorted by day volume,
// descending. Contracts without volume sort as zero. The sort is stable
// so equal-volume contracts keep their chain order.
func SortByVolume(contracts []domain.Contract) []domain.Contract {
	out := make([]domain.Contract, len(contracts))
	copy(out, contracts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VolumeOrZero() > out[j].VolumeOrZero()
	})
	return out
}

// FilterByExpiration returns the contracts expiring on the given
// YYYY-MM-DD date. Order is preserved.
func FilterByExpiration(contracts []domain.Contract, date string) []domain.Contract {
	out := make([]domain.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.ExpirationDate == date {
			out = append(out, c)
		}
	}
	return out
}

// NearestExpiration returns the earliest expiration date present in the
// chain. YYYY-MM-DD dates order lexicographically. Returns ok=false for
// an empty chain.
func NearestExpiration(contracts []domain.Contract) (string, bool) {
	nearest := ""
	for _, c := range contracts {
		if nearest == "" || c.ExpirationDate < nearest {
			nearest = c.ExpirationDate
		}
	}
	return nearest, nearest != ""
}

// =============================================================================
// Analysis
// =============================================================================

// Analyze selects the top in-the-money contracts from a chain snapshot.
//
// When expirationDate is non-empty, only contracts expiring on that date
// are considered; if none match, ErrNoContractsForExpiration is returned.
// Otherwise the nearest expiration in the chain is used. The surviving
// contracts are filtered to in-the-money (ErrNoITMContracts if empty),
// sorted by day volume descending, and truncated to topN.
func Analyze(contracts []domain.Contract, underlying float64, expirationDate string, topN int) (Analysis, error) {
	var selected []domain.Contract
	expiration := expirationDate

	if expirationDate != "" {
		selected = FilterByExpiration(contracts, expirationDate)
		if len(selected) == 0 {
			return Analysis{}, ErrNoContractsForExpiration
		}
	} else if nearest, ok := NearestExpiration(contracts); ok {
		expiration = nearest
		selected = FilterByExpiration(contracts, nearest)
	}

	itm := FilterInTheMoney(selected, underlying)
	if len(itm) == 0 {
		return Analysis{}, ErrNoITMContracts
	}

	ranked := SortByVolume(itm)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	return Analysis{
		UnderlyingPrice: underlying,
		ExpirationDate:  expiration,
		Contracts:       ranked,
	}, nil
}
