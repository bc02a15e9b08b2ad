// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Series validation errors
	ErrSeriesEmpty        = errors.New("series must contain at least one candle")
	ErrSeriesOutOfOrder   = errors.New("series candles must be in chronological order")
	ErrCandleInvalidRange = errors.New("candle high must not be below low")
)

// =============================================================================
// Candle
// =============================================================================

// Candle is a single OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the internal consistency of a single candle.
func (c Candle) Validate() error {
	if c.High < c.Low {
		return ErrCandleInvalidRange
	}
	return nil
}

// =============================================================================
// Series
// =============================================================================

// Series is a chronologically ordered sequence of candles.
type Series []Candle

// Validate checks ordering and per-candle consistency.
func (s Series) Validate() error {
	if len(s) == 0 {
		return ErrSeriesEmpty
	}
	for i, c := range s {
		if err := c.Validate(); err != nil {
			return err
		}
		if i > 0 && c.Time.Before(s[i-1].Time) {
			return ErrSeriesOutOfOrder
		}
	}
	return nil
}

// Highs returns the high values of the series in order.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low values of the series in order.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Closes returns the close values of the series in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}
