// Package patterns provides pure OHLC chart-pattern detectors.
// Following ADR-002: Values as Boundaries - this package contains NO I/O.
//
// All detectors work on rolling windows over the candle series and use NaN
// as the "not available" value: incomplete windows and shifted-off edges
// are NaN, and any comparison involving NaN is false, so the first and
// last bars of a series never produce events.
package patterns

import (
	"errors"
	"fmt"

	"github.com/chartkit/chartwatch/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrUnknownDetector  = errors.New("unknown detector")
	ErrInvalidWindow    = errors.New("window must be at least 2")
	ErrInvalidThreshold = errors.New("threshold must be positive")
)

// =============================================================================
// Detector Names
// =============================================================================

const (
	DetectorHeadShoulder      = "head_shoulder"
	DetectorMultipleTopBottom = "multiple_top_bottom"
	DetectorTriangle          = "triangle"
	DetectorWedge             = "wedge"
	DetectorChannel           = "channel"
	DetectorDoubleTopBottom   = "double_top_bottom"
	DetectorPivots            = "pivots"
)

// Default tuning values.
const (
	DefaultWindow          = 3
	DefaultTrendlineWindow = 2
	DefaultDoubleThreshold = 0.05
)

// detectorNames is the registry order used by DefaultSpecs and Names.
var detectorNames = []string{
	DetectorHeadShoulder,
	DetectorMultipleTopBottom,
	DetectorTriangle,
	DetectorWedge,
	DetectorChannel,
	DetectorDoubleTopBottom,
	DetectorPivots,
}

// Names returns all registered detector names in stable order.
func Names() []string {
	out := make([]string, len(detectorNames))
	copy(out, detectorNames)
	return out
}

// IsValidDetector checks if name is a registered detector.
func IsValidDetector(name string) bool {
	for _, n := range detectorNames {
		if n == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Pattern Labels
// =============================================================================

const (
	PatternHeadShoulder        = "Head and Shoulder"
	PatternInverseHeadShoulder = "Inverse Head and Shoulder"
	PatternMultipleTop         = "Multiple Top"
	PatternMultipleBottom      = "Multiple Bottom"
	PatternAscendingTriangle   = "Ascending Triangle"
	PatternDescendingTriangle  = "Descending Triangle"
	PatternWedgeUp             = "Wedge Up"
	PatternWedgeDown           = "Wedge Down"
	PatternChannelUp           = "Channel Up"
	PatternChannelDown         = "Channel Down"
	PatternDoubleTop           = "Double Top"
	PatternDoubleBottom        = "Double Bottom"
	PatternHigherHigh          = "Higher High"
	PatternLowerLow            = "Lower Low"
	PatternLowerHigh           = "Lower High"
	PatternHigherLow           = "Higher Low"
)

// =============================================================================
// Types
// =============================================================================

// Event is one detected pattern occurrence at a bar index.
type Event struct {
	Index   int
	Pattern string
}

// Match couples an event with the detector that produced it.
type Match struct {
	Detector string
	Index    int
	Pattern  string
}

// Spec selects one detector with its tuning. Zero values fall back to
// the package defaults.
type Spec struct {
	Name      string
	Window    int
	Threshold float64
}

// DefaultSpecs returns specs for every registered detector with default
// tuning.
func DefaultSpecs() []Spec {
	out := make([]Spec, len(detectorNames))
	for i, name := range detectorNames {
		out[i] = Spec{Name: name}
	}
	return out
}

// =============================================================================
// Registry
// =============================================================================

// Run executes the given detector specs against a series and returns all
// matches in spec order. Unknown detector names are rejected.
func Run(s domain.Series, specs []Spec) ([]Match, error) {
	var matches []Match
	for _, spec := range specs {
		window := spec.Window
		if window == 0 {
			window = DefaultWindow
		}
		if window < 2 {
			return nil, fmt.Errorf("detector %s: %w", spec.Name, ErrInvalidWindow)
		}
		threshold := spec.Threshold
		if threshold == 0 {
			threshold = DefaultDoubleThreshold
		}
		if threshold < 0 {
			return nil, fmt.Errorf("detector %s: %w", spec.Name, ErrInvalidThreshold)
		}

		var events []Event
		switch spec.Name {
		case DetectorHeadShoulder:
			events = HeadShoulder(s, window)
		case DetectorMultipleTopBottom:
			events = MultipleTopsBottoms(s, window)
		case DetectorTriangle:
			events = Triangle(s, window)
		case DetectorWedge:
			events = Wedge(s, window)
		case DetectorChannel:
			events = Channel(s, window)
		case DetectorDoubleTopBottom:
			events = DoubleTopBottom(s, window, threshold)
		case DetectorPivots:
			events = Pivots(s)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownDetector, spec.Name)
		}

		for _, e := range events {
			matches = append(matches, Match{Detector: spec.Name, Index: e.Index, Pattern: e.Pattern})
		}
	}
	return matches, nil
}
