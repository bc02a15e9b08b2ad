package patterns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Support/Resistance Band Tests
// =============================================================================

func TestSupportResistance(t *testing.T) {
	// Highs {10,12,14}: mean 12, sample std 2 -> resistance 16.
	// Lows  {5,7,9}:    mean 7,  sample std 2 -> support 3.
	s := mkSeries(
		[3]float64{10, 5, 7},
		[3]float64{12, 7, 9},
		[3]float64{14, 9, 11},
	)

	levels := SupportResistance(s, 3)
	require.Len(t, levels.Support, 3)
	require.Len(t, levels.Resistance, 3)

	assert.True(t, math.IsNaN(levels.Support[0]))
	assert.True(t, math.IsNaN(levels.Resistance[1]))
	assert.InDelta(t, 3.0, levels.Support[2], 1e-9)
	assert.InDelta(t, 16.0, levels.Resistance[2], 1e-9)
}

// =============================================================================
// Trendline Tests
// =============================================================================

func TestTrendline_RisingClosesProjectSupport(t *testing.T) {
	// Closes {10,12,14,13}. At bar 2 the fit over closes {10,12} with
	// x={0,1} gives slope 2 intercept 10, so support = 14*2+10 = 38.
	// At bar 3 the fit over {12,14} with x={1,2} gives the same line,
	// so support = 13*2+10 = 36.
	s := mkSeries(
		[3]float64{11, 9, 10},
		[3]float64{13, 11, 12},
		[3]float64{15, 13, 14},
		[3]float64{14, 12, 13},
	)

	res := Trendline(s, 2)
	assert.True(t, math.IsNaN(res.Slope[0]))
	assert.True(t, math.IsNaN(res.Slope[1]))

	assert.InDelta(t, 2.0, res.Slope[2], 1e-9)
	assert.InDelta(t, 10.0, res.Intercept[2], 1e-9)
	assert.InDelta(t, 38.0, res.Support[2], 1e-9)
	assert.True(t, math.IsNaN(res.Resistance[2]))

	assert.InDelta(t, 36.0, res.Support[3], 1e-9)
}

func TestTrendline_FallingClosesProjectResistance(t *testing.T) {
	// Closes {14,12,10}. At bar 2 slope -2 intercept 14, so resistance
	// is 10*-2+14 = -6.
	s := mkSeries(
		[3]float64{15, 13, 14},
		[3]float64{13, 11, 12},
		[3]float64{11, 9, 10},
	)

	res := Trendline(s, 2)
	assert.InDelta(t, -2.0, res.Slope[2], 1e-9)
	assert.InDelta(t, -6.0, res.Resistance[2], 1e-9)
	assert.True(t, math.IsNaN(res.Support[2]))
}

func TestTrendline_FlatClosesProjectNothing(t *testing.T) {
	s := mkSeries(
		[3]float64{11, 9, 10},
		[3]float64{11, 9, 10},
		[3]float64{11, 9, 10},
	)

	res := Trendline(s, 2)
	assert.InDelta(t, 0.0, res.Slope[2], 1e-9)
	assert.True(t, math.IsNaN(res.Support[2]))
	assert.True(t, math.IsNaN(res.Resistance[2]))
}
