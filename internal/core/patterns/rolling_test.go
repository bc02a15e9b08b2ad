package patterns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Rolling Helper Tests
// =============================================================================

func TestRollingMax(t *testing.T) {
	out := rollingMax([]float64{1, 3, 2, 5, 4}, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 3.0, out[2])
	assert.Equal(t, 5.0, out[3])
	assert.Equal(t, 5.0, out[4])
}

func TestRollingMin(t *testing.T) {
	out := rollingMin([]float64{4, 2, 3, 1, 5}, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 2.0, out[2])
	assert.Equal(t, 1.0, out[3])
	assert.Equal(t, 1.0, out[4])
}

func TestRollingMean(t *testing.T) {
	out := rollingMean([]float64{1, 2, 3, 4}, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
}

func TestRollingStd_SampleDeviation(t *testing.T) {
	// Sample std of {10, 12, 14} is sqrt(((-2)^2 + 0 + 2^2) / 2) = 2.
	out := rollingStd([]float64{10, 12, 14}, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
}

func TestRollingTrend(t *testing.T) {
	out := rollingTrend([]float64{1, 5, 3, 1, 3}, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 1.0, out[2])  // 3 - 1 > 0
	assert.Equal(t, -1.0, out[3]) // 1 - 5 < 0
	assert.Equal(t, 0.0, out[4])  // 3 - 3 == 0
}

func TestShift(t *testing.T) {
	xs := []float64{1, 2, 3}

	prev := shift(xs, 1)
	assert.True(t, math.IsNaN(prev[0]))
	assert.Equal(t, 1.0, prev[1])
	assert.Equal(t, 2.0, prev[2])

	next := shift(xs, -1)
	assert.Equal(t, 2.0, next[0])
	assert.Equal(t, 3.0, next[1])
	assert.True(t, math.IsNaN(next[2]))
}

func TestDiff(t *testing.T) {
	out := diff([]float64{1, 4, 2})

	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 3.0, out[1])
	assert.Equal(t, -2.0, out[2])
}

func TestLinfit(t *testing.T) {
	// Exact line y = 2x + 10.
	m, c := linfit([]float64{0, 1, 2}, []float64{10, 12, 14})
	assert.InDelta(t, 2.0, m, 1e-9)
	assert.InDelta(t, 10.0, c, 1e-9)

	// Degenerate fit over a single repeated x.
	m, _ = linfit([]float64{1, 1}, []float64{2, 4})
	assert.True(t, math.IsNaN(m))
}

func TestNaNComparisonsAreFalse(t *testing.T) {
	// The detectors rely on NaN making every comparison false.
	nan := math.NaN()
	assert.False(t, nan > 1)
	assert.False(t, nan < 1)
	assert.False(t, nan >= 1)
	assert.False(t, nan <= 1)
	assert.False(t, nan == 1)
}
