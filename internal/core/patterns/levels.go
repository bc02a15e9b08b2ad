package patterns

import "github.com/chartkit/chartwatch/internal/core/domain"

// =============================================================================
// Overlay Calculations
// =============================================================================

// levelStdDevs is the band width in standard deviations around the
// rolling mean of highs and lows.
const levelStdDevs = 2

// Levels holds per-bar support and resistance values. Entries are NaN
// where the rolling window is incomplete.
type Levels struct {
	Support    []float64
	Resistance []float64
}

// SupportResistance computes volatility bands: support is the rolling
// mean of lows minus two standard deviations, resistance the rolling
// mean of highs plus two.
func SupportResistance(s domain.Series, window int) Levels {
	high, low := s.Highs(), s.Lows()
	meanHigh := rollingMean(high, window)
	stdHigh := rollingStd(high, window)
	meanLow := rollingMean(low, window)
	stdLow := rollingStd(low, window)

	levels := Levels{
		Support:    make([]float64, len(s)),
		Resistance: make([]float64, len(s)),
	}
	for i := range s {
		levels.Support[i] = meanLow[i] - levelStdDevs*stdLow[i]
		levels.Resistance[i] = meanHigh[i] + levelStdDevs*stdHigh[i]
	}
	return levels
}

// TrendlineResult holds per-bar least-squares trendline values. A
// positive slope projects a support value, a negative slope a
// resistance value; all other entries are NaN.
type TrendlineResult struct {
	Slope      []float64
	Intercept  []float64
	Support    []float64
	Resistance []float64
}

// Trendline fits a least-squares line over the trailing window of
// closes ending just before each bar, using absolute bar offsets as x
// values, and projects it from the bar's close.
func Trendline(s domain.Series, window int) TrendlineResult {
	close := s.Closes()
	n := len(s)
	res := TrendlineResult{
		Slope:      nanSlice(n),
		Intercept:  nanSlice(n),
		Support:    nanSlice(n),
		Resistance: nanSlice(n),
	}

	for i := window; i < n; i++ {
		x := make([]float64, window)
		for j := 0; j < window; j++ {
			x[j] = float64(i - window + j)
		}
		m, c := linfit(x, close[i-window:i])
		res.Slope[i] = m
		res.Intercept[i] = c
		if m > 0 {
			res.Support[i] = close[i]*m + c
		} else if m < 0 {
			res.Resistance[i] = close[i]*m + c
		}
	}
	return res
}
