package patterns

import "math"

// =============================================================================
// Rolling-Window Helpers
// =============================================================================
//
// All helpers return a slice of the input length with NaN where a value
// is unavailable (incomplete trailing window, shifted-off edge). Windows
// are trailing and include the current index.

func rollingMax(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	for i := w - 1; i < len(xs); i++ {
		max := xs[i-w+1]
		for j := i - w + 2; j <= i; j++ {
			if xs[j] > max {
				max = xs[j]
			}
		}
		out[i] = max
	}
	return out
}

func rollingMin(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	for i := w - 1; i < len(xs); i++ {
		min := xs[i-w+1]
		for j := i - w + 2; j <= i; j++ {
			if xs[j] < min {
				min = xs[j]
			}
		}
		out[i] = min
	}
	return out
}

func rollingMean(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	for i := w - 1; i < len(xs); i++ {
		sum := 0.0
		for j := i - w + 1; j <= i; j++ {
			sum += xs[j]
		}
		out[i] = sum / float64(w)
	}
	return out
}

// rollingStd computes the sample standard deviation (one delta degree of
// freedom) over the trailing window.
func rollingStd(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(xs); i++ {
		sum := 0.0
		for j := i - w + 1; j <= i; j++ {
			sum += xs[j]
		}
		mean := sum / float64(w)
		ss := 0.0
		for j := i - w + 1; j <= i; j++ {
			d := xs[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// rollingTrend returns the sign of (last - first) over the trailing
// window: 1 rising, -1 falling, 0 flat.
func rollingTrend(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	for i := w - 1; i < len(xs); i++ {
		d := xs[i] - xs[i-w+1]
		switch {
		case d > 0:
			out[i] = 1
		case d < 0:
			out[i] = -1
		default:
			out[i] = 0
		}
	}
	return out
}

// shift moves values by k positions: k=1 yields the previous value at
// each index, k=-1 the next one.
func shift(xs []float64, k int) []float64 {
	out := nanSlice(len(xs))
	for i := range xs {
		src := i - k
		if src >= 0 && src < len(xs) {
			out[i] = xs[src]
		}
	}
	return out
}

// diff returns first differences; the first element is NaN.
func diff(xs []float64) []float64 {
	out := nanSlice(len(xs))
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i] - xs[i-1]
	}
	return out
}

// linfit fits y = m*x + c by least squares.
func linfit(x, y []float64) (m, c float64) {
	n := float64(len(x))
	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return math.NaN(), math.NaN()
	}
	m = (n*sumXY - sumX*sumY) / denom
	c = (sumY - m*sumX) / n
	return m, c
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
