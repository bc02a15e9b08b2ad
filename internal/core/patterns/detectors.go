package patterns

import "github.com/chartkit/chartwatch/internal/core/domain"

// =============================================================================
// Event Detectors
// =============================================================================

// HeadShoulder finds head-and-shoulder formations: a local dip in highs
// while the rolling high window still peaks above both neighbors, and the
// inverse on lows.
func HeadShoulder(s domain.Series, window int) []Event {
	high, low := s.Highs(), s.Lows()
	highMax := rollingMax(high, window)
	lowMin := rollingMin(low, window)
	prevHigh, nextHigh := shift(high, 1), shift(high, -1)
	prevLow, nextLow := shift(low, 1), shift(low, -1)

	var events []Event
	for i := range s {
		if highMax[i] > prevHigh[i] && highMax[i] > nextHigh[i] &&
			high[i] < prevHigh[i] && high[i] < nextHigh[i] {
			events = append(events, Event{Index: i, Pattern: PatternHeadShoulder})
		}
		if lowMin[i] < prevLow[i] && lowMin[i] < nextLow[i] &&
			low[i] > prevLow[i] && low[i] > nextLow[i] {
			events = append(events, Event{Index: i, Pattern: PatternInverseHeadShoulder})
		}
	}
	return events
}

// MultipleTopsBottoms finds repeated tests of a high (or low) where the
// close has already pulled back from its rolling extreme.
func MultipleTopsBottoms(s domain.Series, window int) []Event {
	high, low, close := s.Highs(), s.Lows(), s.Closes()
	highMax := rollingMax(high, window)
	lowMin := rollingMin(low, window)
	closeMax := rollingMax(close, window)
	closeMin := rollingMin(close, window)
	prevHigh := shift(high, 1)
	prevLow := shift(low, 1)
	prevClose := shift(close, 1)

	var events []Event
	for i := range s {
		if highMax[i] >= prevHigh[i] && closeMax[i] < prevClose[i] {
			events = append(events, Event{Index: i, Pattern: PatternMultipleTop})
		}
		if lowMin[i] <= prevLow[i] && closeMin[i] > prevClose[i] {
			events = append(events, Event{Index: i, Pattern: PatternMultipleBottom})
		}
	}
	return events
}

// Triangle finds ascending triangles (flat-or-rising high window,
// undercut lows, rising close) and their descending mirror.
func Triangle(s domain.Series, window int) []Event {
	high, low, close := s.Highs(), s.Lows(), s.Closes()
	highMax := rollingMax(high, window)
	lowMin := rollingMin(low, window)
	prevHigh := shift(high, 1)
	prevLow := shift(low, 1)
	prevClose := shift(close, 1)

	var events []Event
	for i := range s {
		if highMax[i] >= prevHigh[i] && lowMin[i] <= prevLow[i] && close[i] > prevClose[i] {
			events = append(events, Event{Index: i, Pattern: PatternAscendingTriangle})
		}
		if highMax[i] <= prevHigh[i] && lowMin[i] >= prevLow[i] && close[i] < prevClose[i] {
			events = append(events, Event{Index: i, Pattern: PatternDescendingTriangle})
		}
	}
	return events
}

// Wedge finds converging ranges where both the high and low windows
// trend in the same direction.
func Wedge(s domain.Series, window int) []Event {
	high, low := s.Highs(), s.Lows()
	highMax := rollingMax(high, window)
	lowMin := rollingMin(low, window)
	trendHigh := rollingTrend(high, window)
	trendLow := rollingTrend(low, window)
	prevHigh := shift(high, 1)
	prevLow := shift(low, 1)

	var events []Event
	for i := range s {
		if highMax[i] >= prevHigh[i] && lowMin[i] <= prevLow[i] &&
			trendHigh[i] == 1 && trendLow[i] == 1 {
			events = append(events, Event{Index: i, Pattern: PatternWedgeUp})
		}
		if highMax[i] <= prevHigh[i] && lowMin[i] >= prevLow[i] &&
			trendHigh[i] == -1 && trendLow[i] == -1 {
			events = append(events, Event{Index: i, Pattern: PatternWedgeDown})
		}
	}
	return events
}

// channelRange bounds the high-low spread of a channel relative to its
// midpoint price.
const channelRange = 0.1

// Channel finds parallel trending ranges: wedge conditions plus a
// bounded spread between the rolling high and low.
func Channel(s domain.Series, window int) []Event {
	high, low := s.Highs(), s.Lows()
	highMax := rollingMax(high, window)
	lowMin := rollingMin(low, window)
	trendHigh := rollingTrend(high, window)
	trendLow := rollingTrend(low, window)
	prevHigh := shift(high, 1)
	prevLow := shift(low, 1)

	var events []Event
	for i := range s {
		inRange := highMax[i]-lowMin[i] <= channelRange*(highMax[i]+lowMin[i])/2
		if highMax[i] >= prevHigh[i] && lowMin[i] <= prevLow[i] && inRange &&
			trendHigh[i] == 1 && trendLow[i] == 1 {
			events = append(events, Event{Index: i, Pattern: PatternChannelUp})
		}
		if highMax[i] <= prevHigh[i] && lowMin[i] >= prevLow[i] && inRange &&
			trendHigh[i] == -1 && trendLow[i] == -1 {
			events = append(events, Event{Index: i, Pattern: PatternChannelDown})
		}
	}
	return events
}

// DoubleTopBottom finds double tops and bottoms: a dip between two
// touches of the rolling extreme, where both neighbor bars have a
// high-low range within threshold of their midpoint price.
func DoubleTopBottom(s domain.Series, window int, threshold float64) []Event {
	high, low := s.Highs(), s.Lows()
	highMax := rollingMax(high, window)
	lowMin := rollingMin(low, window)
	prevHigh, nextHigh := shift(high, 1), shift(high, -1)
	prevLow, nextLow := shift(low, 1), shift(low, -1)

	var events []Event
	for i := range s {
		prevInRange := prevHigh[i]-prevLow[i] <= threshold*(prevHigh[i]+prevLow[i])/2
		nextInRange := nextHigh[i]-nextLow[i] <= threshold*(nextHigh[i]+nextLow[i])/2

		if highMax[i] >= prevHigh[i] && highMax[i] >= nextHigh[i] &&
			high[i] < prevHigh[i] && high[i] < nextHigh[i] &&
			prevInRange && nextInRange {
			events = append(events, Event{Index: i, Pattern: PatternDoubleTop})
		}
		if lowMin[i] <= prevLow[i] && lowMin[i] <= nextLow[i] &&
			low[i] > prevLow[i] && low[i] > nextLow[i] &&
			prevInRange && nextInRange {
			events = append(events, Event{Index: i, Pattern: PatternDoubleBottom})
		}
	}
	return events
}

// Pivots classifies local turning points from the sign changes of
// first differences of highs and lows.
func Pivots(s domain.Series) []Event {
	high, low := s.Highs(), s.Lows()
	highDiff := diff(high)
	lowDiff := diff(low)
	nextHighDiff := shift(highDiff, -1)
	nextLowDiff := shift(lowDiff, -1)

	var events []Event
	for i := range s {
		if highDiff[i] > 0 && nextHighDiff[i] < 0 {
			events = append(events, Event{Index: i, Pattern: PatternHigherHigh})
		}
		if lowDiff[i] < 0 && nextLowDiff[i] > 0 {
			events = append(events, Event{Index: i, Pattern: PatternLowerLow})
		}
		if highDiff[i] < 0 && nextHighDiff[i] > 0 {
			events = append(events, Event{Index: i, Pattern: PatternLowerHigh})
		}
		if lowDiff[i] > 0 && nextLowDiff[i] < 0 {
			events = append(events, Event{Index: i, Pattern: PatternHigherLow})
		}
	}
	return events
}
