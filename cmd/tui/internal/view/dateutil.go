package view

import (
	"time"
)

type Timeframe int

const (
	TimeframeAll Timeframe = iota
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeLast90Days

	timeframeCount
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeAll:
		return "All Time"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeLast90Days:
		return "Last 90 Days"
	}

	return "Unknown"
}

// Next cycles to the following timeframe.
func (t Timeframe) Next() Timeframe {
	return (t + 1) % timeframeCount
}

// TimeframeToDateRange returns the inclusive day range of tf relative to now. The zero range
// means unbounded.
func TimeframeToDateRange(tf Timeframe, now time.Time) (time.Time, time.Time) {
	var start, end time.Time

	switch tf {
	case TimeframeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now
	case TimeframeLastMonth:
		start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, -1)
	case TimeframeLast90Days:
		start = now.AddDate(0, 0, -89)
		end = now
	default:
		return time.Time{}, time.Time{}
	}

	return NormalizeDateRange(start, end)
}

// NormalizeDateRange widens a range to whole UTC days, matching how transaction dates are
// stored.
func NormalizeDateRange(start time.Time, end time.Time) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
}
