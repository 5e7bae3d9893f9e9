package timeseries

import (
	"errors"
	"math"
	"time"
)

// ErrLengthMismatch is returned when dates and values disagree in length.
var ErrLengthMismatch = errors.New("timeseries: dates and values must have the same length")

// DailySeries is an ordered sequence of (calendar date, value) pairs with
// one entry per date, strictly ascending. The pipeline treats values as
// total seats booked per day.
type DailySeries struct {
	Dates  []time.Time
	Values []float64
}

// New creates a daily series from parallel date and value slices.
func New(dates []time.Time, values []float64) (*DailySeries, error) {
	if len(dates) != len(values) {
		return nil, ErrLengthMismatch
	}
	return &DailySeries{Dates: dates, Values: values}, nil
}

// FromValues creates a series with synthetic consecutive daily dates,
// starting at base. Used by tests and diagnostics that only care about
// the value sequence.
func FromValues(base time.Time, values []float64) *DailySeries {
	dates := make([]time.Time, len(values))
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	return &DailySeries{Dates: dates, Values: values}
}

// Len returns the number of observations.
func (s *DailySeries) Len() int {
	return len(s.Values)
}

// LastDate returns the date of the final observation, or the zero time
// for an empty series.
func (s *DailySeries) LastDate() time.Time {
	if len(s.Dates) == 0 {
		return time.Time{}
	}
	return s.Dates[len(s.Dates)-1]
}

// Mean calculates the arithmetic mean of the values.
func (s *DailySeries) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.Values {
		sum += v
	}
	return sum / float64(len(s.Values))
}

// Variance calculates the sample variance of the values.
func (s *DailySeries) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, v := range s.Values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(s.Values)-1)
}

// Std calculates the sample standard deviation of the values.
func (s *DailySeries) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Diff returns the first difference of the series: value[i] - value[i-1],
// with the first (undefined) entry dropped. Dates shift accordingly, so
// the differenced series starts at the second date of the original.
func (s *DailySeries) Diff() *DailySeries {
	if s.Len() <= 1 {
		return &DailySeries{}
	}
	values := make([]float64, s.Len()-1)
	dates := make([]time.Time, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		values[i-1] = s.Values[i] - s.Values[i-1]
		dates[i-1] = s.Dates[i]
	}
	return &DailySeries{Dates: dates, Values: values}
}

// SeasonalDiff returns the seasonal difference with period m:
// value[i] - value[i-m], dropping the first m entries.
func (s *DailySeries) SeasonalDiff(m int) *DailySeries {
	if m <= 0 || s.Len() <= m {
		return &DailySeries{}
	}
	values := make([]float64, s.Len()-m)
	dates := make([]time.Time, s.Len()-m)
	for i := m; i < s.Len(); i++ {
		values[i-m] = s.Values[i] - s.Values[i-m]
		dates[i-m] = s.Dates[i]
	}
	return &DailySeries{Dates: dates, Values: values}
}

// Slice returns a copy of the series from start to end (exclusive).
// Indices are clamped to the valid range.
func (s *DailySeries) Slice(start, end int) *DailySeries {
	if start < 0 {
		start = 0
	}
	if end > s.Len() {
		end = s.Len()
	}
	if start >= end {
		return &DailySeries{}
	}
	values := make([]float64, end-start)
	copy(values, s.Values[start:end])
	dates := make([]time.Time, end-start)
	copy(dates, s.Dates[start:end])
	return &DailySeries{Dates: dates, Values: values}
}

// Copy creates a deep copy of the series.
func (s *DailySeries) Copy() *DailySeries {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	dates := make([]time.Time, len(s.Dates))
	copy(dates, s.Dates)
	return &DailySeries{Dates: dates, Values: values}
}

// FutureDates returns n consecutive calendar dates starting exactly one
// day after the series's last date.
func (s *DailySeries) FutureDates(n int) []time.Time {
	if n <= 0 || len(s.Dates) == 0 {
		return nil
	}
	last := s.LastDate()
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = last.AddDate(0, 0, i+1)
	}
	return dates
}

// IsSortedUnique reports whether dates are strictly increasing, which
// implies each date appears at most once.
func (s *DailySeries) IsSortedUnique() bool {
	for i := 1; i < len(s.Dates); i++ {
		if !s.Dates[i].After(s.Dates[i-1]) {
			return false
		}
	}
	return true
}
