package forecast

import (
	"sort"
	"time"

	"github.com/transitlab/demandcast/dataset"
	"github.com/transitlab/demandcast/timeseries"
)

// Aggregate collapses per-trip observations into the daily demand series:
// seats booked summed per calendar date, sorted ascending. Every distinct
// date in the input yields exactly one entry; gaps are neither assumed
// nor filled.
func Aggregate(obs []dataset.Observation) (*timeseries.DailySeries, error) {
	if len(obs) == 0 {
		return nil, ErrEmptyInput
	}

	totals := make(map[time.Time]float64, len(obs))
	for _, o := range obs {
		day := time.Date(o.Date.Year(), o.Date.Month(), o.Date.Day(), 0, 0, 0, 0, time.UTC)
		totals[day] += o.SeatsBooked
	}

	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = totals[d]
	}
	return &timeseries.DailySeries{Dates: dates, Values: values}, nil
}
