package forecast

import (
	"github.com/transitlab/demandcast/stats"
	"github.com/transitlab/demandcast/timeseries"
)

// StationarityThreshold is the ADF p-value above which the series is
// judged non-stationary and differenced once.
const StationarityThreshold = 0.05

// Verdict records the stationarity decision for one pipeline run.
type Verdict struct {
	PValue      float64
	Stationary  bool
	Differenced bool
	// Working is the series all downstream steps operate on: the input
	// unchanged when stationary, its first difference otherwise.
	Working *timeseries.DailySeries
}

// CheckStationarity applies the ADF test and decides whether to
// difference. The decision is single-pass: at most one difference is
// taken, and the differenced series is not re-tested. The model's own
// differencing orders apply on top of this; changing that stacking
// changes forecast output, so don't.
func CheckStationarity(series *timeseries.DailySeries) (*Verdict, error) {
	result := stats.ADF(series.Values, 0)
	if result == nil {
		return nil, ErrInsufficientData
	}

	v := &Verdict{
		PValue:     result.PValue,
		Stationary: result.PValue <= StationarityThreshold,
	}
	if v.Stationary {
		v.Working = series
	} else {
		v.Differenced = true
		v.Working = series.Diff()
	}
	return v, nil
}
