package forecast

import "github.com/transitlab/demandcast/timeseries"

// TrainFraction of the working series used for fitting; the remainder is
// held out for evaluation.
const TrainFraction = 0.8

// Split is a contiguous, order-preserving partition of the working
// series. Train and Test concatenated reproduce the series exactly.
type Split struct {
	Train *timeseries.DailySeries
	Test  *timeseries.DailySeries
}

// SplitSeries partitions the working series into the first
// floor(0.8*n) entries for training and the rest for testing. Time order
// is preserved; shuffling a time series would leak the future into the
// fit.
func SplitSeries(working *timeseries.DailySeries) (*Split, error) {
	n := working.Len()
	if n < 2 {
		return nil, ErrInsufficientData
	}

	trainSize := int(TrainFraction * float64(n))
	if trainSize == 0 || trainSize == n {
		return nil, ErrInsufficientData
	}

	return &Split{
		Train: working.Slice(0, trainSize),
		Test:  working.Slice(trainSize, n),
	}, nil
}
