package forecast

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/transitlab/demandcast/dataset"
	"github.com/transitlab/demandcast/sarima"
	"github.com/transitlab/demandcast/timeseries"
)

// SeasonalPeriod is the assumed bi-monthly booking seasonality. It is a
// domain assumption, not inferred from data; revisit here, not in the
// model code.
const SeasonalPeriod = 60

// Allowed future forecast horizon, in days.
const (
	MinHorizon = 7
	MaxHorizon = 90
)

// DefaultOrder is the fixed model order used for every run.
var DefaultOrder = sarima.Order{
	P: 1, D: 1, Q: 1,
	SP: 1, SD: 1, SQ: 1,
	M: SeasonalPeriod,
}

// Options configures a Runner.
type Options struct {
	Order     sarima.Order
	CacheSize int // fitted models kept; distinct training windows are rare
}

// DefaultOptions returns the production configuration.
func DefaultOptions() Options {
	return Options{Order: DefaultOrder, CacheSize: 8}
}

// Report is everything the Reporter collaborator needs to render one
// forecasting run.
type Report struct {
	Series  *timeseries.DailySeries
	Verdict *Verdict

	TrainSize int
	TestSize  int

	// One-step-ahead fitted values aligned to the training window of the
	// working series.
	FittedDates  []time.Time
	FittedValues []float64

	// Backtest forecast aligned to the test window, and its score.
	EvalDates    []time.Time
	EvalForecast []float64
	RMSE         float64

	// Future forecast, one point per calendar day starting the day after
	// the series's last date.
	Horizon        int
	FutureDates    []time.Time
	FutureForecast []float64
	FutureLower    []float64
	FutureUpper    []float64
	PeakDemand     float64
	LowDemand      float64

	Summary  *sarima.Summary
	CacheHit bool
}

// Runner executes forecasting runs and memoizes fitted models per
// distinct training window, so an interactive caller changing only the
// horizon does not pay the fit cost again. The cache lives for the
// process and has no invalidation beyond key mismatch and Invalidate.
type Runner struct {
	opts  Options
	cache *lru.Cache[uint64, *sarima.Model]
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts Options) (*Runner, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	cache, err := lru.New[uint64, *sarima.Model](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("forecast: model cache: %w", err)
	}
	return &Runner{opts: opts, cache: cache}, nil
}

// Invalidate drops every cached model. Called when new data is uploaded;
// the new training window would miss the cache anyway, but dropping
// stale fits bounds memory and makes the invalidation point explicit.
func (r *Runner) Invalidate() {
	r.cache.Purge()
}

// ValidateHorizon rejects horizons outside [MinHorizon, MaxHorizon].
func ValidateHorizon(horizon int) error {
	if horizon < MinHorizon || horizon > MaxHorizon {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidHorizon, horizon, MinHorizon, MaxHorizon)
	}
	return nil
}

// Run executes the full pipeline on the given observations:
// aggregate, test stationarity, difference or skip, split, fit (or reuse
// a cached fit), evaluate, forecast. Any failure is terminal for the
// request and partial results are discarded.
func (r *Runner) Run(obs []dataset.Observation, horizon int) (*Report, error) {
	if err := ValidateHorizon(horizon); err != nil {
		return nil, err
	}

	series, err := Aggregate(obs)
	if err != nil {
		return nil, err
	}
	return r.RunSeries(series, horizon)
}

// RunSeries executes the pipeline on an already-aggregated daily series.
func (r *Runner) RunSeries(series *timeseries.DailySeries, horizon int) (*Report, error) {
	if err := ValidateHorizon(horizon); err != nil {
		return nil, err
	}

	verdict, err := CheckStationarity(series)
	if err != nil {
		return nil, err
	}

	split, err := SplitSeries(verdict.Working)
	if err != nil {
		return nil, err
	}

	model, hit, err := r.fitCached(split.Train)
	if err != nil {
		return nil, err
	}

	eval, err := Evaluate(model, split.Test)
	if err != nil {
		return nil, err
	}

	// One trajectory covers both windows: the model extends past its
	// training data through the held-out window and on through the
	// requested horizon, without refitting.
	future, lower, upper, err := model.PredictWithInterval(split.Test.Len()+horizon, 0.95)
	if err != nil {
		return nil, err
	}
	future = future[split.Test.Len():]
	lower = lower[split.Test.Len():]
	upper = upper[split.Test.Len():]

	return &Report{
		Series:         series,
		Verdict:        verdict,
		TrainSize:      split.Train.Len(),
		TestSize:       split.Test.Len(),
		FittedDates:    split.Train.Dates,
		FittedValues:   model.FittedValues(),
		EvalDates:      split.Test.Dates,
		EvalForecast:   eval.Forecast,
		RMSE:           eval.RMSE,
		Horizon:        horizon,
		FutureDates:    series.FutureDates(horizon),
		FutureForecast: future,
		FutureLower:    lower,
		FutureUpper:    upper,
		PeakDemand:     floats.Max(future),
		LowDemand:      floats.Min(future),
		Summary:        model.Summary(),
		CacheHit:       hit,
	}, nil
}

// fitCached returns a fitted model for the training window, reusing a
// cached fit when the window contents and order match.
func (r *Runner) fitCached(train *timeseries.DailySeries) (*sarima.Model, bool, error) {
	key := trainKey(train, r.opts.Order)
	if model, ok := r.cache.Get(key); ok {
		return model, true, nil
	}

	model := sarima.New(r.opts.Order)
	if err := model.Fit(train); err != nil {
		if errors.Is(err, sarima.ErrTooShort) {
			return nil, false, ErrInsufficientData
		}
		return nil, false, err
	}
	r.cache.Add(key, model)
	return model, false, nil
}

// trainKey hashes the training window contents and the model order.
func trainKey(train *timeseries.DailySeries, order sarima.Order) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, o := range []int{order.P, order.D, order.Q, order.SP, order.SD, order.SQ, order.M} {
		binary.LittleEndian.PutUint64(buf[:], uint64(o))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(train.Len()))
	h.Write(buf[:])
	for _, v := range train.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}
