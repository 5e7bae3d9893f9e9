package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/transitlab/demandcast/dataset"
)

func TestValidateHorizon(t *testing.T) {
	for _, h := range []int{-5, 0, 6, 91, 1000} {
		if err := ValidateHorizon(h); !errors.Is(err, ErrInvalidHorizon) {
			t.Errorf("horizon %d: expected ErrInvalidHorizon, got %v", h, err)
		}
	}
	for _, h := range []int{7, 30, 90} {
		if err := ValidateHorizon(h); err != nil {
			t.Errorf("horizon %d: expected nil, got %v", h, err)
		}
	}
}

// bookingObservations builds n days of synthetic bookings with the
// pipeline's bi-monthly seasonality plus a mild trend.
func bookingObservations(n int) []dataset.Observation {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]dataset.Observation, 0, n)
	for i := 0; i < n; i++ {
		seats := 400 + float64(i)*0.5 +
			60*math.Sin(2*math.Pi*float64(i)/float64(SeasonalPeriod)) +
			float64(i%11-5)
		obs = append(obs, dataset.Observation{
			Date:        base.AddDate(0, 0, i),
			RouteID:     "R1",
			SeatsBooked: seats,
			FuelLiters:  110,
			TotalSeats:  600,
			TicketPrice: 250,
		})
	}
	return obs
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunRejectsBadHorizon(t *testing.T) {
	r := newRunner(t)
	if _, err := r.Run(bookingObservations(300), 6); !errors.Is(err, ErrInvalidHorizon) {
		t.Errorf("Expected ErrInvalidHorizon, got %v", err)
	}
}

func TestRunEmptyInput(t *testing.T) {
	r := newRunner(t)
	if _, err := r.Run(nil, 30); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
}

func TestRunInsufficientData(t *testing.T) {
	r := newRunner(t)
	if _, err := r.Run(bookingObservations(4), 7); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestRunFullPipeline(t *testing.T) {
	r := newRunner(t)
	obs := bookingObservations(300)

	report, err := r.Run(obs, 30)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Series.Len() != 300 {
		t.Errorf("Expected 300-point series, got %d", report.Series.Len())
	}
	if report.TrainSize+report.TestSize != report.Verdict.Working.Len() {
		t.Errorf("Train %d + test %d != working %d",
			report.TrainSize, report.TestSize, report.Verdict.Working.Len())
	}

	if len(report.FutureForecast) != 30 {
		t.Fatalf("Expected 30 forecast points, got %d", len(report.FutureForecast))
	}
	if len(report.FutureDates) != 30 {
		t.Fatalf("Expected 30 future dates, got %d", len(report.FutureDates))
	}

	wantStart := report.Series.LastDate().AddDate(0, 0, 1)
	if !report.FutureDates[0].Equal(wantStart) {
		t.Errorf("Expected first future date %v, got %v", wantStart, report.FutureDates[0])
	}
	for i := 1; i < len(report.FutureDates); i++ {
		if !report.FutureDates[i].Equal(report.FutureDates[i-1].AddDate(0, 0, 1)) {
			t.Fatalf("Future dates not consecutive at index %d", i)
		}
	}

	if report.RMSE < 0 {
		t.Errorf("RMSE must be non-negative, got %f", report.RMSE)
	}
	if len(report.EvalForecast) != report.TestSize {
		t.Errorf("Eval forecast length %d != test size %d", len(report.EvalForecast), report.TestSize)
	}

	peak, low := report.FutureForecast[0], report.FutureForecast[0]
	for _, v := range report.FutureForecast {
		peak = math.Max(peak, v)
		low = math.Min(low, v)
	}
	if report.PeakDemand != peak {
		t.Errorf("PeakDemand %f != max forecast %f", report.PeakDemand, peak)
	}
	if report.LowDemand != low {
		t.Errorf("LowDemand %f != min forecast %f", report.LowDemand, low)
	}

	if report.Summary == nil {
		t.Errorf("Expected model summary in report")
	}
	if len(report.FittedValues) != report.TrainSize {
		t.Errorf("Fitted values length %d != train size %d", len(report.FittedValues), report.TrainSize)
	}
}

func TestRunReusesCachedFit(t *testing.T) {
	r := newRunner(t)
	obs := bookingObservations(300)

	first, err := r.Run(obs, 30)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.CacheHit {
		t.Errorf("First run should not hit the cache")
	}

	// Same data, different horizon: the fit must be reused.
	second, err := r.Run(obs, 60)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !second.CacheHit {
		t.Errorf("Second run with identical training window should hit the cache")
	}
	if len(second.FutureForecast) != 60 {
		t.Errorf("Expected 60 forecast points, got %d", len(second.FutureForecast))
	}

	r.Invalidate()
	third, err := r.Run(obs, 30)
	if err != nil {
		t.Fatalf("Third run failed: %v", err)
	}
	if third.CacheHit {
		t.Errorf("Run after Invalidate should refit")
	}
}

func TestRunNewDataChangesCacheKey(t *testing.T) {
	r := newRunner(t)

	if _, err := r.Run(bookingObservations(300), 30); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// One extra day shifts the training window contents.
	report, err := r.Run(bookingObservations(301), 30)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.CacheHit {
		t.Errorf("Different training window must not hit the cache")
	}
}
