package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/transitlab/demandcast/dataset"
	"github.com/transitlab/demandcast/forecast"
	"github.com/transitlab/demandcast/sarima"
)

const dateFormat = "2006-01-02"

// defaultHorizon matches the product's default forecast duration.
const defaultHorizon = 30

type point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type stationarityDTO struct {
	PValue      float64 `json:"p_value"`
	Stationary  bool    `json:"stationary"`
	Differenced bool    `json:"differenced"`
}

type forecastResponse struct {
	Series       []point         `json:"series"`
	Stationarity stationarityDTO `json:"stationarity"`
	TrainSize    int             `json:"train_size"`
	TestSize     int             `json:"test_size"`
	Fitted       []point         `json:"fitted"`
	EvalForecast []point         `json:"eval_forecast"`
	RMSE         float64         `json:"rmse"`
	Horizon      int             `json:"horizon"`
	Forecast     []point         `json:"forecast"`
	Lower        []float64       `json:"lower"`
	Upper        []float64       `json:"upper"`
	PeakDemand   float64         `json:"peak_demand"`
	LowDemand    float64         `json:"low_demand"`
}

type summaryResponse struct {
	Model *sarima.Summary `json:"model"`
	RMSE  float64         `json:"rmse"`
}

type uploadResponse struct {
	RowsAppended int `json:"rows_appended"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	s.metrics.ForecastRequests.Inc()

	horizon := defaultHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		var err error
		horizon, err = strconv.Atoi(raw)
		if err != nil {
			s.metrics.ForecastErrors.WithLabelValues("invalid_horizon").Inc()
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "horizon must be an integer"})
			return
		}
	}

	start := time.Now()
	report, err := s.runner.Run(s.observations(), horizon)
	if err != nil {
		s.metrics.ForecastErrors.WithLabelValues(errorKind(err)).Inc()
		s.writeError(w, err)
		return
	}
	s.metrics.ForecastDuration.Observe(time.Since(start).Seconds())
	if report.CacheHit {
		s.metrics.FitCacheHits.Inc()
	} else {
		s.metrics.FitCacheMisses.Inc()
	}

	writeJSON(w, http.StatusOK, toForecastResponse(report))
}

func toForecastResponse(rep *forecast.Report) forecastResponse {
	return forecastResponse{
		Series: zipPoints(rep.Series.Dates, rep.Series.Values),
		Stationarity: stationarityDTO{
			PValue:      rep.Verdict.PValue,
			Stationary:  rep.Verdict.Stationary,
			Differenced: rep.Verdict.Differenced,
		},
		TrainSize:    rep.TrainSize,
		TestSize:     rep.TestSize,
		Fitted:       zipPoints(rep.FittedDates, rep.FittedValues),
		EvalForecast: zipPoints(rep.EvalDates, rep.EvalForecast),
		RMSE:         rep.RMSE,
		Horizon:      rep.Horizon,
		Forecast:     zipPoints(rep.FutureDates, rep.FutureForecast),
		Lower:        rep.FutureLower,
		Upper:        rep.FutureUpper,
		PeakDemand:   rep.PeakDemand,
		LowDemand:    rep.LowDemand,
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, _ *http.Request) {
	series, err := forecast.Aggregate(s.observations())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]point{
		"series": zipPoints(series.Dates, series.Values),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	report, err := s.runner.Run(s.observations(), forecast.MinHorizon)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Model: report.Summary, RMSE: report.RMSE})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	n, err := s.store.Append(r.Body)
	if err != nil {
		s.metrics.UploadsRejected.Inc()
		s.writeError(w, err)
		return
	}

	if err := s.reload(); err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.UploadsAccepted.Inc()
	writeJSON(w, http.StatusOK, uploadResponse{RowsAppended: n})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps the pipeline error taxonomy to HTTP statuses. Every
// error is terminal for the request; nothing here retries.
func statusFor(err error) int {
	switch {
	case errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, dataset.ErrSchemaMismatch):
		return http.StatusBadRequest
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, forecast.ErrLengthMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, forecast.ErrEmptyInput),
		errors.Is(err, dataset.ErrEmptyStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, forecast.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, forecast.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, forecast.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, forecast.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, sarima.ErrConvergence):
		return "convergence"
	default:
		return "internal"
	}
}

func zipPoints(dates []time.Time, values []float64) []point {
	n := len(values)
	if len(dates) < n {
		n = len(dates)
	}
	points := make([]point, n)
	for i := 0; i < n; i++ {
		points[i] = point{Date: dates[i].Format(dateFormat), Value: values[i]}
	}
	return points
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
