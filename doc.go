// Package demandcast turns a raw record of bus-route bookings into a
// seasonal demand forecast for fleet and resource planning.
//
// The forecasting pipeline aggregates per-trip bookings into a daily
// series, tests it for stationarity (ADF), differences it once when the
// test says so, fits a SARIMA model to an 80% training window, scores the
// model against the held-out 20%, and projects demand forward over a
// caller-chosen horizon.
//
// # Quick Start
//
//	store, _ := dataset.Open("updated_data.csv")
//	obs, _ := store.Load()
//	runner, _ := forecast.NewRunner(forecast.DefaultOptions())
//	report, err := runner.Run(obs, 30)
//
// # Packages
//
//   - timeseries: daily series data structure and transforms
//   - dataset: durable CSV booking store (load, validated append)
//   - stats: ADF stationarity test, ACF, Ljung-Box diagnostics
//   - sarima: seasonal ARIMA model (CSS estimation)
//   - forecast: the pipeline (aggregate, split, fit, evaluate, project)
//   - internal/httpapi: HTTP surface rendering pipeline output
package demandcast
