// Package forecast implements the demand forecasting pipeline: aggregate
// per-trip bookings into a daily series, decide on differencing via the
// ADF test, split 80/20, fit a SARIMA model (cached per training window),
// score it against the held-out tail, and project demand over a
// caller-chosen horizon.
//
// The run is strictly sequential. Every error is terminal for the
// request; nothing is retried or persisted across runs except the fitted
// model cache.
package forecast
