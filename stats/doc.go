// Package stats provides the statistical tests behind the forecasting
// pipeline: the ADF unit-root test that drives the differencing decision,
// autocorrelation used to seed model coefficients, and the Ljung-Box
// residual diagnostic.
package stats
