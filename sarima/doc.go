// Package sarima implements seasonal ARIMA models estimated by
// conditional sum of squares. A fitted model is immutable and can serve
// any number of forecast requests.
package sarima
