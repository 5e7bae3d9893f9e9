// Package timeseries provides the daily demand series structure and the
// transforms the forecasting pipeline applies to it.
package timeseries
