// Package dataset reads and extends the durable CSV store of per-trip
// bus booking records that feeds the forecasting pipeline.
package dataset
