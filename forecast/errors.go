package forecast

import "errors"

var (
	// ErrEmptyInput is returned when there are no observations to
	// aggregate.
	ErrEmptyInput = errors.New("forecast: no observations")
	// ErrInsufficientData is returned when the working series is too
	// short to split into non-empty train and test windows, or too short
	// for the stationarity test.
	ErrInsufficientData = errors.New("forecast: series too short")
	// ErrInvalidHorizon is returned for horizons outside
	// [MinHorizon, MaxHorizon]. Out-of-range values are rejected, never
	// clamped.
	ErrInvalidHorizon = errors.New("forecast: horizon out of range")
	// ErrLengthMismatch is returned when an evaluation forecast and the
	// test window disagree in length. The splitter contract makes this
	// unreachable; it is checked anyway.
	ErrLengthMismatch = errors.New("forecast: forecast and test lengths differ")
)
