package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/transitlab/demandcast/sarima"
	"github.com/transitlab/demandcast/timeseries"
)

// Evaluation is the backtest result: the model's forecast over the
// held-out window and its root-mean-square error against the truth.
type Evaluation struct {
	Forecast []float64
	RMSE     float64
}

// Evaluate forecasts |test| steps from the fitted model and scores them
// against the held-out values. Predictions are conditioned only on the
// fitted parameters and in-sample history, never on the test values.
func Evaluate(model *sarima.Model, test *timeseries.DailySeries) (*Evaluation, error) {
	preds, err := model.Predict(test.Len())
	if err != nil {
		return nil, err
	}
	rmse, err := RMSE(preds, test.Values)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Forecast: preds, RMSE: rmse}, nil
}

// RMSE returns the root-mean-square error between predicted and actual.
func RMSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrLengthMismatch
	}
	sq := make([]float64, len(predicted))
	for i := range predicted {
		d := predicted[i] - actual[i]
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil)), nil
}
