package forecast

import (
	"errors"
	"math"
	"testing"
)

func TestRMSEZeroOnlyWhenEqual(t *testing.T) {
	actual := []float64{10, 12, 9, 15}

	rmse, err := RMSE(actual, actual)
	if err != nil {
		t.Fatal(err)
	}
	if rmse != 0 {
		t.Errorf("RMSE of identical slices must be 0, got %f", rmse)
	}

	off := []float64{10, 12, 9, 16}
	rmse, err = RMSE(off, actual)
	if err != nil {
		t.Fatal(err)
	}
	if rmse <= 0 {
		t.Errorf("RMSE must be positive for differing slices, got %f", rmse)
	}
}

func TestRMSEValue(t *testing.T) {
	predicted := []float64{1, 2, 3}
	actual := []float64{2, 2, 5}

	// Squared errors: 1, 0, 4 -> mean 5/3.
	rmse, err := RMSE(predicted, actual)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(rmse-want) > 1e-12 {
		t.Errorf("Expected RMSE %f, got %f", want, rmse)
	}
}

func TestRMSELengthMismatch(t *testing.T) {
	if _, err := RMSE([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}
