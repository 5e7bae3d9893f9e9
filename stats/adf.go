package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ADFResult holds the outcome of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller unit-root test on values.
// The null hypothesis is that the series has a unit root (is
// non-stationary); a p-value of 0.05 or below rejects it. The MacKinnon
// interpolation can land on 0.05 exactly, so the boundary is inclusive.
//
// maxLag <= 0 selects the default lag order floor((n-1)^(1/3)).
// Returns nil when the series is too short for the regression.
func ADF(values []float64, maxLag int) *ADFResult {
	n := len(values)
	if n < 10 {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Cbrt(float64(n - 1))))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = values[i] - values[i-1]
	}

	// Regression: delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i}).
	// The test statistic is the t-stat on beta.
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)

	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}

	coeffs, se := olsRegression(x, y)
	if coeffs == nil || se == nil {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic:    tStat,
		PValue:       pValue,
		Lags:         maxLag,
		NObs:         nObs,
		IsStationary: isStationary(pValue),
	}
}

// isStationary applies the decision rule: stationary iff p <= 0.05.
func isStationary(pValue float64) bool {
	return pValue <= 0.05
}

// olsRegression fits y = X*beta by least squares and returns the
// coefficients with their standard errors, or nils when X'X is singular.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil
	}

	var qr mat.QR
	qr.Factorize(x)

	beta := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(beta, false, y); err != nil {
		return nil, nil
	}

	// Residual variance.
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, beta)
	sse := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		sse += r * r
	}
	s2 := sse / float64(n-k)

	// Standard errors from the diagonal of s2 * (X'X)^-1.
	var xtx, xtxInv mat.Dense
	xtx.Mul(x.T(), x)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil
	}

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}
	return coeffs, stdErrors
}

// mackinnonPValue approximates the p-value for the ADF statistic using
// interpolation over the MacKinnon (1994) asymptotic critical values for
// the constant-only regression.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}
