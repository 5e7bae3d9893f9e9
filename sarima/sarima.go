package sarima

import (
	"errors"
	"math"

	"github.com/transitlab/demandcast/stats"
	"github.com/transitlab/demandcast/timeseries"
)

var (
	// ErrTooShort is returned when the training window cannot support the
	// requested order.
	ErrTooShort = errors.New("sarima: insufficient data points for the specified order")
	// ErrConvergence is returned when the optimizer fails numerically.
	// The caller may retry with a different order; the model does not.
	ErrConvergence = errors.New("sarima: optimizer did not converge")
	// ErrNotFitted is returned when forecasting from an unfitted model.
	ErrNotFitted = errors.New("sarima: model must be fitted before prediction")
)

// Order is the SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P, D, Q    int // non-seasonal AR, differencing, MA
	SP, SD, SQ int // seasonal AR, differencing, MA
	M          int // seasonal period
}

// Params returns the number of estimated parameters (plus intercept).
func (o Order) Params() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

// Model is a SARIMA model. Fit once, then forecast repeatedly; the
// fitted state never changes after Fit returns.
type Model struct {
	order Order

	arCoeffs  []float64
	maCoeffs  []float64
	sarCoeffs []float64
	smaCoeffs []float64
	intercept float64
	variance  float64
	logLik    float64
	aic       float64
	bic       float64

	fitted     bool
	input      *timeseries.DailySeries
	working    *timeseries.DailySeries // after d and D differencing
	residuals  []float64
	fittedVals []float64 // on the working (differenced) scale
}

// New creates an unfitted SARIMA model with the given order.
func New(order Order) *Model {
	return &Model{
		order:     order,
		arCoeffs:  make([]float64, order.P),
		maCoeffs:  make([]float64, order.Q),
		sarCoeffs: make([]float64, order.SP),
		smaCoeffs: make([]float64, order.SQ),
	}
}

// Order returns the model order.
func (m *Model) Order() Order {
	return m.order
}

// Fitted reports whether Fit has completed successfully.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Variance returns the residual variance of the fitted model.
func (m *Model) Variance() float64 {
	return m.variance
}

// AIC returns the Akaike information criterion of the fit.
func (m *Model) AIC() float64 {
	return m.aic
}

// BIC returns the Bayesian information criterion of the fit.
func (m *Model) BIC() float64 {
	return m.bic
}

// Fit estimates the model on the given series by conditional sum of
// squares. The series is retained for differencing integration during
// forecasting but never modified.
func (m *Model) Fit(series *timeseries.DailySeries) error {
	o := m.order
	minLen := o.P + o.Q + o.D + (o.SP+o.SD+o.SQ)*o.M + 2
	if series.Len() < minLen {
		return ErrTooShort
	}

	m.input = series

	working := series
	for i := 0; i < o.D; i++ {
		working = working.Diff()
		if working.Len() == 0 {
			return ErrTooShort
		}
	}
	for i := 0; i < o.SD; i++ {
		working = working.SeasonalDiff(o.M)
		if working.Len() == 0 {
			return ErrTooShort
		}
	}
	m.working = working

	if err := m.estimate(); err != nil {
		return err
	}

	m.informationCriteria()
	m.fitted = true
	return nil
}

// estimate runs gradient descent with momentum on the conditional sum of
// squares, keeping the best parameter set seen.
func (m *Model) estimate() error {
	y := m.working.Values
	n := len(y)
	o := m.order

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.intercept = mean / float64(n)

	// Seed AR terms from the autocorrelation function.
	if o.P > 0 {
		if acf := stats.ACF(y, o.P); acf != nil {
			for i := 0; i < o.P && i+1 < len(acf); i++ {
				m.arCoeffs[i] = acf[i+1] * 0.5
			}
		}
	}
	if o.SP > 0 {
		if acf := stats.ACF(y, o.SP*o.M); acf != nil {
			for i := 0; i < o.SP; i++ {
				if idx := (i + 1) * o.M; idx < len(acf) {
					m.sarCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range m.maCoeffs {
		m.maCoeffs[i] = 0.1
	}
	for i := range m.smaCoeffs {
		m.smaCoeffs[i] = 0.1
	}

	const (
		maxIter   = 200
		tolerance = 1e-8
		patience  = 20
	)
	learningRate := 0.005
	const momentum = 0.9
	const decay = 0.99

	arVel := make([]float64, o.P)
	maVel := make([]float64, o.Q)
	sarVel := make([]float64, o.SP)
	smaVel := make([]float64, o.SQ)

	startIdx := max(max(o.P, o.Q), max(o.SP*o.M, o.SQ*o.M))
	if startIdx >= n-2 {
		startIdx = 0
	}

	bestSSE := math.Inf(1)
	bestAR := make([]float64, o.P)
	bestMA := make([]float64, o.Q)
	bestSAR := make([]float64, o.SP)
	bestSMA := make([]float64, o.SQ)
	noImprove := 0

	residuals := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		currentSSE := 0.0
		for t := startIdx; t < n; t++ {
			pred := m.onePred(y, residuals, t, n)
			residuals[t] = y[t] - pred
			currentSSE += residuals[t] * residuals[t]
		}

		if math.IsNaN(currentSSE) || math.IsInf(currentSSE, 0) {
			return ErrConvergence
		}

		if currentSSE < bestSSE {
			bestSSE = currentSSE
			copy(bestAR, m.arCoeffs)
			copy(bestMA, m.maCoeffs)
			copy(bestSAR, m.sarCoeffs)
			copy(bestSMA, m.smaCoeffs)
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove > patience {
			break
		}

		arGrad := make([]float64, o.P)
		maGrad := make([]float64, o.Q)
		sarGrad := make([]float64, o.SP)
		smaGrad := make([]float64, o.SQ)

		for t := startIdx; t < n; t++ {
			for i := 0; i < o.P && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.intercept)
			}
			for i := 0; i < o.SP; i++ {
				if lag := (i + 1) * o.M; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.intercept)
				}
			}
			for i := 0; i < o.Q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < o.SQ; i++ {
				if lag := (i + 1) * o.M; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		step := func(coeffs, vel, grad []float64) {
			for i := range coeffs {
				vel[i] = momentum*vel[i] + learningRate*grad[i]/float64(n)
				coeffs[i] -= vel[i]
				coeffs[i] = clamp(coeffs[i], -0.99, 0.99)
			}
		}
		step(m.arCoeffs, arVel, arGrad)
		step(m.sarCoeffs, sarVel, sarGrad)
		step(m.maCoeffs, maVel, maGrad)
		step(m.smaCoeffs, smaVel, smaGrad)

		learningRate *= decay

		if iter > 0 && math.Abs(currentSSE-bestSSE) < tolerance {
			break
		}
	}

	if math.IsInf(bestSSE, 1) {
		return ErrConvergence
	}

	copy(m.arCoeffs, bestAR)
	copy(m.maCoeffs, bestMA)
	copy(m.sarCoeffs, bestSAR)
	copy(m.smaCoeffs, bestSMA)
	for _, c := range [][]float64{m.arCoeffs, m.maCoeffs, m.sarCoeffs, m.smaCoeffs} {
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrConvergence
			}
		}
	}

	// Final pass: residuals and fitted values with the best parameters.
	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < n; t++ {
		pred := m.onePred(y, m.residuals, t, n)
		m.fittedVals[t] = pred
		m.residuals[t] = y[t] - pred
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	if k := m.order.Params(); count > k {
		m.variance = sse / float64(count-k)
	} else {
		m.variance = sse / float64(count)
	}
	return nil
}

// onePred computes the one-step prediction at index t given history y and
// residuals. Residuals at or beyond horizon n are treated as zero.
func (m *Model) onePred(y, residuals []float64, t, n int) float64 {
	o := m.order
	pred := m.intercept
	for i := 0; i < o.P && t-i-1 >= 0; i++ {
		pred += m.arCoeffs[i] * (y[t-i-1] - m.intercept)
	}
	for i := 0; i < o.SP; i++ {
		if lag := (i + 1) * o.M; t-lag >= 0 {
			pred += m.sarCoeffs[i] * (y[t-lag] - m.intercept)
		}
	}
	for i := 0; i < o.Q && t-i-1 >= 0 && t-i-1 < n; i++ {
		pred += m.maCoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < o.SQ; i++ {
		if lag := (i + 1) * o.M; t-lag >= 0 && t-lag < n {
			pred += m.smaCoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

func (m *Model) informationCriteria() {
	n := len(m.residuals)
	k := m.order.Params()

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.variance > 0 {
		m.logLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.variance) - sse/(2*m.variance)
	} else {
		m.logLik = math.Inf(-1)
	}
	m.aic = -2*m.logLik + 2*float64(k)
	m.bic = -2*m.logLik + float64(k)*math.Log(float64(n))
}

// Predict returns point forecasts for steps beyond the end of the
// training series, on the original scale.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval returns point forecasts with approximate prediction
// intervals at the given confidence level.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("sarima: steps must be at least 1")
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	o := m.order
	y := m.working.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	// Future residuals are zero; MA terms only reach into observed history.
	for h := 0; h < steps; h++ {
		t := n + h
		extY[t] = m.onePred(extY, extResiduals, t, n)
		extResiduals[t] = 0
	}

	forecasts = make([]float64, steps)
	copy(forecasts, extY[n:])
	forecasts = m.integrate(forecasts)

	z := normalQuantile((1 + confidence) / 2)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for h := 0; h < steps; h++ {
		se := math.Sqrt(m.variance)
		if o.D > 0 {
			se *= math.Sqrt(float64(h + 1))
		}
		if o.SD > 0 && o.M > 0 {
			se *= math.Sqrt(float64(h/o.M + 1))
		}
		lower[h] = forecasts[h] - z*se
		upper[h] = forecasts[h] + z*se
	}
	return forecasts, lower, upper, nil
}

// integrate undoes the differencing applied in Fit. Fit differences
// non-seasonally first, then seasonally, so integration undoes seasonal
// differencing first and then cumulates from the last observed level.
func (m *Model) integrate(forecasts []float64) []float64 {
	o := m.order
	original := m.input.Values
	n := len(original)

	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	nonSeasonal := original
	for i := 0; i < o.D; i++ {
		if len(nonSeasonal) <= 1 {
			break
		}
		next := make([]float64, len(nonSeasonal)-1)
		for j := 1; j < len(nonSeasonal); j++ {
			next[j-1] = nonSeasonal[j] - nonSeasonal[j-1]
		}
		nonSeasonal = next
	}

	if o.SD > 0 && o.M > 0 {
		nDiff := len(nonSeasonal)
		for i := 0; i < o.SD; i++ {
			for j := 0; j < len(result); j++ {
				if j < o.M {
					if idx := nDiff - o.M + j; idx >= 0 && idx < nDiff {
						result[j] += nonSeasonal[idx]
					}
				} else {
					result[j] += result[j-o.M]
				}
			}
		}
	}

	for i := 0; i < o.D; i++ {
		last := original[n-1]
		for j := 0; j < len(result); j++ {
			if j == 0 {
				result[j] += last
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}

// Residuals returns a copy of the model residuals on the working scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// FittedValues returns one-step-ahead fitted values aligned to the
// training series: fitted[i] = observed[i] - residual, with the first
// entries (consumed by differencing) passed through unchanged.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	o := m.order
	offset := o.D + o.SD*o.M
	out := make([]float64, m.input.Len())
	for i := range out {
		out[i] = m.input.Values[i]
		if i >= offset && i-offset < len(m.residuals) {
			out[i] -= m.residuals[i-offset]
		}
	}
	return out
}

// Summary is a report of the fitted model's parameters and diagnostics.
type Summary struct {
	Order     Order                `json:"order"`
	AR        []float64            `json:"ar"`
	MA        []float64            `json:"ma"`
	SAR       []float64            `json:"seasonal_ar"`
	SMA       []float64            `json:"seasonal_ma"`
	Intercept float64              `json:"intercept"`
	Variance  float64              `json:"variance"`
	LogLik    float64              `json:"log_likelihood"`
	AIC       float64              `json:"aic"`
	BIC       float64              `json:"bic"`
	NObs      int                  `json:"n_obs"`
	LjungBox  *stats.LjungBoxResult `json:"ljung_box,omitempty"`
}

// Summary returns the fitted model summary, including a Ljung-Box test on
// the residuals. Returns nil for an unfitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}
	o := m.order
	return &Summary{
		Order:     o,
		AR:        append([]float64(nil), m.arCoeffs...),
		MA:        append([]float64(nil), m.maCoeffs...),
		SAR:       append([]float64(nil), m.sarCoeffs...),
		SMA:       append([]float64(nil), m.smaCoeffs...),
		Intercept: m.intercept,
		Variance:  m.variance,
		LogLik:    m.logLik,
		AIC:       m.aic,
		BIC:       m.bic,
		NObs:      m.input.Len(),
		LjungBox:  stats.LjungBox(m.residuals, 10, o.P+o.Q+o.SP+o.SQ),
	}
}

// normalQuantile returns the z-value for probability p using the
// Abramowitz-Stegun rational approximation.
func normalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p < 0.5 {
		return -normalQuantile(1 - p)
	}
	t := math.Sqrt(-2 * math.Log(1-p))
	c0, c1, c2 := 2.515517, 0.802853, 0.010328
	d1, d2, d3 := 1.432788, 0.189269, 0.001308
	return t - (c0+c1*t+c2*t*t)/(1+d1*t+d2*t*t+d3*t*t*t)
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
