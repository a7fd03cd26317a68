package bazin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synthetic(p Params, offset float64, n int, step float64) ([]float64, []float64) {
	times := make([]float64, n)
	fluxes := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) * step
		times[i] = offset + t
		fluxes[i] = Eval(t, p)
	}
	return times, fluxes
}

func TestEval(t *testing.T) {
	t.Parallel()
	p := Params{A: 100, B: 2, T0: 10, TFall: 40, TRise: -5}

	// At t0 the rise term is 1/2 and the decline term is 1.
	assert.InDelta(t, 52.0, Eval(10, p), 1e-9)
	// Far before the peak only the baseline remains.
	assert.InDelta(t, 2.0, Eval(-200, p), 1e-6)
}

func TestParamsSliceRoundTrip(t *testing.T) {
	t.Parallel()
	p := Params{A: 1, B: 2, T0: 3, TFall: 4, TRise: 5}

	assert.Equal(t, []float64{1, 2, 3, 4, 5}, p.Slice())
	assert.Equal(t, p, ParamsFromSlice(p.Slice()))
}

func TestFitRecoversCurve(t *testing.T) {
	t.Parallel()
	truth := Params{A: 500, B: 10, T0: 20, TFall: 30, TRise: -4}
	times, fluxes := synthetic(truth, 56200, 30, 3)

	res, err := Fitter{MaxIterations: 5000}.Fit(times, fluxes, nil)
	require.NoError(t, err)

	assert.Equal(t, 56200.0, res.Offset)
	assert.Equal(t, 30, res.Points)
	// The model must reproduce the data closely even if parameters are degenerate.
	for i, mjd := range times {
		assert.InDelta(t, fluxes[i], res.At(mjd), 0.1*truth.A, "epoch %d", i)
	}
	assert.InDelta(t, truth.T0, res.Params.T0, 5)
}

func TestFitErrors(t *testing.T) {
	t.Parallel()

	_, err := Fitter{}.Fit([]float64{1, 2, 3}, []float64{1, 2, 3}, nil)
	assert.ErrorIs(t, err, ErrNotEnoughPoints)

	_, err = Fitter{}.Fit([]float64{1, 2}, []float64{1}, nil)
	assert.ErrorIs(t, err, ErrMismatchedInput)

	_, err = Fitter{}.Fit([]float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, []float64{1})
	assert.ErrorIs(t, err, ErrMismatchedInput)
}

func TestChi2UsesErrors(t *testing.T) {
	t.Parallel()
	p := Params{A: 1, B: 0, T0: 0, TFall: 10, TRise: -1}
	times := []float64{0}
	fluxes := []float64{Eval(0, p) + 2}

	assert.InDelta(t, 4.0, chi2(times, fluxes, nil, p), 1e-12)
	assert.InDelta(t, 1.0, chi2(times, fluxes, []float64{2}, p), 1e-12)
	assert.False(t, anyNonFinite([]float64{1, 2}))
	assert.True(t, anyNonFinite([]float64{1, math.NaN()}))
}
