package bazin

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Errors returned by Fit.
var (
	ErrNotEnoughPoints = errors.New("not enough points to fit the Bazin function")
	ErrMismatchedInput = errors.New("times and fluxes have different lengths")
	ErrFitFailed       = errors.New("bazin fit did not converge")
)

// penalty replaces non-finite costs so the simplex moves away from them.
const penalty = 1e300

// Initial guesses for the time scales, in days.
const (
	defaultTFall = 40.0
	defaultTRise = -5.0
)

// Fitter fits the Bazin function to the photometry of a single filter.
type Fitter struct {
	// MaxIterations bounds the Nelder-Mead iterations; zero means 2000.
	MaxIterations int
}

// Result holds a successful fit.
type Result struct {
	Params Params
	// Offset is the MJD subtracted from the times before fitting; the model
	// at an absolute date d is Eval(d-Offset, Params).
	Offset float64
	// Chi2 is the error-weighted residual sum; it equals the plain sum of
	// squared residuals when no errors were given.
	Chi2   float64
	Points int
}

// At evaluates the fitted model at an absolute MJD.
func (r Result) At(mjd float64) float64 {
	return Eval(mjd-r.Offset, r.Params)
}

// Fit estimates the parameters that minimise the squared flux residuals.
//
// Times are shifted so the first epoch is zero. The starting point is the
// peak flux as amplitude, zero baseline, the time of peak flux as t0 and
// the default time scales. errs may be nil; when given they only weight
// the reported chi2.
func (f Fitter) Fit(times, fluxes, errs []float64) (Result, error) {
	if len(times) != len(fluxes) || (errs != nil && len(errs) != len(fluxes)) {
		return Result{}, ErrMismatchedInput
	}
	if len(times) < NumParams {
		return Result{}, fmt.Errorf("%w: got %d, need %d", ErrNotEnoughPoints, len(times), NumParams)
	}

	offset := times[0]
	for _, t := range times[1:] {
		offset = math.Min(offset, t)
	}
	shifted := make([]float64, len(times))
	peak := 0
	for i, t := range times {
		shifted[i] = t - offset
		if fluxes[i] > fluxes[peak] {
			peak = i
		}
	}

	cost := func(x []float64) float64 {
		p := ParamsFromSlice(x)
		var sum float64
		for i, t := range shifted {
			r := fluxes[i] - Eval(t, p)
			sum += r * r
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return penalty
		}
		return sum
	}

	iterations := f.MaxIterations
	if iterations <= 0 {
		iterations = 2000
	}

	guess := []float64{fluxes[peak], 0, shifted[peak], defaultTFall, defaultTRise}
	problem := optimize.Problem{Func: cost}
	settings := &optimize.Settings{
		MajorIterations: iterations,
		FuncEvaluations: iterations * 4,
	}

	result, err := optimize.Minimize(problem, guess, settings, &optimize.NelderMead{})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	if result.F >= penalty || anyNonFinite(result.X) {
		return Result{}, ErrFitFailed
	}

	params := ParamsFromSlice(result.X)
	return Result{
		Params: params,
		Offset: offset,
		Chi2:   chi2(shifted, fluxes, errs, params),
		Points: len(times),
	}, nil
}

func chi2(times, fluxes, errs []float64, p Params) float64 {
	var sum float64
	for i, t := range times {
		r := fluxes[i] - Eval(t, p)
		if errs != nil && errs[i] > 0 {
			r /= errs[i]
		}
		sum += r * r
	}
	return sum
}

func anyNonFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
