// Package bazin implements the Bazin et al. (2009) parametric light-curve
// model and its least-squares fit.
package bazin

import "math"

// NumParams is the number of free parameters of the model.
const NumParams = 5

// Params defines the five parameters of the Bazin function.
type Params struct {
	// A is the amplitude.
	A float64
	// B is the constant baseline.
	B float64
	// T0 is the reference time, relative to the first fitted epoch.
	T0 float64
	// TFall is the decline time scale in days.
	TFall float64
	// TRise is the rise time scale in days (negative for rising curves).
	TRise float64
}

// Slice returns the parameters in feature order: A, B, t0, tfall, trise.
func (p Params) Slice() []float64 {
	return []float64{p.A, p.B, p.T0, p.TFall, p.TRise}
}

// ParamsFromSlice is the inverse of Slice.
func ParamsFromSlice(x []float64) Params {
	return Params{A: x[0], B: x[1], T0: x[2], TFall: x[3], TRise: x[4]}
}

// Eval computes the model flux at time t, where t uses the same origin as T0:
//
//	f(t) = A * exp(-(t-t0)/tfall) / (1 + exp((t-t0)/trise)) + B
func Eval(t float64, p Params) float64 {
	x := math.Exp(-(t-p.T0)/p.TFall) / (1 + math.Exp((t-p.T0)/p.TRise))
	return p.A*x + p.B
}
