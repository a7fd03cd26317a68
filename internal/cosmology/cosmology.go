// Package cosmology computes flat w0waCDM distances and Fisher matrix
// forecasts of how well a supernova sample constrains dark energy.
package cosmology

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// SpeedOfLight in km/s.
const SpeedOfLight = 299792.458

// quadPoints is the Gauss-Legendre order used for comoving distances.
const quadPoints = 64

// ErrInvalidRedshift is returned for negative or non-finite redshifts.
var ErrInvalidRedshift = errors.New("redshift must be finite and non-negative")

// Cosmology is a flat w0waCDM model.
type Cosmology struct {
	// H0 in km/s/Mpc.
	H0 float64
	Om float64
	W0 float64
	Wa float64
}

// Fiducial is the reference model forecasts are computed around.
func Fiducial() Cosmology {
	return Cosmology{H0: 70, Om: 0.3, W0: -1, Wa: 0}
}

// E returns H(z)/H0.
func (c Cosmology) E(z float64) float64 {
	a := 1 + z
	de := math.Pow(a, 3*(1+c.W0+c.Wa)) * math.Exp(-3*c.Wa*z/a)
	return math.Sqrt(c.Om*a*a*a + (1-c.Om)*de)
}

// ComovingDistance returns the line of sight comoving distance in Mpc.
func (c Cosmology) ComovingDistance(z float64) (float64, error) {
	if z < 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidRedshift, z)
	}
	if z == 0 {
		return 0, nil
	}
	integral := quad.Fixed(func(x float64) float64 { return 1 / c.E(x) }, 0, z, quadPoints, nil, 0)
	return SpeedOfLight / c.H0 * integral, nil
}

// LuminosityDistance returns the luminosity distance in Mpc.
func (c Cosmology) LuminosityDistance(z float64) (float64, error) {
	dc, err := c.ComovingDistance(z)
	if err != nil {
		return 0, err
	}
	return (1 + z) * dc, nil
}

// DistanceModulus returns mu = 5 log10(dL / 10 pc).
func (c Cosmology) DistanceModulus(z float64) (float64, error) {
	if z <= 0 {
		return 0, fmt.Errorf("%w: distance modulus needs z > 0, got %g", ErrInvalidRedshift, z)
	}
	dl, err := c.LuminosityDistance(z)
	if err != nil {
		return 0, err
	}
	return 5*math.Log10(dl) + 25, nil
}
