package salt3

import (
	"fmt"
	"math"
)

// magPerLogFlux converts a fractional flux error to magnitudes, 2.5/ln 10.
const magPerLogFlux = 1.0857362047581294

// Tripp holds the standardisation parameters.
type Tripp struct {
	Alpha float64
	Beta  float64
	// M0 is the absolute magnitude in the B band.
	M0 float64
	// SigmaInt is the intrinsic scatter added in quadrature.
	SigmaInt float64
}

// DefaultTripp returns the usual SALT standardisation.
func DefaultTripp() Tripp {
	return Tripp{Alpha: 0.14, Beta: 3.1, M0: -19.36, SigmaInt: 0.1}
}

// Distance is a standardised distance modulus.
type Distance struct {
	ID    string
	Z     float64
	Mu    float64
	MuErr float64
}

// Distance computes mu = mB - M0 + alpha*x1 - beta*c for rec and propagates
// the fit covariance. Covariances absent from the record count as zero.
func (p Tripp) Distance(rec Record) (Distance, error) {
	z, err := rec.FirstFloat("zHD", "zCMB", "zHEL", "z", "REDSHIFT_FINAL")
	if err != nil {
		return Distance{}, err
	}
	if z <= 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return Distance{}, fmt.Errorf("object %s: %w, got %g", rec.ID(), ErrBadRedshift, z)
	}
	mB, err := rec.Float("mB")
	if err != nil {
		return Distance{}, err
	}
	x1, err := rec.Float("x1")
	if err != nil {
		return Distance{}, err
	}
	c, err := rec.Float("c")
	if err != nil {
		return Distance{}, err
	}
	mBErr, err := rec.Float("mBERR")
	if err != nil {
		return Distance{}, err
	}
	x1Err, err := rec.FloatOr("x1ERR", 0)
	if err != nil {
		return Distance{}, err
	}
	cErr, err := rec.FloatOr("cERR", 0)
	if err != nil {
		return Distance{}, err
	}

	covX1C, err := rec.FloatOr("COV_x1_c", 0)
	if err != nil {
		return Distance{}, err
	}
	covMBX1, covMBC, err := magCovariances(rec)
	if err != nil {
		return Distance{}, err
	}

	a, b := p.Alpha, p.Beta
	variance := mBErr*mBErr + a*a*x1Err*x1Err + b*b*cErr*cErr +
		2*a*covMBX1 - 2*b*covMBC - 2*a*b*covX1C +
		p.SigmaInt*p.SigmaInt
	if variance <= 0 || math.IsNaN(variance) {
		return Distance{}, fmt.Errorf("object %s: non-positive distance variance %g", rec.ID(), variance)
	}

	return Distance{
		ID:    rec.ID(),
		Z:     z,
		Mu:    mB - p.M0 + a*x1 - b*c,
		MuErr: math.Sqrt(variance),
	}, nil
}

// magCovariances returns cov(mB, x1) and cov(mB, c), converting the x0
// covariances SNANA writes when x0 is available.
func magCovariances(rec Record) (float64, float64, error) {
	if !rec.Has("x0") {
		return 0, 0, nil
	}
	x0, err := rec.Float("x0")
	if err != nil {
		return 0, 0, err
	}
	if x0 == 0 {
		return 0, 0, nil
	}
	covX1X0, err := rec.FloatOr("COV_x1_x0", 0)
	if err != nil {
		return 0, 0, err
	}
	covCX0, err := rec.FloatOr("COV_c_x0", 0)
	if err != nil {
		return 0, 0, err
	}
	scale := -magPerLogFlux / x0
	return scale * covX1X0, scale * covCX0, nil
}

// Distances standardises every record. Records that cannot be
// standardised are returned by ID in skipped.
func (p Tripp) Distances(records []Record) (out []Distance, skipped []string) {
	for _, rec := range records {
		d, err := p.Distance(rec)
		if err != nil {
			skipped = append(skipped, rec.ID())
			continue
		}
		out = append(out, d)
	}
	return out, skipped
}
