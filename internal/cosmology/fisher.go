package cosmology

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Parameters of the Fisher matrix, in row order.
const (
	ParamW0 = iota
	ParamWa
	ParamOm
	NumParams
)

// ParamNames names the Fisher matrix rows.
var ParamNames = []string{"w0", "wa", "om"}

// step is the central finite difference step for every parameter.
const step = 1e-4

// Errors returned by Fisher computations.
var (
	ErrSingular       = errors.New("fisher matrix is singular")
	ErrInvalidSigma   = errors.New("distance modulus error must be positive")
	ErrLengthMismatch = errors.New("redshifts and errors have different lengths")
)

// Supernova is one distance measurement.
type Supernova struct {
	ID      string
	Z       float64
	SigmaMu float64
}

// Fisher is the Fisher information of a supernova sample about
// (w0, wa, Om) around a fiducial cosmology.
type Fisher struct {
	Fiducial Cosmology
	N        int
	m        *mat.SymDense
}

// NewFisher returns an empty Fisher matrix around fid.
func NewFisher(fid Cosmology) *Fisher {
	return &Fisher{Fiducial: fid, m: mat.NewSymDense(NumParams, nil)}
}

// FisherMatrix builds the Fisher matrix of the sample.
func FisherMatrix(fid Cosmology, sample []Supernova) (*Fisher, error) {
	f := NewFisher(fid)
	for _, sn := range sample {
		if err := f.Add(sn); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FisherMatrixFromArrays builds the Fisher matrix from aligned redshift and
// error slices.
func FisherMatrixFromArrays(fid Cosmology, z, sigmaMu []float64) (*Fisher, error) {
	if len(z) != len(sigmaMu) {
		return nil, ErrLengthMismatch
	}
	sample := make([]Supernova, len(z))
	for i := range z {
		sample[i] = Supernova{Z: z[i], SigmaMu: sigmaMu[i]}
	}
	return FisherMatrix(fid, sample)
}

// with returns c with parameter p shifted by d.
func with(c Cosmology, p int, d float64) Cosmology {
	switch p {
	case ParamW0:
		c.W0 += d
	case ParamWa:
		c.Wa += d
	case ParamOm:
		c.Om += d
	}
	return c
}

// Derivatives returns d mu / d theta at z.
func Derivatives(fid Cosmology, z float64) ([]float64, error) {
	out := make([]float64, NumParams)
	for p := 0; p < NumParams; p++ {
		up, err := with(fid, p, step).DistanceModulus(z)
		if err != nil {
			return nil, err
		}
		down, err := with(fid, p, -step).DistanceModulus(z)
		if err != nil {
			return nil, err
		}
		out[p] = (up - down) / (2 * step)
	}
	return out, nil
}

// Add includes one supernova in f.
func (f *Fisher) Add(sn Supernova) error {
	if sn.SigmaMu <= 0 || math.IsNaN(sn.SigmaMu) {
		return fmt.Errorf("%w: object %s has %g", ErrInvalidSigma, sn.ID, sn.SigmaMu)
	}
	d, err := Derivatives(f.Fiducial, sn.Z)
	if err != nil {
		return fmt.Errorf("object %s: %w", sn.ID, err)
	}
	w := 1 / (sn.SigmaMu * sn.SigmaMu)
	for i := 0; i < NumParams; i++ {
		for j := i; j < NumParams; j++ {
			f.m.SetSym(i, j, f.m.At(i, j)+w*d[i]*d[j])
		}
	}
	f.N++
	return nil
}

// Clone returns an independent copy of f.
func (f *Fisher) Clone() *Fisher {
	m := mat.NewSymDense(NumParams, nil)
	m.CopySym(f.m)
	return &Fisher{Fiducial: f.Fiducial, N: f.N, m: m}
}

// At returns element (i, j).
func (f *Fisher) At(i, j int) float64 {
	return f.m.At(i, j)
}

// UpdateMatrix returns a copy of f including sample.
func UpdateMatrix(f *Fisher, sample []Supernova) (*Fisher, error) {
	out := f.Clone()
	for _, sn := range sample {
		if err := out.Add(sn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Results summarises a Fisher matrix.
type Results struct {
	// Sigma holds the marginalised error of each parameter in ParamNames order.
	Sigma []float64
	// FoM is the w0-wa figure of merit, 1/sqrt(det Cov[w0,wa]).
	FoM float64
	N   int
}

// FisherResults inverts f.
func FisherResults(f *Fisher) (Results, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(f.m); !ok {
		return Results{}, ErrSingular
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return Results{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	res := Results{Sigma: make([]float64, NumParams), N: f.N}
	for i := 0; i < NumParams; i++ {
		res.Sigma[i] = math.Sqrt(cov.At(i, i))
	}
	det := cov.At(ParamW0, ParamW0)*cov.At(ParamWa, ParamWa) - cov.At(ParamW0, ParamWa)*cov.At(ParamW0, ParamWa)
	if det <= 0 {
		return Results{}, ErrSingular
	}
	res.FoM = 1 / math.Sqrt(det)
	return res, nil
}

// Ranked is a candidate together with the figure of merit reached by
// adding it alone to the base sample.
type Ranked struct {
	Supernova
	FoM  float64
	Gain float64
}

// FindMostUseful ranks candidates by the FoM gain each brings to base and
// returns the best n, highest gain first. Ties keep candidate order.
func FindMostUseful(base *Fisher, candidates []Supernova, n int) ([]Ranked, error) {
	baseRes, err := FisherResults(base)
	if err != nil {
		return nil, fmt.Errorf("base sample: %w", err)
	}
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		f := base.Clone()
		if err := f.Add(c); err != nil {
			return nil, err
		}
		res, err := FisherResults(f)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", c.ID, err)
		}
		ranked = append(ranked, Ranked{Supernova: c, FoM: res.FoM, Gain: res.FoM - baseRes.FoM})
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Gain > b.Gain:
			return -1
		case a.Gain < b.Gain:
			return 1
		}
		return 0
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// Comparison relates two Fisher forecasts.
type Comparison struct {
	First, Second Results
	// FoMRatio is Second.FoM / First.FoM.
	FoMRatio float64
	// SigmaRatio is Second.Sigma / First.Sigma per parameter.
	SigmaRatio []float64
}

// CompareTwoFishers computes both forecasts and their ratios.
func CompareTwoFishers(a, b *Fisher) (Comparison, error) {
	ra, err := FisherResults(a)
	if err != nil {
		return Comparison{}, fmt.Errorf("first matrix: %w", err)
	}
	rb, err := FisherResults(b)
	if err != nil {
		return Comparison{}, fmt.Errorf("second matrix: %w", err)
	}
	cmp := Comparison{First: ra, Second: rb, FoMRatio: rb.FoM / ra.FoM, SigmaRatio: make([]float64, NumParams)}
	for i := range cmp.SigmaRatio {
		cmp.SigmaRatio[i] = rb.Sigma[i] / ra.Sigma[i]
	}
	return cmp, nil
}
