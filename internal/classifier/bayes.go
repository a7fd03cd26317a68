package classifier

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// varSmoothing is added to every variance, scaled by the largest feature
// variance.
const varSmoothing = 1e-9

// GaussianNB models every feature as an independent normal per class.
type GaussianNB struct {
	classes []int
	prior   []float64
	mean    [][]float64
	vars    [][]float64
}

// Classes implements Classifier.
func (g *GaussianNB) Classes() []int { return g.classes }

// Fit implements Classifier.
func (g *GaussianNB) Fit(X [][]float64, y []int) error {
	classes, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	dims := len(X[0])
	idx := classIndex(classes)

	byClass := make([][][]float64, len(classes))
	for i, x := range X {
		c := idx[y[i]]
		byClass[c] = append(byClass[c], x)
	}

	epsilon := 0.0
	col := make([]float64, len(X))
	for d := 0; d < dims; d++ {
		for i, x := range X {
			col[i] = x[d]
		}
		epsilon = math.Max(epsilon, stat.PopVariance(col, nil))
	}
	epsilon *= varSmoothing
	if epsilon == 0 {
		epsilon = varSmoothing
	}

	g.classes = classes
	g.prior = make([]float64, len(classes))
	g.mean = make([][]float64, len(classes))
	g.vars = make([][]float64, len(classes))
	for c, rows := range byClass {
		g.prior[c] = float64(len(rows)) / float64(len(X))
		g.mean[c] = make([]float64, dims)
		g.vars[c] = make([]float64, dims)
		vals := make([]float64, len(rows))
		for d := 0; d < dims; d++ {
			for i, r := range rows {
				vals[i] = r[d]
			}
			g.mean[c][d] = stat.Mean(vals, nil)
			g.vars[c][d] = stat.PopVariance(vals, nil) + epsilon
		}
	}
	return nil
}

// PredictProba implements Classifier.
func (g *GaussianNB) PredictProba(X [][]float64) ([][]float64, error) {
	if g.classes == nil {
		return nil, ErrNotFitted
	}
	if err := checkDims(X, len(g.mean[0])); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		logp := make([]float64, len(g.classes))
		for c := range g.classes {
			lp := math.Log(g.prior[c])
			for d, v := range x {
				diff := v - g.mean[c][d]
				lp -= 0.5*math.Log(2*math.Pi*g.vars[c][d]) + diff*diff/(2*g.vars[c][d])
			}
			logp[c] = lp
		}
		norm := floats.LogSumExp(logp)
		for c := range logp {
			logp[c] = math.Exp(logp[c] - norm)
		}
		out[i] = logp
	}
	return out, nil
}
