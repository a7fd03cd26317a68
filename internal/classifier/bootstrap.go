package classifier

import (
	"math/rand/v2"
	"slices"
)

// Bootstrap averages the predictions of N models, each fitted on a
// resample (with replacement) of the training set.
type Bootstrap struct {
	newModel func(seed int64) Classifier
	n        int
	seed     int64

	classes []int
	models  []Classifier
}

// NewBootstrap builds an ensemble of n models created by newModel.
func NewBootstrap(newModel func(seed int64) Classifier, n int, seed int64) *Bootstrap {
	return &Bootstrap{newModel: newModel, n: max(n, 1), seed: seed}
}

// Classes implements Classifier.
func (b *Bootstrap) Classes() []int { return b.classes }

// Fit implements Classifier. Every resample keeps at least one object of
// each class so all members share the same class columns.
func (b *Bootstrap) Fit(X [][]float64, y []int) error {
	classes, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	first := make(map[int]int, len(classes))
	for i, v := range y {
		if _, ok := first[v]; !ok {
			first[v] = i
		}
	}

	rng := rand.New(rand.NewPCG(uint64(b.seed), 0xb007))
	b.classes = classes
	b.models = make([]Classifier, b.n)
	for m := range b.models {
		xs := make([][]float64, 0, len(X)+len(classes))
		ys := make([]int, 0, len(X)+len(classes))
		for _, c := range classes {
			xs = append(xs, X[first[c]])
			ys = append(ys, c)
		}
		for range X {
			i := rng.IntN(len(X))
			xs = append(xs, X[i])
			ys = append(ys, y[i])
		}
		model := b.newModel(b.seed + int64(m))
		if err := model.Fit(xs, ys); err != nil {
			return err
		}
		if !slices.Equal(model.Classes(), classes) {
			return ErrDimension
		}
		b.models[m] = model
	}
	return nil
}

// PredictProba implements Classifier.
func (b *Bootstrap) PredictProba(X [][]float64) ([][]float64, error) {
	if b.models == nil {
		return nil, ErrNotFitted
	}
	var out [][]float64
	for _, m := range b.models {
		p, err := m.PredictProba(X)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = p
			continue
		}
		for i := range p {
			for c := range p[i] {
				out[i][c] += p[i][c]
			}
		}
	}
	for i := range out {
		for c := range out[i] {
			out[i][c] /= float64(len(b.models))
		}
	}
	return out, nil
}
