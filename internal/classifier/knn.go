package classifier

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

const defaultNeighbours = 5

// KNN votes among the K nearest training objects, weighting each vote by
// inverse distance. Features are standardised with training statistics.
type KNN struct {
	K int

	classes []int
	labels  []int
	train   [][]float64
	mean    []float64
	std     []float64
}

// Classes implements Classifier.
func (k *KNN) Classes() []int { return k.classes }

// Fit implements Classifier.
func (k *KNN) Fit(X [][]float64, y []int) error {
	classes, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	dims := len(X[0])
	k.classes = classes
	k.mean = make([]float64, dims)
	k.std = make([]float64, dims)
	col := make([]float64, len(X))
	for d := 0; d < dims; d++ {
		for i, x := range X {
			col[i] = x[d]
		}
		k.mean[d], k.std[d] = stat.MeanStdDev(col, nil)
		if k.std[d] == 0 || math.IsNaN(k.std[d]) {
			k.std[d] = 1
		}
	}

	idx := classIndex(classes)
	k.labels = make([]int, len(y))
	k.train = make([][]float64, len(X))
	for i, x := range X {
		k.labels[i] = idx[y[i]]
		k.train[i] = k.scale(x)
	}
	return nil
}

func (k *KNN) scale(x []float64) []float64 {
	out := make([]float64, len(x))
	for d, v := range x {
		out[d] = (v - k.mean[d]) / k.std[d]
	}
	return out
}

// PredictProba implements Classifier.
func (k *KNN) PredictProba(X [][]float64) ([][]float64, error) {
	if k.train == nil {
		return nil, ErrNotFitted
	}
	if err := checkDims(X, len(k.mean)); err != nil {
		return nil, err
	}
	n := k.K
	if n <= 0 {
		n = defaultNeighbours
	}
	n = min(n, len(k.train))

	type neighbour struct {
		dist  float64
		label int
	}
	out := make([][]float64, len(X))
	nb := make([]neighbour, len(k.train))
	for i, x := range X {
		q := k.scale(x)
		for j, t := range k.train {
			var sum float64
			for d := range q {
				diff := q[d] - t[d]
				sum += diff * diff
			}
			nb[j] = neighbour{dist: math.Sqrt(sum), label: k.labels[j]}
		}
		slices.SortStableFunc(nb, func(a, b neighbour) int {
			switch {
			case a.dist < b.dist:
				return -1
			case a.dist > b.dist:
				return 1
			}
			return 0
		})

		p := make([]float64, len(k.classes))
		// an exact match takes all the weight
		if nb[0].dist == 0 {
			for _, v := range nb[:n] {
				if v.dist == 0 {
					p[v.label]++
				}
			}
		} else {
			for _, v := range nb[:n] {
				p[v.label] += 1 / v.dist
			}
		}
		var total float64
		for _, v := range p {
			total += v
		}
		for c := range p {
			p[c] /= total
		}
		out[i] = p
	}
	return out, nil
}
