package classifier

import (
	"math"
	"math/rand/v2"
	"slices"
)

const defaultEstimators = 100

// RandomForest is an ensemble of CART trees grown on bootstrap samples
// with Gini impurity. Each split considers sqrt(nfeatures) random features.
type RandomForest struct {
	NEstimators int
	// MaxDepth limits tree depth; zero grows trees until leaves are pure.
	MaxDepth int
	Seed     int64

	classes []int
	dims    int
	trees   []*node
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	// proba is set on leaves only.
	proba []float64
}

func (n *node) predict(x []float64) []float64 {
	for n.proba == nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.proba
}

// Classes implements Classifier.
func (f *RandomForest) Classes() []int { return f.classes }

// Fit implements Classifier.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	classes, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n := f.NEstimators
	if n <= 0 {
		n = defaultEstimators
	}

	f.classes = classes
	f.dims = len(X[0])
	labels := make([]int, len(y))
	idx := classIndex(classes)
	for i, v := range y {
		labels[i] = idx[v]
	}

	rng := rand.New(rand.NewPCG(uint64(f.Seed), 0x5eed))
	g := grower{
		X:        X,
		labels:   labels,
		nClasses: len(classes),
		maxDepth: f.MaxDepth,
		mtry:     max(1, int(math.Sqrt(float64(f.dims)))),
		rng:      rng,
	}

	f.trees = make([]*node, n)
	for t := range f.trees {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.IntN(len(X))
		}
		f.trees[t] = g.grow(sample, 0)
	}
	return nil
}

// PredictProba implements Classifier by averaging leaf frequencies.
func (f *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if f.trees == nil {
		return nil, ErrNotFitted
	}
	if err := checkDims(X, f.dims); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		p := make([]float64, len(f.classes))
		for _, t := range f.trees {
			for c, v := range t.predict(x) {
				p[c] += v
			}
		}
		for c := range p {
			p[c] /= float64(len(f.trees))
		}
		out[i] = p
	}
	return out, nil
}

type grower struct {
	X        [][]float64
	labels   []int
	nClasses int
	maxDepth int
	mtry     int
	rng      *rand.Rand
}

func (g *grower) leaf(sample []int) *node {
	p := make([]float64, g.nClasses)
	for _, i := range sample {
		p[g.labels[i]]++
	}
	for c := range p {
		p[c] /= float64(len(sample))
	}
	return &node{proba: p}
}

func (g *grower) grow(sample []int, depth int) *node {
	if len(sample) < 2 || g.pure(sample) || (g.maxDepth > 0 && depth >= g.maxDepth) {
		return g.leaf(sample)
	}

	feature, threshold, ok := g.bestSplit(sample)
	if !ok {
		return g.leaf(sample)
	}
	var left, right []int
	for _, i := range sample {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return g.leaf(sample)
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

func (g *grower) pure(sample []int) bool {
	for _, i := range sample[1:] {
		if g.labels[i] != g.labels[sample[0]] {
			return false
		}
	}
	return true
}

// bestSplit scans mtry random features for the threshold with the lowest
// weighted Gini impurity.
func (g *grower) bestSplit(sample []int) (int, float64, bool) {
	dims := len(g.X[0])
	features := g.rng.Perm(dims)[:min(g.mtry, dims)]

	total := make([]float64, g.nClasses)
	for _, i := range sample {
		total[g.labels[i]]++
	}

	bestScore := math.Inf(1)
	bestFeature, bestThreshold, found := 0, 0.0, false
	order := slices.Clone(sample)
	left := make([]float64, g.nClasses)
	right := make([]float64, g.nClasses)
	n := float64(len(sample))

	for _, feat := range features {
		slices.SortFunc(order, func(a, b int) int {
			switch va, vb := g.X[a][feat], g.X[b][feat]; {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})
		clear(left)
		copy(right, total)

		for k := 0; k < len(order)-1; k++ {
			c := g.labels[order[k]]
			left[c]++
			right[c]--

			v, next := g.X[order[k]][feat], g.X[order[k+1]][feat]
			if v == next {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			score := nl*gini(left, nl) + nr*gini(right, nr)
			if score < bestScore {
				bestScore = score
				bestFeature = feat
				bestThreshold = v + (next-v)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(counts []float64, n float64) float64 {
	s := 1.0
	for _, c := range counts {
		p := c / n
		s -= p * p
	}
	return s
}
