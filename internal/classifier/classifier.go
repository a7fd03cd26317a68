package classifier

import (
	"errors"
	"fmt"
	"slices"
)

// Model names accepted by New.
const (
	NameRandomForest = "RandomForest"
	NameKNN          = "KNN"
	NameGaussianNB   = "GaussianNB"
)

// Errors returned by classifiers.
var (
	ErrUnknownClassifier = errors.New("unknown classifier")
	ErrNotFitted         = errors.New("classifier has not been fitted")
	ErrEmptyTraining     = errors.New("training sample is empty")
	ErrDimension         = errors.New("inconsistent feature dimensions")
)

// Classifier is a supervised probabilistic model.
type Classifier interface {
	// Fit trains the model. X holds one feature vector per object.
	Fit(X [][]float64, y []int) error
	// PredictProba returns per-object class probabilities ordered as Classes.
	PredictProba(X [][]float64) ([][]float64, error)
	// Classes returns the sorted labels seen during Fit.
	Classes() []int
}

// Options configures the models built by New. Zero values select defaults.
type Options struct {
	NEstimators int
	MaxDepth    int
	K           int
	Seed        int64
	// Bootstrap, when above one, wraps the model in an ensemble of that
	// many fits on resampled training sets.
	Bootstrap int
}

// Names lists the available models.
func Names() []string {
	return []string{NameRandomForest, NameKNN, NameGaussianNB}
}

// New builds the named model.
func New(name string, opts Options) (Classifier, error) {
	factory, err := factoryFor(name, opts)
	if err != nil {
		return nil, err
	}
	if opts.Bootstrap > 1 {
		return NewBootstrap(factory, opts.Bootstrap, opts.Seed), nil
	}
	return factory(opts.Seed), nil
}

func factoryFor(name string, opts Options) (func(seed int64) Classifier, error) {
	switch name {
	case NameRandomForest:
		return func(seed int64) Classifier {
			return &RandomForest{NEstimators: opts.NEstimators, MaxDepth: opts.MaxDepth, Seed: seed}
		}, nil
	case NameKNN:
		return func(int64) Classifier { return &KNN{K: opts.K} }, nil
	case NameGaussianNB:
		return func(int64) Classifier { return &GaussianNB{} }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClassifier, name)
	}
}

// Predict returns the most probable class for every object.
func Predict(c Classifier, X [][]float64) ([]int, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return MostProbable(c.Classes(), proba), nil
}

// MostProbable maps each probability row to its label in classes. Ties go
// to the lower label.
func MostProbable(classes []int, proba [][]float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		best := 0
		for j := range p {
			if p[j] > p[best] {
				best = j
			}
		}
		out[i] = classes[best]
	}
	return out
}

// ClassColumn returns the probability column of label, or -1.
func ClassColumn(c Classifier, label int) int {
	return slices.Index(c.Classes(), label)
}

// checkTraining validates X and y and returns the sorted distinct labels.
func checkTraining(X [][]float64, y []int) ([]int, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTraining
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d vectors, %d labels", ErrDimension, len(X), len(y))
	}
	if err := checkDims(X, len(X[0])); err != nil {
		return nil, err
	}
	classes := slices.Clone(y)
	slices.Sort(classes)
	return slices.Compact(classes), nil
}

func checkDims(X [][]float64, dims int) error {
	for i, x := range X {
		if len(x) != dims {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimension, i, len(x), dims)
		}
	}
	return nil
}

// classIndex maps labels to probability columns.
func classIndex(classes []int) map[int]int {
	idx := make(map[int]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}
