// Package query implements the active learning query strategies that pick
// which objects to send for spectroscopic follow-up.
package query

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Strategy names.
const (
	RandomSampling      = "RandomSampling"
	UncertaintySampling = "UncertaintySampling"
	EntropySampling     = "EntropySampling"
	LeastConfident      = "LeastConfident"
	MarginSampling      = "MarginSampling"
)

// ErrUnknownStrategy is returned by Lookup for unregistered names.
var ErrUnknownStrategy = errors.New("unknown query strategy")

// Input is what a strategy needs to rank candidates.
type Input struct {
	// Proba holds class probabilities for every test object.
	Proba [][]float64
	// IaColumn is the column of Proba holding p(Ia), or -1 when the model
	// never saw a type Ia object.
	IaColumn int
	// Pool lists the indexes of Proba that may be queried.
	Pool []int
	// Batch is the number of objects to return.
	Batch int
	// Rand drives RandomSampling.
	Rand *rand.Rand
}

// Strategy returns up to Batch indexes from Pool in priority order.
type Strategy func(in Input) []int

var strategies = map[string]Strategy{
	RandomSampling:      randomSampling,
	UncertaintySampling: ranked(uncertainty),
	EntropySampling:     ranked(entropy),
	LeastConfident:      ranked(leastConfidence),
	MarginSampling:      ranked(margin),
}

// Names lists the available strategies in a stable order.
func Names() []string {
	return []string{RandomSampling, UncertaintySampling, EntropySampling, LeastConfident, MarginSampling}
}

// Lookup returns the named strategy.
func Lookup(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

func batchSize(in Input) int {
	return max(0, min(in.Batch, len(in.Pool)))
}

func randomSampling(in Input) []int {
	n := batchSize(in)
	if n == 0 {
		return []int{}
	}
	perm := in.Rand.Perm(len(in.Pool))
	out := make([]int, n)
	for i := range out {
		out[i] = in.Pool[perm[i]]
	}
	return out
}

// ranked builds a strategy that queries the pool objects with the highest
// score first. Ties keep pool order.
func ranked(score func(p []float64, iaCol int) float64) Strategy {
	return func(in Input) []int {
		n := batchSize(in)
		if n == 0 {
			return []int{}
		}
		type cand struct {
			idx   int
			score float64
		}
		cands := make([]cand, len(in.Pool))
		for i, idx := range in.Pool {
			cands[i] = cand{idx: idx, score: score(in.Proba[idx], in.IaColumn)}
		}
		slices.SortStableFunc(cands, func(a, b cand) int {
			switch {
			case a.score > b.score:
				return -1
			case a.score < b.score:
				return 1
			}
			return 0
		})
		out := make([]int, n)
		for i := range out {
			out[i] = cands[i].idx
		}
		return out
	}
}

// uncertainty is highest when p(Ia) is closest to one half.
func uncertainty(p []float64, iaCol int) float64 {
	pIa := 0.0
	if iaCol >= 0 {
		pIa = p[iaCol]
	}
	return -math.Abs(pIa - 0.5)
}

func entropy(p []float64, _ int) float64 {
	var h float64
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

func leastConfidence(p []float64, _ int) float64 {
	return 1 - slices.Max(p)
}

// margin is highest when the two most probable classes are closest.
func margin(p []float64, _ int) float64 {
	if len(p) < 2 {
		return -1
	}
	first, second := math.Inf(-1), math.Inf(-1)
	for _, v := range p {
		switch {
		case v > first:
			first, second = v, first
		case v > second:
			second = v
		}
	}
	return -(first - second)
}
