// Package metrics computes the classification diagnostics reported at
// every active learning iteration, treating type Ia as the positive class.
package metrics

import (
	"errors"
	"fmt"
)

// FalsePositiveWeight penalises false positives in the figure of merit.
const FalsePositiveWeight = 3.0

// Metric names in reporting order.
const (
	Accuracy   = "accuracy"
	Efficiency = "efficiency"
	Purity     = "purity"
	FoM        = "fom"
)

// ErrLengthMismatch is returned when predictions and labels differ in size.
var ErrLengthMismatch = errors.New("predicted and true labels differ in length")

// Names returns the SNPCC metric names in reporting order.
func Names() []string {
	return []string{Accuracy, Efficiency, Purity, FoM}
}

// Confusion counts binary outcomes.
type Confusion struct {
	TP, FP, TN, FN int
}

// Count tallies predictions against the truth for the positive label.
func Count(pred, truth []int, positive int) (Confusion, error) {
	if len(pred) != len(truth) {
		return Confusion{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(pred), len(truth))
	}
	var c Confusion
	for i := range pred {
		switch p, t := pred[i] == positive, truth[i] == positive; {
		case p && t:
			c.TP++
		case p && !t:
			c.FP++
		case !p && t:
			c.FN++
		default:
			c.TN++
		}
	}
	return c, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Accuracy is the fraction of correct predictions.
func (c Confusion) Accuracy() float64 {
	return ratio(float64(c.TP+c.TN), float64(c.TP+c.TN+c.FP+c.FN))
}

// Efficiency is the fraction of positives recovered, TP/(TP+FN).
func (c Confusion) Efficiency() float64 {
	return ratio(float64(c.TP), float64(c.TP+c.FN))
}

// Purity is the fraction of positive predictions that are right, TP/(TP+FP).
func (c Confusion) Purity() float64 {
	return ratio(float64(c.TP), float64(c.TP+c.FP))
}

// FoM is efficiency * TP/(TP + W*FP) with W = FalsePositiveWeight.
func (c Confusion) FoM() float64 {
	return c.Efficiency() * ratio(float64(c.TP), float64(c.TP)+FalsePositiveWeight*float64(c.FP))
}

// Values returns the metrics in Names order.
func (c Confusion) Values() []float64 {
	return []float64{c.Accuracy(), c.Efficiency(), c.Purity(), c.FoM()}
}

// GetSNPCCMetric computes accuracy, efficiency, purity and figure of merit
// with label 1 as the positive (Ia) class.
func GetSNPCCMetric(labelPred, labelTrue []int) ([]string, []float64, error) {
	c, err := Count(labelPred, labelTrue, 1)
	if err != nil {
		return nil, nil, err
	}
	return Names(), c.Values(), nil
}
