package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSNPCCMetric(t *testing.T) {
	pred := []int{1, 1, 1, 0, 0, 0, 1, 0}
	truth := []int{1, 1, 0, 1, 0, 0, 1, 0}

	names, values, err := GetSNPCCMetric(pred, truth)
	require.NoError(t, err)
	assert.Equal(t, []string{"accuracy", "efficiency", "purity", "fom"}, names)

	// TP=3 FP=1 FN=1 TN=3
	assert.InDelta(t, 0.75, values[0], 1e-12)
	assert.InDelta(t, 0.75, values[1], 1e-12)
	assert.InDelta(t, 0.75, values[2], 1e-12)
	assert.InDelta(t, 0.75*3.0/6.0, values[3], 1e-12)
}

func TestZeroDenominators(t *testing.T) {
	tests := []struct {
		name  string
		pred  []int
		truth []int
		want  []float64
	}{
		{"empty", nil, nil, []float64{0, 0, 0, 0}},
		{"no positives", []int{0, 0}, []int{0, 0}, []float64{1, 0, 0, 0}},
		{"only false positives", []int{1, 1}, []int{0, 0}, []float64{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, values, err := GetSNPCCMetric(tt.pred, tt.truth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values)
		})
	}
}

func TestLengthMismatch(t *testing.T) {
	_, _, err := GetSNPCCMetric([]int{1}, []int{1, 0})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCount(t *testing.T) {
	c, err := Count([]int{2, 2, 5}, []int{2, 5, 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, Confusion{TP: 1, FP: 1, TN: 1}, c)
}
