package plotting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func writeMetrics(t *testing.T, path string, n int) {
	t.Helper()
	a := table.NewAppender(path, database.MetricsHeader())
	for i := 0; i < n; i++ {
		it := database.Iteration{
			Loop:         i,
			Epoch:        i,
			MetricValues: []float64{0.5 + 0.01*float64(i), 0.4, 0.6, 0.2},
			NTrain:       10 + i,
			NTest:        100 - i,
			QueriedIDs:   []string{"1"},
		}
		require.NoError(t, a.Append(it.MetricsRow()))
	}
}

func TestCanvas(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "metrics_random.dat")
	b := filepath.Join(dir, "metrics_unc.dat")
	writeMetrics(t, a, 5)
	writeMetrics(t, b, 3)

	c := NewCanvas()
	c.SetPlotDimensions(6*vg.Inch, 5*vg.Inch)
	require.NoError(t, c.Load([]string{a, b}, nil))
	require.Len(t, c.Series(), 2)
	assert.Equal(t, "metrics_random", c.Series()[0].Label)
	assert.Equal(t, []int{0, 1, 2}, c.Series()[1].Loops)
	assert.InDelta(t, 0.54, c.Series()[0].Values["accuracy"][4], 1e-9)

	for _, name := range []string{"out.png", "out.svg", "nested/out.pdf"} {
		out := filepath.Join(dir, name)
		require.NoError(t, c.Plot(out))
		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	assert.Error(t, c.Plot(filepath.Join(dir, "out.xyz")))
}

func TestCanvas_Errors(t *testing.T) {
	c := NewCanvas()
	assert.ErrorIs(t, c.Plot(filepath.Join(t.TempDir(), "x.png")), ErrNoSeries)
	assert.ErrorIs(t, c.Load([]string{"a", "b"}, []string{"only"}), ErrLabelMismatch)
	assert.Error(t, c.Load([]string{filepath.Join(t.TempDir(), "missing.dat")}, nil))
}
