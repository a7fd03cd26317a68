package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLightCurve() *LightCurve {
	return &LightCurve{
		ID:       "1024",
		Redshift: 0.42,
		SNType:   TypeIa,
		Sample:   SampleTrain,
		Photometry: []Observation{
			{MJD: 56180, Filter: "r", Flux: 10, Mag: 24.5},
			{MJD: 56175, Filter: "g", Flux: 5, Mag: 25.1},
			{MJD: 56172, Filter: "r", Flux: 2, Mag: 99},
			{MJD: 56190, Filter: "r", Flux: 30, Mag: 23.3},
			{MJD: 56185, Filter: "g", Flux: 12, Mag: 24.2},
		},
	}
}

func TestLightCurveValidate(t *testing.T) {
	lc := sampleLightCurve()
	assert.NoError(t, lc.Validate())

	lc.ID = ""
	assert.ErrorIs(t, lc.Validate(), ErrEmptyID)

	lc = sampleLightCurve()
	lc.Photometry = nil
	assert.ErrorIs(t, lc.Validate(), ErrNoPhotometry)
}

func TestLightCurveByFilter(t *testing.T) {
	lc := sampleLightCurve()

	r := lc.ByFilter("r")
	require.Len(t, r, 3)
	assert.Equal(t, []float64{56172, 56180, 56190}, []float64{r[0].MJD, r[1].MJD, r[2].MJD})
	assert.Empty(t, lc.ByFilter("z"))
	assert.Equal(t, []string{"r", "g"}, lc.Filters())
}

func TestLightCurveTruncate(t *testing.T) {
	lc := sampleLightCurve()

	cut := lc.Truncate(56180)

	assert.Len(t, cut.Photometry, 3)
	assert.Len(t, lc.Photometry, 5, "original must be untouched")
	assert.Equal(t, 56180.0, cut.LastMJD())
	assert.Equal(t, 56172.0, cut.FirstMJD())
	assert.Equal(t, lc.ID, cut.ID)
}

func TestLightCurvePeaks(t *testing.T) {
	lc := sampleLightCurve()

	mag, ok := lc.PeakMag("r")
	require.True(t, ok)
	assert.Equal(t, 23.3, mag)

	_, ok = lc.PeakMag("z")
	assert.False(t, ok)

	flux, ok := lc.PeakFlux("g")
	require.True(t, ok)
	assert.Equal(t, 12.0, flux)

	empty := &LightCurve{ID: "x"}
	assert.True(t, math.IsNaN(empty.LastMJD()))
}

func TestFluxToMag(t *testing.T) {
	mag, ok := FluxToMag(100, 27.5)
	require.True(t, ok)
	assert.InDelta(t, 22.5, mag, 1e-12)

	_, ok = FluxToMag(-3, 27.5)
	assert.False(t, ok)
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("2", "10"))
	assert.Equal(t, 1, CompareIDs("100", "99"))
	assert.Equal(t, 0, CompareIDs("7", "7"))
	assert.Equal(t, -1, CompareIDs("SN10", "SN2"), "non-numeric ids compare lexically")
}
