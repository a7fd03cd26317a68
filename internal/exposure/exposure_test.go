package exposure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindExposureTime(t *testing.T) {
	calc := New(4)
	require.NoError(t, calc.Validate())

	texp, err := calc.FindExposureTime(22, 10, "r")
	require.NoError(t, err)
	assert.Greater(t, texp, 0.0)

	snr, err := calc.SNRFromMag(22, texp, "r")
	require.NoError(t, err)
	assert.InDelta(t, 10, snr, 1e-6)
}

func TestFindExposureTime_Resolution(t *testing.T) {
	spec := New(4)
	imaging := New(4)
	imaging.Resolution = 0
	require.NoError(t, imaging.Validate())

	dispersed, err := spec.FindExposureTime(21.2, 10, "r")
	require.NoError(t, err)
	broadband, err := imaging.FindExposureTime(21.2, 10, "r")
	require.NoError(t, err)

	assert.InDelta(t, 2.0, broadband, 0.1)
	// a classification spectrum of a r~21 supernova takes minutes on a 4m
	assert.Greater(t, dispersed, 60.0)
	assert.Less(t, dispersed, 600.0)

	finer := New(4)
	finer.Resolution = 1000
	slower, err := finer.FindExposureTime(21.2, 10, "r")
	require.NoError(t, err)
	assert.Greater(t, slower, dispersed)
}

func TestFindExposureTime_Scaling(t *testing.T) {
	small, big := New(4), New(8)

	faint, err := small.FindExposureTime(23, 10, "r")
	require.NoError(t, err)
	bright, err := small.FindExposureTime(21, 10, "r")
	require.NoError(t, err)
	assert.Greater(t, faint, bright)

	onBig, err := big.FindExposureTime(23, 10, "r")
	require.NoError(t, err)
	assert.Less(t, onBig, faint)

	higher, err := small.FindExposureTime(23, 20, "r")
	require.NoError(t, err)
	assert.Greater(t, higher, faint)
}

func TestErrors(t *testing.T) {
	calc := New(4)

	_, err := calc.FindExposureTime(22, 0, "r")
	assert.ErrorIs(t, err, ErrInvalidSNR)
	_, err = calc.FindExposureTime(22, -1, "r")
	assert.ErrorIs(t, err, ErrInvalidSNR)
	_, err = calc.FindExposureTime(22, 10, "H")
	assert.ErrorIs(t, err, ErrUnknownBand)
	_, err = calc.SNRFromMag(22, 0, "r")
	assert.ErrorIs(t, err, ErrInvalidTime)

	bad := New(0)
	assert.Error(t, bad.Validate())
}

func TestCosts(t *testing.T) {
	tels := DefaultTelescopes()
	assert.Equal(t, []string{"4m", "8m"}, Names(tels))

	costs, err := Costs(tels, 22, DefaultSNR, "r")
	require.NoError(t, err)
	assert.Greater(t, costs["4m"], costs["8m"])

	costs, err = Costs(tels, math.NaN(), DefaultSNR, "r")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(costs["8m"]))

	_, err = Costs(tels, 22, DefaultSNR, "H")
	assert.ErrorIs(t, err, ErrUnknownBand)
}
