package snanafits

import (
	"bytes"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func photRows() []Row {
	return []Row{
		{"MJD": 56200.0, "BAND": "g ", "FLUXCAL": float32(100), "FLUXCALERR": float32(5)},
		{"MJD": 56201.0, "BAND": "r", "FLUXCAL": float32(-3), "FLUXCALERR": float32(5)},
		{"MJD": -777.0, "BAND": "-", "FLUXCAL": float32(0), "FLUXCALERR": float32(0)},
		{"MJD": 56300.0, "BAND": "LSST-i", "FLUXCAL": float32(10), "FLUXCALERR": float32(1)},
		{"MJD": -777.0, "BAND": "-", "FLUXCAL": float32(0), "FLUXCALERR": float32(0)},
	}
}

func TestConvert(t *testing.T) {
	head := []Row{
		{"SNID": "11  ", "SNTYPE": int32(101), "REDSHIFT_FINAL": float32(0.25), "PTROBS_MIN": int32(1), "PTROBS_MAX": int32(3)},
		{"SNID": "12", "SNTYPE": int16(20), "SIM_REDSHIFT_CMB": 0.5, "PTROBS_MIN": int32(4), "PTROBS_MAX": int32(5)},
	}
	curves, meta, err := Convert(head, photRows(), Options{Sample: domain.SampleTest})
	require.NoError(t, err)
	require.Len(t, curves, 2)
	require.Len(t, meta, 2)

	first := curves[0]
	assert.Equal(t, "11", first.ID)
	assert.Equal(t, domain.TypeIa, first.SNType)
	assert.Equal(t, 101, first.SNCode)
	assert.InDelta(t, 0.25, first.Redshift, 1e-6)
	require.Len(t, first.Photometry, 2)
	assert.Equal(t, "g", first.Photometry[0].Filter)
	assert.InDelta(t, 22.5, first.Photometry[0].Mag, 1e-9)
	assert.InDelta(t, 20, first.Photometry[0].SNR, 1e-9)
	assert.Equal(t, 99.0, first.Photometry[1].Mag)

	second := curves[1]
	assert.Equal(t, domain.TypeOther, second.SNType)
	require.Len(t, second.Photometry, 1)
	assert.Equal(t, "i", second.Photometry[0].Filter)
	assert.Equal(t, 20, meta[1].Target)
	assert.Equal(t, domain.SampleTest, second.Sample)
}

func TestConvert_Errors(t *testing.T) {
	_, _, err := Convert([]Row{{"SNID": "1", "SNTYPE": 1, "REDSHIFT_FINAL": 0.1, "PTROBS_MIN": 4, "PTROBS_MAX": 9}}, photRows(), Options{})
	assert.ErrorIs(t, err, ErrBadPointer)

	_, _, err = Convert([]Row{{"SNID": "1"}}, photRows(), Options{})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Observations([]Row{{"MJD": 1.0, "FLUXCAL": 1.0, "FLUXCALERR": 1.0}})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestConvert_CustomTypes(t *testing.T) {
	head := []Row{{"SNID": "5", "SIM_TYPE_INDEX": 90, "REDSHIFT_FINAL": 0.1, "PTROBS_MIN": 1, "PTROBS_MAX": 2}}
	curves, _, err := Convert(head, photRows(), Options{TypeColumn: "SIM_TYPE_INDEX", TypeLabel: domain.PLAsTiCCType})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeIa, curves[0].SNType)
}

func TestReadTable(t *testing.T) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	require.NoError(t, err)
	phdu, err := fitsio.NewPrimaryHDU(nil)
	require.NoError(t, err)
	require.NoError(t, f.Write(phdu))

	tbl, err := fitsio.NewTable("HEAD", []fitsio.Column{
		{Name: "SNID", Format: "8A"},
		{Name: "PTROBS_MIN", Format: "J"},
		{Name: "REDSHIFT_FINAL", Format: "E"},
	}, fitsio.BINARY_TBL)
	require.NoError(t, err)
	for i, id := range []string{"7", "8"} {
		ptr := int32(i + 1)
		z := float32(0.1 * float64(i+1))
		require.NoError(t, tbl.Write(&id, &ptr, &z))
	}
	require.NoError(t, f.Write(tbl))
	require.NoError(t, tbl.Close())
	require.NoError(t, f.Close())

	rows, err := ReadTable(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	id, err := rows[1].str("SNID")
	require.NoError(t, err)
	assert.Equal(t, "8", id)
	ptr, err := rows[1].int("PTROBS_MIN")
	require.NoError(t, err)
	assert.Equal(t, 2, ptr)
}

func TestPhotPath(t *testing.T) {
	assert.Equal(t, "/data/SIM_PHOT.FITS", PhotPath("/data/SIM_HEAD.FITS"))
}
