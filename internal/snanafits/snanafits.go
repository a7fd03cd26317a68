// Package snanafits converts SNANA simulation outputs, stored as pairs of
// HEAD and PHOT FITS tables, into light curves.
//
// Every HEAD row points into the PHOT table with the 1-based inclusive
// PTROBS_MIN and PTROBS_MAX columns.
package snanafits

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/photometry"
	"github.com/spf13/cast"
)

// Errors returned while reading SNANA files.
var (
	ErrNoTable      = errors.New("FITS file has no binary table")
	ErrMissingField = errors.New("missing SNANA column")
	ErrBadPointer   = errors.New("photometry pointer out of range")
)

// SNANA marks the end of each light curve with this MJD.
const endOfLightCurveMJD = -777

// Options controls the conversion.
type Options struct {
	// Sample labels the produced light curves, train or test.
	Sample string
	// TypeColumn holds the integer type code; defaults to SNTYPE.
	TypeColumn string
	// TypeLabel maps codes to labels; defaults to SNANATypeLabel.
	TypeLabel func(code int) string
}

// SNANATypeLabel labels codes 1 and 101 as Ia and everything else as other.
func SNANATypeLabel(code int) string {
	if code == 1 || code == 101 {
		return domain.TypeIa
	}
	return domain.TypeOther
}

// Row is one table row keyed by column name.
type Row map[string]interface{}

func (r Row) value(names ...string) (interface{}, error) {
	for _, n := range names {
		if v, ok := r[n]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(names, "/"))
}

func (r Row) str(names ...string) (string, error) {
	v, err := r.value(names...)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	return strings.TrimSpace(s), err
}

func (r Row) float(names ...string) (float64, error) {
	v, err := r.value(names...)
	if err != nil {
		return 0, err
	}
	return cast.ToFloat64E(v)
}

func (r Row) int(names ...string) (int, error) {
	v, err := r.value(names...)
	if err != nil {
		return 0, err
	}
	return cast.ToIntE(v)
}

// ReadTable returns the rows of the first binary table in the FITS stream.
func ReadTable(r io.Reader) ([]Row, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("opening FITS: %w", err)
	}
	defer f.Close()

	var tbl *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, ErrNoTable
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", tbl.Name(), err)
	}
	defer rows.Close()

	out := make([]Row, 0, tbl.NumRows())
	for rows.Next() {
		data := make(map[string]interface{}, tbl.NumCols())
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning table %s: %w", tbl.Name(), err)
		}
		out = append(out, Row(data))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadTableFile opens path and reads its first binary table.
func ReadTableFile(path string) ([]Row, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Observations converts PHOT rows. End-of-light-curve markers are kept as
// zero observations with a negative MJD so that pointers stay aligned.
func Observations(phot []Row) ([]domain.Observation, error) {
	out := make([]domain.Observation, len(phot))
	for i, row := range phot {
		mjd, err := row.float("MJD")
		if err != nil {
			return nil, fmt.Errorf("PHOT row %d: %w", i+1, err)
		}
		if mjd == endOfLightCurveMJD {
			out[i] = domain.Observation{MJD: mjd}
			continue
		}
		band, err := row.str("BAND", "FLT")
		if err != nil {
			return nil, fmt.Errorf("PHOT row %d: %w", i+1, err)
		}
		if idx := strings.LastIndex(band, "-"); idx >= 0 {
			band = band[idx+1:]
		}
		flux, err := row.float("FLUXCAL")
		if err != nil {
			return nil, fmt.Errorf("PHOT row %d: %w", i+1, err)
		}
		fluxErr, err := row.float("FLUXCALERR")
		if err != nil {
			return nil, fmt.Errorf("PHOT row %d: %w", i+1, err)
		}

		obs := domain.Observation{MJD: mjd, Filter: band, Flux: flux, FluxErr: fluxErr, Mag: 99, MagErr: 99}
		if fluxErr > 0 {
			obs.SNR = flux / fluxErr
		}
		if mag, ok := domain.FluxToMag(flux, photometry.PLAsTiCCZeroPoint); ok {
			obs.Mag = mag
			obs.MagErr = 2.5 / math.Ln10 * fluxErr / flux
		}
		out[i] = obs
	}
	return out, nil
}

// Convert joins HEAD and PHOT rows into light curves and their metadata.
func Convert(head, phot []Row, opts Options) ([]*domain.LightCurve, []photometry.Metadata, error) {
	if opts.TypeColumn == "" {
		opts.TypeColumn = "SNTYPE"
	}
	if opts.TypeLabel == nil {
		opts.TypeLabel = SNANATypeLabel
	}
	obs, err := Observations(phot)
	if err != nil {
		return nil, nil, err
	}

	curves := make([]*domain.LightCurve, 0, len(head))
	meta := make([]photometry.Metadata, 0, len(head))
	for i, row := range head {
		lc, err := convertHead(row, obs, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("HEAD row %d: %w", i+1, err)
		}
		curves = append(curves, lc)
		meta = append(meta, photometry.Metadata{ID: lc.ID, Target: lc.SNCode, Redshift: lc.Redshift})
	}
	return curves, meta, nil
}

func convertHead(row Row, obs []domain.Observation, opts Options) (*domain.LightCurve, error) {
	id, err := row.str("SNID")
	if err != nil {
		return nil, err
	}
	code, err := row.int(opts.TypeColumn)
	if err != nil {
		return nil, err
	}
	z, err := row.float("REDSHIFT_FINAL", "SIM_REDSHIFT_CMB", "REDSHIFT_HELIO")
	if err != nil {
		return nil, err
	}
	lo, err := row.int("PTROBS_MIN")
	if err != nil {
		return nil, err
	}
	hi, err := row.int("PTROBS_MAX")
	if err != nil {
		return nil, err
	}
	if lo < 1 || hi > len(obs) || lo > hi {
		return nil, fmt.Errorf("%w: object %s [%d, %d] of %d rows", ErrBadPointer, id, lo, hi, len(obs))
	}

	lc := &domain.LightCurve{
		ID:       id,
		Redshift: z,
		SNType:   opts.TypeLabel(code),
		SNCode:   code,
		Sample:   opts.Sample,
	}
	for _, o := range obs[lo-1 : hi] {
		if o.MJD < 0 {
			continue
		}
		lc.Photometry = append(lc.Photometry, o)
	}
	return lc, nil
}

// ReadFiles converts a HEAD/PHOT file pair.
func ReadFiles(headPath, photPath string, opts Options) ([]*domain.LightCurve, []photometry.Metadata, error) {
	head, err := ReadTableFile(headPath)
	if err != nil {
		return nil, nil, err
	}
	phot, err := ReadTableFile(photPath)
	if err != nil {
		return nil, nil, err
	}
	return Convert(head, phot, opts)
}

// PhotPath returns the PHOT file matching a HEAD file name.
func PhotPath(headPath string) string {
	dir, base := filepath.Split(headPath)
	return filepath.Join(dir, strings.Replace(base, "HEAD", "PHOT", 1))
}
