package canonical

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/photometry"
	"github.com/cointoolbox/resspect/internal/table"
)

// Metadata column names.
const (
	colID       = "id"
	colSample   = "sample"
	colType     = "type"
	colCode     = "code"
	colRedshift = "redshift"
	colDDF      = "ddf"
	colNObs     = "n_obs"
	colFirstMJD = "first_mjd"
	colLastMJD  = "last_mjd"
	peakFluxPfx = "peak_flux_"
)

// MetadataRecord summarises one PLAsTiCC object for canonical selection.
type MetadataRecord struct {
	photometry.Metadata
	Sample   string
	NObs     int
	FirstMJD float64
	LastMJD  float64
	// PeakFlux holds the largest flux per filter; NaN where the filter has
	// no observation.
	PeakFlux map[string]float64
}

// BuildMetadata merges object metadata with a summary of each light curve.
// Records follow the order of curves.
func BuildMetadata(curves []*domain.LightCurve, meta map[string]photometry.Metadata, filters []string) ([]MetadataRecord, error) {
	out := make([]MetadataRecord, 0, len(curves))
	for _, lc := range curves {
		m, ok := meta[lc.ID]
		if !ok {
			return nil, fmt.Errorf("%w: metadata for %s", domain.ErrNotFound, lc.ID)
		}
		rec := MetadataRecord{
			Metadata: m,
			Sample:   lc.Sample,
			NObs:     len(lc.Photometry),
			FirstMJD: lc.FirstMJD(),
			LastMJD:  lc.LastMJD(),
			PeakFlux: make(map[string]float64, len(filters)),
		}
		for _, f := range filters {
			peak, ok := lc.PeakFlux(f)
			if !ok {
				peak = math.NaN()
			}
			rec.PeakFlux[f] = peak
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteMetadata stores records as a whitespace-delimited table.
func WriteMetadata(path string, records []MetadataRecord, filters []string) error {
	header := []string{colID, colSample, colType, colCode, colRedshift, colDDF, colNObs, colFirstMJD, colLastMJD}
	for _, f := range filters {
		header = append(header, peakFluxPfx+f)
	}
	t := &table.Table{Header: header, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Sample,
			r.SNType(),
			strconv.Itoa(r.Target),
			table.FormatFloat(r.Redshift),
			table.FormatBool(r.DDF),
			strconv.Itoa(r.NObs),
			table.FormatFloat(r.FirstMJD),
			table.FormatFloat(r.LastMJD),
		}
		for _, f := range filters {
			row = append(row, table.FormatFloat(r.PeakFlux[f]))
		}
		t.Rows = append(t.Rows, row)
	}
	return table.WriteFile(path, t)
}

// ReadMetadata loads a table written by WriteMetadata. Filters are taken
// from the peak_flux_ columns.
func ReadMetadata(path string) ([]MetadataRecord, []string, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cols := make(map[string]int, len(t.Header))
	var filters []string
	for i, h := range t.Header {
		cols[h] = i
		if f, ok := strings.CutPrefix(h, peakFluxPfx); ok && f != "" {
			filters = append(filters, f)
		}
	}
	for _, c := range []string{colID, colSample, colCode, colRedshift, colDDF, colNObs, colFirstMJD, colLastMJD} {
		if _, ok := cols[c]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", table.ErrMissingColumn, c)
		}
	}

	out := make([]MetadataRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec, err := decodeMetadata(row, cols, filters)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}
	return out, filters, nil
}

func decodeMetadata(row []string, cols map[string]int, filters []string) (MetadataRecord, error) {
	rec := MetadataRecord{PeakFlux: make(map[string]float64, len(filters))}
	rec.ID = row[cols[colID]]
	rec.Sample = row[cols[colSample]]

	var err error
	if rec.Target, err = strconv.Atoi(row[cols[colCode]]); err != nil {
		return rec, fmt.Errorf("%w: code %q", domain.ErrInvalidFormat, row[cols[colCode]])
	}
	if rec.NObs, err = strconv.Atoi(row[cols[colNObs]]); err != nil {
		return rec, fmt.Errorf("%w: n_obs %q", domain.ErrInvalidFormat, row[cols[colNObs]])
	}
	if rec.DDF, err = table.ParseBool(row[cols[colDDF]]); err != nil {
		return rec, err
	}
	for _, f := range []struct {
		col string
		dst *float64
	}{
		{colRedshift, &rec.Redshift},
		{colFirstMJD, &rec.FirstMJD},
		{colLastMJD, &rec.LastMJD},
	} {
		if *f.dst, err = table.ParseFloat(row[cols[f.col]]); err != nil {
			return rec, err
		}
	}
	for _, f := range filters {
		v, err := table.ParseFloat(row[cols[peakFluxPfx+f]])
		if err != nil {
			return rec, err
		}
		rec.PeakFlux[f] = v
	}
	return rec, nil
}

// PLAsTiCCObjects describes PLAsTiCC objects by redshift and peak flux in
// every filter, grouped by DDF or WFD. Objects missing a filter are skipped.
func PLAsTiCCObjects(records []MetadataRecord, filters []string) (objects []Object, skipped []string) {
	for _, r := range records {
		chars := make([]float64, 0, len(filters)+1)
		chars = append(chars, r.Redshift)
		complete := true
		for _, f := range filters {
			v, ok := r.PeakFlux[f]
			if !ok || math.IsNaN(v) {
				complete = false
				break
			}
			chars = append(chars, v)
		}
		if !complete {
			skipped = append(skipped, r.ID)
			continue
		}
		group := "WFD"
		if r.DDF {
			group = "DDF"
		}
		objects = append(objects, Object{
			ID:              r.ID,
			SNType:          r.SNType(),
			Spectroscopic:   r.Sample == domain.SampleTrain,
			Group:           group,
			Characteristics: chars,
		})
	}
	return objects, skipped
}
