// Package features encodes feature tables as whitespace-delimited files:
//
//	id redshift type code orig_sample queryable [last_rmag] [cost_<tel>...] <features...>
//
// Metadata columns are recognised by name; every other column is a feature.
package features

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/table"
)

// Metadata column names.
const (
	ColID         = "id"
	ColRedshift   = "redshift"
	ColType       = "type"
	ColCode       = "code"
	ColOrigSample = "orig_sample"
	ColQueryable  = "queryable"
	ColLastRMag   = "last_rmag"
	costPrefix    = "cost_"
)

var required = []string{ColID, ColRedshift, ColType, ColCode, ColOrigSample}

// Header returns the column names t is written with.
func Header(t *domain.FeatureTable) []string {
	header := []string{ColID, ColRedshift, ColType, ColCode, ColOrigSample, ColQueryable}
	if t.HasLastRMag {
		header = append(header, ColLastRMag)
	}
	for _, name := range t.CostNames {
		header = append(header, costPrefix+name)
	}
	return append(header, t.FeatureNames...)
}

// Encode converts t into a text table.
func Encode(t *domain.FeatureTable) (*table.Table, error) {
	out := &table.Table{Header: Header(t)}
	for i := range t.Rows {
		row := &t.Rows[i]
		if len(row.Features) != len(t.FeatureNames) {
			return nil, fmt.Errorf("%w: object %s", domain.ErrValidation, row.ID)
		}
		cells := []string{
			row.ID,
			table.FormatFloat(row.Redshift),
			row.SNType,
			strconv.Itoa(row.SNCode),
			row.OrigSample,
			table.FormatBool(row.Queryable),
		}
		if t.HasLastRMag {
			cells = append(cells, table.FormatFloat(row.LastRMag))
		}
		for _, name := range t.CostNames {
			cost, ok := row.Costs[name]
			if !ok {
				cost = math.NaN()
			}
			cells = append(cells, table.FormatFloat(cost))
		}
		for _, v := range row.Features {
			cells = append(cells, table.FormatFloat(v))
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}

// Decode converts a text table into a feature table.
// A missing queryable column means every object is queryable.
func Decode(in *table.Table) (*domain.FeatureTable, error) {
	cols := make(map[string]int, len(in.Header))
	for i, h := range in.Header {
		cols[h] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrInvalidFormat, table.ErrMissingColumn, name)
		}
	}

	out := &domain.FeatureTable{}
	var featureCols []int
	costCols := map[string]int{}
	for i, h := range in.Header {
		switch {
		case h == ColID || h == ColRedshift || h == ColType || h == ColCode ||
			h == ColOrigSample || h == ColQueryable:
		case h == ColLastRMag:
			out.HasLastRMag = true
		case strings.HasPrefix(h, costPrefix):
			name := strings.TrimPrefix(h, costPrefix)
			out.CostNames = append(out.CostNames, name)
			costCols[name] = i
		default:
			out.FeatureNames = append(out.FeatureNames, h)
			featureCols = append(featureCols, i)
		}
	}

	for n, cells := range in.Rows {
		row, err := decodeRow(cells, cols, featureCols, costCols, out.HasLastRMag)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		out.Rows = append(out.Rows, row)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRow(cells []string, cols map[string]int, featureCols []int, costCols map[string]int, hasLastRMag bool) (domain.FeatureRow, error) {
	row := domain.FeatureRow{
		ID:         cells[cols[ColID]],
		SNType:     cells[cols[ColType]],
		OrigSample: cells[cols[ColOrigSample]],
		Queryable:  true,
		LastRMag:   math.NaN(),
	}

	var err error
	if row.Redshift, err = table.ParseFloat(cells[cols[ColRedshift]]); err != nil {
		return row, fmt.Errorf("%w: redshift: %v", domain.ErrInvalidFormat, err)
	}
	if row.SNCode, err = parseCode(cells[cols[ColCode]]); err != nil {
		return row, fmt.Errorf("%w: code: %v", domain.ErrInvalidFormat, err)
	}
	if i, ok := cols[ColQueryable]; ok {
		if row.Queryable, err = table.ParseBool(cells[i]); err != nil {
			return row, fmt.Errorf("%w: queryable: %v", domain.ErrInvalidFormat, err)
		}
	}
	if hasLastRMag {
		if row.LastRMag, err = table.ParseFloat(cells[cols[ColLastRMag]]); err != nil {
			return row, fmt.Errorf("%w: last_rmag: %v", domain.ErrInvalidFormat, err)
		}
	}
	if len(costCols) > 0 {
		row.Costs = make(map[string]float64, len(costCols))
		for name, i := range costCols {
			if row.Costs[name], err = table.ParseFloat(cells[i]); err != nil {
				return row, fmt.Errorf("%w: cost %s: %v", domain.ErrInvalidFormat, name, err)
			}
		}
	}

	row.Features = make([]float64, len(featureCols))
	for j, i := range featureCols {
		if row.Features[j], err = table.ParseFloat(cells[i]); err != nil {
			return row, fmt.Errorf("%w: feature column %d: %v", domain.ErrInvalidFormat, i, err)
		}
	}
	return row, nil
}

// parseCode accepts integer codes also when written as floats ("90.0").
func parseCode(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Read decodes a feature file.
func Read(r io.Reader) (*domain.FeatureTable, error) {
	in, err := table.Read(r)
	if err != nil {
		return nil, err
	}
	return Decode(in)
}

// ReadFile decodes the feature file at path.
func ReadFile(path string) (*domain.FeatureTable, error) {
	in, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Decode(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write encodes t.
func Write(w io.Writer, t *domain.FeatureTable) error {
	out, err := Encode(t)
	if err != nil {
		return err
	}
	return table.Write(w, out)
}

// WriteFile encodes t to path.
func WriteFile(path string, t *domain.FeatureTable) error {
	out, err := Encode(t)
	if err != nil {
		return err
	}
	return table.WriteFile(path, out)
}

// ReadIDs reads a list of object identifiers: the id column of a table,
// or the first column when there is no id column.
func ReadIDs(path string) ([]string, error) {
	in, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	col, err := in.Column(ColID)
	if err != nil {
		col = 0
	}
	ids := make([]string, 0, len(in.Rows))
	for _, row := range in.Rows {
		ids = append(ids, row[col])
	}
	return ids, nil
}

// WriteIDs writes a single-column id list.
func WriteIDs(path string, ids []string) error {
	out := &table.Table{Header: []string{ColID}}
	for _, id := range ids {
		out.Rows = append(out.Rows, []string{id})
	}
	return table.WriteFile(path, out)
}
