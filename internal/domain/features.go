package domain

import (
	"fmt"
	"sort"
)

// BazinParamNames are the per-filter feature suffixes, in fit order.
var BazinParamNames = []string{"A", "B", "t0", "tfall", "trise"}

// FeatureNames returns the feature column names for filters, e.g. gA gB gt0.
func FeatureNames(filters []string) []string {
	names := make([]string, 0, len(filters)*len(BazinParamNames))
	for _, f := range filters {
		for _, p := range BazinParamNames {
			names = append(names, f+p)
		}
	}
	return names
}

// FeatureRow is one object of a feature table.
type FeatureRow struct {
	ID         string
	Redshift   float64
	SNType     string
	SNCode     int
	OrigSample string
	Queryable  bool
	// LastRMag is the magnitude used to decide queryability; NaN when unknown.
	LastRMag float64
	// Costs holds exposure times in seconds keyed by telescope name.
	Costs    map[string]float64
	Features []float64
}

// IsIa reports whether the row is a type Ia supernova.
func (r *FeatureRow) IsIa() bool {
	return r.SNType == TypeIa
}

// FeatureTable is an ordered set of feature rows sharing feature names.
type FeatureTable struct {
	FeatureNames []string
	// CostNames lists the telescopes present in every row's Costs, in column order.
	CostNames []string
	// HasLastRMag records whether the last_rmag column is present.
	HasLastRMag bool
	Rows        []FeatureRow
}

// Validate checks that every row carries one value per feature name and
// that identifiers are unique.
func (t *FeatureTable) Validate() error {
	seen := make(map[string]bool, len(t.Rows))
	for i := range t.Rows {
		row := &t.Rows[i]
		if row.ID == "" {
			return fmt.Errorf("%w: row %d", ErrEmptyID, i)
		}
		if seen[row.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrValidation, row.ID)
		}
		seen[row.ID] = true
		if len(row.Features) != len(t.FeatureNames) {
			return fmt.Errorf("%w: object %s has %d features, expected %d",
				ErrValidation, row.ID, len(row.Features), len(t.FeatureNames))
		}
	}
	return nil
}

// Index maps IDs to row positions.
func (t *FeatureTable) Index() map[string]int {
	idx := make(map[string]int, len(t.Rows))
	for i := range t.Rows {
		idx[t.Rows[i].ID] = i
	}
	return idx
}

// ByID returns the row with the given ID.
func (t *FeatureTable) ByID(id string) (*FeatureRow, error) {
	for i := range t.Rows {
		if t.Rows[i].ID == id {
			return &t.Rows[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SortByID orders rows by object identifier.
func (t *FeatureTable) SortByID() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return CompareIDs(t.Rows[i].ID, t.Rows[j].ID) < 0
	})
}
