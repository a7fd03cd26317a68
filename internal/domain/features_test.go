package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureNames(t *testing.T) {
	names := FeatureNames([]string{"g", "r"})

	assert.Equal(t, []string{"gA", "gB", "gt0", "gtfall", "gtrise", "rA", "rB", "rt0", "rtfall", "rtrise"}, names)
}

func TestFeatureTableValidate(t *testing.T) {
	table := &FeatureTable{
		FeatureNames: []string{"gA", "gB"},
		Rows: []FeatureRow{
			{ID: "1", Features: []float64{1, 2}},
			{ID: "2", Features: []float64{3, 4}},
		},
	}
	assert.NoError(t, table.Validate())

	table.Rows[1].Features = []float64{3}
	assert.ErrorIs(t, table.Validate(), ErrValidation)

	table.Rows[1] = FeatureRow{ID: "1", Features: []float64{3, 4}}
	assert.ErrorIs(t, table.Validate(), ErrValidation)

	table.Rows[1] = FeatureRow{Features: []float64{3, 4}}
	assert.ErrorIs(t, table.Validate(), ErrEmptyID)
}

func TestFeatureTableLookupAndSort(t *testing.T) {
	table := &FeatureTable{
		Rows: []FeatureRow{{ID: "10"}, {ID: "9", SNType: TypeIa}, {ID: "100"}},
	}

	row, err := table.ByID("9")
	require.NoError(t, err)
	assert.True(t, row.IsIa())

	_, err = table.ByID("404")
	assert.ErrorIs(t, err, ErrNotFound)

	table.SortByID()
	assert.Equal(t, "9", table.Rows[0].ID)
	assert.Equal(t, "100", table.Rows[2].ID)
	assert.Equal(t, map[string]int{"9": 0, "10": 1, "100": 2}, table.Index())
}
