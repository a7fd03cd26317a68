package canonical

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/photometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(id, snType string, spec bool, chars ...float64) Object {
	return Object{ID: id, SNType: snType, Spectroscopic: spec, Characteristics: chars}
}

func TestBuild(t *testing.T) {
	objects := []Object{
		obj("s1", domain.TypeIa, true, 0.1, 20),
		obj("s2", domain.TypeIa, true, 0.11, 20.1),
		obj("s3", domain.TypeII, true, 0.5, 23),
		obj("p1", domain.TypeIa, false, 0.1, 20.05),
		obj("p2", domain.TypeIa, false, 0.12, 20.2),
		obj("p3", domain.TypeIa, false, 0.9, 24),
		obj("p4", domain.TypeII, false, 0.1, 20),
		obj("p5", domain.TypeII, false, 0.55, 23.1),
	}

	res, err := Build(context.Background(), objects)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p5"}, res.IDs)
	require.Len(t, res.Matches, 3)
	assert.Equal(t, Match{SpecID: "s1", PhotID: "p1", Distance: res.Matches[0].Distance}, res.Matches[0])
	assert.Equal(t, "p2", res.Matches[1].PhotID)
	assert.Equal(t, "p5", res.Matches[2].PhotID)
	assert.Empty(t, res.Unmatched)
}

func TestBuildWithoutReplacement(t *testing.T) {
	objects := []Object{
		obj("1", domain.TypeIa, true, 1),
		obj("2", domain.TypeIa, true, 1),
		obj("3", domain.TypeIa, true, 1),
		obj("10", domain.TypeIa, false, 1),
		obj("11", domain.TypeIa, false, 5),
	}

	res, err := Build(context.Background(), objects)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11"}, res.IDs)
	assert.Equal(t, []string{"3"}, res.Unmatched)
}

func TestBuildGroups(t *testing.T) {
	objects := []Object{
		{ID: "s1", SNType: domain.TypeIa, Spectroscopic: true, Group: "DDF", Characteristics: []float64{0}},
		{ID: "p1", SNType: domain.TypeIa, Group: "WFD", Characteristics: []float64{0}},
		{ID: "p2", SNType: domain.TypeIa, Group: "DDF", Characteristics: []float64{10}},
	}

	res, err := Build(context.Background(), objects)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, res.IDs)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), []Object{obj("p", domain.TypeIa, false, 1)})
	assert.ErrorIs(t, err, ErrEmptySample)

	_, err = Build(context.Background(), []Object{obj("s", domain.TypeIa, true, 1)})
	assert.ErrorIs(t, err, ErrEmptySample)

	_, err = Build(context.Background(), []Object{
		obj("s", domain.TypeIa, true, 1),
		obj("p", domain.TypeIa, false, 1, 2),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestApply(t *testing.T) {
	tbl := &domain.FeatureTable{Rows: []domain.FeatureRow{
		{ID: "1", OrigSample: domain.SampleTest},
		{ID: "2", OrigSample: domain.SampleTest},
		{ID: "3", OrigSample: domain.SampleTrain},
	}}

	n := Apply(tbl, []string{"2", "9"})
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.SampleQueryable, tbl.Rows[1].OrigSample)
	assert.Equal(t, domain.SampleTest, tbl.Rows[0].OrigSample)
}

func TestSNPCCObjects(t *testing.T) {
	curves := []*domain.LightCurve{
		{ID: "1", SNType: domain.TypeIa, Sample: domain.SampleTrain, Redshift: 0.2, Photometry: []domain.Observation{
			{Filter: "g", Mag: 22}, {Filter: "g", Mag: 21.5}, {Filter: "r", Mag: 21},
		}},
		{ID: "2", SNType: domain.TypeII, Sample: domain.SampleTest, Photometry: []domain.Observation{
			{Filter: "g", Mag: 22}, {Filter: "r", Mag: 99},
		}},
	}

	objects, skipped := SNPCCObjects(curves, []string{"g", "r"})
	require.Len(t, objects, 1)
	assert.Equal(t, []float64{0.2, 21.5, 21}, objects[0].Characteristics)
	assert.True(t, objects[0].Spectroscopic)
	assert.Equal(t, []string{"2"}, skipped)
}

func TestMetadataRoundTrip(t *testing.T) {
	filters := []string{"g", "r"}
	curves := []*domain.LightCurve{
		{ID: "713", Sample: domain.SampleTrain, Photometry: []domain.Observation{
			{MJD: 59750, Filter: "g", Flux: 12}, {MJD: 59760, Filter: "g", Flux: 30},
		}},
	}
	meta := map[string]photometry.Metadata{"713": {ID: "713", Target: 90, Redshift: 1.48, DDF: true}}

	records, err := BuildMetadata(curves, meta, filters)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].NObs)
	assert.Equal(t, 30.0, records[0].PeakFlux["g"])
	assert.True(t, math.IsNaN(records[0].PeakFlux["r"]))

	path := filepath.Join(t.TempDir(), "meta.dat")
	require.NoError(t, WriteMetadata(path, records, filters))

	got, gotFilters, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, filters, gotFilters)
	require.Len(t, got, 1)
	assert.Equal(t, "713", got[0].ID)
	assert.Equal(t, 90, got[0].Target)
	assert.True(t, got[0].DDF)
	assert.InDelta(t, 59760, got[0].LastMJD, 1e-9)

	objects, skipped := PLAsTiCCObjects(got, filters)
	assert.Empty(t, objects)
	assert.Equal(t, []string{"713"}, skipped)

	objects, _ = PLAsTiCCObjects(got, []string{"g"})
	require.Len(t, objects, 1)
	assert.Equal(t, "DDF", objects[0].Group)
	assert.Equal(t, domain.TypeIa, objects[0].SNType)
}

func TestBuildMetadataMissing(t *testing.T) {
	_, err := BuildMetadata([]*domain.LightCurve{{ID: "1"}}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
