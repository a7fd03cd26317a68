package canonical

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Errors returned by Build.
var (
	ErrEmptySample       = errors.New("sample is empty")
	ErrDimensionMismatch = errors.New("characteristics have different dimensions")
)

// Object is an entry of either sample described by its characteristics.
type Object struct {
	ID     string
	SNType string
	// Spectroscopic marks objects of the spectroscopic (training) sample.
	Spectroscopic bool
	// Group separates independent observing strategies, e.g. DDF and WFD.
	// Objects are only matched within their group.
	Group           string
	Characteristics []float64
}

// Match pairs a spectroscopic object with its canonical counterpart.
type Match struct {
	SpecID string
	PhotID string
	// Distance is Euclidean in standardised characteristics space.
	Distance float64
}

// Result is the canonical sample.
type Result struct {
	IDs     []string
	Matches []Match
	// Unmatched lists spectroscopic objects for which no photometric object
	// of the same type and group was left.
	Unmatched []string
}

type groupKey struct {
	group  string
	snType string
}

// Build selects, for every spectroscopic object, the nearest photometric
// object of the same type and group that has not been chosen yet.
// Spectroscopic objects are processed in ID order.
func Build(ctx context.Context, objects []Object) (Result, error) {
	log := logger.FromContext(ctx).With("component", "canonical")

	dims := -1
	for _, o := range objects {
		if dims == -1 {
			dims = len(o.Characteristics)
		}
		if len(o.Characteristics) != dims {
			return Result{}, fmt.Errorf("%w: object %s", ErrDimensionMismatch, o.ID)
		}
	}

	rows := make([][]float64, len(objects))
	for i, o := range objects {
		rows[i] = slices.Clone(o.Characteristics)
	}
	standardise(rows)

	var spec []int
	phot := make(map[groupKey]points)
	for i, o := range objects {
		if o.Spectroscopic {
			spec = append(spec, i)
			continue
		}
		k := groupKey{o.Group, o.SNType}
		phot[k] = append(phot[k], point{vals: rows[i], idx: i})
	}
	if len(spec) == 0 {
		return Result{}, fmt.Errorf("%w: no spectroscopic objects", ErrEmptySample)
	}
	if len(phot) == 0 {
		return Result{}, fmt.Errorf("%w: no photometric objects", ErrEmptySample)
	}

	trees := make(map[groupKey]*kdtree.Tree, len(phot))
	sizes := make(map[groupKey]int, len(phot))
	for k, pts := range phot {
		trees[k] = kdtree.New(pts, false)
		sizes[k] = len(pts)
	}

	slices.SortFunc(spec, func(a, b int) int {
		return domain.CompareIDs(objects[a].ID, objects[b].ID)
	})

	chosen := make(map[int]bool)
	var res Result
	for _, si := range spec {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		o := objects[si]
		k := groupKey{o.Group, o.SNType}
		tree, ok := trees[k]
		if !ok {
			res.Unmatched = append(res.Unmatched, o.ID)
			continue
		}

		best, dist, ok := nearestFree(tree, sizes[k], point{vals: rows[si], idx: si}, chosen)
		if !ok {
			res.Unmatched = append(res.Unmatched, o.ID)
			continue
		}
		chosen[best] = true
		res.Matches = append(res.Matches, Match{
			SpecID:   o.ID,
			PhotID:   objects[best].ID,
			Distance: math.Sqrt(dist),
		})
		res.IDs = append(res.IDs, objects[best].ID)
	}

	domain.SortIDs(res.IDs)
	log.Info("canonical sample built",
		"spectroscopic", len(spec),
		"canonical", len(res.IDs),
		"unmatched", len(res.Unmatched))
	return res, nil
}

// nearestFree returns the closest point of tree whose index is not in
// chosen, widening the search until the whole tree has been considered.
func nearestFree(tree *kdtree.Tree, size int, q point, chosen map[int]bool) (int, float64, bool) {
	for k := 1; ; k *= 2 {
		if k > size {
			k = size
		}
		keeper := kdtree.NewNKeeper(k)
		tree.NearestSet(keeper, q)

		found := make([]kdtree.ComparableDist, 0, k)
		for _, c := range keeper.Heap {
			if c.Comparable != nil {
				found = append(found, c)
			}
		}
		slices.SortFunc(found, func(a, b kdtree.ComparableDist) int {
			switch {
			case a.Dist < b.Dist:
				return -1
			case a.Dist > b.Dist:
				return 1
			}
			return a.Comparable.(point).idx - b.Comparable.(point).idx
		})
		for _, c := range found {
			idx := c.Comparable.(point).idx
			if !chosen[idx] {
				return idx, c.Dist, true
			}
		}
		if k == size {
			return 0, 0, false
		}
	}
}

// Apply marks the canonical objects of tbl as queryable in orig_sample and
// returns how many rows were updated.
func Apply(tbl *domain.FeatureTable, ids []string) int {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	n := 0
	for i := range tbl.Rows {
		if set[tbl.Rows[i].ID] {
			tbl.Rows[i].OrigSample = domain.SampleQueryable
			n++
		}
	}
	return n
}
