package canonical

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"
)

// point is a characteristics vector that remembers its object position.
type point struct {
	vals []float64
	idx  int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.vals[d] - c.(point).vals[d]
}

func (p point) Dims() int { return len(p.vals) }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	var sum float64
	for i, v := range p.vals {
		d := v - q.vals[i]
		sum += d * d
	}
	return sum
}

// points implements kdtree.Interface.
type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p points) Pivot(d kdtree.Dim) int {
	return plane{points: p, dim: d}.Pivot()
}

// plane sorts points along one dimension.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].vals[p.dim] < p.points[j].vals[p.dim]
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// standardise rescales every column to zero mean and unit variance in
// place. Constant columns are centred only.
func standardise(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	col := make([]float64, len(rows))
	for d := range rows[0] {
		for i, r := range rows {
			col[i] = r[d]
		}
		mean, std := stat.MeanStdDev(col, nil)
		for _, r := range rows {
			r[d] -= mean
			if std > 0 && !math.IsNaN(std) {
				r[d] /= std
			}
		}
	}
}
