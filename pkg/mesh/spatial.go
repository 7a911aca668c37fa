package mesh

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// indexedPoint is a position tagged with the index it was inserted under
type indexedPoint struct {
	r3.Vec
	index int
}

// Compare implements the kdtree.Comparable interface
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p indexedPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(indexedPoint).Vec))
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{indexedPoints: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{indexedPoints: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for indexedPoints
type pointPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.indexedPoints[i].X < p.indexedPoints[j].X
	case 1:
		return p.indexedPoints[i].Y < p.indexedPoints[j].Y
	case 2:
		return p.indexedPoints[i].Z < p.indexedPoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// PointIndex answers radius queries over a fixed set of positions
type PointIndex struct {
	tree *kdtree.Tree
	size int
}

// NewPointIndex builds a KD-tree over positions. Query results refer to
// positions by their index in the slice.
func NewPointIndex(positions []r3.Vec) *PointIndex {
	points := make(indexedPoints, len(positions))
	for i, p := range positions {
		points[i] = indexedPoint{Vec: p, index: i}
	}
	idx := &PointIndex{size: len(points)}
	if len(points) > 0 {
		idx.tree = kdtree.New(points, true)
	}
	return idx
}

// VertexIndex builds a PointIndex over every vertex of the store. Vertex
// positions never move, so the index stays valid for the life of the store's
// current vertices.
func (s *Store) VertexIndex() *PointIndex {
	positions := make([]r3.Vec, len(s.verts))
	for i := range s.verts {
		positions[i] = s.verts[i].pos
	}
	return NewPointIndex(positions)
}

// Within returns the indices of every position no farther than radius from
// center, in no particular order
func (idx *PointIndex) Within(center r3.Vec, radius float64) []int {
	if idx.tree == nil {
		return nil
	}
	// the tree works in squared distances
	keeper := kdtree.NewDistKeeper(radius * radius)
	idx.tree.NearestSet(keeper, indexedPoint{Vec: center, index: -1})

	out := make([]int, 0, keeper.Len())
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		out = append(out, item.Comparable.(indexedPoint).index)
	}
	return out
}

// Len returns the number of indexed positions
func (idx *PointIndex) Len() int { return idx.size }
