package decimation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/pkg/mesh"
	"segmesh/pkg/predicates"
)

// Oracle decides whether a collapse or flip may be applied. It keeps the unit
// normal every triangle had when the oracle was created, so the deviation
// bound is measured against the input surface rather than the current one.
type Oracle struct {
	store   *mesh.Store
	ar      *predicates.Arithmetic
	normals []r3.Vec
	cosMax  float64
	level   int

	// level 4 state: static vertex positions and the longest edge seen so far
	index   *mesh.PointIndex
	longest float64
}

// candidate is a triangle as it would look after the change under test
type candidate struct {
	id      mesh.TriangleID
	corners [3]mesh.VertexID
}

// NewOracle caches the normals of the live triangles and, for intersection
// level 4, builds the spatial index over the vertex positions
func NewOracle(store *mesh.Store, ar *predicates.Arithmetic, params *Params) *Oracle {
	o := &Oracle{
		store:   store,
		ar:      ar,
		normals: make([]r3.Vec, store.NumTriangles()),
		cosMax:  math.Cos(params.MaximumNormalAngleDeviation * math.Pi / 180),
		level:   params.IntersectionCheckLevel,
	}
	for i := range o.normals {
		t := mesh.TriangleID(i)
		if store.IsLiveTriangle(t) {
			o.normals[i] = store.Normal(t)
		}
	}
	if o.level >= 4 {
		o.index = store.VertexIndex()
	}
	return o
}

// NoteEdge records an edge length so the level 4 search radius covers every
// triangle that could reach the changed region
func (o *Oracle) NoteEdge(length float64) {
	if length > o.longest {
		o.longest = length
	}
}

// InheritNormal gives a triangle created by subdivision the reference normal
// of the triangle it was split from
func (o *Oracle) InheritNormal(child, parent mesh.TriangleID) {
	for int(child) >= len(o.normals) {
		o.normals = append(o.normals, r3.Vec{})
	}
	o.normals[child] = o.normals[parent]
}

// CanCollapse reports whether merging remove into keep, with keep's position
// retained, preserves the topology and shape constraints
func (o *Oracle) CanCollapse(keep, remove mesh.VertexID) bool {
	s := o.store
	if keep == remove || !s.IsLiveVertex(keep) || !s.IsLiveVertex(remove) {
		return false
	}
	edgeTris := s.EdgeNeighbors(mesh.NoTriangle, keep, remove)
	if len(edgeTris) == 0 {
		return false
	}

	// a boundary or non-manifold vertex never moves
	if s.IsBoundary(remove) {
		return false
	}
	if len(edgeTris) != 2 && s.IsBoundary(keep) && s.IsBoundary(remove) {
		return false
	}

	// the far corner of every deleted triangle must keep a triangle
	for _, t := range edgeTris {
		if s.Degree(s.Opposite(t, keep, remove)) < 2 {
			return false
		}
	}

	// substitute keep for remove in every triangle around remove
	removeTris := s.TrianglesAtVertex(remove)
	degenerate := 0
	changed := make([]candidate, 0, len(removeTris))
	for _, t := range removeTris {
		if s.Contains(t, keep) {
			degenerate++
			continue
		}
		corners := s.Triangle(t)
		for i := range corners {
			if corners[i] == remove {
				corners[i] = keep
			}
		}
		if !o.normalWithinBound(t, corners) {
			return false
		}
		if o.duplicates(corners, t) {
			return false
		}
		changed = append(changed, candidate{id: t, corners: corners})
	}
	if degenerate > len(edgeTris) {
		return false
	}

	// keep must not be left with a lone triangle
	if s.Degree(keep)-len(edgeTris)+len(changed) < 2 {
		return false
	}

	if !o.linkCondition(keep, remove, len(edgeTris)) {
		return false
	}

	if o.level > 0 {
		removed := make(map[mesh.TriangleID]bool, len(removeTris))
		for _, t := range removeTris {
			removed[t] = true
		}
		if o.selfIntersects(changed, removed, []mesh.VertexID{keep, remove}) {
			return false
		}
	}
	return true
}

// CanFlip reports whether the edge n1-n2, shared by triangles (n1,n2,n3) and
// (n2,n1,n4), may be replaced by n3-n4
func (o *Oracle) CanFlip(n1, n2, n3, n4 mesh.VertexID) bool {
	s := o.store
	tris := s.EdgeNeighbors(mesh.NoTriangle, n1, n2)
	if len(tris) != 2 || n3 == n4 {
		return false
	}
	if len(s.EdgeNeighbors(mesh.NoTriangle, n3, n4)) > 0 {
		return false
	}

	a, b := tris[0], tris[1]
	if !s.HasDirectedEdge(a, n1, n2) {
		a, b = b, a
	}
	if !s.HasDirectedEdge(a, n1, n2) || !s.HasDirectedEdge(b, n2, n1) ||
		s.Opposite(a, n1, n2) != n3 || s.Opposite(b, n1, n2) != n4 {
		return false
	}

	changed := []candidate{
		{id: a, corners: [3]mesh.VertexID{n3, n1, n4}},
		{id: b, corners: [3]mesh.VertexID{n4, n2, n3}},
	}
	for _, c := range changed {
		if !o.normalWithinBound(c.id, c.corners) {
			return false
		}
	}

	if o.level > 0 {
		removed := map[mesh.TriangleID]bool{a: true, b: true}
		if o.selfIntersects(changed, removed, []mesh.VertexID{n1, n2, n3, n4}) {
			return false
		}
	}
	return true
}

// normalWithinBound compares the normal corners would have against the
// reference normal of triangle t. A triangle without area always fails.
func (o *Oracle) normalWithinBound(t mesh.TriangleID, corners [3]mesh.VertexID) bool {
	s := o.store
	n := mesh.UnitNormal(s.Point(corners[0]), s.Point(corners[1]), s.Point(corners[2]))
	if n == (r3.Vec{}) {
		return false
	}
	return r3.Dot(n, o.normals[t]) >= o.cosMax
}

// duplicates reports whether a live triangle other than self already spans
// the same three vertices
func (o *Oracle) duplicates(corners [3]mesh.VertexID, self mesh.TriangleID) bool {
	for _, u := range o.store.EdgeNeighbors(self, corners[0], corners[1]) {
		if o.store.Contains(u, corners[2]) {
			return true
		}
	}
	return false
}

// linkCondition requires keep and remove to share exactly the opposite
// vertices of their common triangles, plus themselves. Border edges count as
// meeting at a virtual vertex outside the surface, so an interior edge whose
// endpoints both lie on a border may not be collapsed either.
func (o *Oracle) linkCondition(keep, remove mesh.VertexID, edgeTris int) bool {
	if edgeTris == 2 && o.store.OnBorder(keep) && o.store.OnBorder(remove) {
		return false
	}
	nk := o.store.VertexNeighbors(keep)
	nr := o.store.VertexNeighbors(remove)
	common := 0
	for i, j := 0, 0; i < len(nk) && j < len(nr); {
		switch {
		case nk[i] < nr[j]:
			i++
		case nk[i] > nr[j]:
			j++
		default:
			common++
			i++
			j++
		}
	}
	return common == 2+edgeTris
}

// selfIntersects tests the changed triangles against each other and against
// the triangles in the neighbourhood selected by the intersection level.
// Triangles in removed are replaced or deleted by the change and are skipped.
func (o *Oracle) selfIntersects(changed []candidate, removed map[mesh.TriangleID]bool, seeds []mesh.VertexID) bool {
	pos := make([][3]r3.Vec, len(changed))
	for i, c := range changed {
		pos[i] = o.positions(c.corners)
		seeds = append(seeds, c.corners[:]...)
	}

	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			if o.contact(pos[i], pos[j]) == predicates.Intersect {
				return true
			}
		}
	}

	for _, t := range o.neighbourhood(seeds, pos) {
		if removed[t] {
			continue
		}
		other := o.store.Corners(t)
		for i := range pos {
			if o.contact(pos[i], other) == predicates.Intersect {
				return true
			}
		}
	}
	return false
}

func (o *Oracle) positions(c [3]mesh.VertexID) [3]r3.Vec {
	s := o.store
	return [3]r3.Vec{s.Point(c[0]), s.Point(c[1]), s.Point(c[2])}
}

func (o *Oracle) contact(a, b [3]r3.Vec) predicates.Contact {
	return o.ar.TriangleTriangle(a[0], a[1], a[2], b[0], b[1], b[2])
}

// neighbourhood returns the live triangles to test against. The seeds are the
// endpoints of the change and every corner of the changed triangles, so level
// 1 reaches the triangles across their far edges. Levels 2 and 3 grow one and
// two further rings outward from the seeds; level 4 collects
// every triangle with a vertex inside the sphere around the changed region.
func (o *Oracle) neighbourhood(seeds []mesh.VertexID, changed [][3]r3.Vec) []mesh.TriangleID {
	s := o.store
	seen := make(map[mesh.TriangleID]bool)
	var out []mesh.TriangleID
	collect := func(v mesh.VertexID) {
		for _, t := range s.TrianglesAtVertex(v) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}

	if o.level >= 4 {
		for _, v := range seeds {
			collect(v)
		}
		center, radius := boundingSphere(changed)
		for _, i := range o.index.Within(center, radius+o.longest) {
			v := mesh.VertexID(i)
			if s.IsLiveVertex(v) {
				collect(v)
			}
		}
		return out
	}

	visited := make(map[mesh.VertexID]bool)
	frontier := seeds
	for ring := 0; ring < o.level; ring++ {
		start := len(out)
		for _, v := range frontier {
			if !visited[v] {
				visited[v] = true
				collect(v)
			}
		}
		var next []mesh.VertexID
		for _, t := range out[start:] {
			for _, v := range s.Triangle(t) {
				if !visited[v] {
					next = append(next, v)
				}
			}
		}
		frontier = next
	}
	return out
}

// boundingSphere returns the centre and half-diagonal of the axis-aligned box
// around the given triangles
func boundingSphere(tris [][3]r3.Vec) (r3.Vec, float64) {
	if len(tris) == 0 {
		return r3.Vec{}, 0
	}
	lo, hi := tris[0][0], tris[0][0]
	for _, t := range tris {
		for _, p := range t {
			lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
			hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
		}
	}
	center := r3.Scale(0.5, r3.Add(lo, hi))
	return center, 0.5 * r3.Norm(r3.Sub(hi, lo))
}
