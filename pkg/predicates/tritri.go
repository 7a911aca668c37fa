package predicates

import (
	"math"

	gr3 "gonum.org/v1/gonum/spatial/r3"
)

// Contact classifies how two closed triangles meet
type Contact int

const (
	// Disjoint triangles have no point in common
	Disjoint Contact = iota
	// ShareVertex triangles meet only at one common corner
	ShareVertex
	// ShareEdge triangles meet only along one common edge
	ShareEdge
	// ShareFace triangles have the same three corners
	ShareFace
	// Intersect triangles have contact beyond their common corners, which
	// is the only outcome a mesh must not contain
	Intersect
)

func (c Contact) String() string {
	switch c {
	case Disjoint:
		return "disjoint"
	case ShareVertex:
		return "share-vertex"
	case ShareEdge:
		return "share-edge"
	case ShareFace:
		return "share-face"
	case Intersect:
		return "intersect"
	}
	return "unknown"
}

// TriangleTriangle classifies the contact between triangles abc and pqr.
// Common corners are detected by exact coordinate equality, so the result
// depends only on the coordinates and not on vertex ids or argument order
// within either triangle.
func (ar *Arithmetic) TriangleTriangle(a, b, c, p, q, r gr3.Vec) Contact {
	t1 := [3]gr3.Vec{a, b, c}
	t2 := [3]gr3.Vec{p, q, r}

	var shared [][2]int
	for i := range t1 {
		for j := range t2 {
			if t1[i] == t2[j] {
				shared = append(shared, [2]int{i, j})
				break
			}
		}
	}

	switch {
	case len(shared) >= 3:
		return ShareFace
	case len(shared) == 2:
		return ar.sharedEdge(t1, t2, shared)
	case len(shared) == 1:
		return ar.sharedVertex(t1, t2, shared[0])
	}

	// separating plane tests
	if ar.strictlyOneSide(t1, t2) || ar.strictlyOneSide(t2, t1) {
		return Disjoint
	}
	if ar.coplanar(t1, t2) {
		if ar.triTri2D(t1, t2, dropAxis(t1, t2)) {
			return Intersect
		}
		return Disjoint
	}

	for i := 0; i < 3; i++ {
		if ar.segmentTriangle(t1[i], t1[(i+1)%3], t2) ||
			ar.segmentTriangle(t2[i], t2[(i+1)%3], t1) {
			return Intersect
		}
	}
	return Disjoint
}

// strictlyOneSide reports whether every corner of other lies strictly on one
// side of the plane of t
func (ar *Arithmetic) strictlyOneSide(t, other [3]gr3.Vec) bool {
	s0 := sign(ar.Orient3D(t[0], t[1], t[2], other[0]))
	s1 := sign(ar.Orient3D(t[0], t[1], t[2], other[1]))
	s2 := sign(ar.Orient3D(t[0], t[1], t[2], other[2]))
	return s0 != 0 && s0 == s1 && s1 == s2
}

func (ar *Arithmetic) coplanar(t, other [3]gr3.Vec) bool {
	for _, p := range other {
		if ar.Orient3D(t[0], t[1], t[2], p) != 0 {
			return false
		}
	}
	return true
}

// sharedEdge handles triangles with two common corners. Non-coplanar
// triangles meet exactly along the edge; coplanar ones overlap when their
// third corners lie on the same side of it.
func (ar *Arithmetic) sharedEdge(t1, t2 [3]gr3.Vec, shared [][2]int) Contact {
	s, e := t1[shared[0][0]], t1[shared[1][0]]
	c1 := t1[3-shared[0][0]-shared[1][0]]
	c2 := t2[3-shared[0][1]-shared[1][1]]

	if ar.Orient3D(s, e, c1, c2) != 0 {
		return ShareEdge
	}
	axis := dropAxis(t1, t2)
	o1 := sign(ar.Orient2D(project(s, axis), project(e, axis), project(c1, axis)))
	o2 := sign(ar.Orient2D(project(s, axis), project(e, axis), project(c2, axis)))
	if o1 != 0 && o1 == o2 {
		return Intersect
	}
	return ShareEdge
}

// sharedVertex handles triangles with one common corner. When the planes
// differ, the contact extends beyond the corner exactly when the edge opposite
// the corner in one triangle touches the other triangle. When they coincide,
// it does so exactly when the two corner wedges overlap.
func (ar *Arithmetic) sharedVertex(t1, t2 [3]gr3.Vec, shared [2]int) Contact {
	s := t1[shared[0]]
	a1, b1 := t1[(shared[0]+1)%3], t1[(shared[0]+2)%3]
	a2, b2 := t2[(shared[1]+1)%3], t2[(shared[1]+2)%3]

	if !ar.coplanar(t1, t2) {
		if ar.segmentTriangle(a1, b1, t2) || ar.segmentTriangle(a2, b2, t1) {
			return Intersect
		}
		return ShareVertex
	}

	axis := dropAxis(t1, t2)
	ps := project(s, axis)
	pa1, pb1 := project(a1, axis), project(b1, axis)
	pa2, pb2 := project(a2, axis), project(b2, axis)
	if ar.rayInWedge(ps, pa1, pb1, pa2) || ar.rayInWedge(ps, pa1, pb1, pb2) ||
		ar.rayInWedge(ps, pa2, pb2, pa1) || ar.rayInWedge(ps, pa2, pb2, pb1) {
		return Intersect
	}
	return ShareVertex
}

// rayInWedge reports whether the ray from s through p lies in the closed
// convex wedge at s spanned by a and b
func (ar *Arithmetic) rayInWedge(s, a, b, p [2]float64) bool {
	o := sign(ar.Orient2D(s, a, b))
	if o == 0 {
		return false
	}
	return sign(ar.Orient2D(s, a, p))*o >= 0 && sign(ar.Orient2D(s, p, b))*o >= 0
}

// segmentTriangle reports whether the closed segment pq touches the closed
// triangle t
func (ar *Arithmetic) segmentTriangle(p, q gr3.Vec, t [3]gr3.Vec) bool {
	o1 := sign(ar.Orient3D(t[0], t[1], t[2], p))
	o2 := sign(ar.Orient3D(t[0], t[1], t[2], q))
	if o1 != 0 && o1 == o2 {
		return false
	}
	if o1 == 0 && o2 == 0 {
		axis := dropAxis(t, t)
		return ar.segmentTriangle2D(project(p, axis), project(q, axis),
			[3][2]float64{project(t[0], axis), project(t[1], axis), project(t[2], axis)})
	}

	// the segment crosses the plane; check the line against the three edges
	s0 := sign(ar.Orient3D(p, q, t[0], t[1]))
	s1 := sign(ar.Orient3D(p, q, t[1], t[2]))
	s2 := sign(ar.Orient3D(p, q, t[2], t[0]))
	hasPos := s0 > 0 || s1 > 0 || s2 > 0
	hasNeg := s0 < 0 || s1 < 0 || s2 < 0
	return !(hasPos && hasNeg)
}

func (ar *Arithmetic) triTri2D(t1, t2 [3]gr3.Vec, axis int) bool {
	var p1, p2 [3][2]float64
	for i := 0; i < 3; i++ {
		p1[i] = project(t1[i], axis)
		p2[i] = project(t2[i], axis)
	}
	for i := 0; i < 3; i++ {
		if ar.segmentTriangle2D(p1[i], p1[(i+1)%3], p2) {
			return true
		}
	}
	// t2 strictly inside t1
	return ar.pointInTriangle2D(p2[0], p1)
}

func (ar *Arithmetic) segmentTriangle2D(p, q [2]float64, t [3][2]float64) bool {
	if ar.pointInTriangle2D(p, t) || ar.pointInTriangle2D(q, t) {
		return true
	}
	for i := 0; i < 3; i++ {
		if ar.segmentsTouch2D(p, q, t[i], t[(i+1)%3]) {
			return true
		}
	}
	return false
}

func (ar *Arithmetic) pointInTriangle2D(p [2]float64, t [3][2]float64) bool {
	o := sign(ar.Orient2D(t[0], t[1], t[2]))
	if o == 0 {
		return false
	}
	for i := 0; i < 3; i++ {
		if sign(ar.Orient2D(t[i], t[(i+1)%3], p))*o < 0 {
			return false
		}
	}
	return true
}

// segmentsTouch2D reports whether the closed segments pq and rs share a point
func (ar *Arithmetic) segmentsTouch2D(p, q, r, s [2]float64) bool {
	d1 := sign(ar.Orient2D(p, q, r))
	d2 := sign(ar.Orient2D(p, q, s))
	d3 := sign(ar.Orient2D(r, s, p))
	d4 := sign(ar.Orient2D(r, s, q))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(p, q, r)) ||
		(d2 == 0 && onSegment(p, q, s)) ||
		(d3 == 0 && onSegment(r, s, p)) ||
		(d4 == 0 && onSegment(r, s, q))
}

// onSegment reports whether x, known to be collinear with pq, lies within it
func onSegment(p, q, x [2]float64) bool {
	return math.Min(p[0], q[0]) <= x[0] && x[0] <= math.Max(p[0], q[0]) &&
		math.Min(p[1], q[1]) <= x[1] && x[1] <= math.Max(p[1], q[1])
}

// dropAxis picks the coordinate to discard when projecting coplanar
// triangles: the dominant component of their normals
func dropAxis(t1, t2 [3]gr3.Vec) int {
	n := gr3.Cross(gr3.Sub(t1[1], t1[0]), gr3.Sub(t1[2], t1[0]))
	if gr3.Norm2(n) == 0 {
		n = gr3.Cross(gr3.Sub(t2[1], t2[0]), gr3.Sub(t2[2], t2[0]))
	}
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	}
	return 2
}

func project(p gr3.Vec, axis int) [2]float64 {
	switch axis {
	case 0:
		return [2]float64{p.Y, p.Z}
	case 1:
		return [2]float64{p.Z, p.X}
	}
	return [2]float64{p.X, p.Y}
}
