package decimation

import (
	"context"
	"math"

	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/pkg/edgequeue"
	"segmesh/pkg/mesh"
)

// flipRounds bounds the number of flips per edge present when the pass
// starts. Quads that are not planar can make the Delaunay test cycle.
const flipRounds = 8

// flipEdges replaces edges whose opposite angles sum to more than pi with
// the other diagonal of their quad, worst violation first
func (r *run) flipEdges(ctx context.Context) error {
	r.table = edgequeue.NewTable()
	r.queue = edgequeue.NewQueue()
	r.polled = 0

	r.registerAll(func(id edgequeue.EdgeID, _ float64) {
		a, b := r.table.Endpoints(id)
		r.queueFlip(id, a, b)
	})
	total := r.queue.Len()
	budget := flipRounds * r.table.Len()

	for !r.queue.IsEmpty() && budget > 0 {
		if err := r.poll(ctx, total, "flipping edges"); err != nil {
			return err
		}
		id, _, _ := r.queue.PopMin()
		n1, n2 := r.table.Endpoints(id)
		n1, n2, n3, n4, ok := r.quad(n1, n2)
		if !ok || delaunayViolation(r.store, n1, n2, n3, n4) <= 0 {
			continue
		}
		if !r.oracle.CanFlip(n1, n2, n3, n4) {
			continue
		}
		r.flip(n1, n2, n3, n4)
		budget--
	}
	if budget == 0 && !r.queue.IsEmpty() {
		klog.Warningf("decimation: flip pass stopped after %d flips", r.stats.NumberOfEdgeFlips)
	}
	return r.checkInvariants("edge flipping")
}

// quad orients the edge a-b so that its first triangle runs n1 to n2 and
// returns the opposite vertices n3 and n4. It fails for edges that do not
// have exactly two consistently oriented triangles.
func (r *run) quad(a, b mesh.VertexID) (n1, n2, n3, n4 mesh.VertexID, ok bool) {
	s := r.store
	tris := s.EdgeNeighbors(mesh.NoTriangle, a, b)
	if len(tris) != 2 {
		return 0, 0, 0, 0, false
	}
	first, second := tris[0], tris[1]
	n1, n2 = a, b
	if !s.HasDirectedEdge(first, n1, n2) {
		n1, n2 = b, a
	}
	if !s.HasDirectedEdge(second, n2, n1) {
		return 0, 0, 0, 0, false
	}
	return n1, n2, s.Opposite(first, n1, n2), s.Opposite(second, n1, n2), true
}

// queueFlip inserts edge id when it currently violates the Delaunay
// criterion and removes it from the queue otherwise
func (r *run) queueFlip(id edgequeue.EdgeID, a, b mesh.VertexID) {
	n1, n2, n3, n4, ok := r.quad(a, b)
	if ok {
		if v := delaunayViolation(r.store, n1, n2, n3, n4); v > 0 {
			r.queue.Insert(id, -v)
			return
		}
	}
	r.queue.Remove(id)
}

// flip turns (n1,n2,n3),(n2,n1,n4) into (n3,n1,n4),(n4,n2,n3). Both
// triangles keep their ids and labels.
func (r *run) flip(n1, n2, n3, n4 mesh.VertexID) {
	s := r.store
	tris := s.EdgeNeighbors(mesh.NoTriangle, n1, n2)
	a, b := tris[0], tris[1]
	if !s.HasDirectedEdge(a, n1, n2) {
		a, b = b, a
	}

	if id, ok := r.table.Remove(n1, n2); ok {
		r.queue.Remove(id)
	}
	s.Rewrite(a, n3, n1, n4)
	s.Rewrite(b, n4, n2, n3)
	r.table.ID(n3, n4)
	r.length2(n3, n4)

	for _, e := range [][2]mesh.VertexID{{n1, n3}, {n3, n2}, {n2, n4}, {n4, n1}} {
		if id, ok := r.table.Lookup(e[0], e[1]); ok {
			r.queueFlip(id, e[0], e[1])
		}
	}
	r.stats.NumberOfEdgeFlips++
}

// delaunayViolation returns the amount by which the angles opposite the edge
// n1-n2 exceed pi. Positive values call for a flip.
func delaunayViolation(s *mesh.Store, n1, n2, n3, n4 mesh.VertexID) float64 {
	p1, p2 := s.Point(n1), s.Point(n2)
	return angleAt(s.Point(n3), p1, p2) + angleAt(s.Point(n4), p1, p2) - math.Pi
}

// angleAt returns the angle at apex between the directions to p and q
func angleAt(apex, p, q r3.Vec) float64 {
	u, v := r3.Sub(p, apex), r3.Sub(q, apex)
	if r3.Norm2(u) == 0 || r3.Norm2(v) == 0 {
		return 0
	}
	return math.Acos(math.Max(-1, math.Min(1, r3.Cos(u, v))))
}

// subdivide splits every edge longer than MaximumEdgeLength at its midpoint,
// longest first, until none remains
func (r *run) subdivide(ctx context.Context) error {
	maxLen2 := r.params.MaximumEdgeLength * r.params.MaximumEdgeLength
	r.table = edgequeue.NewTable()
	r.queue = edgequeue.NewQueue()
	r.polled = 0

	enqueue := func(id edgequeue.EdgeID, len2 float64) {
		if len2 > maxLen2 {
			r.queue.Insert(id, -len2)
		}
	}
	r.registerAll(enqueue)
	total := r.queue.Len()

	for !r.queue.IsEmpty() {
		if err := r.poll(ctx, total, "splitting edges"); err != nil {
			return err
		}
		id, _, _ := r.queue.PopMin()
		a, b := r.table.Endpoints(id)
		r.split(a, b, enqueue)
	}
	return r.checkInvariants("subdivision")
}

// split inserts the midpoint m of a-b. Every triangle (x,y,c) on the edge,
// with x-y running in its winding order, becomes (x,m,c) and (m,y,c).
func (r *run) split(a, b mesh.VertexID, enqueue func(edgequeue.EdgeID, float64)) {
	s := r.store
	m := s.AddVertex(r3.Scale(0.5, r3.Add(s.Point(a), s.Point(b))))

	for _, t := range s.EdgeNeighbors(mesh.NoTriangle, a, b) {
		x, y := a, b
		if !s.HasDirectedEdge(t, a, b) {
			x, y = b, a
		}
		c := s.Opposite(t, a, b)
		s.Rewrite(t, x, m, c)
		child := s.AddTriangle(m, y, c, s.Label(t))
		r.oracle.InheritNormal(child, t)

		enqueue(r.table.ID(m, c), r.length2(m, c))
	}

	r.table.Remove(a, b)
	enqueue(r.table.ID(a, m), r.length2(a, m))
	enqueue(r.table.ID(m, b), r.length2(m, b))
	r.stats.NumberOfEdgeSplits++
}
