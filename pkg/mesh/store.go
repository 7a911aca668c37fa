// Package mesh provides the arena-backed triangle store used by the decimation
// engine. Vertices and triangles live in flat slices addressed by stable
// integer ids; deleted entries are tombstoned rather than erased so the ids of
// live neighbours stay valid while a pass is running. The store owns the
// vertex-to-triangle incidence lists and keeps them consistent on every
// mutation.
package mesh

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/internal/models"
)

// VertexID identifies a vertex within one Store
type VertexID int

// TriangleID identifies a triangle within one Store
type TriangleID int

// NoTriangle is passed to EdgeNeighbors to request every triangle on an edge
const NoTriangle TriangleID = -1

// ErrBadIndex is returned when a loaded triangle references a missing point
var ErrBadIndex = errors.New("triangle references a point that does not exist")

type vertex struct {
	pos      r3.Vec
	tris     []TriangleID
	boundary bool
	dead     bool
}

type triangle struct {
	v     [3]VertexID
	label int
	dead  bool
}

// Store holds vertex positions and triangle connectivity
type Store struct {
	verts    []vertex
	tris     []triangle
	liveTris int
}

// NewStore creates an empty store with room for the given number of elements
func NewStore(numVerts, numTris int) *Store {
	return &Store{
		verts: make([]vertex, 0, numVerts),
		tris:  make([]triangle, 0, numTris),
	}
}

// Load builds a store from an exchange mesh. labels may be nil; otherwise it
// must be parallel to m.Triangles. Triangles that repeat a vertex index are
// dropped since the store never holds degenerate cells. The returned slice maps
// every input triangle to its TriangleID, or NoTriangle when it was dropped.
func Load(m *models.Mesh, labels []int) (*Store, []TriangleID, error) {
	if labels != nil && len(labels) != len(m.Triangles) {
		return nil, nil, errors.Errorf("label array has %d entries for %d triangles", len(labels), len(m.Triangles))
	}

	s := NewStore(len(m.Points), len(m.Triangles))
	for _, p := range m.Points {
		s.AddVertex(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	}

	ids := make([]TriangleID, len(m.Triangles))
	dropped := 0
	for i, t := range m.Triangles {
		for _, idx := range t {
			if idx < 0 || idx >= len(m.Points) {
				return nil, nil, errors.Wrapf(ErrBadIndex, "triangle %d index %d", i, idx)
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			ids[i] = NoTriangle
			dropped++
			continue
		}
		label := 0
		if labels != nil {
			label = labels[i]
		}
		ids[i] = s.AddTriangle(VertexID(t[0]), VertexID(t[1]), VertexID(t[2]), label)
	}
	if dropped > 0 {
		klog.Warningf("mesh: dropped %d degenerate input triangles", dropped)
	}

	return s, ids, nil
}

// AddVertex appends a vertex and returns its id
func (s *Store) AddVertex(pos r3.Vec) VertexID {
	s.verts = append(s.verts, vertex{pos: pos})
	return VertexID(len(s.verts) - 1)
}

// AddTriangle appends a triangle over three distinct live vertices
func (s *Store) AddTriangle(a, b, c VertexID, label int) TriangleID {
	id := TriangleID(len(s.tris))
	s.tris = append(s.tris, triangle{v: [3]VertexID{a, b, c}, label: label})
	for _, v := range [3]VertexID{a, b, c} {
		s.verts[v].tris = append(s.verts[v].tris, id)
	}
	s.liveTris++
	return id
}

// DeleteTriangle tombstones a triangle and detaches it from its vertices
func (s *Store) DeleteTriangle(t TriangleID) {
	tri := &s.tris[t]
	if tri.dead {
		return
	}
	tri.dead = true
	for _, v := range tri.v {
		s.detach(v, t)
	}
	s.liveTris--
}

// ReplaceVertex rewrites one corner of a triangle from old to repl
func (s *Store) ReplaceVertex(t TriangleID, old, repl VertexID) {
	tri := &s.tris[t]
	for i, v := range tri.v {
		if v == old {
			tri.v[i] = repl
			s.detach(old, t)
			s.verts[repl].tris = append(s.verts[repl].tris, t)
			return
		}
	}
}

// Rewrite replaces a triangle's three corners in place, keeping its id and label
func (s *Store) Rewrite(t TriangleID, a, b, c VertexID) {
	tri := &s.tris[t]
	for _, v := range tri.v {
		s.detach(v, t)
	}
	tri.v = [3]VertexID{a, b, c}
	for _, v := range tri.v {
		s.verts[v].tris = append(s.verts[v].tris, t)
	}
}

func (s *Store) detach(v VertexID, t TriangleID) {
	list := s.verts[v].tris
	for i, id := range list {
		if id == t {
			last := len(list) - 1
			list[i] = list[last]
			s.verts[v].tris = list[:last]
			return
		}
	}
}

// KillVertex tombstones a vertex that no longer has incident triangles
func (s *Store) KillVertex(v VertexID) {
	s.verts[v].dead = true
	s.verts[v].tris = nil
}

// TrianglesAtVertex returns a copy of the triangles incident to v
func (s *Store) TrianglesAtVertex(v VertexID) []TriangleID {
	list := s.verts[v].tris
	out := make([]TriangleID, len(list))
	copy(out, list)
	return out
}

// Degree returns the number of triangles incident to v
func (s *Store) Degree(v VertexID) int {
	return len(s.verts[v].tris)
}

// EdgeNeighbors returns the triangles other than t that use the edge v0-v1
func (s *Store) EdgeNeighbors(t TriangleID, v0, v1 VertexID) []TriangleID {
	var out []TriangleID
	for _, id := range s.verts[v0].tris {
		if id != t && s.Contains(id, v1) {
			out = append(out, id)
		}
	}
	return out
}

// VertexNeighbors returns v and every vertex sharing a triangle with it, sorted
func (s *Store) VertexNeighbors(v VertexID) []VertexID {
	seen := map[VertexID]struct{}{v: {}}
	out := []VertexID{v}
	for _, t := range s.verts[v].tris {
		for _, w := range s.tris[t].v {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				out = append(out, w)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Point returns the position of a vertex
func (s *Store) Point(v VertexID) r3.Vec {
	return s.verts[v].pos
}

// Triangle returns the corners of a triangle
func (s *Store) Triangle(t TriangleID) [3]VertexID {
	return s.tris[t].v
}

// Corners returns the corner positions of a triangle
func (s *Store) Corners(t TriangleID) [3]r3.Vec {
	v := s.tris[t].v
	return [3]r3.Vec{s.verts[v[0]].pos, s.verts[v[1]].pos, s.verts[v[2]].pos}
}

// Label returns the domain label of a triangle
func (s *Store) Label(t TriangleID) int {
	return s.tris[t].label
}

// SetLabel assigns the domain label of a triangle
func (s *Store) SetLabel(t TriangleID, label int) {
	s.tris[t].label = label
}

// Contains reports whether v is a corner of t
func (s *Store) Contains(t TriangleID, v VertexID) bool {
	c := s.tris[t].v
	return c[0] == v || c[1] == v || c[2] == v
}

// Opposite returns the corner of t that is neither a nor b
func (s *Store) Opposite(t TriangleID, a, b VertexID) VertexID {
	for _, v := range s.tris[t].v {
		if v != a && v != b {
			return v
		}
	}
	return -1
}

// HasDirectedEdge reports whether t traverses a then b in its winding order
func (s *Store) HasDirectedEdge(t TriangleID, a, b VertexID) bool {
	c := s.tris[t].v
	for i := 0; i < 3; i++ {
		if c[i] == a && c[(i+1)%3] == b {
			return true
		}
	}
	return false
}

// IsLiveTriangle reports whether t has not been deleted
func (s *Store) IsLiveTriangle(t TriangleID) bool {
	return t >= 0 && int(t) < len(s.tris) && !s.tris[t].dead
}

// IsLiveVertex reports whether v exists and still has an incident triangle
func (s *Store) IsLiveVertex(v VertexID) bool {
	return v >= 0 && int(v) < len(s.verts) && !s.verts[v].dead && len(s.verts[v].tris) > 0
}

// IsBoundary reports the boundary/non-manifold flag computed by ClassifyBoundary
func (s *Store) IsBoundary(v VertexID) bool {
	return s.verts[v].boundary
}

// NumVertices returns the number of vertex ids allocated so far
func (s *Store) NumVertices() int { return len(s.verts) }

// NumTriangles returns the number of triangle ids allocated so far
func (s *Store) NumTriangles() int { return len(s.tris) }

// LiveTriangleCount returns the number of triangles that have not been deleted
func (s *Store) LiveTriangleCount() int { return s.liveTris }

// Normal returns the unit normal of a triangle, or the zero vector when the
// triangle has no area
func (s *Store) Normal(t TriangleID) r3.Vec {
	c := s.Corners(t)
	return UnitNormal(c[0], c[1], c[2])
}

// UnitNormal returns the normalized cross product normal of a, b, c
func UnitNormal(a, b, c r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Validate checks that every live triangle has three distinct live corners and
// that the incidence lists agree with the triangles
func (s *Store) Validate() error {
	for i := range s.tris {
		t := TriangleID(i)
		tri := s.tris[i]
		if tri.dead {
			continue
		}
		a, b, c := tri.v[0], tri.v[1], tri.v[2]
		if a == b || b == c || a == c {
			return errors.Errorf("triangle %d is degenerate: %v", t, tri.v)
		}
		for _, v := range tri.v {
			if s.verts[v].dead {
				return errors.Errorf("triangle %d references dead vertex %d", t, v)
			}
			if !containsTri(s.verts[v].tris, t) {
				return errors.Errorf("vertex %d does not list incident triangle %d", v, t)
			}
		}
	}
	for i := range s.verts {
		for _, t := range s.verts[i].tris {
			if s.tris[t].dead || !s.Contains(t, VertexID(i)) {
				return errors.Errorf("vertex %d lists stale triangle %d", i, t)
			}
		}
	}
	return nil
}

func containsTri(list []TriangleID, t TriangleID) bool {
	for _, id := range list {
		if id == t {
			return true
		}
	}
	return false
}

// ToModel compacts the live part of the store into an exchange mesh. Vertices
// without live triangles are dropped and indices renumbered in id order. When
// labelName is not empty the triangle labels are emitted under that name.
func (s *Store) ToModel(labelName string) *models.Mesh {
	out := models.NewMesh()
	remap := make([]int, len(s.verts))
	for i := range remap {
		remap[i] = -1
	}
	for i, v := range s.verts {
		if v.dead || len(v.tris) == 0 {
			continue
		}
		remap[i] = out.AddPoint(v.pos.X, v.pos.Y, v.pos.Z)
	}

	var labels []int
	for _, t := range s.tris {
		if t.dead {
			continue
		}
		out.AddTriangle(remap[t.v[0]], remap[t.v[1]], remap[t.v[2]])
		labels = append(labels, t.label)
	}
	if labelName != "" {
		out.SetLabels(labelName, labels)
	}
	return out
}
