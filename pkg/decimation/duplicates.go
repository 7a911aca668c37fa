package decimation

import (
	"github.com/plan-systems/klog"

	"segmesh/pkg/mesh"
)

// LabelMap assigns a synthetic label to every ordered pair of domain labels
// that share an interface triangle. Synthetic labels start above the largest
// input label so they never collide with a real domain.
type LabelMap struct {
	next    int
	byPair  map[[2]int]int
	byLabel map[int][2]int
	folded  int
}

// NewLabelMap creates an empty map whose first synthetic label is first
func NewLabelMap(first int) *LabelMap {
	return &LabelMap{
		next:    first,
		byPair:  make(map[[2]int]int),
		byLabel: make(map[int][2]int),
	}
}

// Synthetic returns the label standing for the pair (a, b), allocating one
// on first use
func (m *LabelMap) Synthetic(a, b int) int {
	key := [2]int{a, b}
	if l, ok := m.byPair[key]; ok {
		return l
	}
	l := m.next
	m.next++
	m.byPair[key] = l
	m.byLabel[l] = key
	return l
}

// Pair returns the label pair a synthetic label stands for
func (m *LabelMap) Pair(label int) ([2]int, bool) {
	p, ok := m.byLabel[label]
	return p, ok
}

// Len returns the number of synthetic labels allocated
func (m *LabelMap) Len() int { return len(m.byLabel) }

// Folded returns the number of triangles removed by FoldDuplicates
func (m *LabelMap) Folded() int { return m.folded }

// Reset forgets every synthetic label
func (m *LabelMap) Reset() {
	m.byPair = make(map[[2]int]int)
	m.byLabel = make(map[int][2]int)
}

// FoldDuplicates finds pairs of triangles spanning the same three vertices
// with different labels, deletes one of each pair and relabels the other with
// the synthetic label of the pair
func FoldDuplicates(s *mesh.Store) *LabelMap {
	maxLabel := 0
	first := true
	for i := 0; i < s.NumTriangles(); i++ {
		t := mesh.TriangleID(i)
		if !s.IsLiveTriangle(t) {
			continue
		}
		if l := s.Label(t); first || l > maxLabel {
			maxLabel, first = l, false
		}
	}

	m := NewLabelMap(maxLabel + 1)
	for i := 0; i < s.NumTriangles(); i++ {
		t := mesh.TriangleID(i)
		if !s.IsLiveTriangle(t) {
			continue
		}
		if _, ok := m.Pair(s.Label(t)); ok {
			continue
		}
		c := s.Triangle(t)
		for _, u := range s.EdgeNeighbors(t, c[0], c[1]) {
			if !s.Contains(u, c[2]) || s.Label(u) == s.Label(t) {
				continue
			}
			if _, ok := m.Pair(s.Label(u)); ok {
				continue
			}
			s.SetLabel(t, m.Synthetic(s.Label(t), s.Label(u)))
			s.DeleteTriangle(u)
			m.folded++
			break
		}
	}

	if m.folded > 0 {
		klog.V(2).Infof("decimation: folded %d interface triangles into %d label pairs", m.folded, m.Len())
	}
	return m
}

// UnfoldDuplicates restores the interface triangles folded by FoldDuplicates.
// Each representative gets the first label of its pair back and a copy with
// reversed winding is added for the second. The map is cleared afterwards.
func UnfoldDuplicates(s *mesh.Store, m *LabelMap) {
	n := s.NumTriangles()
	for i := 0; i < n; i++ {
		t := mesh.TriangleID(i)
		if !s.IsLiveTriangle(t) {
			continue
		}
		pair, ok := m.Pair(s.Label(t))
		if !ok {
			continue
		}
		s.SetLabel(t, pair[0])
		c := s.Triangle(t)
		s.AddTriangle(c[0], c[2], c[1], pair[1])
	}
	m.Reset()
}
