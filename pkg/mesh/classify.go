package mesh

// EdgeKey is an undirected edge with the smaller vertex id first
type EdgeKey [2]VertexID

// MakeEdgeKey orders a vertex pair into an EdgeKey
func MakeEdgeKey(a, b VertexID) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{a, b}
}

// EdgeUse counts the live triangles on every edge of the store
func (s *Store) EdgeUse() map[EdgeKey]int {
	use := make(map[EdgeKey]int, len(s.tris)*3/2)
	for i := range s.tris {
		if s.tris[i].dead {
			continue
		}
		v := s.tris[i].v
		for j := 0; j < 3; j++ {
			use[MakeEdgeKey(v[j], v[(j+1)%3])]++
		}
	}
	return use
}

// ClassifyBoundary flags every vertex that lies on a boundary edge (one
// triangle), on a non-manifold edge (more than two triangles), or whose
// triangle fan splits into more than one edge-connected component. The flags
// are computed once from the current connectivity. It reports whether any
// non-manifold edge or vertex was found.
func (s *Store) ClassifyBoundary() (nonManifold bool) {
	for i := range s.verts {
		s.verts[i].boundary = false
	}

	for e, n := range s.EdgeUse() {
		if n == 2 {
			continue
		}
		s.verts[e[0]].boundary = true
		s.verts[e[1]].boundary = true
		if n > 2 {
			nonManifold = true
		}
	}

	for i := range s.verts {
		v := VertexID(i)
		if len(s.verts[i].tris) == 0 {
			continue
		}
		if s.fanComponents(v) > 1 {
			s.verts[i].boundary = true
			nonManifold = true
		}
	}
	return nonManifold
}

// OnBorder reports whether v currently has an edge used by exactly one live
// triangle. Unlike IsBoundary it follows the connectivity as it changes.
func (s *Store) OnBorder(v VertexID) bool {
	spokes := make(map[VertexID]int)
	for _, t := range s.verts[v].tris {
		for _, w := range s.tris[t].v {
			if w != v {
				spokes[w]++
			}
		}
	}
	for _, n := range spokes {
		if n == 1 {
			return true
		}
	}
	return false
}

// MarkAllInterior clears every boundary flag. Used when the caller guarantees
// the surface is manifold and the classification is skipped.
func (s *Store) MarkAllInterior() {
	for i := range s.verts {
		s.verts[i].boundary = false
	}
}

// fanComponents counts the groups of triangles around v that are connected
// through edges incident to v
func (s *Store) fanComponents(v VertexID) int {
	tris := s.verts[v].tris
	parent := make([]int, len(tris))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	// triangles sharing a spoke v-w belong to the same component
	spoke := make(map[VertexID]int)
	for i, t := range tris {
		for _, w := range s.tris[t].v {
			if w == v {
				continue
			}
			if j, ok := spoke[w]; ok {
				parent[find(i)] = find(j)
			} else {
				spoke[w] = i
			}
		}
	}

	n := 0
	for i := range parent {
		if find(i) == i {
			n++
		}
	}
	return n
}
