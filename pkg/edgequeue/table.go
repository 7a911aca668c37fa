// Package edgequeue provides the undirected edge registry and the removable
// min-priority queue that drive the greedy mesh passes. Edges are not stored
// by the mesh itself; the Table gives every vertex pair a synthetic id the
// first time it is registered so the Queue can refer to it.
package edgequeue

import (
	"segmesh/pkg/mesh"
)

// EdgeID is the synthetic id of a registered edge
type EdgeID int

// Table maps undirected vertex pairs to edge ids. Ids are never reused: an
// edge that disappears and later reappears is given a fresh id.
type Table struct {
	ids  map[mesh.EdgeKey]EdgeID
	ends []mesh.EdgeKey
}

// NewTable creates an empty edge table
func NewTable() *Table {
	return &Table{ids: make(map[mesh.EdgeKey]EdgeID)}
}

// ID returns the id of edge a-b, registering it on first use
func (t *Table) ID(a, b mesh.VertexID) EdgeID {
	key := mesh.MakeEdgeKey(a, b)
	if id, ok := t.ids[key]; ok {
		return id
	}
	id := EdgeID(len(t.ends))
	t.ids[key] = id
	t.ends = append(t.ends, key)
	return id
}

// Lookup returns the id of edge a-b if it is registered
func (t *Table) Lookup(a, b mesh.VertexID) (EdgeID, bool) {
	id, ok := t.ids[mesh.MakeEdgeKey(a, b)]
	return id, ok
}

// Endpoints returns the vertices of an edge, smaller id first
func (t *Table) Endpoints(id EdgeID) (mesh.VertexID, mesh.VertexID) {
	key := t.ends[id]
	return key[0], key[1]
}

// Remove unregisters edge a-b and returns the id it had
func (t *Table) Remove(a, b mesh.VertexID) (EdgeID, bool) {
	key := mesh.MakeEdgeKey(a, b)
	id, ok := t.ids[key]
	if ok {
		delete(t.ids, key)
	}
	return id, ok
}

// Len returns the number of registered edges
func (t *Table) Len() int {
	return len(t.ids)
}
