package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/internal/models"
)

// squareFan builds a unit square split into four triangles around its centre
func squareFan() *models.Mesh {
	m := models.NewMesh()
	m.AddPoint(0, 0, 0)
	m.AddPoint(1, 0, 0)
	m.AddPoint(1, 1, 0)
	m.AddPoint(0, 1, 0)
	m.AddPoint(0.5, 0.5, 0)
	m.AddTriangle(0, 1, 4)
	m.AddTriangle(1, 2, 4)
	m.AddTriangle(2, 3, 4)
	m.AddTriangle(3, 0, 4)
	return m
}

// TestLoadAndIncidence verifies the incidence lists built by Load
func TestLoadAndIncidence(t *testing.T) {
	s, ids, err := Load(squareFan(), nil)
	require.NoError(t, err)
	require.Len(t, ids, 4)

	assert.Equal(t, 4, s.LiveTriangleCount())
	assert.Equal(t, 4, s.Degree(4))
	assert.Equal(t, 2, s.Degree(0))
	assert.ElementsMatch(t, []TriangleID{0, 3}, s.TrianglesAtVertex(0))
	assert.Equal(t, []VertexID{0, 1, 3, 4}, s.VertexNeighbors(0))
	assert.NoError(t, s.Validate())
}

// TestLoadRejectsBadIndex verifies that out-of-range indices fail the load
func TestLoadRejectsBadIndex(t *testing.T) {
	m := squareFan()
	m.AddTriangle(0, 1, 9)

	_, _, err := Load(m, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadIndex)
}

// TestLoadDropsDegenerate verifies that repeated indices are skipped
func TestLoadDropsDegenerate(t *testing.T) {
	m := squareFan()
	m.AddTriangle(0, 0, 1)

	s, ids, err := Load(m, nil)
	require.NoError(t, err)
	assert.Equal(t, NoTriangle, ids[4])
	assert.Equal(t, 4, s.LiveTriangleCount())
}

// TestEdgeNeighbors verifies the edge adjacency query
func TestEdgeNeighbors(t *testing.T) {
	s, _, err := Load(squareFan(), nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []TriangleID{0, 3}, s.EdgeNeighbors(NoTriangle, 0, 4))
	assert.Equal(t, []TriangleID{3}, s.EdgeNeighbors(0, 0, 4))
	assert.Equal(t, []TriangleID{0}, s.EdgeNeighbors(NoTriangle, 0, 1))
	assert.Empty(t, s.EdgeNeighbors(NoTriangle, 0, 2))
}

// TestMutations verifies delete and replace keep incidence consistent
func TestMutations(t *testing.T) {
	s, _, err := Load(squareFan(), nil)
	require.NoError(t, err)

	// collapse centre vertex 4 onto corner 0 by hand
	s.DeleteTriangle(0)
	s.DeleteTriangle(3)
	s.ReplaceVertex(1, 4, 0)
	s.ReplaceVertex(2, 4, 0)
	s.KillVertex(4)

	assert.Equal(t, 2, s.LiveTriangleCount())
	assert.False(t, s.IsLiveVertex(4))
	assert.False(t, s.IsLiveTriangle(0))
	assert.Equal(t, [3]VertexID{1, 2, 0}, s.Triangle(1))
	assert.ElementsMatch(t, []TriangleID{1, 2}, s.TrianglesAtVertex(0))
	require.NoError(t, s.Validate())

	// deleting twice is a no-op
	s.DeleteTriangle(0)
	assert.Equal(t, 2, s.LiveTriangleCount())

	out := s.ToModel("")
	assert.Len(t, out.Points, 4)
	assert.Len(t, out.Triangles, 2)
}

// TestRewrite verifies that rewriting a triangle moves its incidence entries
func TestRewrite(t *testing.T) {
	s, _, err := Load(squareFan(), nil)
	require.NoError(t, err)

	s.Rewrite(0, 0, 2, 4)
	assert.True(t, s.Contains(0, 2))
	assert.False(t, s.Contains(0, 1))
	assert.NotContains(t, s.TrianglesAtVertex(1), TriangleID(0))
	assert.Contains(t, s.TrianglesAtVertex(2), TriangleID(0))
	assert.True(t, s.HasDirectedEdge(0, 2, 4))
	assert.Equal(t, VertexID(2), s.Opposite(0, 0, 4))
	assert.NoError(t, s.Validate())
}

// TestClassifyBoundary verifies boundary and non-manifold flags
func TestClassifyBoundary(t *testing.T) {
	s, _, err := Load(squareFan(), nil)
	require.NoError(t, err)

	assert.False(t, s.ClassifyBoundary())
	for v := VertexID(0); v < 4; v++ {
		assert.True(t, s.IsBoundary(v), "corner %d", v)
	}
	assert.False(t, s.IsBoundary(4))

	s.MarkAllInterior()
	assert.False(t, s.IsBoundary(0))
}

// TestClassifyNonManifoldEdge verifies that a fin on an edge is reported
func TestClassifyNonManifoldEdge(t *testing.T) {
	m := squareFan()
	m.AddPoint(0.5, 0.5, 1)
	m.AddTriangle(0, 4, 5)

	s, _, err := Load(m, nil)
	require.NoError(t, err)
	assert.True(t, s.ClassifyBoundary())
	assert.True(t, s.IsBoundary(4))
}

// TestClassifyBowtie verifies that two fans touching at one vertex are flagged
func TestClassifyBowtie(t *testing.T) {
	m := models.NewMesh()
	m.AddPoint(0, 0, 0)
	m.AddPoint(1, 0, 0)
	m.AddPoint(0, 1, 0)
	m.AddPoint(-1, 0, 0)
	m.AddPoint(0, -1, 0)
	m.AddTriangle(0, 1, 2)
	m.AddTriangle(0, 3, 4)

	s, _, err := Load(m, nil)
	require.NoError(t, err)
	assert.True(t, s.ClassifyBoundary())
	assert.Equal(t, 2, s.fanComponents(0))
}

// TestUnitNormal verifies orientation and degenerate handling of normals
func TestUnitNormal(t *testing.T) {
	n := UnitNormal(r3.Vec{}, r3.Vec{X: 2}, r3.Vec{Y: 3})
	assert.InDelta(t, 1.0, n.Z, 1e-12)

	zero := UnitNormal(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2})
	assert.Equal(t, r3.Vec{}, zero)
}

// TestToModelLabels verifies that labels follow the live triangles
func TestToModelLabels(t *testing.T) {
	s, _, err := Load(squareFan(), []int{1, 2, 3, 4})
	require.NoError(t, err)
	s.DeleteTriangle(1)

	out := s.ToModel("domain")
	assert.Equal(t, []int{1, 3, 4}, out.Labels("domain"))
	assert.Len(t, out.Points, 5)
}

// TestOnBorder verifies that border edges are found from the live
// connectivity, independent of the classification flags
func TestOnBorder(t *testing.T) {
	s, _, err := Load(squareFan(), nil)
	require.NoError(t, err)
	s.MarkAllInterior()

	assert.True(t, s.OnBorder(0))
	assert.False(t, s.OnBorder(4))
	assert.False(t, s.IsBoundary(0))

	// opening the fan puts the centre on the border
	s.DeleteTriangle(1)
	assert.True(t, s.OnBorder(4))
}
