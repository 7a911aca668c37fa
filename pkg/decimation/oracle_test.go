package decimation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/internal/models"
	"segmesh/pkg/mesh"
	"segmesh/pkg/predicates"
)

func newTestOracle(t *testing.T, m *models.Mesh, params *Params, manifold bool) (*Oracle, *mesh.Store) {
	t.Helper()
	s, _, err := mesh.Load(m, nil)
	require.NoError(t, err)
	if manifold {
		s.MarkAllInterior()
	} else {
		s.ClassifyBoundary()
	}
	return NewOracle(s, predicates.NewArithmetic(), params), s
}

// TestCanCollapseFan covers the boundary and edge rules on a flat fan
func TestCanCollapseFan(t *testing.T) {
	o, _ := newTestOracle(t, squareFan(0), DefaultParams(), false)

	assert.True(t, o.CanCollapse(0, 4), "centre onto corner")
	assert.False(t, o.CanCollapse(4, 0), "boundary vertex must not move")
	assert.False(t, o.CanCollapse(0, 1), "both ends on the boundary")
	assert.False(t, o.CanCollapse(0, 2), "not an edge")
	assert.False(t, o.CanCollapse(0, 0))
}

// TestCanCollapseNormalDeviation verifies the angle bound against a steep tent
func TestCanCollapseNormalDeviation(t *testing.T) {
	params := DefaultParams()
	o, _ := newTestOracle(t, squareFan(2), params, false)
	assert.False(t, o.CanCollapse(0, 4))

	params.MaximumNormalAngleDeviation = 89
	o, _ = newTestOracle(t, squareFan(2), params, false)
	assert.True(t, o.CanCollapse(0, 4))
}

// TestCanCollapseTetrahedron verifies that a closed tetrahedron is never
// collapsed into a doubled triangle
func TestCanCollapseTetrahedron(t *testing.T) {
	m := models.NewMesh()
	m.AddPoint(0, 0, 0)
	m.AddPoint(1, 0, 0)
	m.AddPoint(0, 1, 0)
	m.AddPoint(0, 0, 1)
	m.AddTriangle(0, 2, 1)
	m.AddTriangle(0, 1, 3)
	m.AddTriangle(1, 2, 3)
	m.AddTriangle(2, 0, 3)

	params := DefaultParams()
	params.MaximumNormalAngleDeviation = 180
	o, _ := newTestOracle(t, m, params, true)
	for a := mesh.VertexID(0); a < 4; a++ {
		for b := mesh.VertexID(0); b < 4; b++ {
			assert.False(t, o.CanCollapse(a, b), "%d <- %d", a, b)
		}
	}
}

// TestCanCollapseIntersectionLevels verifies that only the spatial search
// sees a triangle that is not connected to the collapsed edge
func TestCanCollapseIntersectionLevels(t *testing.T) {
	for level, want := range map[int]bool{0: true, 1: true, 3: true, 4: false} {
		params := DefaultParams()
		params.MaximumNormalAngleDeviation = 89
		params.IntersectionCheckLevel = level
		o, s := newTestOracle(t, valleyWithPeg(), params, false)
		o.NoteEdge(1.3)
		require.False(t, s.IsBoundary(4))
		assert.Equal(t, want, o.CanCollapse(0, 4), "level %d", level)
	}
}

// TestCanFlip verifies flip legality on a thin quad
func TestCanFlip(t *testing.T) {
	o, _ := newTestOracle(t, thinQuad(), DefaultParams(), false)
	assert.True(t, o.CanFlip(0, 1, 2, 3))
	assert.False(t, o.CanFlip(1, 0, 2, 3), "orientation does not match")
	assert.False(t, o.CanFlip(0, 2, 1, 3), "boundary edge")

	// once the other diagonal exists the flip would duplicate an edge
	m := thinQuad()
	m.AddPoint(1, 0, 1)
	m.AddTriangle(2, 3, 4)
	o, _ = newTestOracle(t, m, DefaultParams(), false)
	assert.False(t, o.CanFlip(0, 1, 2, 3))
}

// TestBoundingSphere verifies the level 4 search region
func TestBoundingSphere(t *testing.T) {
	s, _, err := mesh.Load(squareFan(0), nil)
	require.NoError(t, err)

	center, radius := boundingSphere([][3]r3.Vec{s.Corners(0), s.Corners(2)})
	assert.InDelta(t, 0.5, center.X, 1e-12)
	assert.InDelta(t, 0.5, center.Y, 1e-12)
	assert.InDelta(t, 0.0, center.Z, 1e-12)
	assert.InDelta(t, 0.7071067811865476, radius, 1e-12)
}

// TestCanCollapseBorderPinch verifies that an interior diagonal joining the
// two border curves of a strip is rejected even when boundary classification
// is skipped
func TestCanCollapseBorderPinch(t *testing.T) {
	o, s := newTestOracle(t, strip(3, 1), DefaultParams(), true)

	// 1-6 is the diagonal of the middle quad; both ends lie on the border
	require.Len(t, s.EdgeNeighbors(mesh.NoTriangle, 1, 6), 2)
	assert.False(t, o.CanCollapse(1, 6))
	assert.False(t, o.CanCollapse(6, 1))

	// a border edge may still be collapsed
	assert.True(t, o.CanCollapse(0, 1))
}
