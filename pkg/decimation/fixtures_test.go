package decimation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/internal/models"
	"segmesh/pkg/mesh"
	"segmesh/pkg/predicates"
)

// squareFan builds a unit square split into four triangles around its centre,
// lifted to height z at the centre
func squareFan(z float64) *models.Mesh {
	m := models.NewMesh()
	m.AddPoint(0, 0, 0)
	m.AddPoint(1, 0, 0)
	m.AddPoint(1, 1, 0)
	m.AddPoint(0, 1, 0)
	m.AddPoint(0.5, 0.5, z)
	m.AddTriangle(0, 1, 4)
	m.AddTriangle(1, 2, 4)
	m.AddTriangle(2, 3, 4)
	m.AddTriangle(3, 0, 4)
	return m
}

// valleyWithPeg builds a square fan whose centre sits one unit below the
// corners and a separate small triangle that stands upright in the valley,
// piercing the plane of the corners without touching the valley itself
func valleyWithPeg() *models.Mesh {
	m := squareFan(-1)
	p := m.AddPoint(0.6, 0.4, -0.1)
	q := m.AddPoint(0.6, 0.4, 0.1)
	r := m.AddPoint(0.7, 0.3, 0)
	m.AddTriangle(p, q, r)
	return m
}

// strip builds an n by 1 strip of unit quads, each split into two triangles,
// scaled by scale
func strip(n int, scale float64) *models.Mesh {
	m := models.NewMesh()
	for row := 0; row <= 1; row++ {
		for i := 0; i <= n; i++ {
			m.AddPoint(float64(i)*scale, float64(row)*scale, 0)
		}
	}
	top := n + 1
	for i := 0; i < n; i++ {
		m.AddTriangle(i, i+1, top+i+1)
		m.AddTriangle(i, top+i+1, top+i)
	}
	return m
}

// thinQuad builds two triangles sharing the long diagonal of a flat rhombus
func thinQuad() *models.Mesh {
	m := models.NewMesh()
	m.AddPoint(0, 0, 0)
	m.AddPoint(2, 0, 0)
	m.AddPoint(1, 0.2, 0)
	m.AddPoint(1, -0.2, 0)
	m.AddTriangle(0, 1, 2)
	m.AddTriangle(1, 0, 3)
	return m
}

// icosphere builds a unit sphere by repeatedly splitting an icosahedron
func icosphere(levels int) *models.Mesh {
	t := (1 + math.Sqrt(5)) / 2
	raw := [][3]float64{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	m := models.NewMesh()
	add := func(p [3]float64) int {
		v := r3.Unit(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
		return m.AddPoint(v.X, v.Y, v.Z)
	}
	for _, p := range raw {
		add(p)
	}

	for l := 0; l < levels; l++ {
		mid := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if i, ok := mid[key]; ok {
				return i
			}
			pa, pb := m.Points[a], m.Points[b]
			i := add([3]float64{(pa[0] + pb[0]) / 2, (pa[1] + pb[1]) / 2, (pa[2] + pb[2]) / 2})
			mid[key] = i
			return i
		}
		var next [][3]int
		for _, f := range faces {
			a := midpoint(f[0], f[1])
			b := midpoint(f[1], f[2])
			c := midpoint(f[2], f[0])
			next = append(next, [3]int{f[0], a, c}, [3]int{f[1], b, a}, [3]int{f[2], c, b}, [3]int{a, b, c})
		}
		faces = next
	}
	m.Triangles = faces
	return m
}

// edgeCounts counts the triangles on every undirected edge of m
func edgeCounts(m *models.Mesh) map[[2]int]int {
	counts := make(map[[2]int]int)
	for _, t := range m.Triangles {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			counts[[2]int{a, b}]++
		}
	}
	return counts
}

func point(m *models.Mesh, i int) r3.Vec {
	p := m.Points[i]
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func normalOf(m *models.Mesh, t [3]int) r3.Vec {
	return mesh.UnitNormal(point(m, t[0]), point(m, t[1]), point(m, t[2]))
}

// requireNoIntersections checks every pair of output triangles
func requireNoIntersections(t *testing.T, m *models.Mesh) {
	t.Helper()
	ar := predicates.NewArithmetic()
	for i := range m.Triangles {
		a := m.Triangles[i]
		for j := i + 1; j < len(m.Triangles); j++ {
			b := m.Triangles[j]
			c := ar.TriangleTriangle(point(m, a[0]), point(m, a[1]), point(m, a[2]),
				point(m, b[0]), point(m, b[1]), point(m, b[2]))
			require.NotEqual(t, predicates.Intersect, c, "triangles %d and %d", i, j)
		}
	}
}
