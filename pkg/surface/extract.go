// Package surface extracts triangle surfaces from segmented label volumes.
//
// Every voxel face that separates a labelled voxel from a voxel with another
// label becomes two triangles, oriented away from the labelled voxel and
// tagged with its label. A face between two labelled domains is therefore
// emitted twice, once per side with opposite windings, which is the layout the
// decimation engine folds and unfolds when it is given a domain label name.
package surface

import (
	"github.com/plan-systems/klog"

	"segmesh/internal/models"
)

// DefaultLabelName is the label array name used by Extract when none is given
const DefaultLabelName = "domain"

type lattice [3]int

// extractor accumulates the surface of one volume
type extractor struct {
	vol    *models.LabelVolume
	out    *models.Mesh
	points map[lattice]int
	labels []int
}

// Extract builds the boundary surface of every labelled domain in vol. Labels
// are stored under labelName, or DefaultLabelName when it is empty.
func Extract(vol *models.LabelVolume, labelName string) *models.Mesh {
	if labelName == "" {
		labelName = DefaultLabelName
	}
	e := &extractor{
		vol:    vol,
		out:    models.NewMesh(),
		points: make(map[lattice]int),
	}

	for z := 0; z < vol.Depth; z++ {
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				label := vol.At(x, y, z)
				if label == 0 {
					continue
				}
				voxel := lattice{x, y, z}
				for axis := 0; axis < 3; axis++ {
					for _, dir := range []int{-1, 1} {
						n := voxel
						n[axis] += dir
						if vol.At(n[0], n[1], n[2]) != label {
							e.face(voxel, axis, dir, label)
						}
					}
				}
			}
		}
	}

	e.out.SetLabels(labelName, e.labels)
	klog.V(2).Infof("surface: %dx%dx%d volume gave %d points, %d triangles",
		vol.Width, vol.Height, vol.Depth, len(e.out.Points), len(e.out.Triangles))
	return e.out
}

// face emits the two triangles of one voxel face. The corners are always
// enumerated from the same lattice corner so both sides of an interface split
// the face along the same diagonal.
func (e *extractor) face(voxel lattice, axis, dir, label int) {
	u, v := (axis+1)%3, (axis+2)%3
	base := voxel
	if dir > 0 {
		base[axis]++
	}
	a := base
	b := base
	b[u]++
	c := b
	c[v]++
	d := base
	d[v]++

	ia, ib, ic, id := e.point(a), e.point(b), e.point(c), e.point(d)
	if dir > 0 {
		e.triangle(ia, ib, ic, label)
		e.triangle(ia, ic, id, label)
	} else {
		e.triangle(ia, id, ic, label)
		e.triangle(ia, ic, ib, label)
	}
}

func (e *extractor) point(p lattice) int {
	if i, ok := e.points[p]; ok {
		return i
	}
	s := e.vol.VoxelSize
	i := e.out.AddPoint(float64(p[0])*s.X, float64(p[1])*s.Y, float64(p[2])*s.Z)
	e.points[p] = i
	return i
}

func (e *extractor) triangle(a, b, c, label int) {
	e.out.AddTriangle(a, b, c)
	e.labels = append(e.labels, label)
}
