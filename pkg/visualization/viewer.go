// Package visualization renders quick-look snapshots of decimated surfaces.
// Triangles are projected orthographically along one coordinate axis, painted
// back to front and coloured by their domain label, so the effect of a run
// can be checked without a 3D viewer.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/internal/models"
	"segmesh/pkg/mesh"
)

const margin = 4

// Viewer renders snapshots of one mesh
type Viewer struct {
	// mesh is the surface being rendered
	mesh *models.Mesh

	// labels holds the per-triangle domain labels, or nil
	labels []int

	// size is the length in pixels of the longer image side
	size int

	// Background fills the pixels no triangle covers
	Background color.Color
}

// NewViewer creates a viewer for m. Triangles are coloured by the label array
// labelName when the mesh carries it and drawn in one colour otherwise.
func NewViewer(m *models.Mesh, labelName string, size int) *Viewer {
	if size <= 2*margin {
		size = 512
	}
	return &Viewer{
		mesh:       m,
		labels:     m.Labels(labelName),
		size:       size,
		Background: color.White,
	}
}

// axes returns the two image axes and the depth axis for a view direction
func axes(axis string) (u, w, depth int, err error) {
	switch axis {
	case "x", "X":
		return 1, 2, 0, nil
	case "y", "Y":
		return 2, 0, 1, nil
	case "z", "Z":
		return 0, 1, 2, nil
	}
	return 0, 0, 0, errors.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// LabelColor returns the base colour used for a domain label
func LabelColor(label int) colorful.Color {
	hue := math.Mod(float64(label)*137.508, 360)
	return colorful.Hsv(hue, 0.55, 0.95)
}

// Render draws the mesh as seen from the positive side of axis, looking
// towards the origin
func (v *Viewer) Render(axis string) (image.Image, error) {
	u, w, depth, err := axes(axis)
	if err != nil {
		return nil, err
	}
	if len(v.mesh.Triangles) == 0 {
		return nil, errors.New("mesh has no triangles")
	}

	lo, hi := v.mesh.Bounds()
	extent := math.Max(hi[u]-lo[u], hi[w]-lo[w])
	if extent == 0 {
		extent = 1
	}
	scale := float64(v.size-2*margin) / extent
	width := int(math.Ceil((hi[u]-lo[u])*scale)) + 2*margin
	height := int(math.Ceil((hi[w]-lo[w])*scale)) + 2*margin

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(v.Background), image.Point{}, draw.Src)

	// far triangles first
	order := make([]int, len(v.mesh.Triangles))
	keys := make([]float64, len(v.mesh.Triangles))
	for i, t := range v.mesh.Triangles {
		order[i] = i
		for _, p := range t {
			keys[i] += v.mesh.Points[p][depth]
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })

	view := r3.Vec{}
	switch depth {
	case 0:
		view.X = 1
	case 1:
		view.Y = 1
	default:
		view.Z = 1
	}

	z := vector.NewRasterizer(width, height)
	for _, i := range order {
		t := v.mesh.Triangles[i]
		var corners [3]r3.Vec
		for j, p := range t {
			q := v.mesh.Points[p]
			corners[j] = r3.Vec{X: q[0], Y: q[1], Z: q[2]}
		}
		n := mesh.UnitNormal(corners[0], corners[1], corners[2])
		shade := 0.25 + 0.75*math.Abs(r3.Dot(n, view))

		base := LabelColor(0)
		if i < len(v.labels) {
			base = LabelColor(v.labels[i])
		}
		h, s, val := base.Hsv()
		fill := colorful.Hsv(h, s, val*shade).Clamped()

		z.Reset(width, height)
		for j, p := range t {
			q := v.mesh.Points[p]
			x := float32(margin + (q[u]-lo[u])*scale)
			y := float32(margin + (q[w]-lo[w])*scale)
			if j == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
		z.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{})
	}

	// image rows grow downwards
	return imaging.FlipV(img), nil
}

// SaveSnapshot saves an image; the format follows the file extension
func (v *Viewer) SaveSnapshot(img image.Image, filename string) error {
	return errors.Wrapf(imaging.Save(img, filename), "saving snapshot %s", filename)
}

// SaveSnapshotSequence renders the mesh along every axis and saves the images
// as <prefix>_<axis>.png in outputDir
func (v *Viewer) SaveSnapshotSequence(outputDir, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrap(err, "creating snapshot directory")
	}

	for _, axis := range []string{"x", "y", "z"} {
		img, err := v.Render(axis)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", prefix, axis))
		if err := v.SaveSnapshot(img, filename); err != nil {
			return err
		}
	}

	return nil
}
