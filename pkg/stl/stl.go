// Package stl reads and writes binary STL files and converts between their
// triangle soup and the indexed meshes used by the decimation engine.
//
// The 16-bit attribute word of every facet carries the domain label of the
// triangle, so multi-domain surfaces survive a round trip through a file.
package stl

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"

	"segmesh/internal/models"
	"segmesh/pkg/mesh"
)

const (
	headerSize = 80
	facetSize  = 50
)

// ErrFormat is returned for files that are not binary STL
var ErrFormat = errors.New("not a binary STL file")

// Triangle represents a single facet of an STL file
type Triangle struct {
	Normal    [3]float32
	Vertex1   [3]float32
	Vertex2   [3]float32
	Vertex3   [3]float32
	Attribute uint16
}

// SaveToSTL writes triangles to a binary STL file
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "creating STL file")
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := Write(w, triangles); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "writing STL file")
}

// Write encodes triangles as binary STL
func Write(w io.Writer, triangles []Triangle) error {
	header := make([]byte, headerSize)
	copy(header, "segmesh binary STL")
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "writing STL header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return errors.Wrap(err, "writing STL facet count")
	}

	buf := make([]byte, facetSize)
	for _, t := range triangles {
		off := 0
		for _, v := range [4][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			for _, c := range v {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(c))
				off += 4
			}
		}
		binary.LittleEndian.PutUint16(buf[off:], t.Attribute)
		if _, err := w.Write(buf); err != nil {
			return errors.Wrap(err, "writing STL facet")
		}
	}
	return nil
}

// LoadSTL reads a binary STL file
func LoadSTL(filename string) ([]Triangle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening STL file")
	}
	defer file.Close()
	return Read(bufio.NewReader(file))
}

// Read decodes binary STL
func Read(r io.Reader) ([]Triangle, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(ErrFormat, "short header")
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(ErrFormat, "missing facet count")
	}

	triangles := make([]Triangle, 0, count)
	buf := make([]byte, facetSize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(ErrFormat, "facet %d of %d is truncated", i, count)
		}
		var t Triangle
		off := 0
		for _, v := range []*[3]float32{&t.Normal, &t.Vertex1, &t.Vertex2, &t.Vertex3} {
			for j := range v {
				v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
				off += 4
			}
		}
		t.Attribute = binary.LittleEndian.Uint16(buf[off:])
		triangles = append(triangles, t)
	}
	return triangles, nil
}

// ToMesh welds the facet corners into shared points and returns the indexed
// mesh. Corners closer than tol become one point; tol of 0 welds only exact
// duplicates. When labelName is not empty the attribute words are stored as
// that label array.
func ToMesh(triangles []Triangle, tol float64, labelName string) *models.Mesh {
	corners := make([]r3.Vec, 0, 3*len(triangles))
	for _, t := range triangles {
		for _, v := range [3][3]float32{t.Vertex1, t.Vertex2, t.Vertex3} {
			corners = append(corners, r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
		}
	}

	index := mesh.NewPointIndex(corners)
	out := models.NewMesh()
	welded := make([]int, len(corners))
	for i := range welded {
		welded[i] = -1
	}
	for i, c := range corners {
		if welded[i] >= 0 {
			continue
		}
		id := out.AddPoint(c.X, c.Y, c.Z)
		welded[i] = id
		for _, j := range index.Within(c, tol) {
			if welded[j] < 0 {
				welded[j] = id
			}
		}
	}

	labels := make([]int, 0, len(triangles))
	for i, t := range triangles {
		out.AddTriangle(welded[3*i], welded[3*i+1], welded[3*i+2])
		labels = append(labels, int(t.Attribute))
	}
	if labelName != "" {
		out.SetLabels(labelName, labels)
	}
	return out
}

// FromMesh expands an indexed mesh into facets with computed normals. Labels
// from labelName, when present, go into the attribute word; labels outside
// 0..65535 cannot be stored and are written as 0.
func FromMesh(m *models.Mesh, labelName string) []Triangle {
	var labels []int
	if labelName != "" {
		labels = m.Labels(labelName)
	}
	vec := func(i int) r3.Vec {
		p := m.Points[i]
		return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	f32 := func(v r3.Vec) [3]float32 {
		return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
	}

	triangles := make([]Triangle, len(m.Triangles))
	unfit := 0
	for i, t := range m.Triangles {
		a, b, c := vec(t[0]), vec(t[1]), vec(t[2])
		triangles[i] = Triangle{
			Normal:  f32(mesh.UnitNormal(a, b, c)),
			Vertex1: f32(a),
			Vertex2: f32(b),
			Vertex3: f32(c),
		}
		if i < len(labels) {
			if labels[i] < 0 || labels[i] > math.MaxUint16 {
				unfit++
				continue
			}
			triangles[i].Attribute = uint16(labels[i])
		}
	}
	if unfit > 0 {
		klog.Warningf("stl: %d labels of %q do not fit the attribute word and were written as 0", unfit, labelName)
	}
	return triangles
}
