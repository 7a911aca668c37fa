package models

// Mesh is the exchange representation of a triangle surface as handed to and
// returned from the decimation engine by surface extractors, file readers and
// viewers.
type Mesh struct {
	// Points holds the vertex coordinates
	Points [][3]float64

	// Triangles holds indices into Points, one triple per cell
	Triangles [][3]int

	// CellData holds named per-triangle integer arrays such as domain labels.
	// Every array must be parallel to Triangles.
	CellData map[string][]int
}

// NewMesh creates an empty mesh with an initialized cell data map
func NewMesh() *Mesh {
	return &Mesh{
		CellData: make(map[string][]int),
	}
}

// AddPoint appends a point and returns its index
func (m *Mesh) AddPoint(x, y, z float64) int {
	m.Points = append(m.Points, [3]float64{x, y, z})
	return len(m.Points) - 1
}

// AddTriangle appends a triangle and returns its index
func (m *Mesh) AddTriangle(a, b, c int) int {
	m.Triangles = append(m.Triangles, [3]int{a, b, c})
	return len(m.Triangles) - 1
}

// Labels returns the named cell array, or nil if the mesh does not carry it
func (m *Mesh) Labels(name string) []int {
	if m.CellData == nil {
		return nil
	}
	return m.CellData[name]
}

// SetLabels stores a named cell array
func (m *Mesh) SetLabels(name string, labels []int) {
	if m.CellData == nil {
		m.CellData = make(map[string][]int)
	}
	m.CellData[name] = labels
}

// Bounds returns the axis-aligned bounding box of the points
func (m *Mesh) Bounds() (lo, hi [3]float64) {
	if len(m.Points) == 0 {
		return lo, hi
	}
	lo, hi = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < lo[i] {
				lo[i] = p[i]
			}
			if p[i] > hi[i] {
				hi[i] = p[i]
			}
		}
	}
	return lo, hi
}

// LabelVolume represents a segmented 3D image where every voxel carries the
// integer label of the tissue or material it belongs to. Label 0 is background.
type LabelVolume struct {
	// Data is the label data as a 1D array in row-major order
	Data []int

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NewLabelVolume allocates a background-filled volume with unit voxels
func NewLabelVolume(width, height, depth int) *LabelVolume {
	v := &LabelVolume{
		Data:   make([]int, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1, 1, 1
	return v
}

// At returns the label at (x, y, z), or 0 outside the volume
func (v *LabelVolume) At(x, y, z int) int {
	if x < 0 || y < 0 || z < 0 || x >= v.Width || y >= v.Height || z >= v.Depth {
		return 0
	}
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set assigns a label at (x, y, z)
func (v *LabelVolume) Set(x, y, z, label int) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = label
}
