// Package decimation implements the incremental, topology-preserving edge
// collapse simplifier for segmentation surfaces, together with its optional
// Delaunay flip and edge subdivision passes and the folding of duplicate
// interface triangles between material domains.
//
// A run proceeds as follows:
// 1. Validate the input and load it into a mesh store
// 2. Fold coincident triangles of different domains into one representative
// 3. Classify boundary and non-manifold vertices
// 4. Collapse edges shorter than MinimumEdgeLength, cheapest first
// 5. Optionally flip edges that violate the Delaunay criterion
// 6. Optionally split edges longer than MaximumEdgeLength
// 7. Unfold the interface triangles and emit the result
package decimation

import (
	"segmesh/internal/models"
)

// ProgressCallback is a function that reports progress during a pass
type ProgressCallback func(completed, total int, message string)

// Params holds the decimation configuration
type Params struct {
	// MinimumEdgeLength selects collapse candidates: only edges shorter
	// than this are ever collapsed.
	MinimumEdgeLength float64

	// MaximumNormalAngleDeviation bounds, in degrees, how far the normal of a
	// triangle may turn away from its normal in the input mesh as a result of
	// a collapse or flip.
	MaximumNormalAngleDeviation float64

	// IntersectionCheckLevel selects the self-intersection test. 0 disables
	// it; 1 checks the triangles around the collapsed edge; 2 and 3 widen
	// that neighbourhood by one and two rings; 4 searches every triangle near
	// the bounding box of the changed triangles.
	IntersectionCheckLevel int

	// FlipEdges enables the Delaunay flip pass after decimation.
	FlipEdges bool

	// UseMaximumEdgeLength enables the subdivision pass, which splits edges
	// longer than MaximumEdgeLength.
	UseMaximumEdgeLength bool
	MaximumEdgeLength    float64

	// MeshIsManifold skips the boundary/non-manifold classification. Every
	// vertex is then treated as interior.
	MeshIsManifold bool

	// DomainLabelName names the per-triangle label array used to fold and
	// unfold duplicate interface triangles. Empty disables folding.
	DomainLabelName string

	// PollInterval is the number of processed edges between checks of the
	// context and calls of Progress.
	PollInterval int

	// Progress is called every PollInterval processed edges when set.
	Progress ProgressCallback

	// CheckInvariants validates the store and edge table after each pass
	// and fails the run with ErrInternalInvariant on a mismatch.
	CheckInvariants bool
}

// DefaultParams returns the parameters used when nothing is configured
func DefaultParams() *Params {
	return &Params{
		MinimumEdgeLength:           1.0,
		MaximumNormalAngleDeviation: 30.0,
		IntersectionCheckLevel:      1,
		PollInterval:                1000,
	}
}

// Statistics reports what a run did
type Statistics struct {
	// NumberOfEdgeCollapses is the number of collapses applied
	NumberOfEdgeCollapses int

	// NumberOfEdgeFlips is the number of Delaunay flips applied
	NumberOfEdgeFlips int

	// NumberOfEdgeSplits is the number of edges subdivided
	NumberOfEdgeSplits int

	// InputTriangles and OutputTriangles count the cells handed in and out
	InputTriangles  int
	OutputTriangles int

	// Reduction is the fraction of input triangles that were removed
	Reduction float64

	// InputIsNonmanifold is set when the input had an edge shared by more
	// than two triangles or a vertex whose fan was not connected
	InputIsNonmanifold bool

	// FoldedTriangles is the number of duplicate interface triangles folded
	FoldedTriangles int

	// Edge length statistics of the input and output meshes
	MeanEdgeLengthBefore   float64
	StdDevEdgeLengthBefore float64
	MeanEdgeLengthAfter    float64
	StdDevEdgeLengthAfter  float64
}

// Result is the outcome of a run
type Result struct {
	// Mesh is the simplified surface
	Mesh *models.Mesh

	// Stats describes what was done
	Stats Statistics

	// Aborted is set when the context was cancelled before the run finished.
	// Mesh is then the consistent state reached so far.
	Aborted bool
}
