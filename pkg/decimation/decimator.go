package decimation

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"segmesh/internal/models"
	"segmesh/pkg/edgequeue"
	"segmesh/pkg/mesh"
	"segmesh/pkg/predicates"
)

// Decimator simplifies triangle surfaces by repeated edge collapse
type Decimator struct {
	params *Params
	ar     *predicates.Arithmetic
}

// NewDecimator creates a decimator. A nil params selects DefaultParams.
func NewDecimator(params *Params) *Decimator {
	if params == nil {
		params = DefaultParams()
	}
	return &Decimator{
		params: params,
		ar:     predicates.NewArithmetic(),
	}
}

// run holds the state of one Process call
type run struct {
	params *Params
	store  *mesh.Store
	oracle *Oracle
	table  *edgequeue.Table
	queue  *edgequeue.Queue
	stats  Statistics
	polled int
}

// Process simplifies the input mesh and returns the result. The input is not
// modified. When ctx is cancelled the run stops between two atomic changes
// and the partial, consistent result is returned together with ctx's error.
func (d *Decimator) Process(ctx context.Context, in *models.Mesh) (*Result, error) {
	p := d.params
	if err := d.validate(in); err != nil {
		return nil, err
	}

	var labels []int
	if p.DomainLabelName != "" {
		labels = in.Labels(p.DomainLabelName)
	}
	store, _, err := mesh.Load(in, labels)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "%v", err)
	}
	if store.LiveTriangleCount() == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "mesh has only degenerate triangles")
	}

	r := &run{params: p, store: store}
	r.stats.InputTriangles = len(in.Triangles)
	r.stats.MeanEdgeLengthBefore, r.stats.StdDevEdgeLengthBefore = edgeLengthStats(store)

	var domains *LabelMap
	if p.DomainLabelName != "" {
		domains = FoldDuplicates(store)
		r.stats.FoldedTriangles = domains.Folded()
	}

	if p.MeshIsManifold {
		store.MarkAllInterior()
	} else if store.ClassifyBoundary() {
		r.stats.InputIsNonmanifold = true
		klog.Warningf("decimation: input mesh is not manifold, affected vertices are kept fixed")
	}

	r.oracle = NewOracle(store, d.ar, p)

	klog.V(2).Infof("decimation: %d triangles, %d vertices, minimum edge length %g",
		store.LiveTriangleCount(), store.NumVertices(), p.MinimumEdgeLength)

	runErr := r.decimate(ctx)
	if runErr == nil && p.FlipEdges {
		runErr = r.flipEdges(ctx)
	}
	if runErr == nil && p.UseMaximumEdgeLength {
		runErr = r.subdivide(ctx)
	}

	aborted := runErr != nil && ctx.Err() != nil
	if runErr != nil && !aborted {
		return nil, runErr
	}

	if domains != nil {
		UnfoldDuplicates(store, domains)
	}
	out := store.ToModel(p.DomainLabelName)

	r.stats.OutputTriangles = len(out.Triangles)
	if r.stats.InputTriangles > 0 {
		r.stats.Reduction = float64(r.stats.InputTriangles-r.stats.OutputTriangles) / float64(r.stats.InputTriangles)
	}
	r.stats.MeanEdgeLengthAfter, r.stats.StdDevEdgeLengthAfter = edgeLengthStats(store)

	klog.V(2).Infof("decimation: %d collapses, %d flips, %d splits, %d -> %d triangles",
		r.stats.NumberOfEdgeCollapses, r.stats.NumberOfEdgeFlips, r.stats.NumberOfEdgeSplits,
		r.stats.InputTriangles, r.stats.OutputTriangles)

	result := &Result{Mesh: out, Stats: r.stats, Aborted: aborted}
	if aborted {
		return result, runErr
	}
	return result, nil
}

// validate rejects meshes the engine cannot process
func (d *Decimator) validate(in *models.Mesh) error {
	if in == nil || len(in.Triangles) == 0 {
		return errors.Wrap(ErrInvalidInput, "mesh has no triangles")
	}
	if len(in.Points) == 0 {
		return errors.Wrap(ErrInvalidInput, "mesh has no points")
	}
	if name := d.params.DomainLabelName; name != "" {
		labels := in.Labels(name)
		if labels == nil {
			return errors.Wrapf(ErrInvalidInput, "label array %q not found", name)
		}
		if len(labels) != len(in.Triangles) {
			return errors.Wrapf(ErrInvalidInput, "label array %q has %d entries for %d triangles",
				name, len(labels), len(in.Triangles))
		}
	}
	if d.params.MinimumEdgeLength < 0 || d.params.MaximumNormalAngleDeviation < 0 {
		return errors.Wrap(ErrInvalidInput, "negative edge length or angle")
	}
	if d.params.UseMaximumEdgeLength && d.params.MaximumEdgeLength <= 0 {
		return errors.Wrap(ErrInvalidInput, "maximum edge length must be positive")
	}
	return nil
}

// poll checks for cancellation and reports progress every PollInterval calls
func (r *run) poll(ctx context.Context, total int, message string) error {
	interval := r.params.PollInterval
	if interval <= 0 {
		interval = 1
	}
	r.polled++
	if (r.polled-1)%interval != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		klog.Warningf("decimation: %s aborted: %v", message, err)
		return errors.Wrap(err, message)
	}
	if r.params.Progress != nil {
		r.params.Progress(r.polled, total, message)
	}
	return nil
}

// decimate collapses every legal edge shorter than MinimumEdgeLength,
// shortest first
func (r *run) decimate(ctx context.Context) error {
	minLen2 := r.params.MinimumEdgeLength * r.params.MinimumEdgeLength
	r.table = edgequeue.NewTable()
	r.queue = edgequeue.NewQueue()
	r.polled = 0

	r.registerAll(func(id edgequeue.EdgeID, len2 float64) {
		if len2 < minLen2 {
			r.queue.Insert(id, len2)
		}
	})
	total := r.queue.Len()

	for !r.queue.IsEmpty() {
		if err := r.poll(ctx, total, "collapsing edges"); err != nil {
			return err
		}
		id, _, _ := r.queue.PopMin()
		a, b := r.table.Endpoints(id)

		switch {
		case r.oracle.CanCollapse(a, b):
			r.collapse(a, b, minLen2)
		case r.oracle.CanCollapse(b, a):
			r.collapse(b, a, minLen2)
		}
	}
	return r.checkInvariants("decimation")
}

// registerAll enters every edge of the store into a fresh table and hands
// each to queue with its squared length
func (r *run) registerAll(queue func(id edgequeue.EdgeID, len2 float64)) {
	s := r.store
	for i := 0; i < s.NumTriangles(); i++ {
		t := mesh.TriangleID(i)
		if !s.IsLiveTriangle(t) {
			continue
		}
		c := s.Triangle(t)
		for j := 0; j < 3; j++ {
			a, b := c[j], c[(j+1)%3]
			if _, ok := r.table.Lookup(a, b); ok {
				continue
			}
			queue(r.table.ID(a, b), r.length2(a, b))
		}
	}
}

func (r *run) length2(a, b mesh.VertexID) float64 {
	l2 := r3.Norm2(r3.Sub(r.store.Point(a), r.store.Point(b)))
	r.oracle.NoteEdge(math.Sqrt(l2))
	return l2
}

// edgesAround returns the distinct edges of every triangle incident to the
// given vertices
func (r *run) edgesAround(vs ...mesh.VertexID) []mesh.EdgeKey {
	seen := make(map[mesh.EdgeKey]bool)
	var out []mesh.EdgeKey
	for _, v := range vs {
		for _, t := range r.store.TrianglesAtVertex(v) {
			c := r.store.Triangle(t)
			for j := 0; j < 3; j++ {
				e := mesh.MakeEdgeKey(c[j], c[(j+1)%3])
				if !seen[e] {
					seen[e] = true
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// collapse merges remove into keep. The edges around both vertices are taken
// out of the table and queue, and the edges around keep are entered again
// afterwards so their priorities reflect the new connectivity. This includes
// short edges popped and found illegal earlier: their neighbourhood has
// changed, so they are judged again. Dropped edges away from keep stay dropped.
func (r *run) collapse(keep, remove mesh.VertexID, minLen2 float64) {
	s := r.store
	for _, e := range r.edgesAround(keep, remove) {
		if id, ok := r.table.Remove(e[0], e[1]); ok {
			r.queue.Remove(id)
		}
	}

	for _, t := range s.TrianglesAtVertex(remove) {
		if s.Contains(t, keep) {
			s.DeleteTriangle(t)
		} else {
			s.ReplaceVertex(t, remove, keep)
		}
	}
	s.KillVertex(remove)

	for _, e := range r.edgesAround(keep) {
		id := r.table.ID(e[0], e[1])
		if l2 := r.length2(e[0], e[1]); l2 < minLen2 {
			r.queue.Insert(id, l2)
		}
	}
	r.stats.NumberOfEdgeCollapses++
}

// checkInvariants verifies the store and that the edge table holds exactly
// the edges of the live triangles
func (r *run) checkInvariants(pass string) error {
	if !r.params.CheckInvariants {
		return nil
	}
	if err := r.store.Validate(); err != nil {
		return errors.Wrapf(ErrInternalInvariant, "after %s: %v", pass, err)
	}
	use := r.store.EdgeUse()
	if len(use) != r.table.Len() {
		return errors.Wrapf(ErrInternalInvariant, "after %s: %d edges in mesh, %d in table",
			pass, len(use), r.table.Len())
	}
	for e := range use {
		if _, ok := r.table.Lookup(e[0], e[1]); !ok {
			return errors.Wrapf(ErrInternalInvariant, "after %s: edge %v missing from table", pass, e)
		}
	}
	return nil
}

// edgeLengthStats returns the mean and standard deviation of the edge lengths
// of the live triangles
func edgeLengthStats(s *mesh.Store) (mean, std float64) {
	use := s.EdgeUse()
	if len(use) == 0 {
		return 0, 0
	}
	lengths := make([]float64, 0, len(use))
	for e := range use {
		lengths = append(lengths, r3.Norm(r3.Sub(s.Point(e[0]), s.Point(e[1]))))
	}
	if len(lengths) == 1 {
		return lengths[0], 0
	}
	return stat.MeanStdDev(lengths, nil)
}
