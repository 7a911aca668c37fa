package decimation

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput is returned before any processing when the mesh is
	// empty, references missing points or lacks the requested label array
	ErrInvalidInput = errors.New("invalid input mesh")

	// ErrInternalInvariant is returned when CheckInvariants finds the store
	// and the edge table out of step. It indicates a bug.
	ErrInternalInvariant = errors.New("internal invariant violated")
)
