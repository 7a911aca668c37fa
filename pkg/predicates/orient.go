// Package predicates implements orientation tests whose sign is always correct
// despite floating-point rounding, and a triangle-triangle contact classifier
// built on top of them.
//
// Each predicate first evaluates the determinant in float64 and accepts the
// result when its magnitude exceeds a static forward error bound. Uncertain
// cases are re-evaluated with multiple-precision arithmetic, which is exact
// for the products and sums involved.
package predicates

import (
	"math"
	"math/big"

	"github.com/golang/geo/r3"
	gr3 "gonum.org/v1/gonum/spatial/r3"
)

// Arithmetic holds the machine constants of the floating-point unit and the
// error bounds derived from them. It carries no other state and may be shared.
type Arithmetic struct {
	epsilon      float64
	o2dErrBoundA float64
	o3dErrBoundA float64
}

// NewArithmetic measures the machine epsilon and derives the error bounds of
// the float filters
func NewArithmetic() *Arithmetic {
	half := 0.5
	epsilon, check := 1.0, 1.0
	for {
		lastCheck := check
		epsilon *= half
		check = 1.0 + epsilon
		if check == 1.0 || check == lastCheck {
			break
		}
	}

	return &Arithmetic{
		epsilon:      epsilon,
		o2dErrBoundA: (3.0 + 16.0*epsilon) * epsilon,
		o3dErrBoundA: (7.0 + 56.0*epsilon) * epsilon,
	}
}

// Epsilon returns the largest power of two such that 1 + Epsilon rounds to 1.
// It is the tolerance used to perturb degenerate reference points.
func (ar *Arithmetic) Epsilon() float64 {
	return ar.epsilon
}

// Orient3D returns a value whose sign is positive when d lies below the plane
// through a, b and c (a, b, c appear counterclockwise seen from above), negative
// when it lies above, and zero when the four points are coplanar. The
// magnitude approximates six times the signed volume of the tetrahedron.
func (ar *Arithmetic) Orient3D(a, b, c, d gr3.Vec) float64 {
	adx, bdx, cdx := a.X-d.X, b.X-d.X, c.X-d.X
	ady, bdy, cdy := a.Y-d.Y, b.Y-d.Y, c.Y-d.Y
	adz, bdz, cdz := a.Z-d.Z, b.Z-d.Z, c.Z-d.Z

	bdxcdy, cdxbdy := bdx*cdy, cdx*bdy
	cdxady, adxcdy := cdx*ady, adx*cdy
	adxbdy, bdxady := adx*bdy, bdx*ady

	det := adz*(bdxcdy-cdxbdy) + bdz*(cdxady-adxcdy) + cdz*(adxbdy-bdxady)

	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*math.Abs(adz) +
		(math.Abs(cdxady)+math.Abs(adxcdy))*math.Abs(bdz) +
		(math.Abs(adxbdy)+math.Abs(bdxady))*math.Abs(cdz)
	errBound := ar.o3dErrBoundA * permanent
	if det > errBound || -det > errBound {
		return det
	}
	return orient3DExact(a, b, c, d)
}

func orient3DExact(a, b, c, d gr3.Vec) float64 {
	pd := r3.NewPreciseVector(d.X, d.Y, d.Z)
	pa := r3.NewPreciseVector(a.X, a.Y, a.Z).Sub(pd)
	pb := r3.NewPreciseVector(b.X, b.Y, b.Z).Sub(pd)
	pc := r3.NewPreciseVector(c.X, c.Y, c.Z).Sub(pd)

	det := pa.Dot(pb.Cross(pc))
	f, _ := det.Float64()
	if f == 0 && det.Sign() != 0 {
		// underflow; keep the sign
		return math.Copysign(math.SmallestNonzeroFloat64, float64(det.Sign()))
	}
	return f
}

// Orient2D returns a positive value when a, b, c occur in counterclockwise
// order, negative when clockwise and zero when collinear
func (ar *Arithmetic) Orient2D(a, b, c [2]float64) float64 {
	detLeft := (a[0] - c[0]) * (b[1] - c[1])
	detRight := (a[1] - c[1]) * (b[0] - c[0])
	det := detLeft - detRight

	errBound := ar.o2dErrBoundA * (math.Abs(detLeft) + math.Abs(detRight))
	if det > errBound || -det > errBound {
		return det
	}
	return orient2DExact(a, b, c)
}

func newBigFloat(x float64) *big.Float {
	return new(big.Float).SetPrec(big.MaxPrec).SetFloat64(x)
}

func orient2DExact(a, b, c [2]float64) float64 {
	acx := newBigFloat(a[0])
	acx.Sub(acx, newBigFloat(c[0]))
	bcy := newBigFloat(b[1])
	bcy.Sub(bcy, newBigFloat(c[1]))
	acy := newBigFloat(a[1])
	acy.Sub(acy, newBigFloat(c[1]))
	bcx := newBigFloat(b[0])
	bcx.Sub(bcx, newBigFloat(c[0]))

	left := newBigFloat(0).Mul(acx, bcy)
	right := newBigFloat(0).Mul(acy, bcx)
	det := newBigFloat(0).Sub(left, right)

	f, _ := det.Float64()
	if f == 0 && det.Sign() != 0 {
		return math.Copysign(math.SmallestNonzeroFloat64, float64(det.Sign()))
	}
	return f
}

// sign maps a determinant to -1, 0 or +1
func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
