// Package mathx provides the double-precision vector primitives shared by
// every other package in the engine.
package mathx

import "github.com/go-gl/mathgl/mgl64"

// Vec3 is a double-precision 3-vector. It is value-semantic: copying a Vec3
// copies its components, and every operation below returns a new value
// rather than mutating the receiver.
//
// Vec3 is a defined type over mgl64.Vec3 rather than a type alias so it can
// carry engine-specific semantics (a zero-safe Normalized, in particular)
// on top of mathgl's array-backed arithmetic.
type Vec3 mgl64.Vec3

// Zero is the additive identity.
var Zero = Vec3{}

// UnitX, UnitY and UnitZ are the standard basis vectors.
var (
	UnitX = Vec3{1, 0, 0}
	UnitY = Vec3{0, 1, 0}
	UnitZ = Vec3{0, 0, 1}
)

// New builds a Vec3 from components.
func New(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func (v Vec3) m() mgl64.Vec3 { return mgl64.Vec3(v) }

// X, Y and Z return the individual components.
func (v Vec3) X() float64 { return v[0] }
func (v Vec3) Y() float64 { return v[1] }
func (v Vec3) Z() float64 { return v[2] }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3(v.m().Add(o.m())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3(v.m().Sub(o.m())) }

// Scale returns v multiplied by a scalar.
func (v Vec3) Scale(s float64) Vec3 { return Vec3(v.m().Mul(s)) }

// Div returns v divided componentwise by a scalar.
func (v Vec3) Div(s float64) Vec3 { return Vec3{v[0] / s, v[1] / s, v[2] / s} }

// Dot returns the scalar dot product.
func (v Vec3) Dot(o Vec3) float64 { return v.m().Dot(o.m()) }

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 { return Vec3(v.m().Cross(o.m())) }

// Norm2 returns the squared Euclidean norm.
func (v Vec3) Norm2() float64 { return v.Dot(v) }

// Norm returns the Euclidean norm.
func (v Vec3) Norm() float64 { return v.m().Len() }

// Normalized returns v scaled to unit length. The zero vector normalizes to
// itself rather than producing NaN components — callers that need a
// fallback direction for a degenerate separation (see rigidsys) must
// detect the zero case explicitly and pick their own default.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Div(n)
}
