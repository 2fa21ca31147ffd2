package compositor

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix is a 2D affine transform [a b c; d e f] mapping
// (x, y) to (a*x + b*y + c, d*x + e*y + f).
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, tx, 0, 1, ty}
}

// Rotate returns a rotation by angle radians (y axis pointing down, so
// positive angles turn clockwise on screen).
func Rotate(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	return Matrix{cos, -sin, 0, sin, cos, 0}
}

// Scale returns a scaling by (sx, sy).
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, 0, sy, 0}
}

// ShearY returns a vertical shear: y' = y + k*x.
func ShearY(k float64) Matrix {
	return Matrix{1, 0, 0, k, 1, 0}
}

// Mul returns m·n, the transform applying n first and then m.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[3],
		m[0]*n[1] + m[1]*n[4],
		m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3],
		m[3]*n[1] + m[4]*n[4],
		m[3]*n[2] + m[4]*n[5] + m[5],
	}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Aff3 converts the matrix for use with golang.org/x/image/draw.
func (m Matrix) Aff3() f64.Aff3 {
	return f64.Aff3{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// Chain multiplies the transforms left to right: Chain(a, b, c) = a·b·c.
func Chain(ms ...Matrix) Matrix {
	out := Identity()
	for _, m := range ms {
		out = out.Mul(m)
	}
	return out
}
