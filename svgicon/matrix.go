package svgicon

import (
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// Matrix2D represents the affine transformation
//
//	[A C E]
//	[B D F]
//
// It has the same layout as rasterx.Matrix2D, which performs
// the actual computations.
type Matrix2D struct{ A, B, C, D, E, F float64 }

// Identity is the identity transformation.
var Identity = Matrix2D{1, 0, 0, 1, 0, 0}

func (m Matrix2D) rx() rasterx.Matrix2D { return rasterx.Matrix2D(m) }

// Mult returns m * b
func (m Matrix2D) Mult(b Matrix2D) Matrix2D { return Matrix2D(m.rx().Mult(b.rx())) }

// Invert returns the inverse matrix
func (m Matrix2D) Invert() Matrix2D { return Matrix2D(m.rx().Invert()) }

// Translate returns m * T(x, y)
func (m Matrix2D) Translate(x, y float64) Matrix2D { return Matrix2D(m.rx().Translate(x, y)) }

// Scale returns m * S(x, y)
func (m Matrix2D) Scale(x, y float64) Matrix2D { return Matrix2D(m.rx().Scale(x, y)) }

// Rotate returns m * R(theta), with theta in radians
func (m Matrix2D) Rotate(theta float64) Matrix2D { return Matrix2D(m.rx().Rotate(theta)) }

// SkewX returns m skewed along the x axis, with theta in radians
func (m Matrix2D) SkewX(theta float64) Matrix2D { return Matrix2D(m.rx().SkewX(theta)) }

// SkewY returns m skewed along the y axis, with theta in radians
func (m Matrix2D) SkewY(theta float64) Matrix2D { return Matrix2D(m.rx().SkewY(theta)) }

// Transform applies m to the point (x, y)
func (m Matrix2D) Transform(x, y float64) (float64, float64) { return m.rx().Transform(x, y) }

// TransformVector applies the linear part of m to (x, y)
func (m Matrix2D) TransformVector(x, y float64) (float64, float64) {
	return m.rx().TransformVector(x, y)
}

// scaleFactor is the mean scaling of m, used to
// convert lengths such as line widths.
func (m Matrix2D) scaleFactor() float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}

func (m Matrix2D) tFixed(a fixed.Point26_6) fixed.Point26_6 { return m.rx().TFixed(a) }

func (m Matrix2D) trMove(op MoveTo) fixed.Point26_6 { return m.tFixed(fixed.Point26_6(op)) }

func (m Matrix2D) trLine(op LineTo) fixed.Point26_6 { return m.tFixed(fixed.Point26_6(op)) }

func (m Matrix2D) trQuad(op QuadTo) (b, c fixed.Point26_6) {
	return m.tFixed(op[0]), m.tFixed(op[1])
}

func (m Matrix2D) trCubic(op CubicTo) (b, c, d fixed.Point26_6) {
	return m.tFixed(op[0]), m.tFixed(op[1]), m.tFixed(op[2])
}
