package svgpdf

import (
	"math"

	"github.com/benoitkugler/svgpage/svgicon"
	"golang.org/x/image/math/fixed"
)

// compute the bouding box of a path, needed to place gradients
// with objectBoundingBox units and the rasterized paints

var _ svgicon.Pather = (*BoundingBox)(nil)

// BoundingBox is a Pather accumulating the extent of the segments
// it receives. Curves are bounded by their extrema, not their control points.
type BoundingBox struct {
	current    fixed.Point26_6
	minX, minY float64
	maxX, maxY float64
	started    bool
}

// PathBounds returns the extent of `path`, or false for an empty path.
func PathBounds(path svgicon.Path) (svgicon.Bounds, bool) {
	var bb BoundingBox
	path.DrawTo(&bb, svgicon.Identity)
	return bb.Bounds()
}

// Bounds returns the accumulated extent, or false if nothing was drawn.
func (b *BoundingBox) Bounds() (svgicon.Bounds, bool) {
	if !b.started {
		return svgicon.Bounds{}, false
	}
	return svgicon.Bounds{X: b.minX, Y: b.minY, W: b.maxX - b.minX, H: b.maxY - b.minY}, true
}

func (b *BoundingBox) add(x, y float64) {
	if !b.started {
		b.minX, b.maxX, b.minY, b.maxY = x, x, y, y
		b.started = true
		return
	}
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
}

func (b *BoundingBox) addCurve(curve bezier) {
	for _, p := range curveExtrema(curve) {
		b.add(p[0], p[1])
	}
}

func (b *BoundingBox) Start(a fixed.Point26_6) {
	b.current = a
	b.add(fixedTof(a))
}

func (b *BoundingBox) Line(c fixed.Point26_6) {
	b.current = c
	b.add(fixedTof(c))
}

func (b *BoundingBox) QuadBezier(c, d fixed.Point26_6) {
	b.addCurve(quadBezier{b.current, c, d})
	b.current = d
}

func (b *BoundingBox) CubeBezier(c, d, e fixed.Point26_6) {
	b.addCurve(cubicBezier{b.current, c, d, e})
	b.current = e
}

func (b *BoundingBox) Stop(bool) {}

type quadBezier [3]fixed.Point26_6

// quadratic polinomial
// x = At^2 + Bt + C
// where
// A = p0 + p2 - 2p1
// B = 2(p1 - p0)
// C = p0
func bezierQuad(p0, p1, p2, t float64) float64 {
	return (p0+p2-2*p1)*t*t + 2*(p1-p0)*t + p0
}

// derivative as at + b where a,b :
func quadraticDerivative(p0, p1, p2 float64) (a, b float64) {
	return 2 * (p2 - p1 - (p1 - p0)), 2 * (p1 - p0)
}

// handle the case where a = 0
func linearRoots(a, b float64) []float64 {
	if a == 0 {
		return nil
	}
	return []float64{-b / a}
}

func (cu quadBezier) criticalPoints() (tX, tY []float64) {
	p0x, p0y := fixedTof(cu[0])
	p1x, p1y := fixedTof(cu[1])
	p2x, p2y := fixedTof(cu[2])

	aX, bX := quadraticDerivative(p0x, p1x, p2x)
	aY, bY := quadraticDerivative(p0y, p1y, p2y)

	return linearRoots(aX, bX), linearRoots(aY, bY)
}

func (cu quadBezier) evaluateCurve(t float64) (x, y float64) {
	p0x, p0y := fixedTof(cu[0])
	p1x, p1y := fixedTof(cu[1])
	p2x, p2y := fixedTof(cu[2])
	return bezierQuad(p0x, p1x, p2x, t), bezierQuad(p0y, p1y, p2y, t)
}

type cubicBezier [4]fixed.Point26_6

func (cu cubicBezier) criticalPoints() (tX, tY []float64) {
	p1x, p1y := fixedTof(cu[0])
	c1x, c1y := fixedTof(cu[1])
	c2x, c2y := fixedTof(cu[2])
	p2x, p2y := fixedTof(cu[3])

	aX, bX, cX := cubicDerivative(p1x, c1x, c2x, p2x)
	aY, bY, cY := cubicDerivative(p1y, c1y, c2y, p2y)

	return quadraticRoots(aX, bX, cX), quadraticRoots(aY, bY, cY)
}

func (cu cubicBezier) evaluateCurve(t float64) (x, y float64) {
	p0x, p0y := fixedTof(cu[0])
	p1x, p1y := fixedTof(cu[1])
	p2x, p2y := fixedTof(cu[2])
	p3x, p3y := fixedTof(cu[3])
	return bezierSpline(p0x, p1x, p2x, p3x, t), bezierSpline(p0y, p1y, p2y, p3y, t)
}

// cubic polinomial
// x = At^3 + Bt^2 + Ct + D
// where A,B,C,D:
// A = p3 -3 * p2 + 3 * p1 - p0
// B = 3 * p2 - 6 * p1 +3 * p0
// C = 3 * p1 - 3 * p0
// D = p0
func bezierSpline(p0, p1, p2, p3, t float64) float64 {
	return (p3-3*p2+3*p1-p0)*t*t*t +
		(3*p2-6*p1+3*p0)*t*t +
		(3*p1-3*p0)*t +
		(p0)
}

// X' = (3*p3-9*p2+9*p1-3*p0)t^2 + (6*p2-12*p1+6*p0)t + (3*p1-3*p0)
// taken as aX^2 + bX + c
func cubicDerivative(p0, p1, p2, p3 float64) (a, b, c float64) {
	return 3*p3 - 9*p2 + 9*p1 - 3*p0, 6*p2 - 12*p1 + 6*p0, 3*p1 - 3*p0
}

func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		return linearRoots(b, c)
	}
	d := b*b - 4*a*c
	switch {
	case d < 0:
		return nil
	case d == 0:
		return []float64{-b / (2 * a)}
	default:
		sq := math.Sqrt(d)
		return []float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
	}
}

type bezier interface {
	// compute the t zeroing the derivative
	criticalPoints() (tX, tY []float64)
	// compute the point a time t
	evaluateCurve(t float64) (x, y float64)
}

// curveExtrema returns the end points of the curve and
// its points where the derivative vanishes.
func curveExtrema(curve bezier) [][2]float64 {
	resX, resY := curve.criticalPoints()

	var out [][2]float64
	for _, t := range append(append(resX, 0, 1), resY...) {
		// filter invalid value
		if !(0 <= t && t <= 1) {
			continue
		}
		x, y := curve.evaluateCurve(t)
		out = append(out, [2]float64{x, y})
	}
	return out
}
