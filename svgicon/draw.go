package svgicon

import (
	"math"

	"golang.org/x/image/math/fixed"
)

// Pather receives the segments of a path, whose points
// are already expressed in device space.
type Pather interface {
	// Start opens a new subpath at `a`.
	Start(a fixed.Point26_6)
	// Line adds a segment from the current point to `b`.
	Line(b fixed.Point26_6)
	// QuadBezier adds a quadratic curve with control point `b`, ending at `c`.
	QuadBezier(b, c fixed.Point26_6)
	// CubeBezier adds a cubic curve with control points `b` and `c`, ending at `d`.
	CubeBezier(b, c, d fixed.Point26_6)
	// Stop ends the current subpath, closing it when `closeLoop` is true.
	Stop(closeLoop bool)
}

// Drawer accumulates a path and paints it. It has no knowledge
// of SVG: styles are resolved and transforms applied before
// the calls reach it.
type Drawer interface {
	Pather

	// Clear resets the accumulated path.
	Clear()
	// SetColor sets the paint of the next Draw call.
	SetColor(color Pattern, opacity float64)
	// Draw paints the accumulated path.
	Draw()
}

// Filler paints the interior of paths.
type Filler interface {
	Drawer
	SetWinding(useNonZeroWinding bool)
}

// Stroker paints the outline of paths.
type Stroker interface {
	Drawer
	SetStrokeOptions(options StrokeOptions)
}

// Driver is implemented by the rendering backends (raster, PDF).
type Driver interface {
	// SetupDrawers is called once per path, and must return
	// nil for the operations not requested.
	// When both are requested, the same path is sent to the Filler,
	// then to the Stroker.
	SetupDrawers(willFill, willStroke bool) (Filler, Stroker)
}

// DashOptions describes a dash pattern, in device space.
// An empty Dash means a solid line.
type DashOptions struct {
	Dash       []float64
	DashOffset float64
}

// JoinMode specifies how segments join.
type JoinMode uint8

const (
	Arc JoinMode = iota // SVG2
	Round
	Bevel
	Miter
	MiterClip // SVG2
	ArcClip   // MiterClip applied to arcs, not standard
)

var joinNames = [...]string{"Arc", "Round", "Bevel", "Miter", "MiterClip", "ArcClip"}

func (s JoinMode) String() string {
	if int(s) < len(joinNames) {
		return joinNames[s]
	}
	return "<unknown JoinMode>"
}

// CapMode specifies the shape of line ends.
type CapMode uint8

const (
	NilCap CapMode = iota // not set
	ButtCap
	SquareCap
	RoundCap
	CubicCap     // not standard
	QuadraticCap // not standard
)

var capNames = [...]string{"NilCap", "ButtCap", "SquareCap", "RoundCap", "CubicCap", "QuadraticCap"}

func (c CapMode) String() string {
	if int(c) < len(capNames) {
		return capNames[c]
	}
	return "<unknown CapMode>"
}

// GapMode specifies how the gap on the outer side of a join is filled
// when the miter limit is exceeded. Not standard.
type GapMode uint8

const (
	NilGap GapMode = iota // not set
	FlatGap
	RoundGap
	CubicGap
	QuadraticGap
)

// JoinOptions groups the join and cap settings of a stroke.
// A NilCap lead cap means the trail cap is used at both ends.
type JoinOptions struct {
	MiterLimit   fixed.Int26_6
	LineJoin     JoinMode
	TrailLineCap CapMode
	LeadLineCap  CapMode
	LineGap      GapMode
}

// StrokeOptions is the resolved stroke style, in device space.
type StrokeOptions struct {
	LineWidth fixed.Int26_6
	Join      JoinOptions
	Dash      DashOptions
}

// DefaultStyle is the initial style of the document: opaque black fill
// with the nonzero rule, no stroke, butt caps and miter joins.
var DefaultStyle = PathStyle{
	FillOpacity:       1,
	LineOpacity:       1,
	LineWidth:         1,
	UseNonZeroWinding: true,
	Join: JoinOptions{
		MiterLimit:   fToFixed(4),
		LineJoin:     Miter,
		TrailLineCap: ButtCap,
		LineGap:      FlatGap,
	},
	FillerColor: NewPlainColor(0, 0, 0, 0xff),
	transform:   Identity,
	color:       optionnalColor{valid: true, color: NewPlainColor(0, 0, 0, 0xff)},
	font:        fontStyle{size: defaultFontSize},
}

// SetTarget maps the view box on the rectangle (x, y, w, h),
// according to the AspectRatio of the icon.
func (s *SvgIcon) SetTarget(x, y, w, h float64) {
	sx, sy := w/s.ViewBox.W, h/s.ViewBox.H
	if ar := s.AspectRatio; !ar.None {
		if ar.Slice {
			sx = math.Max(sx, sy)
		} else {
			sx = math.Min(sx, sy)
		}
		sy = sx
		x += (w - s.ViewBox.W*sx) * ar.X.fraction()
		y += (h - s.ViewBox.H*sy) * ar.Y.fraction()
	}
	s.Transform = Identity.Translate(x, y).
		Scale(sx, sy).
		Translate(-s.ViewBox.X, -s.ViewBox.Y)
}

// Draw sends every path of the icon to `d`, in document order.
// `opacity` multiplies the opacity of each path.
func (s *SvgIcon) Draw(d Driver, opacity float64) {
	for i := range s.SVGPaths {
		s.SVGPaths[i].drawTransformed(d, opacity, s.Transform)
	}
}

// paint returns the pattern to use with the transform `M`,
// or nil if nothing should be painted.
func paint(p Pattern, M Matrix2D) Pattern {
	grad, ok := p.(Gradient)
	if !ok {
		return p
	}
	if len(grad.Stops) == 0 {
		return nil
	}
	return grad.transformed(M)
}

// strokeOptions resolves the stroke style of `style` under `M`,
// filling the unset caps and gaps with the defaults.
func (style PathStyle) strokeOptions(M Matrix2D) StrokeOptions {
	join := style.Join
	if join.LineGap == NilGap {
		join.LineGap = DefaultStyle.Join.LineGap
	}
	if join.TrailLineCap == NilCap {
		join.TrailLineCap = DefaultStyle.Join.TrailLineCap
	}
	if join.LeadLineCap == NilCap {
		join.LeadLineCap = join.TrailLineCap
	}

	scale := M.scaleFactor()
	dash := DashOptions{DashOffset: style.Dash.DashOffset * scale}
	if len(style.Dash.Dash) != 0 {
		dash.Dash = make([]float64, len(style.Dash.Dash))
		for i, v := range style.Dash.Dash {
			dash.Dash[i] = v * scale
		}
	}
	return StrokeOptions{LineWidth: fToFixed(style.LineWidth * scale), Join: join, Dash: dash}
}

// drawTransformed sends the path to the driver, under the transform `t`
// composed with the path transform.
func (svgp *SvgPath) drawTransformed(d Driver, opacity float64, t Matrix2D) {
	style := svgp.Style
	M := t.Mult(style.transform)

	fillColor, lineColor := paint(style.FillerColor, M), paint(style.LinerColor, M)
	if style.LineWidth*M.scaleFactor() <= 0 {
		lineColor = nil
	}
	filler, stroker := d.SetupDrawers(fillColor != nil, lineColor != nil)

	if filler != nil {
		filler.Clear()
		filler.SetWinding(style.UseNonZeroWinding)
		svgp.Path.DrawTo(filler, M)
		filler.SetColor(fillColor, style.FillOpacity*opacity)
		filler.Draw()
		filler.SetWinding(true)
	}

	if stroker != nil {
		stroker.Clear()
		stroker.SetStrokeOptions(style.strokeOptions(M))
		svgp.Path.DrawTo(stroker, M)
		stroker.SetColor(lineColor, style.LineOpacity*opacity)
		stroker.Draw()
	}
}
