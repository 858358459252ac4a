// Alternative implementation of PDF rendering, writing the
// content stream with github.com/benoitkugler/pdf/contentstream
// instead of gofpdf.
//
// Pad gradients with a uniform opacity are written as shadings,
// whatever their number of stops.
package alt

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/benoitkugler/pdf/contentstream"
	"github.com/benoitkugler/pdf/model"
	"github.com/benoitkugler/svgpage/pdfdoc"
	"github.com/benoitkugler/svgpage/svgicon"
	"github.com/benoitkugler/svgpage/svgpdf"
	"github.com/benoitkugler/svgpage/svgraster"
	"golang.org/x/image/math/fixed"
)

// assert interface conformance
var (
	_ svgicon.Driver  = (*Renderer)(nil)
	_ svgicon.Filler  = (*filler)(nil)
	_ svgicon.Stroker = (*stroker)(nil)
)

// the content stream writer switches to exponents
// outside of this range, which PDF does not support
const (
	maxNumber = 1e6 - 1
	minNumber = 1e-4
)

// Renderer writes to a contentstream.Appearance,
// whose y axis must be flipped to match the SVG one.
type Renderer struct {
	pdf *contentstream.Appearance

	fillOpacityStates   map[float64]*model.GraphicState
	strokeOpacityStates map[float64]*model.GraphicState

	// resolution of the rasterized paints,
	// in pixels per page unit
	pixelsPerUnit float64
	err           error

	filler  filler
	stroker stroker
}

// NewRenderer return a renderer which will
// write to the given `cs`.
func NewRenderer(cs *contentstream.Appearance, pixelsPerUnit float64) *Renderer {
	r := &Renderer{
		pdf:                 cs,
		fillOpacityStates:   make(map[float64]*model.GraphicState),
		strokeOpacityStates: make(map[float64]*model.GraphicState),
		pixelsPerUnit:       pixelsPerUnit,
	}
	r.filler.r = r
	r.stroker.r = r
	return r
}

// Err returns the first error met while painting.
func (r *Renderer) Err() error { return r.err }

func (r *Renderer) setError(err error) {
	if r.err == nil {
		r.err = err
	}
}

// SetupDrawers implements svgicon.Driver
func (r *Renderer) SetupDrawers(willFill, willStroke bool) (f svgicon.Filler, s svgicon.Stroker) {
	if willFill {
		f = &r.filler
	}
	if willStroke {
		s = &r.stroker
	}
	return f, s
}

// the path is buffered until its paint is known
type filler struct {
	svgicon.Path
	r                 *Renderer
	useNonZeroWinding bool
	pattern           svgicon.Pattern
	opacity           float64
}

func (f *filler) SetWinding(useNonZeroWinding bool) { f.useNonZeroWinding = useNonZeroWinding }

func (f *filler) SetColor(pattern svgicon.Pattern, opacity float64) {
	f.pattern, f.opacity = pattern, opacity
}

func (f *filler) Draw() { f.r.fill(f.Path, f.pattern, f.opacity, f.useNonZeroWinding) }

type stroker struct {
	svgicon.Path
	r       *Renderer
	options svgicon.StrokeOptions
	pattern svgicon.Pattern
	opacity float64
}

func (s *stroker) SetStrokeOptions(options svgicon.StrokeOptions) { s.options = options }

func (s *stroker) SetColor(pattern svgicon.Pattern, opacity float64) {
	s.pattern, s.opacity = pattern, opacity
}

func (s *stroker) Draw() { s.r.stroke(s.Path, s.pattern, s.opacity, s.options) }

func fixedTof(a fixed.Point26_6) (float64, float64) {
	return float64(a.X) / 64, float64(a.Y) / 64
}

// pather writes the path construction operators
type pather struct {
	pdf     *contentstream.Appearance
	current fixed.Point26_6
}

func (p *pather) Start(a fixed.Point26_6) {
	x, y := fixedTof(a)
	p.pdf.Ops(contentstream.OpMoveTo{X: x, Y: y})
	p.current = a
}

func (p *pather) Line(b fixed.Point26_6) {
	x, y := fixedTof(b)
	p.pdf.Ops(contentstream.OpLineTo{X: x, Y: y})
	p.current = b
}

// QuadBezier is elevated to a cubic curve ('v' is not a quadratic curve)
func (p *pather) QuadBezier(b, c fixed.Point26_6) {
	x0, y0 := fixedTof(p.current)
	qx, qy := fixedTof(b)
	x, y := fixedTof(c)
	p.pdf.Ops(contentstream.OpCubicTo{
		X1: x0 + 2./3*(qx-x0), Y1: y0 + 2./3*(qy-y0),
		X2: x + 2./3*(qx-x), Y2: y + 2./3*(qy-y),
		X3: x, Y3: y,
	})
	p.current = c
}

func (p *pather) CubeBezier(b, c, d fixed.Point26_6) {
	cx0, cy0 := fixedTof(b)
	cx1, cy1 := fixedTof(c)
	x, y := fixedTof(d)
	p.pdf.Ops(contentstream.OpCubicTo{X1: cx0, Y1: cy0, X2: cx1, Y2: cy1, X3: x, Y3: y})
	p.current = d
}

func (p *pather) Stop(closeLoop bool) {
	if closeLoop {
		p.pdf.Ops(contentstream.OpClosePath{})
	}
}

func (r *Renderer) writePath(path svgicon.Path) {
	path.DrawTo(&pather{pdf: r.pdf}, svgicon.Identity)
}

// quantize avoids exponents and useless states
func quantize(alpha float64) float64 {
	return math.Round(math.Max(0, math.Min(1, alpha))*255) / 255
}

// cache the opacity states
func (r *Renderer) setFillAlpha(alpha float64) {
	alpha = quantize(alpha)
	gs, ok := r.fillOpacityStates[alpha]
	if !ok {
		gs = &model.GraphicState{Ca: model.ObjFloat(alpha), BM: []model.Name{"Normal"}}
		r.fillOpacityStates[alpha] = gs
	}
	r.pdf.SetGraphicState(gs)
}

func (r *Renderer) setStrokeAlpha(alpha float64) {
	alpha = quantize(alpha)
	gs, ok := r.strokeOpacityStates[alpha]
	if !ok {
		gs = &model.GraphicState{CA: model.ObjFloat(alpha), BM: []model.Name{"Normal"}}
		r.strokeOpacityStates[alpha] = gs
	}
	r.pdf.SetGraphicState(gs)
}

func (r *Renderer) fill(path svgicon.Path, pattern svgicon.Pattern, opacity float64, useNonZeroWinding bool) {
	if len(path) == 0 {
		return
	}
	switch pattern := pattern.(type) {
	case svgicon.PlainColor:
		r.pdf.SetColorFill(pattern)
		r.setFillAlpha(opacity * float64(pattern.A) / 255)
		r.writePath(path)
		if useNonZeroWinding {
			r.pdf.Ops(contentstream.OpFill{})
		} else {
			r.pdf.Ops(contentstream.OpEOFill{})
		}
	case svgicon.Gradient:
		bbox, ok := svgpdf.PathBounds(path)
		if !ok || bbox.W <= 0 || bbox.H <= 0 { // nothing to fill
			return
		}
		if sh, ok := newShading(pattern, bbox); ok {
			r.fillShading(path, sh, opacity, useNonZeroWinding)
			return
		}
		r.paintImage(path, bbox, svgraster.PathPaint{Pattern: pattern, Opacity: opacity, UseNonZeroWinding: useNonZeroWinding})
	}
}

var (
	capStyles = [...]uint8{
		svgicon.NilCap:       0,
		svgicon.ButtCap:      0,
		svgicon.SquareCap:    2,
		svgicon.RoundCap:     1,
		svgicon.CubicCap:     1,
		svgicon.QuadraticCap: 1,
	}
	joinStyles = [...]uint8{
		svgicon.Arc:       1,
		svgicon.Round:     1,
		svgicon.Bevel:     2,
		svgicon.Miter:     0,
		svgicon.MiterClip: 0,
		svgicon.ArcClip:   1,
	}
)

func (r *Renderer) setStrokeOptions(options svgicon.StrokeOptions) {
	var capStyle, joinStyle uint8
	if int(options.Join.TrailLineCap) < len(capStyles) {
		capStyle = capStyles[options.Join.TrailLineCap]
	}
	if int(options.Join.LineJoin) < len(joinStyles) {
		joinStyle = joinStyles[options.Join.LineJoin]
	}
	dash := model.DashPattern{Array: svgpdf.ValidDashes(options.Dash.Dash)}
	if dash.Array != nil {
		dash.Phase = options.Dash.DashOffset
	}
	r.pdf.Ops(
		contentstream.OpSetDash{Dash: dash},
		contentstream.OpSetLineWidth{W: float64(options.LineWidth) / 64},
		contentstream.OpSetLineCap{Style: capStyle},
		contentstream.OpSetLineJoin{Style: joinStyle},
		contentstream.OpSetMiterLimit{Limit: math.Max(1, float64(options.Join.MiterLimit)/64)},
	)
}

func (r *Renderer) stroke(path svgicon.Path, pattern svgicon.Pattern, opacity float64, options svgicon.StrokeOptions) {
	if len(path) == 0 {
		return
	}
	switch pattern := pattern.(type) {
	case svgicon.PlainColor:
		r.pdf.SetColorStroke(pattern)
		r.setStrokeAlpha(opacity * float64(pattern.A) / 255)
		r.setStrokeOptions(options)
		r.writePath(path)
		r.pdf.Ops(contentstream.OpStroke{})
	case svgicon.Gradient:
		bbox, ok := svgpdf.PathBounds(path)
		if !ok {
			return
		}
		m := svgpdf.StrokeMargin(options)
		bbox = svgicon.Bounds{X: bbox.X - m, Y: bbox.Y - m, W: bbox.W + 2*m, H: bbox.H + 2*m}
		r.paintImage(path, bbox, svgraster.PathPaint{Pattern: pattern, Opacity: opacity, Stroke: &options})
	}
}

// paintImage rasterizes the paint of path, restricted to `region`,
// and draws the result as an image.
func (r *Renderer) paintImage(path svgicon.Path, region svgicon.Bounds, paint svgraster.PathPaint) {
	img, err := svgraster.PaintPath(path, region, r.pixelsPerUnit, paint)
	if err != nil {
		r.setError(err)
		return
	}
	var buf bytes.Buffer
	if err = svgraster.Encode(&buf, img, svgraster.PNG); err != nil {
		r.setError(err)
		return
	}
	// the transparency is stored in a soft mask
	xobj, _, err := contentstream.ParseImage(&buf, "image/png")
	if err != nil {
		r.setError(err)
		return
	}
	r.setFillAlpha(1) // opacity is part of the image
	// images are drawn bottom up
	r.pdf.AddXObjectDims(xobj, region.X, region.Y+region.H, region.W, -region.H)
}

// shading is a pad gradient with a uniform opacity,
// expressed in gradient space
type shading struct {
	dict  *model.ShadingDict
	alpha float64
	// gradient space to device space
	matrix svgicon.Matrix2D
}

// writable returns false if one of the values
// can't be written in a content stream
func writable(values ...float64) bool {
	for _, v := range values {
		a := math.Abs(v)
		if math.IsNaN(v) || a > maxNumber || (a != 0 && a < minNumber) {
			return false
		}
	}
	return true
}

func colorArray(c color.NRGBA) []model.Fl {
	return []model.Fl{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
}

// newShading returns false if the gradient can't be expressed as a PDF shading:
// it requires a pad spread and stops with the same opacity.
// Radial gradients must also have their focal circle inside the end circle.
// `bbox` is the extent of the painted path, in device space.
func newShading(grad svgicon.Gradient, bbox svgicon.Bounds) (shading, bool) {
	if grad.Spread != svgicon.PadSpread || len(grad.Stops) < 2 {
		return shading{}, false
	}
	stops := append([]svgicon.GradStop(nil), grad.Stops...)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Offset < stops[j].Offset })
	colors := make([]color.NRGBA, len(stops))
	var alpha float64
	for i, stop := range stops {
		if stop.StopColor == nil {
			return shading{}, false
		}
		c := color.NRGBAModel.Convert(stop.StopColor).(color.NRGBA)
		a := stop.Opacity * float64(c.A) / 255
		if i == 0 {
			alpha = a
		} else if math.Abs(a-alpha) > 1./255 {
			return shading{}, false
		}
		c.A = 0xff
		colors[i] = c
		stops[i].Offset = math.Max(0, math.Min(1, stop.Offset))
	}

	// one interpolation per interval, constant before the first
	// and after the last stop
	if stops[0].Offset > 0 {
		stops = append([]svgicon.GradStop{{Offset: 0}}, stops...)
		colors = append([]color.NRGBA{colors[0]}, colors...)
	}
	if last := len(stops) - 1; stops[last].Offset < 1 {
		stops = append(stops, svgicon.GradStop{Offset: 1})
		colors = append(colors, colors[last])
	}
	functions := make([]model.FunctionDict, len(stops)-1)
	bounds := make([]model.Fl, len(stops)-2)
	for i := range functions {
		functions[i] = model.FunctionDict{
			Domain:       []model.Range{{0, 1}},
			FunctionType: model.FunctionExpInterpolation{C0: colorArray(colors[i]), C1: colorArray(colors[i+1]), N: 1},
		}
		if i != 0 {
			bounds[i-1] = stops[i].Offset
		}
	}
	if !writable(bounds...) {
		return shading{}, false
	}
	base := model.BaseGradient{
		Function: []model.FunctionDict{{
			Domain: []model.Range{{0, 1}},
			FunctionType: model.FunctionStitching{
				Functions: functions,
				Bounds:    bounds,
				Encode:    model.FunctionEncodeRepeat(len(functions)),
			},
		}},
		Extend: [2]bool{true, true},
	}

	// gradient space to device space
	gradToDevice := grad.Matrix
	if grad.Units == svgicon.ObjectBoundingBox {
		gradToDevice = svgicon.Identity.Translate(bbox.X, bbox.Y).Scale(bbox.W, bbox.H).Mult(grad.Matrix)
	}
	m := gradToDevice
	if det := m.A*m.D - m.B*m.C; math.Abs(det) < 1e-12 || !writable(m.A, m.B, m.C, m.D, m.E, m.F) {
		return shading{}, false
	}

	sh := shading{alpha: alpha, matrix: gradToDevice, dict: &model.ShadingDict{ColorSpace: model.ColorSpaceRGB}}
	switch dir := grad.Direction.(type) {
	case svgicon.Linear:
		x1, y1, x2, y2 := dir[0], dir[1], dir[2], dir[3]
		if (x1 == x2 && y1 == y2) || !writable(x1, y1, x2, y2) {
			return shading{}, false
		}
		sh.dict.ShadingType = model.ShadingAxial{BaseGradient: base, Coords: [4]model.Fl{x1, y1, x2, y2}}
	case svgicon.Radial:
		cx, cy, fx, fy, r, fr := dir[0], dir[1], dir[2], dir[3], dir[4], dir[5]
		if !(r > 0) || fr < 0 || math.Hypot(fx-cx, fy-cy)+fr > r || !writable(cx, cy, fx, fy, r, fr) {
			return shading{}, false
		}
		sh.dict.ShadingType = model.ShadingRadial{BaseGradient: base, Coords: [6]model.Fl{fx, fy, fr, cx, cy, r}}
	default:
		return shading{}, false
	}
	return sh, true
}

// fillShading clips the page to the path and paints the shading.
func (r *Renderer) fillShading(path svgicon.Path, sh shading, opacity float64, useNonZeroWinding bool) {
	r.pdf.SaveState()
	r.writePath(path)
	if useNonZeroWinding {
		r.pdf.Ops(contentstream.OpClip{}, contentstream.OpEndPath{})
	} else {
		r.pdf.Ops(contentstream.OpEOClip{}, contentstream.OpEndPath{})
	}
	r.setFillAlpha(opacity * sh.alpha)
	m := sh.matrix
	r.pdf.Transform(model.Matrix{m.A, m.B, m.C, m.D, m.E, m.F})
	r.pdf.Shading(sh.dict)
	_ = r.pdf.RestoreState() // balanced
}

// RenderSubgraph draws the icon on a scratch page, whose size is
// given by svgpdf.ScratchUnit (bounded so that coordinates stay below 10^6),
// and returns the page content as a Form XObject mapped on the unit square.
// `rasterScale` is the number of pixels per source unit used
// for the rasterized paints.
func RenderSubgraph(icon *svgicon.SvgIcon, rasterScale float64) (pdfdoc.Subgraph, error) {
	w, h := icon.Size()
	if !(w > 0 && h > 0) || math.IsInf(w+h, 0) {
		return pdfdoc.Subgraph{}, svgpdf.ErrEmptyImage
	}
	unit := math.Min(svgpdf.ScratchUnit(w, h), maxNumber/math.Max(w, h))
	pw, ph := w*unit, h*unit

	app := contentstream.NewAppearance(pw, ph)
	app.Ops(contentstream.OpConcat{Matrix: model.Matrix{1, 0, 0, -1, 0, ph}})
	icon.SetTarget(0, 0, pw, ph)
	renderer := NewRenderer(&app, rasterScale/unit)
	icon.Draw(renderer, 1)
	if err := renderer.Err(); err != nil {
		return pdfdoc.Subgraph{}, err
	}

	var page model.PageObject
	app.ApplyToPageObject(&page, false)
	var doc model.Document
	doc.Catalog.Pages.Kids = []model.PageNode{&page}
	var buf bytes.Buffer
	if err := doc.Write(&buf, nil); err != nil {
		return pdfdoc.Subgraph{}, fmt.Errorf("rendering scratch page: %w", err)
	}
	file, err := pdfdoc.Parse(buf.Bytes())
	if err != nil {
		return pdfdoc.Subgraph{}, fmt.Errorf("reading scratch page: %w", err)
	}
	return file.PageSubgraphIn(0, model.Rectangle{Urx: pw, Ury: ph})
}
