// Implements a PDF backend to render SVG images,
// by wrapping github.com/jung-kurt/gofpdf.
//
// The image is drawn on a scratch page, whose content is then
// extracted as a Form XObject ready to be merged in another document.
package svgpdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/benoitkugler/pdf/model"
	"github.com/benoitkugler/svgpage/pdfdoc"
	"github.com/benoitkugler/svgpage/svgicon"
	"github.com/benoitkugler/svgpage/svgraster"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/math/fixed"
)

// assert interface conformance
var (
	_ svgicon.Driver  = (*Renderer)(nil)
	_ svgicon.Filler  = (*filler)(nil)
	_ svgicon.Stroker = (*stroker)(nil)
)

const (
	// larger side of the scratch page, in points
	scratchSize = 1000.
	// bounds of the sides of the scratch page, in points,
	// for the images with a large aspect ratio
	minScratchSide = 100.
	maxScratchSide = 1e7
	// side of the square holding a shading, in points
	shadingSize = 1000.
)

// Renderer draws on a gofpdf page.
// Plain colors and simple gradients are written as vector
// operations, other paints are rasterized and embedded as images.
type Renderer struct {
	pdf        *gofpdf.Fpdf
	pageHeight float64

	// resolution of the rasterized paints,
	// in pixels per page unit
	pixelsPerUnit float64
	images        int
	err           error

	filler  filler
	stroker stroker
}

// NewRenderer return a renderer which will
// write to the current page of `pdf`, whose unit must be the point.
// `pixelsPerUnit` is the resolution used for the paints
// which can't be expressed with PDF operators.
func NewRenderer(pdf *gofpdf.Fpdf, pixelsPerUnit float64) *Renderer {
	_, h := pdf.GetPageSize()
	r := &Renderer{pdf: pdf, pageHeight: h, pixelsPerUnit: pixelsPerUnit}
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

// pather buffers the current path, in device coordinates,
// since the paint is only known after the path is built.
type pather struct {
	svgicon.Path
	r *Renderer
}

// implements the filling operation
type filler struct {
	pather
	useNonZeroWinding bool
	pattern           svgicon.Pattern
	opacity           float64
}

func (f *filler) SetWinding(useNonZeroWinding bool) { f.useNonZeroWinding = useNonZeroWinding }

func (f *filler) SetColor(pattern svgicon.Pattern, opacity float64) {
	f.pattern, f.opacity = pattern, opacity
}

func (f *filler) Draw() { f.r.fill(f.Path, f.pattern, f.opacity, f.useNonZeroWinding) }

// implements the stroking operation
type stroker struct {
	pather
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

// pdfPather writes path construction operators.
type pdfPather struct {
	pdf     *gofpdf.Fpdf
	current fixed.Point26_6
}

func (p *pdfPather) Start(a fixed.Point26_6) {
	p.pdf.MoveTo(fixedTof(a))
	p.current = a
}

func (p *pdfPather) Line(b fixed.Point26_6) {
	p.pdf.LineTo(fixedTof(b))
	p.current = b
}

// QuadBezier is written as a cubic curve: gofpdf CurveTo
// uses the 'v' operator, which is not a quadratic curve.
func (p *pdfPather) QuadBezier(b, c fixed.Point26_6) {
	x0, y0 := fixedTof(p.current)
	qx, qy := fixedTof(b)
	x, y := fixedTof(c)
	p.pdf.CurveBezierCubicTo(
		x0+2./3*(qx-x0), y0+2./3*(qy-y0),
		x+2./3*(qx-x), y+2./3*(qy-y),
		x, y,
	)
	p.current = c
}

func (p *pdfPather) CubeBezier(b, c, d fixed.Point26_6) {
	cx0, cy0 := fixedTof(b)
	cx1, cy1 := fixedTof(c)
	x, y := fixedTof(d)
	p.pdf.CurveBezierCubicTo(cx0, cy0, cx1, cy1, x, y)
	p.current = d
}

func (p *pdfPather) Stop(closeLoop bool) {
	if closeLoop {
		p.pdf.ClosePath()
	}
}

func (r *Renderer) writePath(path svgicon.Path) {
	path.DrawTo(&pdfPather{pdf: r.pdf}, svgicon.Identity)
}

func (r *Renderer) setAlpha(alpha float64) {
	r.pdf.SetAlpha(math.Max(0, math.Min(1, alpha)), "Normal")
}

func fillStyle(useNonZeroWinding bool) string {
	if useNonZeroWinding {
		return "f"
	}
	return "f*"
}

func (r *Renderer) fill(path svgicon.Path, pattern svgicon.Pattern, opacity float64, useNonZeroWinding bool) {
	if len(path) == 0 {
		return
	}
	switch pattern := pattern.(type) {
	case svgicon.PlainColor:
		r.pdf.SetFillColor(int(pattern.R), int(pattern.G), int(pattern.B))
		r.setAlpha(opacity * float64(pattern.A) / 255)
		r.writePath(path)
		r.pdf.DrawPath(fillStyle(useNonZeroWinding))
	case svgicon.Gradient:
		bbox, ok := PathBounds(path)
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
	capStyles = [...]string{
		svgicon.NilCap:       "butt",
		svgicon.ButtCap:      "butt",
		svgicon.SquareCap:    "square",
		svgicon.RoundCap:     "round",
		svgicon.CubicCap:     "round",
		svgicon.QuadraticCap: "round",
	}
	joinStyles = [...]string{
		svgicon.Arc:       "round",
		svgicon.Round:     "round",
		svgicon.Bevel:     "bevel",
		svgicon.Miter:     "miter",
		svgicon.MiterClip: "miter",
		svgicon.ArcClip:   "round",
	}
)

func (r *Renderer) setStrokeOptions(options svgicon.StrokeOptions) {
	r.pdf.SetLineWidth(float64(options.LineWidth) / 64)
	if int(options.Join.TrailLineCap) < len(capStyles) {
		r.pdf.SetLineCapStyle(capStyles[options.Join.TrailLineCap])
	}
	if int(options.Join.LineJoin) < len(joinStyles) {
		r.pdf.SetLineJoinStyle(joinStyles[options.Join.LineJoin])
	}
	// gofpdf has no setter for the miter limit
	r.pdf.RawWriteStr(fmt.Sprintf("%.2f M", math.Max(1, float64(options.Join.MiterLimit)/64)))
	r.pdf.SetDashPattern(ValidDashes(options.Dash.Dash), options.Dash.DashOffset)
}

// ValidDashes returns nil for the dash arrays disabling dashing:
// negative values or a zero sum.
func ValidDashes(dashes []float64) []float64 {
	var sum float64
	for _, d := range dashes {
		if d < 0 {
			return nil
		}
		sum += d
	}
	if sum == 0 {
		return nil
	}
	if len(dashes)%2 == 1 {
		dashes = append(dashes[:len(dashes):len(dashes)], dashes...)
	}
	return dashes
}

// StrokeMargin bounds the distance between a path and the outline
// of its stroke.
func StrokeMargin(options svgicon.StrokeOptions) float64 {
	halfWidth := float64(options.LineWidth) / 128
	factor := math.Sqrt2 // square caps
	if j := options.Join.LineJoin; j == svgicon.Miter || j == svgicon.MiterClip || j == svgicon.ArcClip {
		factor = math.Max(factor, float64(options.Join.MiterLimit)/64)
	}
	return halfWidth*factor + 1
}

func (r *Renderer) stroke(path svgicon.Path, pattern svgicon.Pattern, opacity float64, options svgicon.StrokeOptions) {
	if len(path) == 0 {
		return
	}
	switch pattern := pattern.(type) {
	case svgicon.PlainColor:
		r.pdf.SetDrawColor(int(pattern.R), int(pattern.G), int(pattern.B))
		r.setAlpha(opacity * float64(pattern.A) / 255)
		r.setStrokeOptions(options)
		r.writePath(path)
		r.pdf.DrawPath("S")
	case svgicon.Gradient:
		bbox, ok := PathBounds(path)
		if !ok {
			return
		}
		m := StrokeMargin(options)
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
	name := fmt.Sprintf("paint%d", r.images)
	r.images++
	options := gofpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	r.pdf.RegisterImageOptionsReader(name, options, &buf)
	r.setAlpha(1) // opacity is part of the image
	r.pdf.ImageOptions(name, region.X, region.Y, region.W, region.H, false, options, 0, "")
}

// shading is a two colors gradient expressed as a PDF
// axial or radial shading.
type shading struct {
	radial bool
	// maps the shading square (0, 0, shadingSize, shadingSize)
	// to the device space
	matrix   svgicon.Matrix2D
	from, to color.NRGBA
	alpha    float64
	// normalized in the shading square, with the origin at the lower left corner:
	// x1, y1, x2, y2 for axial shadings, fx, fy, cx, cy, r for radial ones
	coords [5]float64
}

func stopColor(stop svgicon.GradStop) (color.NRGBA, float64, bool) {
	if stop.StopColor == nil {
		return color.NRGBA{}, 0, false
	}
	c := color.NRGBAModel.Convert(stop.StopColor).(color.NRGBA)
	return c, stop.Opacity * float64(c.A) / 255, true
}

// newShading returns false if the gradient can't be expressed
// as a PDF shading : it requires a pad spread and two stops with the same opacity.
// Radial gradients must also have their stops at 0 and 1, a null focal radius
// and their focal point inside the end circle.
// `bbox` is the extent of the painted path, in device space.
func newShading(grad svgicon.Gradient, bbox svgicon.Bounds) (shading, bool) {
	if grad.Spread != svgicon.PadSpread || len(grad.Stops) != 2 {
		return shading{}, false
	}
	stops := append([]svgicon.GradStop(nil), grad.Stops...)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Offset < stops[j].Offset })
	from, alpha1, ok1 := stopColor(stops[0])
	to, alpha2, ok2 := stopColor(stops[1])
	if !ok1 || !ok2 || math.Abs(alpha1-alpha2) > 1./255 {
		return shading{}, false
	}
	from.A, to.A = 0xff, 0xff

	// gradient space to device space
	gradToDevice := grad.Matrix
	if grad.Units == svgicon.ObjectBoundingBox {
		gradToDevice = svgicon.Identity.Translate(bbox.X, bbox.Y).Scale(bbox.W, bbox.H).Mult(grad.Matrix)
	}
	if det := gradToDevice.A*gradToDevice.D - gradToDevice.B*gradToDevice.C; math.Abs(det) < 1e-12 {
		return shading{}, false
	}

	// square covering the bounding box, in gradient space
	inv := gradToDevice.Invert()
	minX, minY, maxX, maxY := math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, corner := range [4][2]float64{
		{bbox.X, bbox.Y}, {bbox.X + bbox.W, bbox.Y},
		{bbox.X, bbox.Y + bbox.H}, {bbox.X + bbox.W, bbox.Y + bbox.H},
	} {
		x, y := inv.Transform(corner[0], corner[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	side := math.Max(maxX-minX, maxY-minY)
	if !(side > 0) || math.IsInf(side, 0) {
		return shading{}, false
	}
	pad := side / 100
	minX, minY, side = minX-pad, minY-pad, side+2*pad
	normX := func(x float64) float64 { return (x - minX) / side }
	normY := func(y float64) float64 { return (minY + side - y) / side }

	sh := shading{
		from: from, to: to, alpha: alpha1,
		matrix: gradToDevice.Translate(minX, minY).Scale(side/shadingSize, side/shadingSize),
	}
	switch dir := grad.Direction.(type) {
	case svgicon.Linear:
		x1, y1, x2, y2 := dir[0], dir[1], dir[2], dir[3]
		o1, o2 := stops[0].Offset, stops[1].Offset
		if o2-o1 < 1e-6 || (x1 == x2 && y1 == y2) {
			return shading{}, false
		}
		sh.coords = [5]float64{
			normX(x1 + o1*(x2-x1)), normY(y1 + o1*(y2-y1)),
			normX(x1 + o2*(x2-x1)), normY(y1 + o2*(y2-y1)),
		}
	case svgicon.Radial:
		cx, cy, fx, fy, r, fr := dir[0], dir[1], dir[2], dir[3], dir[4], dir[5]
		if fr != 0 || stops[0].Offset != 0 || stops[1].Offset != 1 || !(r > 0) || math.Hypot(fx-cx, fy-cy) > r {
			return shading{}, false
		}
		sh.radial = true
		sh.coords = [5]float64{normX(fx), normY(fy), normX(cx), normY(cy), r / side}
	default:
		return shading{}, false
	}
	return sh, true
}

// fillShading clips the page to the path and paints the shading.
func (r *Renderer) fillShading(path svgicon.Path, sh shading, opacity float64, useNonZeroWinding bool) {
	r.pdf.RawWriteStr("q")
	r.writePath(path)
	if useNonZeroWinding {
		r.pdf.RawWriteStr("W n")
	} else {
		r.pdf.RawWriteStr("W* n")
	}
	r.setAlpha(opacity * sh.alpha)

	// gofpdf writes y' = H - y: the shading matrix is
	// conjugated by this flip
	flip := svgicon.Matrix2D{A: 1, D: -1, F: r.pageHeight}
	m := flip.Mult(sh.matrix).Mult(flip)
	r.pdf.TransformBegin()
	r.pdf.Transform(gofpdf.TransformMatrix{A: m.A, B: m.B, C: m.C, D: m.D, E: m.E, F: m.F})
	c := sh.coords
	if sh.radial {
		r.pdf.RadialGradient(0, 0, shadingSize, shadingSize,
			int(sh.from.R), int(sh.from.G), int(sh.from.B), int(sh.to.R), int(sh.to.G), int(sh.to.B),
			c[0], c[1], c[2], c[3], c[4])
	} else {
		r.pdf.LinearGradient(0, 0, shadingSize, shadingSize,
			int(sh.from.R), int(sh.from.G), int(sh.from.B), int(sh.to.R), int(sh.to.G), int(sh.to.B),
			c[0], c[1], c[2], c[3])
	}
	r.pdf.TransformEnd()
	r.pdf.RawWriteStr("Q")
}

// ErrEmptyImage is returned when rendering an image without area.
var ErrEmptyImage = errors.New("image has no area")

// ScratchUnit returns the number of points per source unit used on
// the scratch page: the larger side is 1000 points, unless the smaller
// one would be too thin.
func ScratchUnit(w, h float64) float64 {
	short, long := math.Min(w, h), math.Max(w, h)
	unit := scratchSize / long
	if short*unit < minScratchSide {
		unit = math.Min(minScratchSide/short, maxScratchSide/long)
	}
	return unit
}

// RenderSubgraph draws the icon on a scratch page, scaled by ScratchUnit,
// and returns the page content as a Form XObject mapped on the unit square.
// `rasterScale` is the number of pixels per source unit used
// for the rasterized paints.
func RenderSubgraph(icon *svgicon.SvgIcon, rasterScale float64) (pdfdoc.Subgraph, error) {
	w, h := icon.Size()
	if !(w > 0 && h > 0) || math.IsInf(w+h, 0) {
		return pdfdoc.Subgraph{}, ErrEmptyImage
	}
	unit := ScratchUnit(w, h)
	pw, ph := w*unit, h*unit

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	icon.SetTarget(0, 0, pw, ph)
	renderer := NewRenderer(pdf, rasterScale/unit)
	icon.Draw(renderer, 1)
	if err := renderer.Err(); err != nil {
		return pdfdoc.Subgraph{}, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return pdfdoc.Subgraph{}, fmt.Errorf("rendering scratch page: %w", err)
	}
	file, err := pdfdoc.Parse(buf.Bytes())
	if err != nil {
		return pdfdoc.Subgraph{}, fmt.Errorf("reading scratch page: %w", err)
	}
	// the MediaBox written by gofpdf is rounded
	return file.PageSubgraphIn(0, model.Rectangle{Urx: pw, Ury: ph})
}
