// Implements a raster backend to render SVG images,
// by wrapping rasterx.
package svgraster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/benoitkugler/svgpage/svgicon"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
)

// ErrAllocation is returned when the pixel buffer can't be allocated
var ErrAllocation = errors.New("failed to allocate PNG pixmap")

// maxPixels bounds the size of the pixel buffers
const maxPixels = 1 << 28

// SizeError is returned when the pixel buffer for an image
// of Width x Height pixels can't be allocated.
// Sides larger than math.MaxInt32 are saturated.
type SizeError struct {
	Width, Height int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s (%d x %d)", ErrAllocation, e.Width, e.Height)
}

func (e *SizeError) Is(target error) bool { return target == ErrAllocation }

// allocate returns a buffer of fw x fh pixels, or a *SizeError
func allocate(fw, fh float64) (*image.RGBA, error) {
	if math.IsNaN(fw*fh) || fw*fh > maxPixels {
		saturate := func(f float64) int {
			if math.IsNaN(f) {
				return math.MaxInt32
			}
			return int(math.Min(f, math.MaxInt32))
		}
		return nil, &SizeError{Width: saturate(fw), Height: saturate(fh)}
	}
	return image.NewRGBA(image.Rect(0, 0, int(fw), int(fh))), nil
}

var _ svgicon.Driver = (*Renderer)(nil) // assert interface conformance

// Renderer draws on a rasterx.Scanner
type Renderer struct {
	filler  filler
	stroker stroker
}

// NewRenderer returns a renderer with default values.
// In addition to rasterizing lines like a Scanner,
// it can also rasterize quadratic and cubic bezier curves.
func NewRenderer(width, height int, scanner rasterx.Scanner) *Renderer {
	return &Renderer{
		filler:  filler{rasterx.NewFiller(width, height, scanner)},
		stroker: stroker{rasterx.NewDasher(width, height, scanner)},
	}
}

// SetupDrawers implements svgicon.Driver
func (rd *Renderer) SetupDrawers(willFill, willStroke bool) (f svgicon.Filler, s svgicon.Stroker) {
	if willFill {
		f = rd.filler
	}
	if willStroke {
		s = rd.stroker
	}
	return f, s
}

type filler struct{ *rasterx.Filler }

func (f filler) SetColor(color svgicon.Pattern, opacity float64) {
	setColorFromPattern(color, opacity, f.Scanner)
}

type stroker struct{ *rasterx.Dasher }

func (s stroker) SetColor(color svgicon.Pattern, opacity float64) {
	setColorFromPattern(color, opacity, s.Scanner)
}

func (s stroker) SetStrokeOptions(options svgicon.StrokeOptions) {
	s.SetStroke(
		options.LineWidth, options.Join.MiterLimit, capToFunc[options.Join.LeadLineCap],
		capToFunc[options.Join.TrailLineCap], gapToFunc[options.Join.LineGap],
		joinToJoin[options.Join.LineJoin], options.Dash.Dash, options.Dash.DashOffset,
	)
}

func toRasterxGradient(grad svgicon.Gradient) rasterx.Gradient {
	var (
		points   [5]float64
		isRadial bool
	)
	switch dir := grad.Direction.(type) {
	case svgicon.Linear:
		points[0], points[1], points[2], points[3] = dir[0], dir[1], dir[2], dir[3]
	case svgicon.Radial:
		points[0], points[1], points[2], points[3], points[4] = dir[0], dir[1], dir[2], dir[3], dir[4] // in rasterx fr is ignored
		isRadial = true
	}
	// rasterx sorts the stops in place
	stops := make([]rasterx.GradStop, len(grad.Stops))
	for i := range grad.Stops {
		stops[i] = rasterx.GradStop(grad.Stops[i])
	}
	return rasterx.Gradient{
		Points:   points,
		Stops:    stops,
		Bounds:   grad.Bounds,
		Matrix:   rasterx.Matrix2D(grad.Matrix),
		Spread:   rasterx.SpreadMethod(grad.Spread),
		Units:    rasterx.GradientUnits(grad.Units),
		IsRadial: isRadial,
	}
}

// withOpacity multiplies the alpha channel of c by opacity
func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * math.Max(0, math.Min(1, opacity))))
	return c
}

// resolve gradient color
func setColorFromPattern(color svgicon.Pattern, opacity float64, scanner rasterx.Scanner) {
	switch fillerColor := color.(type) {
	case svgicon.PlainColor:
		scanner.SetColor(withOpacity(fillerColor.NRGBA, opacity))
	case svgicon.Gradient:
		if fillerColor.Units == svgicon.ObjectBoundingBox {
			fRect := scanner.GetPathExtent()
			mnx, mny := float64(fRect.Min.X)/64, float64(fRect.Min.Y)/64
			mxx, mxy := float64(fRect.Max.X)/64, float64(fRect.Max.Y)/64
			fillerColor.Bounds.X, fillerColor.Bounds.Y = mnx, mny
			fillerColor.Bounds.W, fillerColor.Bounds.H = mxx-mnx, mxy-mny
		}
		rasterxGradient := toRasterxGradient(fillerColor)
		scanner.SetColor(rasterxGradient.GetColorFunction(opacity))
	}
}

var (
	joinToJoin = [...]rasterx.JoinMode{
		svgicon.Round:     rasterx.Round,
		svgicon.Bevel:     rasterx.Bevel,
		svgicon.Miter:     rasterx.Miter,
		svgicon.MiterClip: rasterx.MiterClip,
		svgicon.Arc:       rasterx.Arc,
		svgicon.ArcClip:   rasterx.ArcClip,
	}

	capToFunc = [...]rasterx.CapFunc{
		svgicon.ButtCap:      rasterx.ButtCap,
		svgicon.SquareCap:    rasterx.SquareCap,
		svgicon.RoundCap:     rasterx.RoundCap,
		svgicon.CubicCap:     rasterx.CubicCap,
		svgicon.QuadraticCap: rasterx.QuadraticCap,
	}

	gapToFunc = [...]rasterx.GapFunc{
		svgicon.FlatGap:      rasterx.FlatGap,
		svgicon.RoundGap:     rasterx.RoundGap,
		svgicon.CubicGap:     rasterx.CubicGap,
		svgicon.QuadraticGap: rasterx.QuadraticGap,
	}
)

func pixelLength(length, scale float64) float64 {
	return math.Max(math.Round(length*scale), 1)
}

// PixelSize returns the dimensions of the image of a source
// of size (w, h) drawn at the given scale: each length is rounded
// and at least one pixel.
func PixelSize(w, h, scale float64) (int, int) {
	return int(pixelLength(w, scale)), int(pixelLength(h, scale))
}

// Rasterize draws the icon, scaled by `scale`, into a new image.
// It returns a *SizeError if the image is too large.
func Rasterize(icon *svgicon.SvgIcon, scale float64) (*image.RGBA, error) {
	w, h := icon.Size()
	img, err := allocate(pixelLength(w, scale), pixelLength(h, scale))
	if err != nil {
		return nil, err
	}
	pw, ph := img.Rect.Dx(), img.Rect.Dy()

	icon.SetTarget(0, 0, float64(pw), float64(ph))
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	renderer := NewRenderer(pw, ph, scanner)
	icon.Draw(renderer, 1.0)
	return img, nil
}

// PathPaint describes how a single path is painted by PaintPath.
type PathPaint struct {
	Pattern           svgicon.Pattern
	Opacity           float64
	UseNonZeroWinding bool
	Stroke            *svgicon.StrokeOptions // nil to fill the path
}

// PaintPath rasterizes `path`, given in device coordinates, restricted
// to the `region` of the device space, with `scale` pixels per device unit.
// It returns a *SizeError if the image is too large.
func PaintPath(path svgicon.Path, region svgicon.Bounds, scale float64, paint PathPaint) (*image.RGBA, error) {
	fw, fh := pixelLength(region.W, scale), pixelLength(region.H, scale)
	img, err := allocate(fw, fh)
	if err != nil {
		return nil, err
	}
	pw, ph := img.Rect.Dx(), img.Rect.Dy()
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	renderer := NewRenderer(pw, ph, scanner)

	toPixels := svgicon.Identity.Scale(fw/region.W, fh/region.H).Translate(-region.X, -region.Y)
	pattern := paint.Pattern
	if grad, ok := pattern.(svgicon.Gradient); ok && grad.Units == svgicon.UserSpaceOnUse {
		grad.Matrix = toPixels.Mult(grad.Matrix)
		pattern = grad
	}

	var drawer svgicon.Drawer
	if paint.Stroke != nil {
		options := *paint.Stroke
		options.LineWidth = fixed.Int26_6(float64(options.LineWidth) * scale)
		options.Dash.DashOffset *= scale
		options.Dash.Dash = append([]float64(nil), options.Dash.Dash...)
		for i := range options.Dash.Dash {
			options.Dash.Dash[i] *= scale
		}
		renderer.stroker.Clear()
		renderer.stroker.SetStrokeOptions(options)
		drawer = renderer.stroker
	} else {
		renderer.filler.Clear()
		renderer.filler.SetWinding(paint.UseNonZeroWinding)
		drawer = renderer.filler
	}
	path.DrawTo(drawer, toPixels)
	drawer.SetColor(pattern, paint.Opacity)
	drawer.Draw()
	return img, nil
}

// Format is an image encoding
type Format uint8

const (
	PNG Format = iota
	TIFF
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case TIFF:
		return "tiff"
	default:
		return fmt.Sprintf("<unknown Format %d>", f)
	}
}

// ParseFormat returns the format named by s, defaulting to PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tiff", "tif":
		return TIFF
	default:
		return PNG
	}
}

// Encode writes the image to w.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	}
}
