package svgpage

import (
	"fmt"
	"math"
	"strings"

	"github.com/benoitkugler/svgpage/layout"
	"github.com/benoitkugler/svgpage/svgraster"
)

// PageOptions configures ToPage.
// Nil fields take their default value, and out of range
// values are clamped: options are never rejected.
// NaN values are treated as missing.
type PageOptions struct {
	// Resolution multiplier of the paints embedded as images,
	// in [1, 8], default to 4.
	RasterScale *float64 `json:"rasterScale,omitempty"`
	// Density of the source units, in [72, 300], default to 96.
	DPI *float64 `json:"dpi,omitempty"`
	// Family replacing generic and unknown font families.
	PreferredFontFamily *string `json:"preferredFontFamily,omitempty"`
	// Optional background color, filling the whole page.
	PageBackgroundRGB *[3]uint8 `json:"pageBackgroundRgb,omitempty"`
	// Page size, in points, default to US Letter. Each side is at least 72 points.
	PageWidthPt  *float64 `json:"pageWidthPt,omitempty"`
	PageHeightPt *float64 `json:"pageHeightPt,omitempty"`
	// Minimum distance between the image and the page borders, default to 36.
	PageMarginPt *float64 `json:"pageMarginPt,omitempty"`
	// Optional page size name (letter, legal, tabloid, a3, a4, a5),
	// overriding PageWidthPt and PageHeightPt. Unknown names are ignored.
	PageSize *string `json:"pageSize,omitempty"`
	// Writer of the vector content, "gofpdf" (default) or "contentstream".
	// Unknown names are ignored.
	VectorBackend *string `json:"vectorBackend,omitempty"`
}

// RasterOptions configures ToRaster.
// See PageOptions for the handling of missing values.
type RasterOptions struct {
	// Pixels per source unit, in [1, 8], default to 2.
	RasterScale         *float64 `json:"rasterScale,omitempty"`
	PreferredFontFamily *string  `json:"preferredFontFamily,omitempty"`
	// Image format, "png" (default) or "tiff".
	Format *string `json:"format,omitempty"`
}

const (
	defaultPageRasterScale = 4.
	defaultRasterScale     = 2.
	minRasterScale         = 1.
	maxRasterScale         = 8.

	defaultDPI = 96.
	minDPI     = 72.
	maxDPI     = 300.

	defaultPageWidth  = 612.
	defaultPageHeight = 792.
	defaultMargin     = 36.
	minPageSide       = 72.
)

// DefaultPageOptions returns options with every field set
// to its default value.
func DefaultPageOptions() *PageOptions {
	return &PageOptions{
		RasterScale:  ptr(defaultPageRasterScale),
		DPI:          ptr(defaultDPI),
		PageWidthPt:  ptr(defaultPageWidth),
		PageHeightPt: ptr(defaultPageHeight),
		PageMarginPt: ptr(defaultMargin),
	}
}

// DefaultRasterOptions returns options with every field set
// to its default value.
func DefaultRasterOptions() *RasterOptions {
	return &RasterOptions{
		RasterScale: ptr(defaultRasterScale),
		Format:      ptr(svgraster.PNG.String()),
	}
}

func ptr[T any](v T) *T { return &v }

func floatOr(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return def
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func fontFamily(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// pageSide also treats +Inf as missing
func pageSide(v *float64, def float64) float64 {
	side := floatOr(v, def)
	if math.IsInf(side, 1) {
		side = def
	}
	return math.Max(side, minPageSide)
}

// Backend selects the writer of the vector content.
type Backend uint8

const (
	GofpdfBackend        Backend = iota // see package svgpdf
	ContentStreamBackend                // see package svgpdf/alt
)

func (b Backend) String() string {
	switch b {
	case GofpdfBackend:
		return "gofpdf"
	case ContentStreamBackend:
		return "contentstream"
	default:
		return fmt.Sprintf("<unknown Backend %d>", b)
	}
}

// ParseBackend returns the backend named by s, defaulting to GofpdfBackend.
func ParseBackend(s string) Backend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contentstream":
		return ContentStreamBackend
	default:
		return GofpdfBackend
	}
}

type pageConfig struct {
	backend     Backend
	rasterScale float64
	dpi         float64
	fontFamily  string
	background  *[3]uint8
	page        layout.Size
	margin      float64
}

func (opts *PageOptions) resolve() pageConfig {
	if opts == nil {
		opts = &PageOptions{}
	}
	cfg := pageConfig{
		rasterScale: clamp(floatOr(opts.RasterScale, defaultPageRasterScale), minRasterScale, maxRasterScale),
		dpi:         clamp(floatOr(opts.DPI, defaultDPI), minDPI, maxDPI),
		fontFamily:  fontFamily(opts.PreferredFontFamily),
		page: layout.Size{
			W: pageSide(opts.PageWidthPt, defaultPageWidth),
			H: pageSide(opts.PageHeightPt, defaultPageHeight),
		},
		margin: math.Max(floatOr(opts.PageMarginPt, defaultMargin), 0),
	}
	if opts.PageBackgroundRGB != nil {
		bg := *opts.PageBackgroundRGB
		cfg.background = &bg
	}
	if opts.PageSize != nil {
		if size, ok := layout.Preset(*opts.PageSize); ok {
			cfg.page = size
		}
	}
	if opts.VectorBackend != nil {
		cfg.backend = ParseBackend(*opts.VectorBackend)
	}
	return cfg
}

type rasterConfig struct {
	scale      float64
	fontFamily string
	format     svgraster.Format
}

func (opts *RasterOptions) resolve() rasterConfig {
	if opts == nil {
		opts = &RasterOptions{}
	}
	cfg := rasterConfig{
		scale:      clamp(floatOr(opts.RasterScale, defaultRasterScale), minRasterScale, maxRasterScale),
		fontFamily: fontFamily(opts.PreferredFontFamily),
	}
	if opts.Format != nil {
		cfg.format = svgraster.ParseFormat(*opts.Format)
	}
	return cfg
}
