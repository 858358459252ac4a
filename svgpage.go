// Package svgpage converts SVG images to single page PDF documents,
// where the image is scaled to fit the page and centered, and to raster images.
//
// The page orientation is chosen to maximize the size of the image.
// The SVG content is embedded as vector graphics, except for the paints
// PDF can't express (such as gradients with more than two stops),
// which are rasterized.
package svgpage

import (
	"bytes"
	"strings"

	"github.com/benoitkugler/svgpage/fontdb"
	"github.com/benoitkugler/svgpage/layout"
	"github.com/benoitkugler/svgpage/pdfdoc"
	"github.com/benoitkugler/svgpage/svgicon"
	"github.com/benoitkugler/svgpage/svgpdf"
	"github.com/benoitkugler/svgpage/svgpdf/alt"
	"github.com/benoitkugler/svgpage/svgraster"
)

// parse reads the SVG source. Unsupported elements
// are logged and skipped.
func parse(source, fontFamily string) (*svgicon.SvgIcon, error) {
	icon, err := svgicon.Parse(strings.NewReader(source), svgicon.ParseOptions{
		ErrorMode:  svgicon.WarnErrorMode,
		FontFamily: fontFamily,
		Fonts:      fontdb.Default(),
	})
	if err != nil {
		return nil, &SourceParseError{Err: err}
	}
	return icon, nil
}

// ToPage returns a PDF document made of one page, on which
// the SVG `source` is drawn.
// `opts` may be nil to use the default options.
func ToPage(source string, opts *PageOptions) ([]byte, error) {
	cfg := opts.resolve()

	icon, err := parse(source, cfg.fontFamily)
	if err != nil {
		return nil, err
	}
	w, h := icon.Size()
	size, err := layout.SourceSize(w, h, cfg.dpi)
	if err != nil {
		return nil, &InvalidGeometryError{Width: w, Height: h}
	}

	best := layout.SelectBestLayout(size.W, size.H, cfg.page.W, cfg.page.H, cfg.margin)
	placement := layout.Place(size, best)

	render := svgpdf.RenderSubgraph
	if cfg.backend == ContentStreamBackend {
		render = alt.RenderSubgraph
	}
	sub, err := render(icon, cfg.rasterScale)
	if err != nil {
		return nil, classify(err)
	}
	out, err := pdfdoc.Assemble(sub, pdfdoc.PageSpec{
		Width:      best.PageW,
		Height:     best.PageH,
		DrawnW:     placement.DrawnW,
		DrawnH:     placement.DrawnH,
		OffsetX:    placement.OffsetX,
		OffsetY:    placement.OffsetY,
		Background: cfg.background,
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// ToRaster draws the SVG `source` into an image, whose size
// is the size of the source (in pixels) multiplied by the scale option.
// `opts` may be nil to use the default options.
func ToRaster(source string, opts *RasterOptions) ([]byte, error) {
	cfg := opts.resolve()

	icon, err := parse(source, cfg.fontFamily)
	if err != nil {
		return nil, err
	}
	w, h := icon.Size()
	if _, err = layout.SourceSize(w, h, layout.PointsPerInch); err != nil {
		return nil, &InvalidGeometryError{Width: w, Height: h}
	}

	img, err := svgraster.Rasterize(icon, cfg.scale)
	if err != nil {
		return nil, classify(err)
	}
	var buf bytes.Buffer
	if err = svgraster.Encode(&buf, img, cfg.format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ListFonts returns the sorted font families installed on the host.
func ListFonts() []string {
	return fontdb.Default().Families()
}
