// Package layout computes how a source drawing is placed on a page:
// the orientation, the uniform scale and the centering offsets.
// All lengths are in PDF points (1/72 inch) unless stated otherwise.
package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidGeometry is returned when a source does not have a strictly
// positive size.
var ErrInvalidGeometry = errors.New("SVG has invalid dimensions")

// PointsPerInch is the resolution of the PDF user space.
const PointsPerInch = 72.

const (
	// maxMarginRatio bounds the margin with respect to the smallest page dimension
	maxMarginRatio = 0.49
	// minAvailable is the smallest usable page length, after removing the margins
	minAvailable = 1.
	// minSource avoids divisions by zero for degenerate sources
	minSource = 1e-6

	minDPI = PointsPerInch
	maxDPI = 300.
)

// Size is a width and height.
type Size struct {
	W, H float64
}

// Swap returns the size rotated by a quarter turn.
func (s Size) Swap() Size { return Size{W: s.H, H: s.W} }

func (s Size) String() string { return fmt.Sprintf("%gx%g", s.W, s.H) }

// Layout is the page chosen for a source, and the scale
// to apply to the source to fit in it.
type Layout struct {
	PageW, PageH float64
	Scale        float64
}

// Placement is the rectangle in which the scaled source is drawn.
type Placement struct {
	DrawnW, DrawnH   float64
	OffsetX, OffsetY float64
}

// effectiveMargin clamps margin to [0, 0.49 * min(pageW, pageH)]
func effectiveMargin(pageW, pageH, margin float64) float64 {
	limit := maxMarginRatio * math.Min(pageW, pageH)
	return math.Max(0, math.Min(margin, limit))
}

// FitScale returns the largest uniform scale such that the source fits
// on the page reduced by `margin` on each side.
func FitScale(sourceW, sourceH, pageW, pageH, margin float64) float64 {
	m := effectiveMargin(pageW, pageH, margin)
	aw := math.Max(pageW-2*m, minAvailable)
	ah := math.Max(pageH-2*m, minAvailable)
	return math.Min(aw/math.Max(sourceW, minSource), ah/math.Max(sourceH, minSource))
}

// Best evaluates every candidate page and returns the one
// with the largest scale. Ties are resolved by the declaration order.
// It returns false if `candidates` is empty.
func Best(sourceW, sourceH float64, candidates []Size, margin float64) (Layout, bool) {
	var (
		best  Layout
		found bool
	)
	for _, page := range candidates {
		scale := FitScale(sourceW, sourceH, page.W, page.H, margin)
		if !found || scale > best.Scale {
			best = Layout{PageW: page.W, PageH: page.H, Scale: scale}
			found = true
		}
	}
	return best, found
}

// SelectBestLayout chooses between the page as given (portrait)
// and its rotated version (landscape). The landscape page is only
// used when it gives a strictly larger scale.
func SelectBestLayout(sourceW, sourceH, baseW, baseH, margin float64) Layout {
	base := Size{W: baseW, H: baseH}
	l, _ := Best(sourceW, sourceH, []Size{base, base.Swap()}, margin)
	return l
}

// PointsFromUnits converts a length in source pixels to points,
// `dpi` being clamped to [72, 300].
func PointsFromUnits(units, dpi float64) float64 {
	dpi = math.Max(minDPI, math.Min(dpi, maxDPI))
	return units * PointsPerInch / dpi
}

// SourceSize converts the size of a source from pixels to points.
// It returns ErrInvalidGeometry if one of the resulting lengths
// is not strictly positive.
func SourceSize(w, h, dpi float64) (Size, error) {
	out := Size{W: PointsFromUnits(w, dpi), H: PointsFromUnits(h, dpi)}
	// the negated form also rejects NaN
	if !(out.W > 0) || !(out.H > 0) || math.IsInf(out.W, 0) || math.IsInf(out.H, 0) {
		return Size{}, fmt.Errorf("%w (%g x %g)", ErrInvalidGeometry, w, h)
	}
	return out, nil
}

// Place returns the drawn rectangle of `source` under `l`.
// The drawing is centered on the full page; margins only limit the scale.
func Place(source Size, l Layout) Placement {
	dw, dh := source.W*l.Scale, source.H*l.Scale
	return Placement{
		DrawnW:  dw,
		DrawnH:  dh,
		OffsetX: (l.PageW - dw) / 2,
		OffsetY: (l.PageH - dh) / 2,
	}
}

// portrait page sizes, in points
var pagePresets = map[string]Size{
	"LETTER":  {612, 792},
	"LEGAL":   {612, 1008},
	"TABLOID": {792, 1224},
	"A3":      {841.89, 1190.55},
	"A4":      {595.28, 841.89},
	"A5":      {419.53, 595.28},
}

// Preset returns the portrait size of a named paper format
// (letter, legal, tabloid, a3, a4, a5), case-insensitive.
func Preset(name string) (Size, bool) {
	s, ok := pagePresets[strings.ToUpper(strings.TrimSpace(name))]
	return s, ok
}
