package svgicon

import (
	"encoding/xml"
	"strings"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// defaultFontSize is the font size used when none is specified,
// in user units.
const defaultFontSize = 16.

// FontSource resolves the font families used by <text> elements.
type FontSource interface {
	// Lookup returns the face for the given family,
	// or false if it is not available.
	Lookup(family string) (*sfnt.Font, bool)
	// Fallback is used when no family matches.
	Fallback() *sfnt.Font
}

type textAnchor uint8

const (
	anchorStart textAnchor = iota
	anchorMiddle
	anchorEnd
)

type fontStyle struct {
	family string
	size   float64
	anchor textAnchor
}

// textCursor stores the state of the <text> element being parsed
type textCursor struct {
	active  bool
	x, y    float64 // current text position
	started bool    // some characters have already been emitted
	buf     strings.Builder
	sfntBuf sfnt.Buffer
}

var genericFamilies = map[string]bool{
	"serif":      true,
	"sans-serif": true,
	"monospace":  true,
	"cursive":    true,
	"fantasy":    true,
	"system-ui":  true,
}

// parseFontSize resolves a font-size value, relative sizes
// being computed against the inherited size.
func (c *iconCursor) parseFontSize(inherited float64, v string) (float64, error) {
	switch v {
	case "inherit":
		return inherited, nil
	case "xx-small":
		return 9, nil
	case "x-small":
		return 10, nil
	case "small":
		return 13, nil
	case "medium":
		return defaultFontSize, nil
	case "large":
		return 18, nil
	case "x-large":
		return 24, nil
	case "xx-large":
		return 32, nil
	case "smaller":
		return inherited / 1.2, nil
	case "larger":
		return inherited * 1.2, nil
	}
	switch {
	case isPercentage(v):
		f, err := readFraction(v)
		return f * inherited, err
	case strings.HasSuffix(v, "em") && !strings.HasSuffix(v, "rem"):
		f, err := parseBasicFloat(strings.TrimSuffix(v, "em"))
		return f * inherited, err
	}
	return parseLength(v)
}

// readTextPosition updates the text position from the x, y, dx and dy attributes.
// Only the first value of a list is used.
func (c *iconCursor) readTextPosition(attrs []xml.Attr) error {
	for _, attr := range attrs {
		name := attr.Name.Local
		if name != "x" && name != "y" && name != "dx" && name != "dy" {
			continue
		}
		values := splitOnCommaOrSpace(attr.Value)
		if len(values) == 0 {
			continue
		}
		asPerc := widthPercentage
		if name == "y" || name == "dy" {
			asPerc = heightPercentage
		}
		v, err := c.parseUnit(values[0], asPerc)
		if err != nil {
			return err
		}
		switch name {
		case "x":
			c.text.x = v
		case "y":
			c.text.y = v
		case "dx":
			c.text.x += v
		case "dy":
			c.text.y += v
		}
	}
	return nil
}

func textF(c *iconCursor, attrs []xml.Attr) error {
	c.text.active = true
	c.text.started = false
	c.text.x, c.text.y = 0, 0
	c.text.buf.Reset()
	return c.readTextPosition(attrs)
}

func tspanF(c *iconCursor, attrs []xml.Attr) error {
	if !c.text.active {
		return nil
	}
	// the text before the span uses the style of the parent
	c.flushTextWith(c.styleStack[len(c.styleStack)-2])
	return c.readTextPosition(attrs)
}

// flushText converts the pending characters to outlines,
// with the current style.
func (c *iconCursor) flushText() {
	c.flushTextWith(c.top())
}

func (c *iconCursor) flushTextWith(style PathStyle) {
	raw := c.text.buf.String()
	c.text.buf.Reset()
	if !c.text.active || c.fonts.Fonts == nil {
		return
	}
	text := collapseWhitespace(raw, !c.text.started)
	if text == "" {
		return
	}
	c.text.started = true
	face := c.resolveFont(style.font.family)
	size := style.font.size
	if size <= 0 {
		return
	}
	c.path = c.path[:0]
	advance := c.textOutlines(face, size, text, c.text.x+c.curX, c.text.y+c.curY, style.font.anchor)
	if style.font.anchor == anchorStart {
		c.text.x += advance
	}
	if len(c.path) != 0 && !style.hidden {
		c.icon.SVGPaths = append(c.icon.SVGPaths, SvgPath{Path: append(Path{}, c.path...), Style: style})
	}
	c.path = c.path[:0]
}

// collapseWhitespace implements the default xml:space handling:
// new lines are removed, tabs become spaces and consecutive spaces are merged.
func collapseWhitespace(s string, trimLeft bool) string {
	s = strings.NewReplacer("\r", "", "\n", "", "\t", " ").Replace(s)
	var sb strings.Builder
	lastSpace := trimLeft
	for _, r := range s {
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// resolveFont walks the font-family list, replacing generic and unknown
// families by the preferred family.
func (c *iconCursor) resolveFont(families string) *sfnt.Font {
	src := c.fonts.Fonts
	for _, family := range strings.Split(families, ",") {
		family = strings.Trim(strings.TrimSpace(family), `"'`)
		if family == "" || genericFamilies[strings.ToLower(family)] {
			continue
		}
		if f, ok := src.Lookup(family); ok {
			return f
		}
	}
	if c.fonts.FontFamily != "" {
		if f, ok := src.Lookup(c.fonts.FontFamily); ok {
			return f
		}
	}
	return src.Fallback()
}

// textOutlines adds the outlines of text to the cursor path,
// with the baseline starting at (x, y), and returns the advance.
func (c *iconCursor) textOutlines(face *sfnt.Font, size float64, text string, x, y float64, anchor textAnchor) float64 {
	b := &c.text.sfntBuf
	ppem := fToFixed(size)
	var (
		glyphs   []sfnt.GlyphIndex
		advances []fixed.Int26_6
		total    fixed.Int26_6
	)
	for _, r := range text {
		gi, err := face.GlyphIndex(b, r)
		if err != nil {
			continue
		}
		adv, err := face.GlyphAdvance(b, gi, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		if n := len(glyphs); n > 0 {
			if kern, err := face.Kern(b, glyphs[n-1], gi, ppem, font.HintingNone); err == nil {
				advances[n-1] += kern
				total += kern
			}
		}
		glyphs = append(glyphs, gi)
		advances = append(advances, adv)
		total += adv
	}
	width := float64(total) / 64
	switch anchor {
	case anchorMiddle:
		x -= width / 2
	case anchorEnd:
		x -= width
	}
	pen := x
	for i, gi := range glyphs {
		segments, err := face.LoadGlyph(b, gi, ppem, nil)
		if err == nil {
			c.addGlyph(segments, pen, y)
		}
		pen += float64(advances[i]) / 64
	}
	return width
}

// addGlyph adds the glyph contours, whose coordinates are
// relative to the origin (x, y), y axis pointing down.
func (c *iconCursor) addGlyph(segments sfnt.Segments, x, y float64) {
	pt := func(p fixed.Point26_6) fixed.Point26_6 {
		return rasterx.ToFixedP(x+float64(p.X)/64, y+float64(p.Y)/64)
	}
	inContour := false
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if inContour {
				c.path.Stop(true)
			}
			c.path.Start(pt(seg.Args[0]))
			inContour = true
		case sfnt.SegmentOpLineTo:
			c.path.Line(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			c.path.QuadBezier(pt(seg.Args[0]), pt(seg.Args[1]))
		case sfnt.SegmentOpCubeTo:
			c.path.CubeBezier(pt(seg.Args[0]), pt(seg.Args[1]), pt(seg.Args[2]))
		}
	}
	if inContour {
		c.path.Stop(true)
	}
}
