package svgicon

import (
	"encoding/xml"
	"strings"

	"golang.org/x/image/math/fixed"
)

func fToFixed(f float64) fixed.Int26_6 {
	return fixed.Int26_6(f * 64)
}

// styleDeclaration is a property: value pair
type styleDeclaration struct{ key, value string }

// styleDeclarations returns the presentation attributes followed by the
// content of the style attribute, so that the latter takes precedence.
func styleDeclarations(attrs []xml.Attr) []styleDeclaration {
	var out, fromStyle []styleDeclaration
	for _, attr := range attrs {
		if strings.ToLower(attr.Name.Local) != "style" {
			out = append(out, styleDeclaration{attr.Name.Local, attr.Value})
			continue
		}
		for _, decl := range strings.Split(attr.Value, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			fromStyle = append(fromStyle, styleDeclaration{strings.TrimSpace(k), v})
		}
	}
	return append(out, fromStyle...)
}

// readPaint reads the value of a fill or stroke property.
func (c *iconCursor) readPaint(curStyle *PathStyle, current Pattern, v string) (Pattern, error) {
	switch v {
	case "inherit":
		return current, nil
	case "currentColor":
		return curStyle.color.asPattern(), nil
	}
	gradient, fallback, ok := c.readGradURL(v)
	if ok {
		if gradient != nil {
			return gradient, nil
		}
		v = fallback
	}
	optCol, err := parseSVGColor(v)
	if err != nil {
		return current, c.handleError(err.Error())
	}
	return optCol.asPattern(), nil
}

func (c *iconCursor) readStyleAttr(curStyle *PathStyle, k, v string) error {
	switch k {
	case "fill":
		p, err := c.readPaint(curStyle, curStyle.FillerColor, v)
		if err != nil {
			return err
		}
		curStyle.FillerColor = p
	case "stroke":
		p, err := c.readPaint(curStyle, curStyle.LinerColor, v)
		if err != nil {
			return err
		}
		curStyle.LinerColor = p
	case "color":
		if v == "inherit" || v == "currentColor" {
			break
		}
		col, err := parseSVGColor(v)
		if err != nil {
			return c.handleError(err.Error())
		}
		curStyle.color = col
	case "fill-rule", "clip-rule":
		if k == "fill-rule" {
			curStyle.UseNonZeroWinding = v != "evenodd"
		}
	case "display":
		if v == "none" {
			curStyle.hidden = true
		}
	case "visibility":
		curStyle.hidden = v == "hidden" || v == "collapse"
	case "stroke-linegap":
		switch v {
		case "flat":
			curStyle.Join.LineGap = FlatGap
		case "round":
			curStyle.Join.LineGap = RoundGap
		case "cubic":
			curStyle.Join.LineGap = CubicGap
		case "quadratic":
			curStyle.Join.LineGap = QuadraticGap
		}
	case "stroke-leadlinecap":
		if capMode, ok := parseCap(v); ok {
			curStyle.Join.LeadLineCap = capMode
		}
	case "stroke-linecap":
		if capMode, ok := parseCap(v); ok {
			curStyle.Join.TrailLineCap = capMode
		}
	case "stroke-linejoin":
		switch v {
		case "miter":
			curStyle.Join.LineJoin = Miter
		case "miter-clip":
			curStyle.Join.LineJoin = MiterClip
		case "arc-clip":
			curStyle.Join.LineJoin = ArcClip
		case "round":
			curStyle.Join.LineJoin = Round
		case "arc":
			curStyle.Join.LineJoin = Arc
		case "bevel":
			curStyle.Join.LineJoin = Bevel
		}
	case "stroke-miterlimit":
		mLimit, err := parseBasicFloat(v)
		if err != nil {
			return err
		}
		curStyle.Join.MiterLimit = fToFixed(mLimit)
	case "stroke-width":
		width, err := c.parseUnit(v, diagPercentage)
		if err != nil {
			return err
		}
		curStyle.LineWidth = width
	case "stroke-dashoffset":
		dashOffset, err := c.parseUnit(v, diagPercentage)
		if err != nil {
			return err
		}
		curStyle.Dash.DashOffset = dashOffset
	case "stroke-dasharray":
		if v == "none" {
			curStyle.Dash.Dash = nil
			break
		}
		dashes := splitOnCommaOrSpace(v)
		dList := make([]float64, len(dashes))
		var sum float64
		for i, dstr := range dashes {
			d, err := c.parseUnit(dstr, diagPercentage)
			if err != nil {
				return err
			}
			if d < 0 { // invalid array: rendered as solid
				dList = nil
				break
			}
			dList[i] = d
			sum += d
		}
		if sum == 0 {
			dList = nil
		}
		if len(dList)%2 == 1 { // odd lists are repeated
			dList = append(dList, dList...)
		}
		curStyle.Dash.Dash = dList
	case "opacity", "stroke-opacity", "fill-opacity":
		op, err := readFraction(v)
		if err != nil {
			return err
		}
		if k != "stroke-opacity" {
			curStyle.FillOpacity *= op
		}
		if k != "fill-opacity" {
			curStyle.LineOpacity *= op
		}
	case "transform":
		m, err := parseTransformList(curStyle.transform, v)
		if err != nil {
			return err
		}
		curStyle.transform = m
	case "font-family":
		curStyle.font.family = v
	case "font-size":
		size, err := c.parseFontSize(curStyle.font.size, v)
		if err != nil {
			return err
		}
		curStyle.font.size = size
	case "text-anchor":
		switch v {
		case "start":
			curStyle.font.anchor = anchorStart
		case "middle":
			curStyle.font.anchor = anchorMiddle
		case "end":
			curStyle.font.anchor = anchorEnd
		}
	}
	return nil
}

func parseCap(v string) (CapMode, bool) {
	switch v {
	case "butt":
		return ButtCap, true
	case "round":
		return RoundCap, true
	case "square":
		return SquareCap, true
	case "cubic":
		return CubicCap, true
	case "quadratic":
		return QuadraticCap, true
	}
	return NilCap, false
}

// pushStyle parses the style element, and push it on the style stack.
// Note that this parses both the contents of a style attribute plus
// direct presentation attributes.
func (c *iconCursor) pushStyle(attrs []xml.Attr) error {
	// Make a copy of the top style
	curStyle := c.top()
	for _, decl := range styleDeclarations(attrs) {
		k := strings.TrimSpace(strings.ToLower(decl.key))
		v := strings.TrimSpace(decl.value)
		if err := c.readStyleAttr(&curStyle, k, v); err != nil {
			return err
		}
	}
	c.styleStack = append(c.styleStack, curStyle) // Push style onto stack
	return nil
}

func (c *iconCursor) readStartElement(se xml.StartElement) (err error) {
	var skipDef bool
	if se.Name.Local == "radialGradient" || se.Name.Local == "linearGradient" || c.inGrad {
		skipDef = true
	}
	if c.inDefs && !skipDef {
		ID := ""
		for _, attr := range se.Attr {
			if attr.Name.Local == "id" {
				ID = attr.Value
			}
		}
		if ID != "" && len(c.currentDef) > 0 {
			c.icon.defs[c.currentDef[0].ID] = c.currentDef
			c.currentDef = make([]definition, 0)
		}
		c.currentDef = append(c.currentDef, definition{
			ID:    ID,
			Tag:   se.Name.Local,
			Attrs: se.Attr,
		})
		return nil
	}
	df, ok := drawFuncs[se.Name.Local]
	if !ok {
		// the content of unsupported elements (clip paths, masks, metadata...)
		// must not be drawn
		c.skipDepth = 1
		return c.handleError("Cannot process svg element " + se.Name.Local)
	}
	err = df(c, se.Attr)
	c.appendPath()
	return
}

// appendPath saves the path parsed from the current element, if any.
func (c *iconCursor) appendPath() {
	if len(c.path) == 0 {
		return
	}
	style := c.top()
	if !style.hidden {
		pathCopy := append(Path{}, c.path...)
		c.icon.SVGPaths = append(c.icon.SVGPaths, SvgPath{Path: pathCopy, Style: style})
	}
	c.path = c.path[:0]
}
