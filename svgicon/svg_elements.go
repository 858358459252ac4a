package svgicon

import (
	"encoding/xml"
	"errors"
	"strings"

	"github.com/srwiley/rasterx"
)

func init() {
	// useF refers to drawFuncs
	drawFuncs["use"] = useF
}

type svgFunc func(c *iconCursor, attrs []xml.Attr) error

var drawFuncs = map[string]svgFunc{
	"svg":            svgF,
	"g":              gF,
	"line":           lineF,
	"stop":           stopF,
	"rect":           rectF,
	"circle":         ellipseF,
	"ellipse":        ellipseF,
	"polyline":       polylineF,
	"polygon":        polygonF,
	"path":           pathF,
	"desc":           descF,
	"defs":           defsF,
	"title":          titleF,
	"linearGradient": linearGradientF,
	"radialGradient": radialGradientF,
	"text":           textF,
	"tspan":          tspanF,
}

// length is the destination of a length attribute
type length struct {
	dst *float64
	ref percentageReference
	set *bool // optional
}

// readLengths parses the attributes listed in `fields`,
// ignoring the others.
func (c *iconCursor) readLengths(attrs []xml.Attr, fields map[string]length) error {
	for _, attr := range attrs {
		field, ok := fields[attr.Name.Local]
		if !ok {
			continue
		}
		v, err := c.parseUnit(attr.Value, field.ref)
		if err != nil {
			return err
		}
		*field.dst = v
		if field.set != nil {
			*field.set = true
		}
	}
	return nil
}

// readFractions is the same as readLengths, for gradient coordinates.
// The attributes not listed are passed to `other`.
func readFractions(attrs []xml.Attr, fields map[string]*float64, other func(xml.Attr) error) error {
	for _, attr := range attrs {
		dst, ok := fields[attr.Name.Local]
		var err error
		if ok {
			*dst, err = readFraction(attr.Value)
		} else {
			err = other(attr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func svgF(c *iconCursor, attrs []xml.Attr) error {
	if c.seenRoot { // nested svg elements are handled as groups
		return nil
	}
	c.seenRoot = true
	icon := c.icon
	icon.ViewBox = Bounds{}
	icon.AspectRatio = AspectRatio{}
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "viewBox":
			if err := c.getPoints(attr.Value); err != nil {
				return err
			}
			if len(c.points) != 4 {
				return errParamMismatch
			}
			icon.ViewBox = Bounds{X: c.points[0], Y: c.points[1], W: c.points[2], H: c.points[3]}
		case "width":
			icon.Width = strings.TrimSpace(attr.Value)
		case "height":
			icon.Height = strings.TrimSpace(attr.Value)
		case "preserveAspectRatio":
			// invalid values fall back to the default
			icon.AspectRatio, _ = parseAspectRatio(attr.Value)
		}
	}
	for _, v := range [...]string{icon.Width, icon.Height} {
		if v == "" || isPercentage(v) {
			continue
		}
		if _, err := parseLength(v); err != nil {
			return err
		}
	}
	// a missing view box axis defaults to the size
	w, h := icon.Size()
	if icon.ViewBox.W == 0 {
		icon.ViewBox.W = w
	}
	if icon.ViewBox.H == 0 {
		icon.ViewBox.H = h
	}
	return nil
}

// g only pushes its style
func gF(*iconCursor, []xml.Attr) error { return nil }

func rectF(c *iconCursor, attrs []xml.Attr) error {
	var (
		x, y, w, h, rx, ry float64
		hasRx, hasRy       bool
	)
	err := c.readLengths(attrs, map[string]length{
		"x":      {dst: &x, ref: widthPercentage},
		"y":      {dst: &y, ref: heightPercentage},
		"width":  {dst: &w, ref: widthPercentage},
		"height": {dst: &h, ref: heightPercentage},
		"rx":     {dst: &rx, ref: widthPercentage, set: &hasRx},
		"ry":     {dst: &ry, ref: heightPercentage, set: &hasRy},
	})
	if err != nil || w <= 0 || h <= 0 {
		return err
	}
	switch {
	case hasRx && !hasRy:
		ry = rx
	case hasRy && !hasRx:
		rx = ry
	}
	x, y = x+c.curX, y+c.curY
	c.addRoundRect(x, y, x+w, y+h, clampRadius(rx, w), clampRadius(ry, h))
	return nil
}

// clampRadius bounds a corner radius to [0, side/2]
func clampRadius(r, side float64) float64 {
	if r < 0 {
		return 0
	}
	if r > side/2 {
		return side / 2
	}
	return r
}

// ellipseF handles circle and ellipse
func ellipseF(c *iconCursor, attrs []xml.Attr) error {
	var cx, cy, r, rx, ry float64
	var hasR bool
	err := c.readLengths(attrs, map[string]length{
		"cx": {dst: &cx, ref: widthPercentage},
		"cy": {dst: &cy, ref: heightPercentage},
		"r":  {dst: &r, ref: diagPercentage, set: &hasR},
		"rx": {dst: &rx, ref: widthPercentage},
		"ry": {dst: &ry, ref: heightPercentage},
	})
	if err != nil {
		return err
	}
	if hasR {
		rx, ry = r, r
	}
	if rx <= 0 || ry <= 0 { // not drawn
		return nil
	}
	c.ellipseAt(cx+c.curX, cy+c.curY, rx, ry)
	return nil
}

func lineF(c *iconCursor, attrs []xml.Attr) error {
	var x1, y1, x2, y2 float64
	err := c.readLengths(attrs, map[string]length{
		"x1": {dst: &x1, ref: widthPercentage},
		"y1": {dst: &y1, ref: heightPercentage},
		"x2": {dst: &x2, ref: widthPercentage},
		"y2": {dst: &y2, ref: heightPercentage},
	})
	if err != nil {
		return err
	}
	c.path.Start(rasterx.ToFixedP(x1+c.curX, y1+c.curY))
	c.path.Line(rasterx.ToFixedP(x2+c.curX, y2+c.curY))
	return nil
}

func polylineF(c *iconCursor, attrs []xml.Attr) error {
	c.points = c.points[:0]
	for _, attr := range attrs {
		if attr.Name.Local != "points" {
			continue
		}
		if err := c.getPoints(attr.Value); err != nil {
			return err
		}
		if len(c.points)%2 != 0 {
			// the last odd coordinate is dropped
			c.points = c.points[:len(c.points)-1]
			if err := c.handleError("polygon has odd number of points"); err != nil {
				return err
			}
		}
	}
	if len(c.points) < 4 {
		return nil
	}
	c.path.Start(rasterx.ToFixedP(c.points[0]+c.curX, c.points[1]+c.curY))
	for i := 2; i+1 < len(c.points); i += 2 {
		c.path.Line(rasterx.ToFixedP(c.points[i]+c.curX, c.points[i+1]+c.curY))
	}
	return nil
}

func polygonF(c *iconCursor, attrs []xml.Attr) error {
	err := polylineF(c, attrs)
	if len(c.points) >= 4 {
		c.path.Stop(true)
	}
	return err
}

func pathF(c *iconCursor, attrs []xml.Attr) error {
	for _, attr := range attrs {
		if attr.Name.Local == "d" {
			if err := c.compilePath(attr.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func descF(c *iconCursor, _ []xml.Attr) error {
	c.inDescText = true
	c.icon.Descriptions = append(c.icon.Descriptions, "")
	return nil
}

func titleF(c *iconCursor, _ []xml.Attr) error {
	c.inTitleText = true
	c.icon.Titles = append(c.icon.Titles, "")
	return nil
}

func defsF(c *iconCursor, _ []xml.Attr) error {
	c.inDefs = true
	return nil
}

// gradientAttr handles the attributes common to both gradient kinds
func (c *iconCursor) gradientAttr(attr xml.Attr) error {
	if attr.Name.Local != "id" {
		return c.readGradAttr(attr)
	}
	if attr.Value == "" {
		return errZeroLengthID
	}
	c.icon.grads[attr.Value] = c.grad
	return nil
}

func linearGradientF(c *iconCursor, attrs []xml.Attr) error {
	c.inGrad = true
	c.grad = &Gradient{Bounds: c.icon.ViewBox, Matrix: Identity}
	direction := Linear{0, 0, 1, 0}
	err := readFractions(attrs, map[string]*float64{
		"x1": &direction[0],
		"y1": &direction[1],
		"x2": &direction[2],
		"y2": &direction[3],
	}, c.gradientAttr)
	c.grad.Direction = direction
	return err
}

func radialGradientF(c *iconCursor, attrs []xml.Attr) error {
	c.inGrad = true
	c.grad = &Gradient{Bounds: c.icon.ViewBox, Matrix: Identity}
	direction := Radial{0.5, 0.5, 0, 0, 0.5, 0}
	err := readFractions(attrs, map[string]*float64{
		"cx": &direction[0],
		"cy": &direction[1],
		"fx": &direction[2],
		"fy": &direction[3],
		"r":  &direction[4],
		"fr": &direction[5],
	}, c.gradientAttr)
	// the focal point defaults to the center
	if !hasAttr(attrs, "fx") {
		direction[2] = direction[0]
	}
	if !hasAttr(attrs, "fy") {
		direction[3] = direction[1]
	}
	c.grad.Direction = direction
	return err
}

func stopF(c *iconCursor, attrs []xml.Attr) error {
	if !c.inGrad {
		return nil
	}
	stop := GradStop{Opacity: 1, StopColor: DefaultStyle.color.asColor()}
	for _, decl := range styleDeclarations(attrs) {
		var err error
		v := strings.TrimSpace(decl.value)
		switch strings.TrimSpace(decl.key) {
		case "offset":
			stop.Offset, err = readFraction(v)
		case "stop-opacity":
			stop.Opacity, err = readFraction(v)
		case "stop-color":
			if v == "currentColor" {
				stop.StopColor = c.top().color.asColor()
			} else if col, cerr := parseSVGColor(v); cerr != nil {
				err = c.handleError(cerr.Error())
			} else {
				stop.StopColor = col.asColor()
			}
		}
		if err != nil {
			return err
		}
	}
	// offsets are clamped to [0,1] and never decrease
	stop.Offset = clamp01(stop.Offset)
	if n := len(c.grad.Stops); n > 0 && stop.Offset < c.grad.Stops[n-1].Offset {
		stop.Offset = c.grad.Stops[n-1].Offset
	}
	stop.Opacity = clamp01(stop.Opacity)
	c.grad.Stops = append(c.grad.Stops, stop)
	return nil
}

func hasAttr(attrs []xml.Attr, name string) bool {
	for _, attr := range attrs {
		if attr.Name.Local == name {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// useF replays the saved definition referenced by href,
// translated by (x, y).
func useF(c *iconCursor, attrs []xml.Attr) error {
	var x, y float64
	if err := c.readLengths(attrs, map[string]length{
		"x": {dst: &x, ref: widthPercentage},
		"y": {dst: &y, ref: heightPercentage},
	}); err != nil {
		return err
	}
	var href string
	for _, attr := range attrs {
		if attr.Name.Local == "href" {
			href = attr.Value
		}
	}
	switch {
	case href == "":
		return errors.New("only use tags with href is supported")
	case !strings.HasPrefix(href, "#"):
		return errors.New("only the ID CSS selector is supported")
	}
	defs, ok := c.icon.defs[href[1:]]
	if !ok {
		return c.handleError("href ID in use statement was not found in saved defs")
	}

	c.curX, c.curY = x, y
	depth := len(c.styleStack)
	defer func() {
		c.curX, c.curY = 0, 0
		c.styleStack = c.styleStack[:depth]
	}()
	for _, def := range defs {
		if def.Tag == "endg" {
			if len(c.styleStack) > depth {
				c.styleStack = c.styleStack[:len(c.styleStack)-1]
			}
			continue
		}
		if err := c.pushStyle(def.Attrs); err != nil {
			return err
		}
		df, ok := drawFuncs[def.Tag]
		if !ok {
			return c.handleError("Cannot process svg element " + def.Tag)
		}
		if err := df(c, def.Attrs); err != nil {
			return err
		}
		c.appendPath()
		if def.Tag != "g" {
			c.styleStack = c.styleStack[:len(c.styleStack)-1]
		}
	}
	return nil
}
