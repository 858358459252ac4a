package svgicon

import (
	"encoding/xml"
	"image/color"
	"strings"
)

// GradientUnits is the type for gradient units
type GradientUnits byte

// SVG bounds paremater constants
const (
	ObjectBoundingBox GradientUnits = iota
	UserSpaceOnUse
)

// SpreadMethod is the type for spread parameters
type SpreadMethod byte

// SVG spread parameter constants
const (
	PadSpread SpreadMethod = iota
	ReflectSpread
	RepeatSpread
)

// GradStop represents a stop in the SVG 2.0 gradient specification
type GradStop struct {
	StopColor color.Color
	Offset    float64
	Opacity   float64
}

// Gradient holds a description of an SVG 2.0 gradient
type Gradient struct {
	Direction gradientDirecter
	Stops     []GradStop
	Bounds    Bounds
	Matrix    Matrix2D
	Spread    SpreadMethod
	Units     GradientUnits
}

// radial or linear
type gradientDirecter interface {
	isRadial() bool
}

// Linear is x1, y1, x2, y2
type Linear [4]float64

func (Linear) isRadial() bool { return false }

// Radial is cx, cy, fx, fy, r, fr
type Radial [6]float64

func (Radial) isRadial() bool { return true }

// IsRadial returns true for radial gradients.
func (g Gradient) IsRadial() bool {
	return g.Direction != nil && g.Direction.isRadial()
}

// transformed returns a copy of the gradient whose user space
// coordinates are mapped by m.
func (g Gradient) transformed(m Matrix2D) Gradient {
	if g.Units == UserSpaceOnUse {
		g.Matrix = m.Mult(g.Matrix)
	}
	return g
}

// readGradURL reads an SVG format gradient url, with an optional fallback color
// as in "url(#grad) red". ok is false if v is not an url.
// A reference to an unknown gradient returns a nil Pattern.
func (c *iconCursor) readGradURL(v string) (grad Pattern, fallback string, ok bool) {
	if !strings.HasPrefix(v, "url(") {
		return nil, "", false
	}
	end := strings.IndexByte(v, ')')
	if end == -1 {
		return nil, "", false
	}
	urlStr := strings.Trim(strings.TrimSpace(v[4:end]), `"'`)
	fallback = strings.TrimSpace(v[end+1:])
	if !strings.HasPrefix(urlStr, "#") {
		return nil, fallback, true
	}
	g, has := c.icon.grads[urlStr[1:]]
	if !has {
		return nil, fallback, true
	}
	out := *g
	out.Stops = append([]GradStop(nil), g.Stops...)
	return out, fallback, true
}

// readGradAttr reads an SVG gradient attribute
func (c *iconCursor) readGradAttr(attr xml.Attr) (err error) {
	switch attr.Name.Local {
	case "gradientTransform":
		c.grad.Matrix, err = parseTransformList(Identity, attr.Value)
	case "gradientUnits":
		switch strings.TrimSpace(attr.Value) {
		case "userSpaceOnUse":
			c.grad.Units = UserSpaceOnUse
		case "objectBoundingBox":
			c.grad.Units = ObjectBoundingBox
		}
	case "spreadMethod":
		switch strings.TrimSpace(attr.Value) {
		case "pad":
			c.grad.Spread = PadSpread
		case "reflect":
			c.grad.Spread = ReflectSpread
		case "repeat":
			c.grad.Spread = RepeatSpread
		}
	case "href":
		c.gradHref = strings.TrimPrefix(strings.TrimSpace(attr.Value), "#")
	}
	return
}

// closeGradient resolves the href of the gradient being parsed:
// a gradient without stops uses the stops of the referenced one.
func (c *iconCursor) closeGradient() {
	if c.grad != nil && len(c.grad.Stops) == 0 && c.gradHref != "" {
		if ref, ok := c.icon.grads[c.gradHref]; ok && ref != c.grad {
			c.grad.Stops = append([]GradStop(nil), ref.Stops...)
		}
	}
	c.inGrad = false
	c.grad = nil
	c.gradHref = ""
}
