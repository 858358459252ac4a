// Package svgicon parses SVG documents into a list of styled paths,
// which are then sent to a drawing backend implementing Driver
// (see svgraster and svgpdf).
package svgicon

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// PathStyle holds the state of the SVG style
type PathStyle struct {
	FillOpacity, LineOpacity float64
	LineWidth                float64
	UseNonZeroWinding        bool

	Join                    JoinOptions
	Dash                    DashOptions
	FillerColor, LinerColor Pattern // either PlainColor or Gradient

	transform Matrix2D       // current transform
	color     optionnalColor // value of the 'color' property, used by currentColor
	font      fontStyle
	hidden    bool // display:none or visibility:hidden
}

// SvgPath binds a style to a path
type SvgPath struct {
	Path  Path
	Style PathStyle
}

// Bounds defines a bounding box, such as a viewport
// or a path extent.
type Bounds struct{ X, Y, W, H float64 }

// Align is the alignment of the view box along one axis.
type Align uint8

const (
	AlignMid Align = iota
	AlignMin
	AlignMax
)

// fraction of the free space placed before the view box
func (a Align) fraction() float64 {
	switch a {
	case AlignMin:
		return 0
	case AlignMax:
		return 1
	default:
		return 0.5
	}
}

// AspectRatio is the preserveAspectRatio attribute of the root element.
// The zero value is "xMidYMid meet".
type AspectRatio struct {
	X, Y  Align
	None  bool // non uniform scaling
	Slice bool // cover the viewport instead of fitting in it
}

var aligns = map[string]Align{"Min": AlignMin, "Mid": AlignMid, "Max": AlignMax}

// parseAspectRatio returns false for invalid values
func parseAspectRatio(s string) (AspectRatio, bool) {
	var ar AspectRatio
	fields := strings.Fields(s)
	if len(fields) != 0 && fields[0] == "defer" {
		fields = fields[1:]
	}
	if len(fields) == 0 || len(fields) > 2 {
		return ar, false
	}
	if align := fields[0]; align == "none" {
		ar.None = true
	} else {
		if len(align) != 8 || align[0] != 'x' || align[4] != 'Y' {
			return ar, false
		}
		var okX, okY bool
		ar.X, okX = aligns[align[1:4]]
		ar.Y, okY = aligns[align[5:8]]
		if !okX || !okY {
			return AspectRatio{}, false
		}
	}
	if len(fields) == 2 {
		switch fields[1] {
		case "meet":
		case "slice":
			ar.Slice = true
		default:
			return AspectRatio{}, false
		}
	}
	return ar, true
}

// SvgIcon holds data from parsed SVGs.
// See the `Draw` methods to use it.
type SvgIcon struct {
	ViewBox      Bounds
	Titles       []string // Title elements collect here
	Descriptions []string // Description elements collect here
	SVGPaths     []SvgPath
	Transform    Matrix2D

	Width, Height string // top level width and height attributes
	AspectRatio   AspectRatio

	grads map[string]*Gradient
	defs  map[string][]definition
}

// Size returns the intrinsic size of the icon, in CSS pixels:
// the width and height attributes of the root element when
// they are absolute lengths, or the view box dimensions.
func (s *SvgIcon) Size() (w, h float64) {
	w, h = s.ViewBox.W, s.ViewBox.H
	if s.Width != "" && !isPercentage(s.Width) {
		if v, err := parseLength(s.Width); err == nil {
			w = v
		}
	}
	if s.Height != "" && !isPercentage(s.Height) {
		if v, err := parseLength(s.Height); err == nil {
			h = v
		}
	}
	return w, h
}

// iconCursor is used while parsing SVG files
type iconCursor struct {
	pathCursor
	icon                                    *SvgIcon
	styleStack                              []PathStyle
	grad                                    *Gradient
	gradHref                                string
	inTitleText, inDescText, inGrad, inDefs bool
	currentDef                              []definition
	seenRoot                                bool
	skipDepth                               int // > 0 inside unsupported elements

	text  textCursor
	fonts ParseOptions
}

// definition is used to store what's given in a def tag
type definition struct {
	ID, Tag string
	Attrs   []xml.Attr
}

// ParseOptions customizes the conversion of <text> elements.
type ParseOptions struct {
	ErrorMode ErrorMode

	// FontFamily replaces generic and unknown font families.
	FontFamily string
	// Fonts resolves font families. When nil, text elements are ignored.
	Fonts FontSource
}

// ReadIconStream parses an SVG document. Only a subset of SVG is supported:
// `errMode` selects what happens with the unsupported elements.
func ReadIconStream(stream io.Reader, errMode ErrorMode) (*SvgIcon, error) {
	return Parse(stream, ParseOptions{ErrorMode: errMode})
}

// Parse is the same as ReadIconStream, with additional options
// used to render text.
func Parse(stream io.Reader, opts ParseOptions) (*SvgIcon, error) {
	icon := &SvgIcon{defs: make(map[string][]definition), grads: make(map[string]*Gradient), Transform: Identity}
	cursor := &iconCursor{styleStack: []PathStyle{DefaultStyle}, icon: icon, fonts: opts}
	cursor.errorMode = opts.ErrorMode

	decoder := xml.NewDecoder(stream)
	decoder.CharsetReader = charset.NewReaderLabel
	seenTag := false
	for {
		t, err := decoder.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		switch se := t.(type) {
		case xml.StartElement:
			seenTag = true
			err = cursor.startElement(se)
		case xml.EndElement:
			cursor.endElement(se)
		case xml.CharData:
			cursor.charData(se)
		}
		if err != nil {
			return nil, err
		}
	}
	if !seenTag {
		return nil, errors.New("invalid svg xml icon")
	}
	return icon, nil
}

// top returns the current style
func (c *iconCursor) top() PathStyle { return c.styleStack[len(c.styleStack)-1] }

func (c *iconCursor) popStyle() { c.styleStack = c.styleStack[:len(c.styleStack)-1] }

// startElement pushes the style of the element and parses it.
func (c *iconCursor) startElement(se xml.StartElement) error {
	if c.skipDepth > 0 {
		c.skipDepth++
		c.styleStack = append(c.styleStack, c.top())
		return nil
	}
	if err := c.pushStyle(se.Attr); err != nil {
		return err
	}
	return c.readStartElement(se)
}

func (c *iconCursor) endElement(se xml.EndElement) {
	defer c.popStyle()
	if c.skipDepth > 0 {
		c.skipDepth--
		return
	}
	switch se.Name.Local {
	case "g":
		if c.inDefs {
			c.currentDef = append(c.currentDef, definition{Tag: "endg"})
		}
	case "title":
		c.inTitleText = false
	case "desc":
		c.inDescText = false
	case "defs":
		if len(c.currentDef) > 0 {
			c.icon.defs[c.currentDef[0].ID] = c.currentDef
			c.currentDef = nil
		}
		c.inDefs = false
	case "radialGradient", "linearGradient":
		c.closeGradient()
	case "tspan":
		c.flushText()
	case "text":
		c.flushText()
		c.text.active = false
	}
}

func (c *iconCursor) charData(data xml.CharData) {
	if c.skipDepth > 0 {
		return
	}
	if c.inTitleText {
		c.icon.Titles[len(c.icon.Titles)-1] += string(data)
	}
	if c.inDescText {
		c.icon.Descriptions[len(c.icon.Descriptions)-1] += string(data)
	}
	if c.text.active {
		c.text.buf.Write(data)
	}
}
