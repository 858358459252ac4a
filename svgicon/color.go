package svgicon

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Pattern is the paint of a fill or a stroke:
// either a PlainColor or a Gradient.
type Pattern interface {
	isPattern()
}

func (PlainColor) isPattern() {}
func (Gradient) isPattern()   {}

// PlainColor is a uniform color.
type PlainColor struct {
	color.NRGBA
}

// NewPlainColor returns the color with the given components.
func NewPlainColor(r, g, b, a uint8) PlainColor {
	return PlainColor{NRGBA: color.NRGBA{R: r, G: g, B: b, A: a}}
}

// optionnalColor is the result of parsing a color,
// which may be "none".
type optionnalColor struct {
	valid bool
	color PlainColor
}

func (o optionnalColor) asPattern() Pattern {
	if !o.valid {
		return nil
	}
	return o.color
}

func (o optionnalColor) asColor() color.Color {
	if !o.valid {
		return color.NRGBA{}
	}
	return o.color
}

// parseColorValue parses a component of rgb(), either
// an integer in [0, 255] or a percentage.
func parseColorValue(v string) (uint8, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errParamMismatch
	}
	if v[len(v)-1] == '%' {
		n, err := strconv.ParseFloat(strings.TrimSpace(v[:len(v)-1]), 64)
		if err != nil {
			return 0, err
		}
		return clampByte(n * 255 / 100), nil
	}
	n, err := strconv.ParseFloat(v, 64)
	return clampByte(n), err
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// parseAlphaValue parses the alpha of rgba(), either in [0, 1] or a percentage.
func parseAlphaValue(v string) (uint8, error) {
	f, err := readFraction(v)
	return clampByte(f * 255), err
}

func parseHexColor(v string) (PlainColor, error) {
	var digits [8]uint8
	if len(v) > len(digits) {
		return PlainColor{}, fmt.Errorf("invalid hex color #%s", v)
	}
	for i := range v {
		d, err := strconv.ParseUint(v[i:i+1], 16, 8)
		if err != nil {
			return PlainColor{}, err
		}
		digits[i] = uint8(d)
	}
	switch len(v) {
	case 3, 4: // #rgb and #rgba
		c := NewPlainColor(digits[0]*0x11, digits[1]*0x11, digits[2]*0x11, 0xff)
		if len(v) == 4 {
			c.A = digits[3] * 0x11
		}
		return c, nil
	case 6, 8: // #rrggbb and #rrggbbaa
		c := NewPlainColor(digits[0]<<4|digits[1], digits[2]<<4|digits[3], digits[4]<<4|digits[5], 0xff)
		if len(v) == 8 {
			c.A = digits[6]<<4 | digits[7]
		}
		return c, nil
	}
	return PlainColor{}, fmt.Errorf("invalid hex color #%s", v)
}

// parseSVGColor parses an SVG color: a keyword, a hex value or rgb()/rgba().
// "none" returns an invalid optionnalColor and no error. "currentColor"
// is resolved by the caller.
func parseSVGColor(colorStr string) (optionnalColor, error) {
	v := strings.ToLower(strings.TrimSpace(colorStr))
	switch v {
	case "none", "":
		return optionnalColor{}, nil
	case "transparent":
		return optionnalColor{valid: true}, nil
	}
	if c, ok := colornames.Map[v]; ok {
		return optionnalColor{valid: true, color: NewPlainColor(c.R, c.G, c.B, c.A)}, nil
	}
	if strings.HasPrefix(v, "#") {
		c, err := parseHexColor(v[1:])
		return optionnalColor{valid: err == nil, color: c}, err
	}
	for _, prefix := range [...]string{"rgba(", "rgb("} {
		if !strings.HasPrefix(v, prefix) || !strings.HasSuffix(v, ")") {
			continue
		}
		args := splitOnCommaOrSpace(strings.ReplaceAll(v[len(prefix):len(v)-1], "/", " "))
		if len(args) != 3 && len(args) != 4 {
			return optionnalColor{}, fmt.Errorf("invalid color %q", colorStr)
		}
		var (
			comps [4]uint8
			err   error
		)
		comps[3] = 0xff
		for i, arg := range args {
			if i == 3 {
				comps[3], err = parseAlphaValue(arg)
			} else {
				comps[i], err = parseColorValue(arg)
			}
			if err != nil {
				return optionnalColor{}, err
			}
		}
		return optionnalColor{valid: true, color: NewPlainColor(comps[0], comps[1], comps[2], comps[3])}, nil
	}
	return optionnalColor{}, fmt.Errorf("invalid color %q", colorStr)
}
