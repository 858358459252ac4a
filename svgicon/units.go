package svgicon

import (
	"math"
	"strconv"
	"strings"
)

// unitFactors converts absolute CSS units to user units (CSS pixels, 96 per inch).
// em and ex use the default font size.
var unitFactors = [...]struct {
	suffix string
	factor float64
}{
	{"px", 1},
	{"pt", 96. / 72},
	{"pc", 16},
	{"mm", 96 / 25.4},
	{"cm", 96 / 2.54},
	{"in", 96},
	{"em", defaultFontSize},
	{"ex", defaultFontSize / 2},
}

func parseBasicFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseLength parses a length with an optional absolute unit,
// returning its value in user units.
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, u := range unitFactors {
		if strings.HasSuffix(s, u.suffix) {
			v, err := parseBasicFloat(strings.TrimSuffix(s, u.suffix))
			return v * u.factor, err
		}
	}
	return parseBasicFloat(s)
}

// isPercentage returns true for values like "100%"
func isPercentage(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), "%")
}

type percentageReference uint8

const (
	widthPercentage percentageReference = iota
	heightPercentage
	diagPercentage
)

// parseUnit parses a length, resolving percentages
// against the current view box.
func (c *iconCursor) parseUnit(s string, asPerc percentageReference) (float64, error) {
	if isPercentage(s) {
		v, err := parseBasicFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if err != nil {
			return 0, err
		}
		v /= 100
		vb := c.icon.ViewBox
		switch asPerc {
		case widthPercentage:
			return v * vb.W, nil
		case heightPercentage:
			return v * vb.H, nil
		default:
			return v * math.Sqrt(vb.W*vb.W+vb.H*vb.H) / math.Sqrt2, nil
		}
	}
	return parseLength(s)
}

func readFraction(v string) (f float64, err error) {
	v = strings.TrimSpace(v)
	d := 1.0
	if strings.HasSuffix(v, "%") {
		d = 100
		v = strings.TrimSuffix(v, "%")
	}
	f, err = parseBasicFloat(v)
	f /= d
	return
}

// splitOnCommaOrSpace returns a list of strings after splitting the input on comma and space delimiters
func splitOnCommaOrSpace(s string) []string {
	return strings.FieldsFunc(s,
		func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
}
