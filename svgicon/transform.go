package svgicon

import (
	"math"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// grammar of the transform attribute, as in
// transform="translate(10 20) rotate(45, 5, 5)"
var (
	transformLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z]+`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
		{Name: "Punct", Pattern: `[(),]`},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	})

	transformParser = participle.MustBuild[transformList](
		participle.Lexer(transformLexer),
		participle.Elide("Whitespace"),
	)
)

type transformList struct {
	Items []*transformItem `parser:"( @@ ','? )*"`
}

type transformItem struct {
	Kind string    `parser:"@Ident '('"`
	Args []float64 `parser:"( @Number ','? )* ')'"`
}

// parseTransformList applies the transformations described by v
// on top of m1.
func parseTransformList(m1 Matrix2D, v string) (Matrix2D, error) {
	if strings.TrimSpace(v) == "" {
		return m1, nil
	}
	list, err := transformParser.ParseString("", v)
	if err != nil {
		return m1, err
	}
	for _, item := range list.Items {
		m1, err = readTransformAttr(m1, strings.ToLower(item.Kind), item.Args)
		if err != nil {
			return m1, err
		}
	}
	return m1, nil
}

func readTransformAttr(m1 Matrix2D, k string, points []float64) (Matrix2D, error) {
	ln := len(points)
	switch k {
	case "rotate":
		if ln == 1 {
			m1 = m1.Rotate(points[0] * math.Pi / 180)
		} else if ln == 3 {
			m1 = m1.Translate(points[1], points[2]).
				Rotate(points[0]*math.Pi/180).
				Translate(-points[1], -points[2])
		} else {
			return m1, errParamMismatch
		}
	case "translate":
		if ln == 1 {
			m1 = m1.Translate(points[0], 0)
		} else if ln == 2 {
			m1 = m1.Translate(points[0], points[1])
		} else {
			return m1, errParamMismatch
		}
	case "skewx":
		if ln == 1 {
			m1 = m1.SkewX(points[0] * math.Pi / 180)
		} else {
			return m1, errParamMismatch
		}
	case "skewy":
		if ln == 1 {
			m1 = m1.SkewY(points[0] * math.Pi / 180)
		} else {
			return m1, errParamMismatch
		}
	case "scale":
		if ln == 1 {
			m1 = m1.Scale(points[0], points[0])
		} else if ln == 2 {
			m1 = m1.Scale(points[0], points[1])
		} else {
			return m1, errParamMismatch
		}
	case "matrix":
		if ln == 6 {
			m1 = m1.Mult(Matrix2D{
				A: points[0],
				B: points[1],
				C: points[2],
				D: points[3],
				E: points[4],
				F: points[5]})
		} else {
			return m1, errParamMismatch
		}
	default:
		return m1, errParamMismatch
	}
	return m1, nil
}
