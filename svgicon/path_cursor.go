package svgicon

import (
	"log"
	"math"
	"strconv"
	"unicode"

	"github.com/srwiley/rasterx"
)

// pathCursor is used to parse SVG format path strings into a Path
type pathCursor struct {
	path                   Path
	placeX, placeY         float64
	curX, curY             float64 // offset applied by <use> elements
	cntlPtX, cntlPtY       float64
	pathStartX, pathStartY float64
	points                 []float64
	lastKey                uint8
	errorMode              ErrorMode
	inPath                 bool
}

func (c *pathCursor) init() {
	c.placeX = 0.0
	c.placeY = 0.0
	c.points = c.points[0:0]
	c.lastKey = ' '
	c.path.Clear()
	c.inPath = false
}

// readFloat reads a floating point value and adds it to the cursor's points slice.
// A string like "0.5.5" holds two values.
func (c *pathCursor) readFloat(numStr string) error {
	last := 0
	isFirst := true
	for i, n := range numStr {
		if n == '.' {
			if isFirst {
				isFirst = false
				continue
			}
			f, err := strconv.ParseFloat(numStr[last:i], 64)
			if err != nil {
				return err
			}
			c.points = append(c.points, f)
			last = i
		}
	}
	f, err := strconv.ParseFloat(numStr[last:], 64)
	if err != nil {
		return err
	}
	c.points = append(c.points, f)
	return nil
}

// getPoints reads a set of floating point values from the SVG format number string,
// and add them to the cursor's points slice.
func (c *pathCursor) getPoints(dataPoints string) error {
	lastIndex := -1
	c.points = c.points[0:0]
	lr := ' '
	for i, r := range dataPoints {
		isExp := r == 'e' || r == 'E'
		if !unicode.IsDigit(r) && r != '.' && !((r == '-' || r == '+') && (lr == 'e' || lr == 'E')) && !isExp {
			if lastIndex != -1 {
				if err := c.readFloat(dataPoints[lastIndex:i]); err != nil {
					return err
				}
			}
			if r == '-' || r == '+' {
				lastIndex = i
			} else {
				lastIndex = -1
			}
		} else if lastIndex == -1 {
			lastIndex = i
		}
		lr = r
	}
	if lastIndex != -1 && lastIndex != len(dataPoints) {
		if err := c.readFloat(dataPoints[lastIndex:]); err != nil {
			return err
		}
	}
	return nil
}

// compilePath translates the svgPath description string into a Path.
func (c *pathCursor) compilePath(svgPath string) error {
	c.init()
	lastIndex := -1
	for i, v := range svgPath {
		if unicode.IsLetter(v) && v != 'e' && v != 'E' {
			if lastIndex != -1 {
				if err := c.addSeg(svgPath[lastIndex:i]); err != nil {
					return err
				}
			}
			lastIndex = i
		}
	}
	if lastIndex != -1 {
		if err := c.addSeg(svgPath[lastIndex:]); err != nil {
			return err
		}
	}
	return nil
}

func reflect(px, py, rx, ry float64) (x, y float64) {
	return px*2 - rx, py*2 - ry
}

// abs resolves a (possibly relative) point
func (c *pathCursor) abs(x, y float64, rel bool) (float64, float64) {
	if rel {
		return x + c.placeX, y + c.placeY
	}
	return x, y
}

// ensureStart opens a sub-path at the current point if needed,
// as required after a close command.
func (c *pathCursor) ensureStart() {
	if !c.inPath {
		c.moveTo(c.placeX, c.placeY)
	}
}

func (c *pathCursor) moveTo(x, y float64) {
	c.path.Start(rasterx.ToFixedP(x+c.curX, y+c.curY))
	c.pathStartX, c.pathStartY = x, y
	c.placeX, c.placeY = x, y
	c.inPath = true
}

func (c *pathCursor) lineTo(x, y float64) {
	c.ensureStart()
	c.path.Line(rasterx.ToFixedP(x+c.curX, y+c.curY))
	c.placeX, c.placeY = x, y
}

func (c *pathCursor) quadTo(cx, cy, x, y float64) {
	c.ensureStart()
	c.path.QuadBezier(rasterx.ToFixedP(cx+c.curX, cy+c.curY), rasterx.ToFixedP(x+c.curX, y+c.curY))
	c.cntlPtX, c.cntlPtY = cx, cy
	c.placeX, c.placeY = x, y
}

func (c *pathCursor) cubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	c.ensureStart()
	c.path.CubeBezier(rasterx.ToFixedP(c1x+c.curX, c1y+c.curY),
		rasterx.ToFixedP(c2x+c.curX, c2y+c.curY), rasterx.ToFixedP(x+c.curX, y+c.curY))
	c.cntlPtX, c.cntlPtY = c2x, c2y
	c.placeX, c.placeY = x, y
}

// arcTo adds an elliptical arc, described by the 7 arguments
// of the A command (with an absolute end point).
func (c *pathCursor) arcTo(arc []float64) {
	c.ensureStart()
	ra, rb := math.Abs(arc[0]), math.Abs(arc[1])
	endX, endY := arc[5], arc[6]
	if endX == c.placeX && endY == c.placeY {
		return
	}
	if ra == 0 || rb == 0 {
		c.lineTo(endX, endY)
		return
	}
	startX, startY := c.placeX+c.curX, c.placeY+c.curY
	cx, cy := rasterx.FindEllipseCenter(&ra, &rb, arc[2]*math.Pi/180, startX, startY,
		endX+c.curX, endY+c.curY, arc[4] == 0, arc[3] == 0)
	points := []float64{ra, rb, arc[2], arc[3], arc[4], endX + c.curX, endY + c.curY}
	rasterx.AddArc(points, cx, cy, startX, startY, &c.path)
	c.placeX, c.placeY = endX, endY
}

// ellipseAt adds a closed ellipse centered at cx, cy of radius rx and ry
func (c *pathCursor) ellipseAt(cx, cy, rx, ry float64) {
	rasterx.AddEllipse(cx, cy, rx, ry, 0, &c.path)
}

// addRoundRect adds a rectangle with rounded corners.
func (c *pathCursor) addRoundRect(minX, minY, maxX, maxY, rx, ry float64) {
	rasterx.AddRoundRect(minX, minY, maxX, maxY, rx, ry, 0, rasterx.RoundGap, &c.path)
}

// addSeg decodes an SVG seqment string into equivalent path commands saved
// in the cursor's Path
func (c *pathCursor) addSeg(segString string) error {
	// Parse the string describing the numeric points in SVG format
	if err := c.getPoints(segString[1:]); err != nil {
		return err
	}
	pts := c.points
	l := len(pts)
	k := segString[0]
	rel := k >= 'a' && k <= 'z'
	switch k {
	case 'z', 'Z':
		if l != 0 {
			return errParamMismatch
		}
		if c.inPath {
			c.path.Stop(true)
			c.placeX = c.pathStartX
			c.placeY = c.pathStartY
			c.inPath = false
		}
	case 'm', 'M':
		if l == 0 || l%2 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 2 {
			x, y := c.abs(pts[i], pts[i+1], rel)
			if i == 0 {
				c.moveTo(x, y)
			} else {
				c.lineTo(x, y) // implicit line to
			}
		}
	case 'l', 'L':
		if l == 0 || l%2 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 2 {
			c.lineTo(c.abs(pts[i], pts[i+1], rel))
		}
	case 'h', 'H':
		if l == 0 {
			return errParamMismatch
		}
		for _, p := range pts {
			if rel {
				p += c.placeX
			}
			c.lineTo(p, c.placeY)
		}
	case 'v', 'V':
		if l == 0 {
			return errParamMismatch
		}
		for _, p := range pts {
			if rel {
				p += c.placeY
			}
			c.lineTo(c.placeX, p)
		}
	case 'q', 'Q':
		if l == 0 || l%4 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 4 {
			cx, cy := c.abs(pts[i], pts[i+1], rel)
			x, y := c.abs(pts[i+2], pts[i+3], rel)
			c.quadTo(cx, cy, x, y)
		}
	case 't', 'T':
		if l == 0 || l%2 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 2 {
			cx, cy := c.placeX, c.placeY
			switch c.lastKey {
			case 'q', 'Q', 't', 'T':
				cx, cy = reflect(c.placeX, c.placeY, c.cntlPtX, c.cntlPtY)
			}
			x, y := c.abs(pts[i], pts[i+1], rel)
			c.quadTo(cx, cy, x, y)
			c.lastKey = k
		}
	case 'c', 'C':
		if l == 0 || l%6 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 6 {
			c1x, c1y := c.abs(pts[i], pts[i+1], rel)
			c2x, c2y := c.abs(pts[i+2], pts[i+3], rel)
			x, y := c.abs(pts[i+4], pts[i+5], rel)
			c.cubicTo(c1x, c1y, c2x, c2y, x, y)
		}
	case 's', 'S':
		if l == 0 || l%4 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 4 {
			c1x, c1y := c.placeX, c.placeY
			switch c.lastKey {
			case 'c', 'C', 's', 'S':
				c1x, c1y = reflect(c.placeX, c.placeY, c.cntlPtX, c.cntlPtY)
			}
			c2x, c2y := c.abs(pts[i], pts[i+1], rel)
			x, y := c.abs(pts[i+2], pts[i+3], rel)
			c.cubicTo(c1x, c1y, c2x, c2y, x, y)
			c.lastKey = k
		}
	case 'a', 'A':
		if l == 0 || l%7 != 0 {
			return errParamMismatch
		}
		for i := 0; i < l; i += 7 {
			var arc [7]float64
			copy(arc[:], pts[i:i+7])
			arc[5], arc[6] = c.abs(arc[5], arc[6], rel)
			c.arcTo(arc[:])
		}
	default:
		if c.errorMode == StrictErrorMode {
			return errCommandUnknown
		}
		if c.errorMode == WarnErrorMode {
			log.Println("Ignoring svg command " + string(k))
		}
	}
	// So we know how to extend some segment types
	c.lastKey = k
	return nil
}
