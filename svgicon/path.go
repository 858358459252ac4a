package svgicon

import (
	"strconv"
	"strings"

	"golang.org/x/image/math/fixed"
)

// Operation is one command of a Path.
type Operation interface {
	// drawTo sends the command to `d`, after applying the transform `M`
	drawTo(d Pather, M Matrix2D)
	// letter is the SVG command letter, and the points its arguments
	letter() (byte, []fixed.Point26_6)
}

type (
	MoveTo  fixed.Point26_6
	LineTo  fixed.Point26_6
	QuadTo  [2]fixed.Point26_6
	CubicTo [3]fixed.Point26_6
	Close   struct{}
)

func (op MoveTo) drawTo(d Pather, M Matrix2D) {
	d.Stop(false) // implicit end of the current subpath
	d.Start(M.trMove(op))
}

func (op LineTo) drawTo(d Pather, M Matrix2D) { d.Line(M.trLine(op)) }

func (op QuadTo) drawTo(d Pather, M Matrix2D) {
	b, c := M.trQuad(op)
	d.QuadBezier(b, c)
}

func (op CubicTo) drawTo(d Pather, M Matrix2D) {
	b, c, e := M.trCubic(op)
	d.CubeBezier(b, c, e)
}

func (Close) drawTo(d Pather, _ Matrix2D) { d.Stop(true) }

func (op MoveTo) letter() (byte, []fixed.Point26_6)  { return 'M', []fixed.Point26_6{fixed.Point26_6(op)} }
func (op LineTo) letter() (byte, []fixed.Point26_6)  { return 'L', []fixed.Point26_6{fixed.Point26_6(op)} }
func (op QuadTo) letter() (byte, []fixed.Point26_6)  { return 'Q', op[:] }
func (op CubicTo) letter() (byte, []fixed.Point26_6) { return 'C', op[:] }
func (Close) letter() (byte, []fixed.Point26_6)      { return 'Z', nil }

// Path is a sequence of commands in user space. Every shape
// element is reduced to a Path.
// A *Path is itself a Pather, which records the segments it receives.
type Path []Operation

// ToSVGPath returns the path data, with absolute commands
// and three decimals.
func (p Path) ToSVGPath() string {
	var b strings.Builder
	for i, op := range p {
		if i != 0 {
			b.WriteByte(' ')
		}
		l, points := op.letter()
		b.WriteByte(l)
		for j, pt := range points {
			if j != 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatFloat(float64(pt.X)/64, 'f', 3, 64))
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(float64(pt.Y)/64, 'f', 3, 64))
		}
	}
	return b.String()
}

func (p Path) String() string { return p.ToSVGPath() }

// Clear empties the path, keeping its storage.
func (p *Path) Clear() { *p = (*p)[:0] }

func (p *Path) Start(a fixed.Point26_6) { *p = append(*p, MoveTo(a)) }

func (p *Path) Line(b fixed.Point26_6) { *p = append(*p, LineTo(b)) }

func (p *Path) QuadBezier(b, c fixed.Point26_6) { *p = append(*p, QuadTo{b, c}) }

func (p *Path) CubeBezier(b, c, d fixed.Point26_6) { *p = append(*p, CubicTo{b, c, d}) }

// Stop records a Close command when `closeLoop` is true.
func (p *Path) Stop(closeLoop bool) {
	if closeLoop {
		*p = append(*p, Close{})
	}
}

// DrawTo replays the path on `d`, after applying the transform `M`.
func (p Path) DrawTo(d Pather, M Matrix2D) {
	for _, op := range p {
		op.drawTo(d, M)
	}
	d.Stop(false)
}
