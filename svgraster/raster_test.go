package svgraster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/benoitkugler/svgpage/svgicon"
	"golang.org/x/image/tiff"
)

func parseIcon(t *testing.T, src string) *svgicon.SvgIcon {
	t.Helper()
	icon, err := svgicon.ReadIconStream(strings.NewReader(src), svgicon.StrictErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	return icon
}

func TestPixelSize(t *testing.T) {
	for _, test := range []struct {
		w, h, scale float64
		pw, ph      int
	}{
		{200, 100, 2, 400, 200},
		{150, 75, 1, 150, 75},
		{10.5, 10.4, 1, 11, 10},
		{0.2, 0.1, 1, 1, 1},
		{3, 5, 8, 24, 40},
	} {
		pw, ph := PixelSize(test.w, test.h, test.scale)
		if pw != test.pw || ph != test.ph {
			t.Errorf("%v x %v @ %v: expected %d x %d, got %d x %d", test.w, test.h, test.scale, test.pw, test.ph, pw, ph)
		}
	}
}

func TestRasterize(t *testing.T) {
	icon := parseIcon(t, `<svg width="200" height="100" viewBox="0 0 20 10">
	<rect x="0" y="0" width="10" height="10" fill="red"/>
	<rect x="10" y="0" width="10" height="10" fill="blue" fill-opacity="0.5"/>
	</svg>`)
	img, err := Rasterize(icon, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if c := img.RGBAAt(100, 100); c != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("expected red, got %v", c)
	}
	if c := img.RGBAAt(300, 100); c.B == 0 || c.A == 0xff || c.R != 0 {
		t.Errorf("expected semi transparent blue, got %v", c)
	}
}

func TestRasterizeStroke(t *testing.T) {
	icon := parseIcon(t, `<svg width="100" height="100">
	<line x1="0" y1="50" x2="100" y2="50" stroke="black" stroke-width="10"/>
	</svg>`)
	img, err := Rasterize(icon, 1)
	if err != nil {
		t.Fatal(err)
	}
	if c := img.RGBAAt(50, 50); c.A != 0xff {
		t.Errorf("expected opaque stroke, got %v", c)
	}
	if c := img.RGBAAt(50, 20); c.A != 0 {
		t.Errorf("expected transparent background, got %v", c)
	}
}

func TestRasterizeGradient(t *testing.T) {
	icon := parseIcon(t, `<svg width="100" height="10">
	<linearGradient id="g">
		<stop offset="0" stop-color="black"/>
		<stop offset="0.5" stop-color="red"/>
		<stop offset="1" stop-color="white"/>
	</linearGradient>
	<rect width="100" height="10" fill="url(#g)"/>
	</svg>`)
	img, err := Rasterize(icon, 1)
	if err != nil {
		t.Fatal(err)
	}
	left, middle, right := img.RGBAAt(1, 5), img.RGBAAt(50, 5), img.RGBAAt(98, 5)
	if left.R > 20 || middle.R < 200 || middle.G > 30 || right.G < 220 {
		t.Errorf("unexpected gradient colors %v %v %v", left, middle, right)
	}
}

func TestAllocation(t *testing.T) {
	icon := parseIcon(t, `<svg width="100000" height="100000"></svg>`)
	_, err := Rasterize(icon, 8)
	if !errors.Is(err, ErrAllocation) {
		t.Errorf("expected allocation error, got %v", err)
	}
	var size *SizeError
	if !errors.As(err, &size) || size.Width != 800000 || size.Height != 800000 {
		t.Errorf("unexpected size %v", err)
	}

	// the size of the painted region is reported
	path := svgicon.Path{svgicon.MoveTo{}, svgicon.LineTo{X: 64}, svgicon.Close{}}
	region := svgicon.Bounds{W: 1e5, H: 30}
	_, err = PaintPath(path, region, 100, PathPaint{Pattern: svgicon.NewPlainColor(0, 0, 0, 0xff), Opacity: 1})
	if !errors.As(err, &size) || size.Width != 1e7 || size.Height != 3000 {
		t.Errorf("unexpected error %v", err)
	}
	_, err = PaintPath(path, svgicon.Bounds{W: 1e300, H: 1}, 1, PathPaint{})
	if !errors.As(err, &size) || size.Width != math.MaxInt32 || size.Height != 1 {
		t.Errorf("unexpected error %v", err)
	}
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	if err := Encode(&buf, img, ParseFormat("png")); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("unexpected png bounds %v", decoded.Bounds())
	}

	buf.Reset()
	if err := Encode(&buf, img, ParseFormat("TIFF")); err != nil {
		t.Fatal(err)
	}
	decoded, err = tiff.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r != 0xffff {
		t.Errorf("unexpected tiff pixel %v", decoded.At(1, 1))
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("bmp") != PNG || ParseFormat(" tif ") != TIFF {
		t.Error("unexpected formats")
	}
	if TIFF.String() != "tiff" {
		t.Error(TIFF.String())
	}
}
