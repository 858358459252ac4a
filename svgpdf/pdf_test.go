package svgpdf

import (
	"bytes"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/benoitkugler/pdf/model"
	"github.com/benoitkugler/svgpage/pdfdoc"
	"github.com/benoitkugler/svgpage/svgicon"
)

func parseIcon(t *testing.T, src string) *svgicon.SvgIcon {
	t.Helper()
	icon, err := svgicon.ReadIconStream(strings.NewReader(src), svgicon.StrictErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	return icon
}

func render(t *testing.T, src string) pdfdoc.Subgraph {
	t.Helper()
	sub, err := RenderSubgraph(parseIcon(t, src), 2)
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

func resolve(sub pdfdoc.Subgraph, o pdfdoc.Object) pdfdoc.Object {
	if ref, ok := o.(pdfdoc.Reference); ok {
		return sub.Objects[pdfdoc.ObjectID(ref.ObjectNumber)]
	}
	return o
}

// form returns the root stream and its resources
func form(t *testing.T, sub pdfdoc.Subgraph) (pdfdoc.Stream, pdfdoc.Dict) {
	t.Helper()
	root, ok := sub.Objects[sub.Root].(pdfdoc.Stream)
	if !ok {
		t.Fatalf("unexpected root %v", sub.Objects[sub.Root])
	}
	res, ok := resolve(sub, root.Args["Resources"]).(pdfdoc.Dict)
	if !ok {
		t.Fatalf("unexpected resources %v", root.Args["Resources"])
	}
	return root, res
}

func hasEntries(sub pdfdoc.Subgraph, res pdfdoc.Dict, key pdfdoc.Name) bool {
	d, _ := resolve(sub, res[key]).(pdfdoc.Dict)
	return len(d) != 0
}

const shapes = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100">
	<rect width="200" height="100" fill="red"/>
	<circle cx="50" cy="50" r="20" fill="blue" fill-opacity="0.5"/>
	<path d="M 10 10 Q 50 90 90 10" stroke="black" stroke-dasharray="4 2" fill="none"/>
</svg>`

func TestRenderSubgraph(t *testing.T) {
	sub := render(t, shapes)
	root, res := form(t, sub)

	if root.Args["Subtype"] != pdfdoc.Name("Form") {
		t.Errorf("unexpected form %v", root.Args)
	}
	// the larger side is scaled to 1000
	if bbox := pdfdoc.Format(root.Args["BBox"]); bbox != "[0 0 1000 500]" {
		t.Errorf("unexpected BBox %s", bbox)
	}
	if m := pdfdoc.Format(root.Args["Matrix"]); m != "[0.001 0 0 0.002 0 0]" {
		t.Errorf("unexpected Matrix %s", m)
	}

	content := string(root.Content)
	for _, op := range []string{" m\n", " l\n", " c\n", "h\n", "f\n", "S\n", " d\n", " M\n", " gs\n"} {
		if !strings.Contains(content, op) {
			t.Errorf("missing operator %q in %s", op, content)
		}
	}
	// quadratic curves are written as cubic ones
	if strings.Contains(content, " v\n") {
		t.Error("unexpected 'v' operator")
	}
	if !hasEntries(sub, res, "ExtGState") {
		t.Errorf("missing opacity states in %v", res)
	}
	if hasEntries(sub, res, "XObject") {
		t.Errorf("unexpected images in %v", res)
	}
}

func TestRenderGradients(t *testing.T) {
	for _, test := range []struct {
		paint   string
		shading bool
	}{
		{`<linearGradient id="g"><stop offset="0" stop-color="red"/><stop offset="1" stop-color="blue"/></linearGradient>`, true},
		{`<linearGradient id="g" x2="0" y2="1"><stop offset="0.2" stop-color="red"/><stop offset="0.8" stop-color="blue"/></linearGradient>`, true},
		{`<radialGradient id="g"><stop offset="0" stop-color="red"/><stop offset="1" stop-color="blue"/></radialGradient>`, true},
		{`<linearGradient id="g"><stop offset="0" stop-color="red"/><stop offset="0.5" stop-color="white"/><stop offset="1" stop-color="blue"/></linearGradient>`, false},
		{`<linearGradient id="g" spreadMethod="reflect" x2="0.5"><stop offset="0" stop-color="red"/><stop offset="1" stop-color="blue"/></linearGradient>`, false},
		{`<linearGradient id="g"><stop offset="0" stop-color="red"/><stop offset="1" stop-color="blue" stop-opacity="0.5"/></linearGradient>`, false},
	} {
		src := `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100"><defs>` + test.paint +
			`</defs><rect x="10" y="10" width="180" height="80" fill="url(#g)"/></svg>`
		sub := render(t, src)
		root, res := form(t, sub)

		content := string(root.Content)
		if got := strings.Contains(content, " sh\n"); got != test.shading {
			t.Errorf("%s: expected shading %v, got %s", test.paint, test.shading, content)
		}
		if got := hasEntries(sub, res, "Shading"); got != test.shading {
			t.Errorf("%s: unexpected resources %v", test.paint, res)
		}
		// otherwise, the paint is embedded as an image
		if got := hasEntries(sub, res, "XObject"); got == test.shading {
			t.Errorf("%s: unexpected resources %v", test.paint, res)
		}
	}
}

func TestRenderStrokeGradient(t *testing.T) {
	sub := render(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
		<linearGradient id="g"><stop offset="0" stop-color="red"/><stop offset="1" stop-color="blue"/></linearGradient>
		<line x1="10" y1="10" x2="90" y2="90" stroke="url(#g)" stroke-width="5"/>
	</svg>`)
	_, res := form(t, sub)
	images, _ := resolve(sub, res["XObject"]).(pdfdoc.Dict)
	if len(images) != 1 {
		t.Fatalf("expected one image, got %v", images)
	}
	for _, ref := range images {
		img, ok := resolve(sub, ref).(pdfdoc.Stream)
		if !ok || img.Args["Subtype"] != pdfdoc.Name("Image") {
			t.Fatalf("unexpected image %v", img)
		}
		// transparent pixels require a soft mask
		if _, ok := img.Args["SMask"]; !ok {
			t.Errorf("missing soft mask in %v", img.Args)
		}
	}
}

func TestRenderAspectRatio(t *testing.T) {
	for _, test := range []struct{ w, h float64 }{
		{200, 100},
		{1, 300000},
		{300000, 1},
		{1e-3, 1e-3},
	} {
		unit := ScratchUnit(test.w, test.h)
		short := math.Min(test.w, test.h) * unit
		long := math.Max(test.w, test.h) * unit
		if long > maxScratchSide*(1+1e-9) || (short < minScratchSide && long < maxScratchSide*(1-1e-9)) {
			t.Errorf("%v: unexpected scratch page %f x %f", test, test.w*unit, test.h*unit)
		}
	}

	src := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="300000">
		<rect width="1" height="300000" fill="red"/>
	</svg>`
	root, _ := form(t, render(t, src))

	unit := ScratchUnit(1, 300000)
	pw, ph := unit, 300000*unit
	// the form is mapped from the exact scratch size, not from the rounded MediaBox
	expected := pdfdoc.Format(pdfdoc.Array{pdfdoc.Real(0), pdfdoc.Real(0), pdfdoc.Real(pw), pdfdoc.Real(ph)})
	if bbox := pdfdoc.Format(root.Args["BBox"]); bbox != expected {
		t.Errorf("expected BBox %s, got %s", expected, bbox)
	}
	matrix := root.Args["Matrix"].(pdfdoc.Array)
	a, _ := model.IsNumber(matrix[0])
	d, _ := model.IsNumber(matrix[3])
	if math.Abs(a*pw-1) > 1e-9 || math.Abs(d*ph-1) > 1e-9 {
		t.Errorf("unexpected Matrix %s", pdfdoc.Format(matrix))
	}
	if content := string(root.Content); !strings.Contains(content, " l\n") || !strings.Contains(content, "f\n") {
		t.Errorf("missing rectangle in %s", content)
	}
}

func TestRenderInvalid(t *testing.T) {
	icon := &svgicon.SvgIcon{ViewBox: svgicon.Bounds{W: 0, H: 10}, Transform: svgicon.Identity}
	if _, err := RenderSubgraph(icon, 2); err != ErrEmptyImage {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

// merge a rendered page into a new document
func TestAssembleRendered(t *testing.T) {
	spec := pdfdoc.PageSpec{Width: 792, Height: 612, DrawnW: 720, DrawnH: 360, OffsetX: 36, OffsetY: 126}
	build := func() []byte {
		sub := render(t, shapes)
		doc, err := pdfdoc.NewPageDocument(sub, spec)
		if err != nil {
			t.Fatal(err)
		}
		if err = doc.Check(); err != nil {
			t.Fatal(err)
		}
		if len(doc.Objects) != 5+len(sub.Objects) {
			t.Errorf("expected %d objects, got %d", 5+len(sub.Objects), len(doc.Objects))
		}
		out, err := doc.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		return out
	}
	out := build()

	f, err := pdfdoc.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if f.PageCount() != 1 {
		t.Fatalf("unexpected page count %d", f.PageCount())
	}
	page := f.Objects[3].(pdfdoc.Dict)
	xobjects := page["Resources"].(pdfdoc.Dict)["XObject"].(pdfdoc.Dict)
	if xobjects["S1"] != pdfdoc.Ref(6) {
		t.Errorf("unexpected page resources %v", xobjects)
	}
	if s, ok := f.Objects[6].(pdfdoc.Stream); !ok || s.Args["Subtype"] != pdfdoc.Name("Form") {
		t.Errorf("unexpected form %v", f.Objects[6])
	}

	if !bytes.Equal(out, build()) {
		t.Error("output is not deterministic")
	}
}

func TestNewShading(t *testing.T) {
	stops := []svgicon.GradStop{
		{StopColor: color.NRGBA{R: 0xff, A: 0xff}, Offset: 0, Opacity: 1},
		{StopColor: color.NRGBA{B: 0xff, A: 0xff}, Offset: 1, Opacity: 1},
	}
	bbox := svgicon.Bounds{X: 0, Y: 0, W: 100, H: 100}
	grad := svgicon.Gradient{
		Direction: svgicon.Linear{0, 0, 1, 0},
		Stops:     stops,
		Matrix:    svgicon.Identity,
		Units:     svgicon.ObjectBoundingBox,
	}
	sh, ok := newShading(grad, bbox)
	if !ok || sh.radial || sh.alpha != 1 {
		t.Fatalf("unexpected shading %v", sh)
	}
	// the unit square is padded by 1%
	expected := [5]float64{0.01 / 1.02, 1.01 / 1.02, 1.01 / 1.02, 1.01 / 1.02, 0}
	for i := range expected {
		if math.Abs(sh.coords[i]-expected[i]) > 1e-9 {
			t.Errorf("coordinate %d: expected %f, got %f", i, expected[i], sh.coords[i])
		}
	}
	// the shading square covers the box
	x, y := sh.matrix.Transform(0, 0)
	x2, y2 := sh.matrix.Transform(shadingSize, shadingSize)
	if x > 0 || y > 0 || x2 < 100 || y2 < 100 {
		t.Errorf("shading square (%f %f %f %f) does not cover the box", x, y, x2, y2)
	}

	reflect := grad
	reflect.Spread = svgicon.ReflectSpread
	if _, ok := newShading(reflect, bbox); ok {
		t.Error("reflect spread requires a raster paint")
	}
	focal := grad
	focal.Direction = svgicon.Radial{0.5, 0.5, 0.5, 0.5, 0.5, 0.1}
	if _, ok := newShading(focal, bbox); ok {
		t.Error("focal radius requires a raster paint")
	}
	radial := grad
	radial.Direction = svgicon.Radial{0.5, 0.5, 0.5, 0.5, 0.5, 0}
	if sh, ok := newShading(radial, bbox); !ok || !sh.radial || math.Abs(sh.coords[4]-0.5/1.02) > 1e-9 {
		t.Errorf("unexpected radial shading %v", sh)
	}
}

func TestValidDashes(t *testing.T) {
	if d := ValidDashes([]float64{1, -1}); d != nil {
		t.Errorf("unexpected dashes %v", d)
	}
	if d := ValidDashes([]float64{0, 0}); d != nil {
		t.Errorf("unexpected dashes %v", d)
	}
	if d := ValidDashes([]float64{1, 2, 3}); len(d) != 6 {
		t.Errorf("unexpected dashes %v", d)
	}
}
