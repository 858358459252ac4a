package layout

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func TestWorkedExample(t *testing.T) {
	src, err := SourceSize(200, 100, 96)
	if err != nil {
		t.Fatal(err)
	}
	if src != (Size{150, 75}) {
		t.Fatalf("unexpected source size %v", src)
	}

	l := SelectBestLayout(src.W, src.H, 612, 792, 36)
	if l.PageW != 792 || l.PageH != 612 {
		t.Fatalf("expected landscape page, got %v", l)
	}
	if math.Abs(l.Scale-4.8) > eps {
		t.Fatalf("expected scale 4.8, got %v", l.Scale)
	}

	p := Place(src, l)
	if math.Abs(p.DrawnW-720) > eps || math.Abs(p.DrawnH-360) > eps {
		t.Errorf("unexpected drawn size %v", p)
	}
	if math.Abs(p.OffsetX-36) > eps || math.Abs(p.OffsetY-126) > eps {
		t.Errorf("unexpected offsets %v", p)
	}
}

func TestFitScale(t *testing.T) {
	for _, test := range []struct {
		sw, sh, pw, ph, margin float64
		expected               float64
	}{
		{100, 100, 200, 200, 0, 2},
		{100, 100, 200, 200, 50, 1},
		{100, 50, 200, 200, 0, 2},
		{100, 100, 200, 200, -10, 2},         // negative margin
		{100, 100, 200, 200, 1000, 4. / 100}, // margin clamped to 98
		{0, 0, 10, 10, 0, 10 / minSource},    // degenerate source
		{10, 10, 1, 1, 0.5, 0.1},             // available length clamped to 1
	} {
		got := FitScale(test.sw, test.sh, test.pw, test.ph, test.margin)
		expected := test.expected
		if math.Abs(got-expected) > 1e-6*math.Max(1, expected) {
			t.Errorf("FitScale(%v) : expected %v, got %v", test, expected, got)
		}
	}
}

func TestTies(t *testing.T) {
	// square source: both orientations give the same scale
	l := SelectBestLayout(100, 100, 612, 792, 36)
	if l.PageW != 612 || l.PageH != 792 {
		t.Errorf("expected portrait, got %v", l)
	}

	// square page: swap is identical
	l = SelectBestLayout(300, 100, 500, 500, 0)
	if l.PageW != 500 || l.Scale != 500./300 {
		t.Errorf("unexpected layout %v", l)
	}

	// first maximum wins
	l, ok := Best(100, 100, []Size{{100, 200}, {200, 100}, {300, 300}, {300, 300}}, 0)
	if !ok || l.PageW != 300 || l.Scale != 3 {
		t.Errorf("unexpected layout %v", l)
	}

	if _, ok = Best(1, 1, nil, 0); ok {
		t.Error("expected no layout for empty candidates")
	}
}

func TestFitScaleProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		sw, sh := 1+rng.Float64()*1000, 1+rng.Float64()*1000
		pw, ph := 72+rng.Float64()*2000, 72+rng.Float64()*2000
		margin := rng.Float64() * math.Min(pw, ph) / 2

		scale := FitScale(sw, sh, pw, ph, margin)
		m := effectiveMargin(pw, ph, margin)
		if scale <= 0 {
			t.Fatalf("non positive scale %v", scale)
		}
		if scale*sw > math.Max(pw-2*m, 1)+1e-6 || scale*sh > math.Max(ph-2*m, 1)+1e-6 {
			t.Fatalf("source %vx%v does not fit in %vx%v (margin %v) at scale %v", sw, sh, pw, ph, margin, scale)
		}

		l := SelectBestLayout(sw, sh, pw, ph, margin)
		portrait, landscape := scale, FitScale(sw, sh, ph, pw, margin)
		if l.Scale < math.Max(portrait, landscape)-1e-9 {
			t.Fatalf("scale %v is not the best (%v, %v)", l.Scale, portrait, landscape)
		}
		if landscape > portrait {
			if l.PageW != ph || l.PageH != pw {
				t.Fatalf("expected landscape page, got %v", l)
			}
		} else if l.PageW != pw || l.PageH != ph {
			t.Fatalf("expected portrait page, got %v", l)
		}
	}
}

func TestPointsFromUnits(t *testing.T) {
	for _, test := range []struct{ units, dpi, expected float64 }{
		{96, 96, 72},
		{72, 72, 72},
		{72, 10, 72},    // clamped to 72
		{300, 1000, 72}, // clamped to 300
		{150, 150, 72},
	} {
		if got := PointsFromUnits(test.units, test.dpi); math.Abs(got-test.expected) > eps {
			t.Errorf("PointsFromUnits(%v, %v): expected %v, got %v", test.units, test.dpi, test.expected, got)
		}
	}
}

func TestInvalidGeometry(t *testing.T) {
	for _, size := range [][2]float64{
		{0, 10}, {10, 0}, {-1, 10}, {math.NaN(), 10}, {math.Inf(1), 3},
	} {
		if _, err := SourceSize(size[0], size[1], 96); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("expected invalid geometry for %v, got %v", size, err)
		}
	}
}

func TestCenteredOnFullPage(t *testing.T) {
	// the margin limits the scale but not the offsets
	l := Layout{PageW: 100, PageH: 100, Scale: 1}
	p := Place(Size{20, 40}, l)
	if p.OffsetX != 40 || p.OffsetY != 30 {
		t.Errorf("unexpected placement %v", p)
	}
}

func TestPreset(t *testing.T) {
	s, ok := Preset(" Letter")
	if !ok || s != (Size{612, 792}) {
		t.Errorf("unexpected letter size %v", s)
	}
	if s, _ = Preset("a4"); s.Swap().W != 841.89 {
		t.Errorf("unexpected a4 size %v", s)
	}
	if _, ok = Preset("b5"); ok {
		t.Error("unexpected preset")
	}
}
