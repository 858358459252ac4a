package pdfdoc

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/benoitkugler/pdf/model"
)

func TestObjectSyntax(t *testing.T) {
	for _, test := range []struct {
		obj      Object
		expected string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Integer(-4), "-4"},
		{Real(0.5), "0.5"},
		{Real(2), "2"},
		{Real(-0.0), "0"},
		{String("a(b)\\c\r"), `(a\(b\)\\c\r)`},
		{model.ObjHexLiteral("AB"), "<4142>"},
		{Name("Type"), "/Type"},
		{Array{Integer(1), Ref(3), nil}, "[1 3 0 R null]"},
		{Dict{"Z": Integer(1), "A": Name("x"), "M": Array{Real(0.25)}}, "<</A /x/M [0.25]/Z 1>>"},
	} {
		if got := Format(test.obj); got != test.expected {
			t.Errorf("expected %s, got %s", test.expected, got)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	for _, test := range []struct {
		v        float64
		prec     int
		expected string
	}{
		{719.99999999, 4, "720"},
		{0.123456, 4, "0.1235"},
		{1.0 / 1000, -1, "0.001"},
		{-0.00001, 4, "0"},
		{126, 4, "126"},
	} {
		if got := formatNumber(test.v, test.prec); got != test.expected {
			t.Errorf("formatNumber(%v, %d): expected %s, got %s", test.v, test.prec, test.expected, got)
		}
	}
}

const samplePDF = `%PDF-1.3
%comment
1 0 obj
<</Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 200 100] /Resources 2 0 R>>
endobj
2 0 obj
<</ProcSet [/PDF /Text] /XObject <</I1 6 0 R>> /Font <<>> >>
endobj
3 0 obj
<</Type /Page /Parent 1 0 R /Contents 4 0 R>>
endobj
4 0 obj
<</Length 99>>
stream
0 0 1 rg 0 0 10 10 re f
endstream
endobj
5 0 obj
(unused (nested) string with \051 escapes)
endobj
6 0 obj
<</Type /XObject /Subtype /Image /Width 1 /Height 1 /Name /A#20B /S <414243> /Length 3>>
stream
abc
endstream
endobj
7 0 obj
<</Type /Catalog /Pages 1 0 R>>
endobj
xref
0 8
0000000000 65535 f
trailer
<</Size 8 /Root 7 0 R>>
startxref
0
%%EOF
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(samplePDF))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Objects) != 7 || f.MaxID() != 7 {
		t.Fatalf("unexpected objects %v", f.Objects)
	}
	if f.Trailer["Root"] != Ref(7) {
		t.Errorf("unexpected trailer %v", f.Trailer)
	}
	// invalid length
	content := f.Objects[4].(Stream).Content
	if string(content) != "0 0 1 rg 0 0 10 10 re f" {
		t.Errorf("unexpected content %q", content)
	}
	if s := f.Objects[5]; s != String("unused (nested) string with ) escapes") {
		t.Errorf("unexpected string %v", s)
	}
	image := f.Objects[6].(Stream)
	if string(image.Content) != "abc" || image.Args["Name"] != Name("A#20B") || image.Args["S"] != model.ObjHexLiteral("ABC") {
		t.Errorf("unexpected image %v", image)
	}
	if f.PageCount() != 1 {
		t.Errorf("unexpected page count %d", f.PageCount())
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"not a pdf",
		"%PDF-1.4\n1 0 obj <</A 1>> endobj\n", // no trailer
		"%PDF-1.4\n1 0 obj <</A 1 endobj\n",
		"%PDF-1.4\n1 0 obj (abc endobj\n",
		"%PDF-1.4\n1 0 obj <</Length 3>> stream\nabc\n",
		"%PDF-1.4\n1 0 obj [1 2] stream\nabc\nendstream endobj\n",
	} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestPageSubgraph(t *testing.T) {
	f, err := Parse([]byte(samplePDF))
	if err != nil {
		t.Fatal(err)
	}
	sub, err := f.PageSubgraph(0)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Root != 8 {
		t.Fatalf("unexpected root %d", sub.Root)
	}
	// form, resources and image
	if len(sub.Objects) != 3 {
		t.Fatalf("unexpected closure %v", sub.Objects)
	}
	for _, id := range []ObjectID{2, 6, 8} {
		if _, ok := sub.Objects[id]; !ok {
			t.Errorf("missing object %d", id)
		}
	}
	form := sub.Objects[8].(Stream)
	if form.Args["Subtype"] != Name("Form") || form.Args["Resources"] != Ref(2) {
		t.Errorf("unexpected form %v", form.Args)
	}
	if m := Format(form.Args["Matrix"]); m != "[0.005 0 0 0.01 0 0]" {
		t.Errorf("unexpected matrix %s", m)
	}
	if string(form.Content) != "0 0 1 rg 0 0 10 10 re f" {
		t.Errorf("unexpected content %q", form.Content)
	}

	if _, err = f.PageSubgraph(1); err == nil {
		t.Error("expected error for invalid page index")
	}
}

func TestPageSubgraphIn(t *testing.T) {
	// the MediaBox is rounded to 0 by the producer
	input := strings.Replace(samplePDF, "/MediaBox [0 0 200 100]", "/MediaBox [0 0 0.00 1000.00]", 1)
	f, err := Parse([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = f.PageSubgraph(0); err == nil {
		t.Fatal("expected error for empty MediaBox")
	}

	w, h := 0.004, 1000.
	sub, err := f.PageSubgraphIn(0, model.Rectangle{Urx: w, Ury: h})
	if err != nil {
		t.Fatal(err)
	}
	form := sub.Objects[sub.Root].(Stream)
	if got, exp := Format(form.Args["BBox"]), Format(Array{Integer(0), Integer(0), Real(w), Real(h)}); got != exp {
		t.Errorf("expected BBox %s, got %s", exp, got)
	}
	if m := Format(form.Args["Matrix"]); m != "[250 0 0 0.001 0 0]" {
		t.Errorf("unexpected matrix %s", m)
	}

	if _, err = f.PageSubgraphIn(0, model.Rectangle{Urx: 10}); err == nil {
		t.Error("expected error for empty box")
	}
}

func TestDecode(t *testing.T) {
	compressed, err := model.NewStream([]byte("0 0 m"), model.Filter{Name: model.Flate})
	if err != nil {
		t.Fatal(err)
	}
	for _, args := range []Dict{
		{"Filter": model.Flate},
		{"Filter": Array{model.Flate}, "DecodeParms": Array{Null{}}},
	} {
		content, err := Decode(Stream{Args: args, Content: compressed.Content})
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != "0 0 m" {
			t.Errorf("unexpected content %q", content)
		}
	}
	if _, err = Decode(Stream{Args: Dict{"Filter": Integer(1)}}); err == nil {
		t.Error("expected error for invalid filter")
	}
}

func TestMerge(t *testing.T) {
	sub := Subgraph{
		Root: 10,
		Objects: map[ObjectID]Object{
			10: Dict{"B": Ref(11), "A": Ref(12)},
			11: Array{Integer(1)},
			12: Array{Ref(10), Ref(11)},
			13: Dict{"Self": Ref(13)},
			14: Integer(4),
		},
	}
	alloc := Allocator{last: 5}
	objects, root, err := Merge(&alloc, sub)
	if err != nil {
		t.Fatal(err)
	}
	if root != 6 {
		t.Errorf("unexpected root %d", root)
	}
	expected := []IndirectObject{
		{6, Dict{"B": Ref(8), "A": Ref(7)}},
		{7, Array{Ref(6), Ref(8)}},
		{8, Array{Integer(1)}},
		{9, Dict{"Self": Ref(9)}},
		{10, Integer(4)},
	}
	if !reflect.DeepEqual(objects, expected) {
		t.Errorf("expected %v, got %v", expected, objects)
	}
	// the input is not modified
	if sub.Objects[10].(Dict)["A"] != Ref(12) {
		t.Error("input subgraph modified")
	}
	if alloc.Last() != 10 {
		t.Errorf("unexpected allocator state %d", alloc.Last())
	}
}

func TestMergeInvariants(t *testing.T) {
	var ie InvariantError

	_, _, err := Merge(&Allocator{}, Subgraph{Root: 1, Objects: map[ObjectID]Object{2: Null{}}})
	if !errors.As(err, &ie) || ie.Reason != "failed to map SVG reference" {
		t.Errorf("expected missing root error, got %v", err)
	}

	_, _, err = Merge(&Allocator{}, Subgraph{Root: 1, Objects: map[ObjectID]Object{1: Array{Ref(4)}}})
	if !errors.As(err, &ie) {
		t.Errorf("expected dangling reference error, got %v", err)
	}
}

func testSubgraph() Subgraph {
	return Subgraph{
		Root: 3,
		Objects: map[ObjectID]Object{
			3: Stream{
				Args: Dict{
					"Type": Name("XObject"), "Subtype": Name("Form"),
					"BBox": Array{Integer(0), Integer(0), Integer(1), Integer(1)}, "Resources": Ref(1),
				},
				Content: []byte("0 0 1 1 re f"),
			},
			1: Dict{"ExtGState": Dict{"GS1": Ref(2)}},
			2: Dict{"ca": Real(0.5)},
		},
	}
}

func TestAssemble(t *testing.T) {
	spec := PageSpec{Width: 792, Height: 612, DrawnW: 720, DrawnH: 360, OffsetX: 36, OffsetY: 126}
	out, err := Assemble(testSubgraph(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-1.7\n")) || !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Error("invalid header or footer")
	}

	f, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Objects) != 8 {
		t.Fatalf("unexpected number of objects %d", len(f.Objects))
	}
	for id, typ := range map[ObjectID]Name{1: "Catalog", 2: "Pages", 3: "Page", 6: "XObject"} {
		var dict Dict
		switch o := f.Objects[id].(type) {
		case Dict:
			dict = o
		case Stream:
			dict = o.Args
		}
		if dict["Type"] != typ {
			t.Errorf("object %d: expected %s, got %v", id, typ, dict["Type"])
		}
	}
	if info := f.Objects[5].(Dict); info["Producer"] != String("svgpage") {
		t.Errorf("unexpected info %v", info)
	}
	page := f.Objects[3].(Dict)
	if got := Format(page["Resources"]); got != "<</XObject <</S1 6 0 R>>>>" {
		t.Errorf("unexpected resources %s", got)
	}
	if got := Format(page["MediaBox"]); got != "[0 0 792 612]" {
		t.Errorf("unexpected media box %s", got)
	}
	content, err := Decode(f.Objects[4].(Stream))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "q 720 0 0 360 36 126 cm /S1 Do Q\n" {
		t.Errorf("unexpected content %q", content)
	}

	// every reference resolves
	for id, o := range f.Objects {
		walkRefs(o, func(r Reference) {
			if _, ok := f.Objects[refID(r)]; !ok {
				t.Errorf("object %d: dangling reference %v", id, r)
			}
		})
	}
	// the renumbered form keeps its resources
	form := f.Objects[6].(Stream)
	if form.Args["Resources"] != Ref(7) || f.Objects[7].(Dict)["ExtGState"].(Dict)["GS1"] != Ref(8) {
		t.Errorf("unexpected form %v", form.Args)
	}
	if formContent, _ := Decode(form); string(formContent) != "0 0 1 1 re f" {
		t.Errorf("unexpected form content %q", formContent)
	}

	// deterministic output
	out2, err := Assemble(testSubgraph(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, out2) {
		t.Error("output is not deterministic")
	}
}

func TestAssembleBackground(t *testing.T) {
	spec := PageSpec{Width: 100, Height: 50, DrawnW: 100, DrawnH: 50, Background: &[3]uint8{255, 0, 51}}
	content := string(spec.contentStream())
	if !strings.HasPrefix(content, "q 1 0 0.2 rg 0 0 100 50 re f Q\n") {
		t.Errorf("unexpected content %q", content)
	}
	if !strings.HasSuffix(content, "q 100 0 0 50 0 0 cm /S1 Do Q\n") {
		t.Errorf("unexpected content %q", content)
	}
}

func TestAssembleInvalid(t *testing.T) {
	sub := testSubgraph()
	delete(sub.Objects, 2)
	_, err := Assemble(sub, PageSpec{Width: 100, Height: 100})
	var ie InvariantError
	if !errors.As(err, &ie) {
		t.Errorf("expected invariant error, got %v", err)
	}
}

func TestDocumentCheck(t *testing.T) {
	doc := Document{
		Objects: []IndirectObject{{1, Dict{}}, {1, Null{}}},
		Root:    1, Info: 1,
	}
	if err := doc.Check(); err == nil {
		t.Error("expected error for duplicate ids")
	}
	doc.Objects = []IndirectObject{{1, Dict{"A": Ref(3)}}}
	if err := doc.Check(); err == nil {
		t.Error("expected error for dangling reference")
	}
	doc.Objects = []IndirectObject{{1, Dict{"A": Stream{Args: Dict{}}}}}
	if err := doc.Check(); err == nil {
		t.Error("expected error for direct stream")
	}
}
