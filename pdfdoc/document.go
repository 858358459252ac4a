package pdfdoc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/benoitkugler/pdf/model"
)

// Producer is written in the information dictionary.
const Producer = "svgpage"

// formName is the resource name of the embedded content
const formName Name = "S1"

// PageSpec describes the page built by Assemble.
type PageSpec struct {
	Width, Height    float64 // page size
	DrawnW, DrawnH   float64 // size of the drawn content
	OffsetX, OffsetY float64 // lower left corner of the drawn content
	Background       *[3]uint8
}

// contentStream fills the optional background and draws
// the unit-square form at its placement.
func (page PageSpec) contentStream() []byte {
	const prec = 4
	f := func(v float64) string { return formatNumber(v, prec) }
	var b bytes.Buffer
	if bg := page.Background; bg != nil {
		fmt.Fprintf(&b, "q %s %s %s rg 0 0 %s %s re f Q\n",
			f(float64(bg[0])/255), f(float64(bg[1])/255), f(float64(bg[2])/255), f(page.Width), f(page.Height))
	}
	fmt.Fprintf(&b, "q %s 0 0 %s %s %s cm %s Do Q\n",
		f(page.DrawnW), f(page.DrawnH), f(page.OffsetX), f(page.OffsetY), formName.String())
	return b.Bytes()
}

// Document is a list of numbered objects, with the catalog
// and information dictionary used in the trailer.
type Document struct {
	Objects []IndirectObject
	Root    ObjectID
	Info    ObjectID
}

// Assemble builds a one page document drawing the subgraph root,
// which must be a Form XObject mapped on the unit square, and returns
// the serialized file.
// The catalog, page tree, page, content stream and information dictionary
// are numbered 1 to 5, the subgraph objects follow.
func Assemble(sub Subgraph, page PageSpec) ([]byte, error) {
	doc, err := NewPageDocument(sub, page)
	if err != nil {
		return nil, err
	}
	return doc.Bytes()
}

// NewPageDocument builds the document written by Assemble.
func NewPageDocument(sub Subgraph, page PageSpec) (Document, error) {
	var alloc Allocator
	catalogID, pagesID, pageID, contentID, infoID := alloc.Next(), alloc.Next(), alloc.Next(), alloc.Next(), alloc.Next()

	objects, formID, err := Merge(&alloc, sub)
	if err != nil {
		return Document{}, err
	}

	fixed := []IndirectObject{
		{ID: catalogID, Object: Dict{"Type": Name("Catalog"), "Pages": Ref(pagesID)}},
		{ID: pagesID, Object: Dict{"Type": Name("Pages"), "Kids": Array{Ref(pageID)}, "Count": Integer(1)}},
		{ID: pageID, Object: Dict{
			"Type":      Name("Page"),
			"Parent":    Ref(pagesID),
			"MediaBox":  Array{Integer(0), Integer(0), Real(page.Width), Real(page.Height)},
			"Resources": Dict{"XObject": Dict{formName: Ref(formID)}},
			"Contents":  Ref(contentID),
		}},
		{ID: contentID, Object: Stream{Args: Dict{}, Content: page.contentStream()}},
		{ID: infoID, Object: Dict{"Producer": String(Producer)}},
	}
	return Document{Objects: append(fixed, objects...), Root: catalogID, Info: infoID}, nil
}

// Check verifies that object numbers are unique, that every reference
// resolves and that streams are only found as indirect objects.
func (doc Document) Check() error {
	ids := make(map[ObjectID]bool, len(doc.Objects))
	for _, o := range doc.Objects {
		if o.ID <= 0 || ids[o.ID] {
			return InvariantError{Reason: fmt.Sprintf("invalid or duplicate object number %d", o.ID)}
		}
		ids[o.ID] = true
	}
	var err error
	check := func(r Reference) {
		if err == nil && !ids[refID(r)] {
			err = InvariantError{Reason: fmt.Sprintf("dangling reference %d 0 R", r.ObjectNumber)}
		}
	}
	for _, o := range doc.Objects {
		walkRefs(o.Object, check)
		body := o.Object
		if s, isStream := body.(Stream); isStream {
			body = s.Args
		}
		if hasStream(body) {
			err = InvariantError{Reason: fmt.Sprintf("direct stream in object %d", o.ID)}
		}
		if err != nil {
			return err
		}
	}
	walkRefs(Array{Ref(doc.Root), Ref(doc.Info)}, check)
	return err
}

func hasStream(o Object) bool {
	switch o := o.(type) {
	case Stream:
		return true
	case Array:
		for _, v := range o {
			if hasStream(v) {
				return true
			}
		}
	case Dict:
		for _, v := range o {
			if hasStream(v) {
				return true
			}
		}
	}
	return false
}

// Bytes serializes the document, compressing the streams
// which are not already encoded.
func (doc Document) Bytes() ([]byte, error) {
	if err := doc.Check(); err != nil {
		return nil, err
	}
	objects := append([]IndirectObject(nil), doc.Objects...)
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })

	size := objects[len(objects)-1].ID + 1
	w := newWriter(&Allocator{last: size - 1})
	for _, o := range objects {
		if err := w.writeIndirect(o); err != nil {
			return nil, err
		}
	}

	out := &w.out
	xref := out.Len()
	fmt.Fprintf(out, "xref\n0 %d\n", size)
	out.WriteString("0000000000 65535 f \n")
	for id := ObjectID(1); id < size; id++ {
		if offset, ok := w.offsets[id]; ok {
			fmt.Fprintf(out, "%010d 00000 n \n", offset)
		} else { // unused number
			out.WriteString("0000000000 00000 f \n")
		}
	}
	trailer := Dict{"Size": Integer(size), "Root": Ref(doc.Root), "Info": Ref(doc.Info)}
	fmt.Fprintf(out, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", w.format(trailer, model.Reference(0)), xref)
	return out.Bytes(), nil
}
