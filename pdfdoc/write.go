package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/benoitkugler/pdf/model"
)

// assert interface conformance
var _ model.PDFWritter = (*writer)(nil)

// writer serializes numbered objects, keeping track of their offsets.
// Leaf objects write themselves through the model.PDFWritter methods.
type writer struct {
	out     bytes.Buffer
	offsets map[ObjectID]int
	alloc   *Allocator
}

func newWriter(alloc *Allocator) *writer {
	w := &writer{offsets: make(map[ObjectID]int), alloc: alloc}
	w.out.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return w
}

// EncodeString escapes `s`. Documents are never encrypted and
// text strings are stored as given.
func (w *writer) EncodeString(s string, mode model.PDFStringEncoding, _ model.Reference) string {
	if mode == model.HexString {
		return model.EspaceHexString([]byte(s))
	}
	return model.EscapeByteString([]byte(s))
}

// CreateObject is only called by the objects which write themselves
// as new indirect objects.
func (w *writer) CreateObject() model.Reference {
	if w.alloc == nil {
		w.alloc = new(Allocator)
	}
	return model.Reference(w.alloc.Next())
}

func (w *writer) WriteObject(content string, stream []byte, ref model.Reference) {
	w.offsets[ObjectID(ref)] = w.out.Len()
	fmt.Fprintf(&w.out, "%d 0 obj\n", ref)
	w.out.WriteString(content)
	if stream != nil {
		w.out.WriteString("\nstream\n")
		w.out.Write(stream)
		w.out.WriteString("\nendstream")
	}
	w.out.WriteString("\nendobj\n")
}

// format returns the PDF syntax of o, with dictionary keys sorted
// and reals written with their shortest representation.
// `parent` is the number of the enclosing indirect object.
func (w *writer) format(o Object, parent model.Reference) string {
	switch o := o.(type) {
	case nil:
		return "null"
	case Real:
		return formatNumber(float64(o), -1)
	case Array:
		chunks := make([]string, len(o))
		for i, v := range o {
			chunks[i] = w.format(v, parent)
		}
		return "[" + strings.Join(chunks, " ") + "]"
	case Dict:
		var b strings.Builder
		b.WriteString("<<")
		for _, k := range sortedKeys(o) {
			b.WriteString(k.Write(w, parent))
			b.WriteByte(' ')
			b.WriteString(w.format(o[k], parent))
		}
		b.WriteString(">>")
		return b.String()
	default:
		return o.Write(w, parent)
	}
}

// writeStream compresses the content when it has no filter yet.
func (w *writer) writeStream(s Stream, ref model.Reference) error {
	args, content := make(Dict, len(s.Args)+2), s.Content
	for k, v := range s.Args {
		args[k] = v
	}
	if _, hasFilter := args["Filter"]; !hasFilter {
		compressed, err := model.NewStream(content, model.Filter{Name: model.Flate})
		if err != nil {
			return err
		}
		content = compressed.Content
		args["Filter"] = model.Flate
	}
	args["Length"] = Integer(len(content))
	w.WriteObject(w.format(args, ref), content, ref)
	return nil
}

func (w *writer) writeIndirect(o IndirectObject) error {
	ref := model.Reference(o.ID)
	if s, isStream := o.Object.(Stream); isStream {
		return w.writeStream(s, ref)
	}
	w.WriteObject(w.format(o.Object, ref), nil, ref)
	return nil
}

// Format returns the PDF syntax of a direct object,
// as it is written in documents.
func Format(o Object) string {
	return newWriter(nil).format(o, 0)
}
