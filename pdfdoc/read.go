package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/benoitkugler/pdf/model"
	"github.com/benoitkugler/pdf/reader/parser"
	tkn "github.com/benoitkugler/pstokenizer"
)

// File is a parsed PDF file.
type File struct {
	Objects map[ObjectID]Object
	Trailer Dict
}

// Parse reads a PDF file made of plain indirect objects and a classic
// trailer. Cross-reference tables are not used: objects are read
// sequentially. Cross-reference streams and object streams are not supported.
func Parse(data []byte) (*File, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("missing PDF header")
	}
	r := fileReader{data: data, tokens: tkn.NewTokenizer(data)}
	r.parser = parser.NewParserFromTokenizer(r.tokens)
	f := &File{Objects: make(map[ObjectID]Object)}
	for {
		tok, err := r.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == tkn.EOF:
			if f.Trailer == nil {
				return nil, errors.New("missing trailer")
			}
			return f, nil
		case tok.Kind == tkn.Integer:
			id, obj, err := r.readIndirectObject(tok)
			if err != nil {
				return nil, err
			}
			f.Objects[id] = obj
		case tok.IsOther("xref"):
			if err := r.skipXref(); err != nil {
				return nil, err
			}
		case tok.IsOther("trailer"):
			trailer, err := r.parser.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("invalid trailer: %w", err)
			}
			dict, ok := trailer.(Dict)
			if !ok {
				return nil, fmt.Errorf("invalid trailer type %T", trailer)
			}
			f.Trailer = dict
		case tok.IsOther("startxref"):
			if _, err := r.tokens.NextToken(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected token %q at position %d", tok.Value, r.tokens.CurrentPosition())
		}
	}
}

type fileReader struct {
	data   []byte
	tokens *tkn.Tokenizer
	parser *parser.Parser
}

// skipXref moves to the trailer keyword, which is not consumed.
func (r fileReader) skipXref() error {
	for {
		next, err := r.tokens.PeekToken()
		if err != nil {
			return err
		}
		if next.Kind == tkn.EOF || next.IsOther("trailer") {
			return nil
		}
		_, _ = r.tokens.NextToken()
	}
}

// readIndirectObject parses "num gen obj <object> endobj", the first
// token being already read
func (r fileReader) readIndirectObject(first tkn.Token) (ObjectID, Object, error) {
	num, err := first.Int()
	if err != nil {
		return 0, nil, err
	}
	if num <= 0 {
		return 0, nil, fmt.Errorf("invalid object number %d", num)
	}
	if tok, err := r.tokens.NextToken(); err != nil || tok.Kind != tkn.Integer {
		return 0, nil, fmt.Errorf("invalid generation number for object %d", num)
	}
	if tok, err := r.tokens.NextToken(); err != nil || !tok.IsOther("obj") {
		return 0, nil, fmt.Errorf("expected 'obj' keyword for object %d", num)
	}

	obj, err := r.parser.ParseObject()
	if err != nil {
		return 0, nil, fmt.Errorf("invalid object %d: %w", num, err)
	}

	tok, err := r.tokens.NextToken()
	if err != nil {
		return 0, nil, err
	}
	if tok.IsOther("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return 0, nil, fmt.Errorf("stream must follow a dictionary (object %d)", num)
		}
		obj, err = r.readStream(dict)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid stream %d: %w", num, err)
		}
		if tok, err = r.tokens.NextToken(); err != nil {
			return 0, nil, err
		}
	}
	if !tok.IsOther("endobj") {
		return 0, nil, fmt.Errorf("expected 'endobj' keyword for object %d", num)
	}
	return ObjectID(num), obj, nil
}

// readStream reads the stream content, starting right after the
// 'stream' keyword, and consumes the 'endstream' keyword.
// When /Length is not a direct integer, the content ends at the
// next 'endstream' keyword.
func (r fileReader) readStream(dict Dict) (Stream, error) {
	start := r.tokens.StreamPosition()
	if length, ok := dict["Length"].(Integer); ok && length >= 0 && start+int(length) <= len(r.data) {
		end := start + int(length)
		r.tokens.SetPosition(end)
		if next, err := r.tokens.NextToken(); err == nil && next.IsOther("endstream") {
			return Stream{Args: dict, Content: r.data[start:end]}, nil
		}
	}

	index := bytes.Index(r.data[start:], []byte("endstream"))
	if index == -1 {
		return Stream{}, errors.New("missing 'endstream' keyword")
	}
	end := start + index
	r.tokens.SetPosition(end + len("endstream"))
	// the EOL before the keyword is not part of the content
	if end > start && r.data[end-1] == '\n' {
		end--
	}
	if end > start && r.data[end-1] == '\r' {
		end--
	}
	return Stream{Args: dict, Content: r.data[start:end]}, nil
}

// Resolve follows references until a direct object is found.
// Missing objects resolve to Null.
func (f *File) Resolve(o Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := o.(Reference)
		if !ok {
			return o
		}
		target, ok := f.Objects[refID(ref)]
		if !ok {
			return Null{}
		}
		o = target
	}
	return Null{}
}

// MaxID returns the highest object number of the file.
func (f *File) MaxID() ObjectID {
	var max ObjectID
	for id := range f.Objects {
		if id > max {
			max = id
		}
	}
	return max
}

type pageEntry struct {
	dict      Dict
	resources Object // possibly inherited
	mediaBox  Object // possibly inherited
}

// pages returns the leaves of the page tree, in order.
func (f *File) pages() ([]pageEntry, error) {
	catalog, ok := f.Resolve(f.Trailer["Root"]).(Dict)
	if !ok {
		return nil, errors.New("missing document catalog")
	}
	var (
		out     []pageEntry
		visited = map[ObjectID]bool{}
		walk    func(node Object, inherited pageEntry) error
	)
	walk = func(node Object, inherited pageEntry) error {
		if ref, isRef := node.(Reference); isRef {
			if visited[refID(ref)] {
				return errors.New("cycle in page tree")
			}
			visited[refID(ref)] = true
		}
		dict, ok := f.Resolve(node).(Dict)
		if !ok {
			return errors.New("invalid page tree node")
		}
		if res, has := dict["Resources"]; has {
			inherited.resources = res
		}
		if box, has := dict["MediaBox"]; has {
			inherited.mediaBox = box
		}
		if kids, isNode := f.Resolve(dict["Kids"]).(Array); isNode {
			for _, kid := range kids {
				if err := walk(kid, inherited); err != nil {
					return err
				}
			}
			return nil
		}
		inherited.dict = dict
		out = append(out, inherited)
		return nil
	}
	if err := walk(catalog["Pages"], pageEntry{}); err != nil {
		return nil, err
	}
	return out, nil
}

// PageCount returns the number of pages of the file.
func (f *File) PageCount() int {
	pages, _ := f.pages()
	return len(pages)
}

func (f *File) numbers(o Object) ([]float64, error) {
	arr, ok := f.Resolve(o).(Array)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", o)
	}
	out := make([]float64, len(arr))
	for i, v := range arr {
		n, ok := model.IsNumber(f.Resolve(v))
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		out[i] = n
	}
	return out, nil
}

// filters converts the /Filter and /DecodeParms entries.
func filters(args Dict) (model.Filters, error) {
	var names, parms Array
	switch filter := args["Filter"].(type) {
	case nil, Null:
	case Name:
		names = Array{filter}
		parms = Array{args["DecodeParms"]}
	case Array:
		names = filter
		parms, _ = args["DecodeParms"].(Array)
	default:
		return nil, fmt.Errorf("invalid filter %T", filter)
	}
	out := make(model.Filters, len(names))
	for i, name := range names {
		n, ok := name.(Name)
		if !ok {
			return nil, fmt.Errorf("invalid filter %T", name)
		}
		out[i].Name = n
		if i >= len(parms) {
			continue
		}
		if dict, ok := parms[i].(Dict); ok {
			out[i].DecodeParms = make(map[string]int, len(dict))
			for k, v := range dict {
				switch v := v.(type) {
				case Integer:
					out[i].DecodeParms[string(k)] = int(v)
				case Bool:
					if v {
						out[i].DecodeParms[string(k)] = 1
					} else {
						out[i].DecodeParms[string(k)] = 0
					}
				}
			}
		}
	}
	return out, nil
}

// Decode returns the decoded content of the stream.
func Decode(s Stream) ([]byte, error) {
	fs, err := filters(s.Args)
	if err != nil {
		return nil, err
	}
	return model.Stream{Filter: fs, Content: s.Content}.Decode()
}

// pageContent concatenates the content streams of the page
func (f *File) pageContent(page Dict) ([]byte, error) {
	var streams []Object
	switch contents := f.Resolve(page["Contents"]).(type) {
	case Stream:
		streams = []Object{contents}
	case Array:
		streams = contents
	case Null, nil:
	default:
		return nil, fmt.Errorf("invalid page contents %T", contents)
	}
	var out []byte
	for i, o := range streams {
		s, ok := f.Resolve(o).(Stream)
		if !ok {
			return nil, errors.New("invalid content stream")
		}
		data, err := Decode(s)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, data...)
	}
	return out, nil
}

// PageSubgraph returns a Form XObject drawing the given page,
// mapped on the unit square, with the objects it references.
// The form object receives a new number, above every number of the file.
func (f *File) PageSubgraph(index int) (Subgraph, error) {
	return f.pageSubgraph(index, nil)
}

// PageSubgraphIn is the same as PageSubgraph, but maps `box` instead
// of the page MediaBox, which producers usually write with a
// limited precision.
func (f *File) PageSubgraphIn(index int, box model.Rectangle) (Subgraph, error) {
	return f.pageSubgraph(index, &box)
}

func (f *File) pageSubgraph(index int, box *model.Rectangle) (Subgraph, error) {
	pages, err := f.pages()
	if err != nil {
		return Subgraph{}, err
	}
	if index < 0 || index >= len(pages) {
		return Subgraph{}, fmt.Errorf("page index %d out of range (%d pages)", index, len(pages))
	}
	page := pages[index]

	if box == nil {
		values, err := f.numbers(page.mediaBox)
		if err != nil || len(values) != 4 {
			return Subgraph{}, fmt.Errorf("invalid page MediaBox: %v", err)
		}
		box = &model.Rectangle{Llx: values[0], Lly: values[1], Urx: values[2], Ury: values[3]}
	}
	w, h := box.Width(), box.Height()
	if !(w > 0 && h > 0) || box.Urx < box.Llx || box.Ury < box.Lly {
		return Subgraph{}, fmt.Errorf("empty page MediaBox %v", *box)
	}

	content, err := f.pageContent(page.dict)
	if err != nil {
		return Subgraph{}, err
	}

	form := Stream{
		Args: Dict{
			"Type":    Name("XObject"),
			"Subtype": Name("Form"),
			"BBox":    Array{Real(box.Llx), Real(box.Lly), Real(box.Urx), Real(box.Ury)},
			"Matrix":  Array{Real(1 / w), Integer(0), Integer(0), Real(1 / h), Real(-box.Llx / w), Real(-box.Lly / h)},
		},
		Content: content,
	}
	if page.resources != nil {
		form.Args["Resources"] = page.resources
	} else {
		form.Args["Resources"] = Dict{}
	}

	root := f.MaxID() + 1
	sub := Subgraph{Root: root, Objects: map[ObjectID]Object{root: form}}
	queue := []Object{form}
	for len(queue) != 0 {
		o := queue[0]
		queue = queue[1:]
		walkRefs(o, func(r Reference) {
			id := refID(r)
			if _, seen := sub.Objects[id]; seen {
				return
			}
			target, ok := f.Objects[id]
			if !ok {
				return // dangling, reported by Merge
			}
			sub.Objects[id] = target
			queue = append(queue, target)
		})
	}
	return sub, nil
}
