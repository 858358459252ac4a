// Package pdfdoc reads simple PDF files, renumbers object graphs and
// writes single page documents embedding an existing content as a
// Form XObject.
//
// Objects are the syntax tree types of github.com/benoitkugler/pdf/model,
// as produced by its parser.
package pdfdoc

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/benoitkugler/pdf/model"
)

// ObjectID is the number of an indirect object.
// Valid IDs start at 1.
type ObjectID int

// Object is a node of a PDF syntax tree.
type Object = model.Object

type (
	Null    = model.ObjNull
	Bool    = model.ObjBool
	Integer = model.ObjInt
	Real    = model.ObjFloat
	String  = model.ObjStringLiteral
	Name    = model.ObjName
	Array   = model.ObjArray
	Dict    = model.ObjDict
	// Stream is a dictionary (Args) followed by its content, as stored
	// in the file. The /Length entry is computed when writing.
	Stream = model.ObjStream
	// Reference is an indirect reference. Generation numbers are always 0.
	Reference = model.ObjIndirectRef
)

// Ref returns a reference to the object `id`.
func Ref(id ObjectID) Reference { return Reference{ObjectNumber: int(id)} }

func refID(r Reference) ObjectID { return ObjectID(r.ObjectNumber) }

// sortedKeys returns the keys of the dictionary, sorted
func sortedKeys(d Dict) []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// formatNumber writes f with at most `prec` decimals (-1 for the
// shortest exact representation), without exponent and trailing zeros.
func formatNumber(f float64, prec int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.IndexByte(s, '.') != -1 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// IndirectObject is a numbered object.
type IndirectObject struct {
	ID     ObjectID
	Object Object
}

// walkRefs calls fn for every reference found in o, in a deterministic order:
// dictionaries by key, arrays by index.
func walkRefs(o Object, fn func(Reference)) {
	switch o := o.(type) {
	case Reference:
		fn(o)
	case Array:
		for _, v := range o {
			walkRefs(v, fn)
		}
	case Dict:
		for _, k := range sortedKeys(o) {
			walkRefs(o[k], fn)
		}
	case Stream:
		walkRefs(o.Args, fn)
	}
}

// mapRefs returns a deep copy of o, where each reference is replaced
// by the result of fn.
func mapRefs(o Object, fn func(Reference) (Reference, error)) (Object, error) {
	switch o := o.(type) {
	case Reference:
		return fn(o)
	case Array:
		out := make(Array, len(o))
		for i, v := range o {
			var err error
			out[i], err = mapRefs(v, fn)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case Dict:
		out := make(Dict, len(o))
		for _, k := range sortedKeys(o) {
			var err error
			out[k], err = mapRefs(o[k], fn)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case Stream:
		args, err := mapRefs(o.Args, fn)
		if err != nil {
			return nil, err
		}
		return Stream{Args: args.(Dict), Content: append([]byte(nil), o.Content...)}, nil
	case nil:
		return Null{}, nil
	default:
		return o.Clone(), nil
	}
}
