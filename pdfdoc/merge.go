package pdfdoc

import (
	"fmt"
	"sort"
)

// InvariantError is returned when an object graph is not consistent.
// It denotes a bug rather than an invalid input.
type InvariantError struct {
	Reason string
}

func (e InvariantError) Error() string { return e.Reason }

// Allocator provides fresh object numbers, starting at 1.
type Allocator struct {
	last ObjectID
}

// Next returns a new object number.
func (a *Allocator) Next() ObjectID {
	a.last++
	return a.last
}

// Last returns the last allocated number, or 0.
func (a *Allocator) Last() ObjectID { return a.last }

// Subgraph is a set of objects, numbered independently of
// any document, drawn from a root object.
type Subgraph struct {
	Root    ObjectID
	Objects map[ObjectID]Object
}

// Merge renumbers the objects of `sub` with ids provided by `alloc`.
// The root comes first, followed by the objects reachable from it (breadth first),
// and finally by the other members of the subgraph, by increasing number.
// The returned objects are sorted by id and `root` is the new number of sub.Root.
func Merge(alloc *Allocator, sub Subgraph) (objects []IndirectObject, root ObjectID, err error) {
	if _, ok := sub.Objects[sub.Root]; !ok {
		return nil, 0, InvariantError{Reason: "failed to map SVG reference"}
	}

	mapping := make(map[ObjectID]ObjectID, len(sub.Objects))
	var queue []ObjectID
	see := func(old ObjectID) ObjectID {
		id, ok := mapping[old]
		if !ok {
			id = alloc.Next()
			mapping[old] = id
			queue = append(queue, old)
		}
		return id
	}
	remap := func(r Reference) (Reference, error) {
		if _, ok := sub.Objects[refID(r)]; !ok {
			return Reference{}, InvariantError{Reason: fmt.Sprintf("dangling reference %d 0 R", r.ObjectNumber)}
		}
		return Ref(see(refID(r))), nil
	}
	process := func() error {
		for len(queue) != 0 {
			old := queue[0]
			queue = queue[1:]
			body, err := mapRefs(sub.Objects[old], remap)
			if err != nil {
				return err
			}
			objects = append(objects, IndirectObject{ID: mapping[old], Object: body})
		}
		return nil
	}

	root = see(sub.Root)
	if err := process(); err != nil {
		return nil, 0, err
	}

	// unreachable members are carried too
	rest := make([]ObjectID, 0, len(sub.Objects)-len(mapping))
	for old := range sub.Objects {
		if _, ok := mapping[old]; !ok {
			rest = append(rest, old)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, old := range rest {
		if _, ok := mapping[old]; ok { // reached from a previous member
			continue
		}
		see(old)
		if err := process(); err != nil {
			return nil, 0, err
		}
	}
	return objects, root, nil
}
