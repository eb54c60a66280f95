package pdfgraph

import (
	"fmt"
	"slices"

	"github.com/ScriptRock/pdfgraph/internal/types"
)

// An Index maps object identities to their content. It is read-only once
// built and safe for concurrent use. The zero Index and a nil *Index are empty.
type Index struct {
	objs map[Ref]Object
}

// NewIndex returns an index holding a copy of objs.
func NewIndex(objs map[Ref]Object) *Index {
	m := make(map[Ref]Object, len(objs))
	for ref, obj := range objs {
		m[ref] = obj
	}
	return &Index{objs: m}
}

// Lookup returns the object with the given identity.
// ok is false if the index has no such object.
func (x *Index) Lookup(ref Ref) (obj Object, ok bool) {
	if x == nil {
		return nil, false
	}
	obj, ok = x.objs[ref]
	return obj, ok
}

// Len returns the number of objects.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.objs)
}

// Refs returns the identities in the index in ascending order.
func (x *Index) Refs() []Ref {
	if x == nil {
		return nil
	}
	refs := make([]Ref, 0, len(x.objs))
	for ref := range x.objs {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, Ref.Compare)
	return refs
}

// Range calls f for each object in ascending identity order until f
// returns false.
func (x *Index) Range(f func(Ref, Object) bool) {
	for _, ref := range x.Refs() {
		if !f(ref, x.objs[ref]) {
			return
		}
	}
}

// Deref follows obj through the index while it is a reference. A missing
// target yields a *DanglingRefError, and a chain that returns to an
// identity it already visited yields ErrRefCycle.
func (x *Index) Deref(obj Object) (Object, error) {
	var seen map[Ref]bool
	for {
		ref, ok := obj.(Ref)
		if !ok {
			return obj, nil
		}
		if seen[ref] {
			return nil, fmt.Errorf("dereferencing %v: %w", ref, ErrRefCycle)
		}
		if seen == nil {
			seen = make(map[Ref]bool)
		}
		seen[ref] = true
		if obj, ok = x.Lookup(ref); !ok {
			return nil, &DanglingRefError{To: ref}
		}
	}
}

// Renumber returns a copy of the index with objects numbered 1, 2, 3...
// in ascending identity order, all with generation 0, and every reference
// between them rewritten. References to identities outside the index are
// left as they are. The second result maps old identities to new ones.
func (x *Index) Renumber() (*Index, map[Ref]Ref) {
	refs := x.Refs()
	mapping := make(map[Ref]Ref, len(refs))
	for i, ref := range refs {
		mapping[ref] = Ref{ID: uint32(i + 1)}
	}
	objs := make(map[Ref]Object, len(refs))
	for _, ref := range refs {
		objs[mapping[ref]] = rewriteRefs(x.objs[ref], mapping)
	}
	return &Index{objs: objs}, mapping
}

// rewriteRefs returns a deep copy of obj with references replaced
// according to mapping.
func rewriteRefs(obj Object, mapping map[Ref]Ref) Object {
	switch obj := obj.(type) {
	case Ref:
		if to, ok := mapping[obj]; ok {
			return to
		}
		return obj
	case Dict:
		d := make(Dict, len(obj))
		for k, v := range obj {
			d[k] = rewriteRefs(v, mapping)
		}
		return d
	case Array:
		a := make(Array, len(obj))
		for i, v := range obj {
			a[i] = rewriteRefs(v, mapping)
		}
		return a
	case Stream:
		s := obj
		s.Hdr, _ = rewriteRefs(obj.Hdr, mapping).(types.Dict)
		if to, ok := mapping[obj.Ptr]; ok {
			s.Ptr = to
		}
		return s
	}
	return obj
}
