package pdfgraph

import (
	"fmt"
	"slices"
)

// maxNesting bounds the depth of arrays and dictionaries read by the
// tokenizer. Resolve stops extending paths below it.
const maxNesting = 512

// truncated ends a path that reached maxNesting.
const truncated = "/..."

// Resolve checks every reference held inside the objects of idx and
// returns one error per reference whose target is missing from the index.
// References are checked, not followed, so cycles between objects are
// harmless. The result is ordered by holder identity, then by path.
func Resolve(idx *Index) []*DanglingRefError {
	var failures []*DanglingRefError
	idx.Range(func(ref Ref, obj Object) bool {
		failures = append(failures, danglingRefs(idx, ref, "", obj)...)
		return true
	})
	return failures
}

// danglingRefs reports the references inside obj that idx cannot resolve.
// obj is located at path inside the object from.
func danglingRefs(idx *Index, from Ref, path string, obj Object) []*DanglingRefError {
	var failures []*DanglingRefError
	walkRefs(obj, path, 0, func(path string, to Ref) {
		if _, ok := idx.Lookup(to); !ok {
			failures = append(failures, &DanglingRefError{From: from, Path: path, To: to})
		}
	})
	return failures
}

// walkRefs calls visit for every reference in the direct object tree of
// obj, visiting dictionary keys in sorted order. Below maxNesting the path
// is no longer extended and ends in truncated.
func walkRefs(obj Object, path string, depth int, visit func(path string, ref Ref)) {
	child := func(elem string) string {
		switch {
		case depth < maxNesting:
			return path + elem
		case depth == maxNesting:
			return path + truncated
		}
		return path
	}
	switch obj := obj.(type) {
	case Ref:
		visit(path, obj)
	case Array:
		for i, v := range obj {
			walkRefs(v, child(fmt.Sprintf("[%d]", i)), depth+1, visit)
		}
	case Dict:
		keys := make([]Name, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			walkRefs(obj[k], child("/"+string(k)), depth+1, visit)
		}
	case Stream:
		walkRefs(obj.Hdr, path, depth, visit)
	case ObjectStream:
		walkRefs(obj.Hdr, path, depth, visit)
	}
}
