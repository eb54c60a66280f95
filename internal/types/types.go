package types

import (
	"bytes"
	"cmp"
	"fmt"
)

// A Name is a PDF name, without the leading slash.
type Name string

// An Object is a PDF syntax object, one of the following Go types:
//
//	bool, a PDF boolean
//	int64, a PDF integer
//	float64, a PDF real
//	string, a PDF string literal
//	Name, a PDF name without the leading slash
//	Dict, a PDF dictionary
//	Array, a PDF array
//	Stream, a PDF stream
//	ObjectStream, a PDF object stream container
//	Objptr, a PDF object reference
//	Objdef, a PDF object definition
//
// An Object may also be nil, to represent the PDF null.
type Object any

type Dict map[Name]Object

type Array []Object

// A Stream is a stream header together with its raw, undecoded payload.
type Stream struct {
	Hdr    Dict
	Ptr    Objptr
	Offset int64
	Data   []byte
}

// An ObjectStream is a /Type /ObjStm stream whose contents have already been
// unpacked into standalone objects. Objects lists the contained identities in
// stream order.
type ObjectStream struct {
	Stream
	Objects []Objptr
}

// An Objptr identifies an indirect object.
type Objptr struct {
	ID  uint32
	Gen uint16
}

func (p Objptr) String() string { return fmt.Sprintf("%d %d R", p.ID, p.Gen) }

// Compare orders pointers by object number, then generation.
func (p Objptr) Compare(q Objptr) int {
	if c := cmp.Compare(p.ID, q.ID); c != 0 {
		return c
	}
	return cmp.Compare(p.Gen, q.Gen)
}

func (p Objptr) Less(q Objptr) bool { return p.Compare(q) < 0 }

type Objdef struct {
	Ptr Objptr
	Obj Object
}

// An Xref is one cross-reference entry.
type Xref struct {
	Ptr      Objptr
	Free     bool
	InStream bool
	Stream   Objptr
	Offset   int64
}

// A Kind is the kind of an Object.
type Kind int

const (
	NullKind Kind = iota
	BoolKind
	IntegerKind
	RealKind
	StringKind
	NameKind
	DictKind
	ArrayKind
	StreamKind
	ObjectStreamKind
	RefKind
	InvalidKind
)

var kindNames = [...]string{
	NullKind:         "null",
	BoolKind:         "boolean",
	IntegerKind:      "integer",
	RealKind:         "real",
	StringKind:       "string",
	NameKind:         "name",
	DictKind:         "dictionary",
	ArrayKind:        "array",
	StreamKind:       "stream",
	ObjectStreamKind: "object stream",
	RefKind:          "reference",
	InvalidKind:      "invalid",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindOf reports the kind of x. Go values outside the closed set of object
// types report InvalidKind.
func KindOf(x Object) Kind {
	switch x.(type) {
	case nil:
		return NullKind
	case bool:
		return BoolKind
	case int64:
		return IntegerKind
	case float64:
		return RealKind
	case string:
		return StringKind
	case Name:
		return NameKind
	case Dict:
		return DictKind
	case Array:
		return ArrayKind
	case Stream:
		return StreamKind
	case ObjectStream:
		return ObjectStreamKind
	case Objptr:
		return RefKind
	}
	return InvalidKind
}

// Equal reports whether a and b are structurally equal. Streams compare by
// header and payload; their file position is ignored. References compare by
// identity and are not followed.
func Equal(a, b Object) bool {
	switch a := a.(type) {
	case Dict:
		b, ok := b.(Dict)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Array:
		b, ok := b.(Array)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case Stream:
		b, ok := b.(Stream)
		return ok && Equal(a.Hdr, b.Hdr) && bytes.Equal(a.Data, b.Data)
	case ObjectStream:
		b, ok := b.(ObjectStream)
		if !ok || len(a.Objects) != len(b.Objects) || !Equal(a.Stream, b.Stream) {
			return false
		}
		for i := range a.Objects {
			if a.Objects[i] != b.Objects[i] {
				return false
			}
		}
		return true
	case nil, bool, int64, float64, string, Name, Objptr:
		return KindOf(b) == KindOf(a) && a == b
	}
	return false
}
