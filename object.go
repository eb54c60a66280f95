package pdfgraph

import (
	"errors"
	"fmt"

	"github.com/ScriptRock/pdfgraph/internal/types"
)

// Object model. An Object is nil (null), bool, int64, float64, string,
// Name, Array, Dict, Stream, ObjectStream or Ref. Objects are not mutated
// after parsing.
type (
	Object       = types.Object
	Name         = types.Name
	Dict         = types.Dict
	Array        = types.Array
	Stream       = types.Stream
	ObjectStream = types.ObjectStream

	// A Ref is the (object number, generation) identity of an indirect object.
	// Inside an Array or Dict it is an unresolved reference.
	Ref = types.Objptr

	// A Kind classifies an Object.
	Kind = types.Kind
)

const (
	NullKind         = types.NullKind
	BoolKind         = types.BoolKind
	IntegerKind      = types.IntegerKind
	RealKind         = types.RealKind
	StringKind       = types.StringKind
	NameKind         = types.NameKind
	DictKind         = types.DictKind
	ArrayKind        = types.ArrayKind
	StreamKind       = types.StreamKind
	ObjectStreamKind = types.ObjectStreamKind
	RefKind          = types.RefKind
	InvalidKind      = types.InvalidKind
)

// KindOf reports the kind of obj.
func KindOf(obj Object) Kind { return types.KindOf(obj) }

// Equal reports whether a and b are structurally equal, without following
// references.
func Equal(a, b Object) bool { return types.Equal(a, b) }

// A Revision is the set of objects declared by one cross-reference section:
// the original body of the file or one incremental update.
type Revision struct {
	Objects map[Ref]Object
	// Free lists identities marked free in this revision's cross-reference section.
	Free    []Ref
	Trailer Dict
}

// A Parsed document is the output of the byte-level reader.
type Parsed struct {
	Original Revision
	// Updates are ordered oldest to newest.
	Updates []Revision

	// Every dictionary and array value encountered while reading.
	Dicts  []Dict
	Arrays []Array

	Version string
}

// Latest returns the newest revision.
func (p *Parsed) Latest() Revision {
	if n := len(p.Updates); n > 0 {
		return p.Updates[n-1]
	}
	return p.Original
}

var (
	// ErrMalformed is wrapped by every structural parse failure.
	ErrMalformed = errors.New("malformed PDF")
	// ErrEncrypted is returned for files using a security handler.
	ErrEncrypted = errors.New("unsupported PDF: encrypted")
	// ErrRefCycle is returned when a chain of references never reaches a value.
	ErrRefCycle = errors.New("reference cycle")
)

// A DanglingRefError records a reference to an object missing from the index.
type DanglingRefError struct {
	From Ref    // object holding the reference; zero for the trailer
	Path string // location inside From, like /Pages/Kids[2]
	To   Ref
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("dangling reference %v at %v%s", e.To, e.From, e.Path)
}
